package store

import (
	"database/sql"
	"fmt"

	"github.com/mchmarny/nftmeta/pkg/score"
)

const (
	insertCategoryStat = `INSERT INTO category_stat (category, position, count, percentage) VALUES (?, ?, ?, ?)`

	insertAttributeStat = `INSERT INTO attribute_stat (category, value, position, count, percentage, score)
		VALUES (?, ?, ?, ?, ?, ?)`

	selectCategoryStats = `SELECT category, count, percentage FROM category_stat ORDER BY position`

	selectAttributeStats = `SELECT category, value, count, percentage, score FROM attribute_stat
		ORDER BY category, position`
)

type AttributeStat struct {
	Value      string  `json:"value" yaml:"value"`
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Score      float64 `json:"score" yaml:"score"`
}

type CategoryStat struct {
	Category   string           `json:"category" yaml:"category"`
	Count      int              `json:"count" yaml:"count"`
	Percentage float64          `json:"percentage" yaml:"percentage"`
	Attributes []*AttributeStat `json:"attributes" yaml:"attributes"`
}

// SaveStats replaces the stored collection stats.
func SaveStats(db *sql.DB, s *score.Stats) error {
	if db == nil {
		return ErrDBNotInitialized
	}
	if s == nil {
		return fmt.Errorf("stats required")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	for _, q := range []string{"DELETE FROM attribute_stat", "DELETE FROM category_stat"} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clearing stats: %w", err)
		}
	}

	for i, category := range s.Categories() {
		c, _ := s.Category(category)
		if _, err := tx.Exec(insertCategoryStat, category, i, c.Count, c.Percentage); err != nil {
			return fmt.Errorf("inserting category %s: %w", category, err)
		}
		for j, name := range c.Names() {
			a, _ := c.Attribute(name)
			if _, err := tx.Exec(insertAttributeStat, category, name, j, a.Count, a.Percentage, a.Score); err != nil {
				return fmt.Errorf("inserting attribute %s/%s: %w", category, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stats: %w", err)
	}
	return nil
}

// GetCategoryStats returns the stored stats in their saved order.
func GetCategoryStats(db *sql.DB) ([]*CategoryStat, error) {
	if db == nil {
		return nil, ErrDBNotInitialized
	}

	rows, err := db.Query(selectCategoryStats)
	if err != nil {
		return nil, fmt.Errorf("querying category stats: %w", err)
	}
	defer rows.Close()

	list := make([]*CategoryStat, 0)
	byCategory := make(map[string]*CategoryStat)
	for rows.Next() {
		c := &CategoryStat{Attributes: make([]*AttributeStat, 0)}
		if err := rows.Scan(&c.Category, &c.Count, &c.Percentage); err != nil {
			return nil, fmt.Errorf("scanning category stat: %w", err)
		}
		list = append(list, c)
		byCategory[c.Category] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category stats: %w", err)
	}

	attrRows, err := db.Query(selectAttributeStats)
	if err != nil {
		return nil, fmt.Errorf("querying attribute stats: %w", err)
	}
	defer attrRows.Close()

	for attrRows.Next() {
		var category string
		a := &AttributeStat{}
		if err := attrRows.Scan(&category, &a.Value, &a.Count, &a.Percentage, &a.Score); err != nil {
			return nil, fmt.Errorf("scanning attribute stat: %w", err)
		}
		if c, ok := byCategory[category]; ok {
			c.Attributes = append(c.Attributes, a)
		}
	}
	if err := attrRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attribute stats: %w", err)
	}
	return list, nil
}
