package store

import (
	"database/sql"
	"fmt"

	"github.com/mchmarny/nftmeta/pkg/metadata"
)

const (
	insertToken = `INSERT INTO token (id, rank, name, image, score) VALUES (?, ?, ?, ?, ?)`

	insertTokenAttribute = `INSERT INTO token_attribute (token_id, category, value) VALUES (?, ?, ?)`

	selectTopTokens = `SELECT id, name, image, score FROM token ORDER BY rank LIMIT ?`

	selectTokenAttributes = `SELECT category, value FROM token_attribute WHERE token_id = ?`
)

// SaveTokens replaces the stored tokens with tokens, ranked in slice order.
func SaveTokens(db *sql.DB, tokens []*metadata.Token) error {
	if db == nil {
		return ErrDBNotInitialized
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	for _, q := range []string{"DELETE FROM token_attribute", "DELETE FROM token"} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clearing tokens: %w", err)
		}
	}

	tokenStmt, err := tx.Prepare(insertToken)
	if err != nil {
		return fmt.Errorf("preparing token insert: %w", err)
	}
	defer tokenStmt.Close()

	attrStmt, err := tx.Prepare(insertTokenAttribute)
	if err != nil {
		return fmt.Errorf("preparing attribute insert: %w", err)
	}
	defer attrStmt.Close()

	for i, t := range tokens {
		if _, err := tokenStmt.Exec(t.ID, i+1, t.Name, t.Image, t.Score); err != nil {
			return fmt.Errorf("inserting token %d: %w", t.ID, err)
		}
		for category, value := range t.Attributes {
			if _, err := attrStmt.Exec(t.ID, category, value); err != nil {
				return fmt.Errorf("inserting token %d attribute %s: %w", t.ID, category, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tokens: %w", err)
	}
	return nil
}

// GetTopTokens returns up to limit tokens in rank order.
func GetTopTokens(db *sql.DB, limit int) ([]*metadata.Token, error) {
	if db == nil {
		return nil, ErrDBNotInitialized
	}

	rows, err := db.Query(selectTopTokens, limit)
	if err != nil {
		return nil, fmt.Errorf("querying tokens: %w", err)
	}
	defer rows.Close()

	list := make([]*metadata.Token, 0)
	for rows.Next() {
		t := &metadata.Token{Attributes: make(map[string]string)}
		if err := rows.Scan(&t.ID, &t.Name, &t.Image, &t.Score); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens: %w", err)
	}

	for _, t := range list {
		if err := loadAttributes(db, t); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func loadAttributes(db *sql.DB, t *metadata.Token) error {
	rows, err := db.Query(selectTokenAttributes, t.ID)
	if err != nil {
		return fmt.Errorf("querying token %d attributes: %w", t.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, value string
		if err := rows.Scan(&category, &value); err != nil {
			return fmt.Errorf("scanning token %d attribute: %w", t.ID, err)
		}
		t.Attributes[category] = value
	}
	return rows.Err()
}
