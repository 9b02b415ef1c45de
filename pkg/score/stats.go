package score

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/mchmarny/nftmeta/pkg/metadata"
)

// NoneAttribute is the synthetic bucket for tokens missing a category.
const NoneAttribute = "None"

type AttributeStats struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Score      float64 `json:"score"`
}

// CategoryStats holds the per-value breakdown of one category.
// Values keep the order in which they were first seen, NoneAttribute last.
type CategoryStats struct {
	Count      int
	Percentage float64

	names      []string
	attributes map[string]*AttributeStats
}

func newCategoryStats() *CategoryStats {
	return &CategoryStats{attributes: make(map[string]*AttributeStats)}
}

func (c *CategoryStats) add(name string) {
	a, ok := c.attributes[name]
	if !ok {
		a = &AttributeStats{}
		c.attributes[name] = a
		c.names = append(c.names, name)
	}
	a.Count++
	c.Count++
}

// Attribute returns the stats of a single value.
func (c *CategoryStats) Attribute(name string) (*AttributeStats, bool) {
	a, ok := c.attributes[name]
	return a, ok
}

// Names returns the value names in output order.
func (c *CategoryStats) Names() []string {
	return c.names
}

func (c *CategoryStats) MarshalJSON() ([]byte, error) {
	attrs, err := marshalOrdered(c.names, func(k string) any { return c.attributes[k] })
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Count      int             `json:"count"`
		Percentage float64         `json:"percentage"`
		Attributes json.RawMessage `json:"attributes"`
	}{c.Count, c.Percentage, attrs})
}

// Stats is the collection breakdown keyed by category in first-seen order.
type Stats struct {
	Total int

	categories []string
	byCategory map[string]*CategoryStats
}

// Category returns the stats of one category.
func (s *Stats) Category(name string) (*CategoryStats, bool) {
	c, ok := s.byCategory[name]
	return c, ok
}

// Categories returns the category names in output order.
func (s *Stats) Categories() []string {
	return s.categories
}

// AttributeScore returns the score of value within category.
func (s *Stats) AttributeScore(category, value string) (float64, bool) {
	c, ok := s.byCategory[category]
	if !ok {
		return 0, false
	}
	a, ok := c.attributes[value]
	if !ok {
		return 0, false
	}
	return a.Score, true
}

func (s *Stats) MarshalJSON() ([]byte, error) {
	return marshalOrdered(s.categories, func(k string) any { return s.byCategory[k] })
}

// ComputeStats counts every category and value across tokens. Values score
// round(1/(count/total), 2); the None bucket holds the tokens without the
// category and scores 0. Token attributes carry no order, so each token's
// categories are visited in sorted order.
func ComputeStats(tokens []*metadata.Token) *Stats {
	s := newStats(len(tokens))
	for _, t := range tokens {
		for _, category := range sortedKeys(t.Attributes) {
			s.add(category, t.Attributes[category])
		}
	}
	s.finalize()
	return s
}

func newStats(total int) *Stats {
	return &Stats{
		Total:      total,
		byCategory: make(map[string]*CategoryStats),
	}
}

func (s *Stats) add(category, value string) {
	c, ok := s.byCategory[category]
	if !ok {
		c = newCategoryStats()
		s.byCategory[category] = c
		s.categories = append(s.categories, category)
	}
	c.add(value)
}

// finalize sets percentages and scores once all values are counted.
func (s *Stats) finalize() {
	total := float64(s.Total)
	for _, category := range s.categories {
		c := s.byCategory[category]
		c.Percentage = round2(float64(c.Count) * 100 / total)
		for _, a := range c.attributes {
			a.Percentage = round2(float64(a.Count) * 100 / total)
			a.Score = round2(1 / (float64(a.Count) / total))
		}

		// a real value named None is replaced by the missing bucket
		if _, ok := c.attributes[NoneAttribute]; !ok {
			c.names = append(c.names, NoneAttribute)
		}
		missing := s.Total - c.Count
		c.attributes[NoneAttribute] = &AttributeStats{
			Count:      missing,
			Percentage: round2(float64(missing) * 100 / total),
		}
	}
}

// round2 rounds to two decimals the way the legacy scores were rounded: the
// exact binary value to nearest, ties to even.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshalOrdered(keys []string, value func(string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(value(k))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
