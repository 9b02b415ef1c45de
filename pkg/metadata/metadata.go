package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	fileMode = 0644
	indent   = "  "
)

// Document is the generated collection metadata file.
type Document struct {
	Collection []*Entry `json:"collection"`
}

// Entry is a single generated token with its raw trait layers.
type Entry struct {
	Name       string       `json:"name"`
	Attributes []*Attribute `json:"attributes"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Token is the enriched record written to the tokens file.
type Token struct {
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	Image      string            `json:"image"`
	Attributes map[string]string `json:"attributes"`
	Score      float64           `json:"score"`
}

// ParseTokenID strips every '#' from name and parses the rest as the token id.
func ParseTokenID(name string) (int, error) {
	id, err := strconv.Atoi(TokenKey(name))
	if err != nil {
		return 0, fmt.Errorf("parsing token id from name %q: %w", name, err)
	}
	return id, nil
}

// TokenKey returns the id part of name as it appears in rarity tables.
func TokenKey(name string) string {
	return strings.ReplaceAll(name, "#", "")
}

// LoadCollection reads the metadata document at path.
func LoadCollection(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding metadata file %s: %w", path, err)
	}
	return &doc, nil
}

// WriteJSON writes v to path as 2-space indented JSON.
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
