package rarity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	TypeUltraRare = "ultra_rare"
	TypeRare      = "rare"
	TypeCommon    = "common"

	ultraRareMin = 353.62
	rareMin      = 300.11
)

var (
	ErrMalformedRow = errors.New("malformed rarity row")
	ErrUnknownToken = errors.New("token missing from rarity table")
)

// Table maps a token id to its rarity value as it appears in the file.
type Table map[string]string

// LoadTable reads a comma-delimited (id, rarity) file.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rarity file %s: %w", path, err)
	}
	defer f.Close()

	t, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("parsing rarity file %s: %w", path, err)
	}
	return t, nil
}

// ParseTable reads rows of (id, rarity). Extra columns are ignored and later
// rows override earlier ones with the same id. Bare quotes are kept as data.
func ParseTable(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := make(Table)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedRow, line, len(row))
		}
		t[row[0]] = row[1]
	}
	return t, nil
}

// Lookup returns the rarity of token id.
func (t Table) Lookup(id string) (string, error) {
	v, ok := t[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, id)
	}
	return v, nil
}

// TypeOf classifies a rarity value.
func TypeOf(rarity float64) string {
	switch {
	case rarity >= ultraRareMin:
		return TypeUltraRare
	case rarity >= rareMin:
		return TypeRare
	default:
		return TypeCommon
	}
}
