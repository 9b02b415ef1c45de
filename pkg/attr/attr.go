package attr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnknownValue is returned when a trait value has no display name.
var ErrUnknownValue = errors.New("unknown attribute value")

// NameTable maps raw trait values to display names.
type NameTable map[string]string

// LoadNameTable reads a JSON object of raw value to display name.
func LoadNameTable(path string) (NameTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attribute names file %s: %w", path, err)
	}

	var t NameTable
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decoding attribute names file %s: %w", path, err)
	}
	return t, nil
}

// Renamer turns raw trait layers into display categories and names.
type Renamer struct {
	names    NameTable
	prefix   string
	excluded map[string]bool
}

// NewRenamer returns a renamer looking values up in names after removing
// prefix. Categories in excluded are skipped.
func NewRenamer(names NameTable, prefix string, excluded []string) *Renamer {
	r := &Renamer{
		names:    names,
		prefix:   prefix,
		excluded: make(map[string]bool, len(excluded)),
	}
	for _, e := range excluded {
		r.excluded[e] = true
	}
	return r
}

// Rename returns the display category and name for a raw trait.
// skip is true for excluded categories, in which case no lookup happens.
func (r *Renamer) Rename(traitType, value string) (category, name string, skip bool, err error) {
	category = CapitalizeWords(traitType)
	if r.excluded[category] {
		return category, "", true, nil
	}

	key := StripPrefix(value, r.prefix)
	name, ok := r.names[key]
	if !ok {
		return category, "", false, fmt.Errorf("%w: %q (category %s)", ErrUnknownValue, key, category)
	}
	return category, name, false, nil
}

// StripPrefix removes every occurrence of prefix from value.
func StripPrefix(value, prefix string) string {
	if prefix == "" {
		return value
	}
	return strings.ReplaceAll(value, prefix, "")
}

// CapitalizeWords upper-cases the first letter and lower-cases the rest of
// every space separated word. Repeated spaces are kept.
func CapitalizeWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}
