package rarity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/nftmeta/pkg/attr"
	"github.com/mchmarny/nftmeta/pkg/metadata"
)

const (
	idTrait     = "id"
	rarityTrait = "rarity"
)

// Token is the record of the rarity export, predating score based ranking.
type Token struct {
	ID         int               `json:"id"`
	Rarity     float64           `json:"rarity"`
	RarityType string            `json:"rarity_type"`
	Attributes map[string]string `json:"attributes"`
}

// Export builds the rarity token list. Attribute keys are the lower-cased
// trait types with spaces turned into underscores.
func Export(doc *metadata.Document, t Table, prefix string) ([]*Token, error) {
	if doc == nil {
		return nil, errors.New("metadata document required")
	}

	list := make([]*Token, 0, len(doc.Collection))
	for _, e := range doc.Collection {
		key := metadata.TokenKey(e.Name)
		id, err := metadata.ParseTokenID(e.Name)
		if err != nil {
			return nil, err
		}

		raw, err := t.Lookup(key)
		if err != nil {
			return nil, err
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing rarity %q of token %s: %w", raw, key, err)
		}

		tk := &Token{
			ID:         id,
			Rarity:     r,
			RarityType: TypeOf(r),
			Attributes: make(map[string]string, len(e.Attributes)),
		}
		for _, a := range e.Attributes {
			k := strings.ReplaceAll(strings.ToLower(a.TraitType), " ", "_")
			tk.Attributes[k] = attr.StripPrefix(a.Value, prefix)
		}
		list = append(list, tk)
	}
	return list, nil
}

// AppendToMetadata adds id and rarity traits to every entry of the metadata
// file at path and rewrites it. Fields the tool does not know are kept.
// Returns the number of updated entries.
func AppendToMetadata(path string, t Table) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading metadata file %s: %w", path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return 0, fmt.Errorf("decoding metadata file %s: %w", path, err)
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(doc["collection"], &entries); err != nil {
		return 0, fmt.Errorf("decoding collection of %s: %w", path, err)
	}

	for i, e := range entries {
		if err := appendTraits(e, t); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	if doc["collection"], err = json.Marshal(entries); err != nil {
		return 0, fmt.Errorf("encoding collection: %w", err)
	}

	if err := metadata.WriteJSON(path, doc); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func appendTraits(e map[string]json.RawMessage, t Table) error {
	var name string
	if err := json.Unmarshal(e["name"], &name); err != nil {
		return fmt.Errorf("decoding name: %w", err)
	}
	key := metadata.TokenKey(name)

	r, err := t.Lookup(key)
	if err != nil {
		return err
	}

	var attrs []json.RawMessage
	if raw, ok := e["attributes"]; ok {
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return fmt.Errorf("decoding attributes of %s: %w", name, err)
		}
	}

	for _, a := range []*metadata.Attribute{
		{TraitType: idTrait, Value: key},
		{TraitType: rarityTrait, Value: r},
	} {
		ab, err := json.Marshal(a)
		if err != nil {
			return err
		}
		attrs = append(attrs, ab)
	}

	if e["attributes"], err = json.Marshal(attrs); err != nil {
		return fmt.Errorf("encoding attributes of %s: %w", name, err)
	}
	return nil
}
