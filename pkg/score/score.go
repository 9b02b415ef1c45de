package score

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/mchmarny/nftmeta/pkg/attr"
	"github.com/mchmarny/nftmeta/pkg/config"
	"github.com/mchmarny/nftmeta/pkg/metadata"
)

var (
	ErrPlaceholderOutOfRange = errors.New("placeholder position out of range")
	ErrMissingStats          = errors.New("attribute missing from collection stats")
)

// Result is the output of Fix.
type Result struct {
	Tokens []*metadata.Token `json:"tokens"`
	Stats  *Stats            `json:"stats"`
}

// Fix builds the scored token list and the collection stats from doc.
func Fix(doc *metadata.Document, names attr.NameTable, cfg *config.Config) (*Result, error) {
	if doc == nil {
		return nil, errors.New("metadata document required")
	}
	if cfg == nil {
		return nil, errors.New("config required")
	}

	r := attr.NewRenamer(names, cfg.ArtifactPrefix, cfg.ExcludedCategories)
	tokens, stats, err := BuildTokens(doc, r, cfg)
	if err != nil {
		return nil, fmt.Errorf("building tokens: %w", err)
	}

	if err := ScoreTokens(tokens, stats); err != nil {
		return nil, fmt.Errorf("scoring tokens: %w", err)
	}

	SortByScore(tokens)

	if err := ApplyPlaceholders(tokens, cfg); err != nil {
		return nil, fmt.Errorf("applying placeholders: %w", err)
	}

	slog.Debug("collection fixed", "tokens", len(tokens), "categories", len(stats.Categories()))
	return &Result{Tokens: tokens, Stats: stats}, nil
}

// BuildTokens converts each collection entry into a token with renamed
// attributes and applies the eyes correction. Stats count every renamed
// attribute in input order, before the correction, so a corrected value only
// changes which score the token looks up.
func BuildTokens(doc *metadata.Document, r *attr.Renamer, cfg *config.Config) ([]*metadata.Token, *Stats, error) {
	tokens := make([]*metadata.Token, 0, len(doc.Collection))
	stats := newStats(len(doc.Collection))
	for _, e := range doc.Collection {
		id, err := metadata.ParseTokenID(e.Name)
		if err != nil {
			return nil, nil, err
		}
		key := metadata.TokenKey(e.Name)

		t := &metadata.Token{
			ID:         id,
			Name:       cfg.Render(cfg.NameTemplate, key),
			Image:      cfg.Render(cfg.ImageTemplate, key),
			Attributes: make(map[string]string),
		}

		for _, a := range e.Attributes {
			category, name, skip, err := r.Rename(a.TraitType, a.Value)
			if err != nil {
				return nil, nil, fmt.Errorf("token %d: %w", id, err)
			}
			if skip {
				continue
			}
			t.Attributes[category] = name
			stats.add(category, name)
		}

		if ApplyEyesCorrection(t, cfg.Eyes) {
			slog.Debug("eyes corrected", "id", id)
		}
		tokens = append(tokens, t)
	}
	stats.finalize()
	return tokens, stats, nil
}

// ApplyEyesCorrection sets the rule's category to its value on tokens wearing
// the trigger value. An existing value is only replaced when it is listed in
// Replaceable. Returns true when the token was changed.
func ApplyEyesCorrection(t *metadata.Token, rule config.EyesRule) bool {
	if t.Attributes[rule.TriggerCategory] != rule.TriggerValue {
		return false
	}

	current, ok := t.Attributes[rule.Category]
	if ok && !slices.Contains(rule.Replaceable, current) {
		return false
	}
	if ok && current == rule.Value {
		return false
	}

	t.Attributes[rule.Category] = rule.Value
	return true
}

// ScoreTokens sets each token score to the rounded sum of its attribute scores.
// Missing categories add nothing. A value without stats, such as a corrected
// value no token carried originally, returns ErrMissingStats.
func ScoreTokens(tokens []*metadata.Token, stats *Stats) error {
	for _, t := range tokens {
		var total float64
		for _, category := range sortedKeys(t.Attributes) {
			value := t.Attributes[category]
			s, ok := stats.AttributeScore(category, value)
			if !ok {
				return fmt.Errorf("%w: token %d %s=%s", ErrMissingStats, t.ID, category, value)
			}
			total += s
		}
		t.Score = round2(total)
	}
	return nil
}

// SortByScore orders tokens by descending score, keeping ties in input order.
func SortByScore(tokens []*metadata.Token) {
	slices.SortStableFunc(tokens, func(a, b *metadata.Token) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

// ApplyPlaceholders overwrites the reserved slots of the sorted list. Each
// replaced slot keeps its token id. A negative special index disables the
// special placeholder.
func ApplyPlaceholders(tokens []*metadata.Token, cfg *config.Config) error {
	p := cfg.Placeholders
	n := len(tokens)

	start := n - p.TailOffset
	if p.Count > 0 && (start < 0 || start+p.Count > n) {
		return fmt.Errorf("%w: %d slots from %d in %d tokens", ErrPlaceholderOutOfRange, p.Count, start, n)
	}
	if p.SpecialIndex >= n {
		return fmt.Errorf("%w: index %d in %d tokens", ErrPlaceholderOutOfRange, p.SpecialIndex, n)
	}

	for i := 1; i <= p.Count; i++ {
		pos := start + i - 1
		tokens[pos] = placeholder(tokens[pos].ID, cfg.Render(p.NameTemplate, strconv.Itoa(i)), cfg.Render(p.ImageTemplate, strconv.Itoa(i)), p.Score)
	}

	if p.SpecialIndex >= 0 {
		pos := p.SpecialIndex
		tokens[pos] = placeholder(tokens[pos].ID, p.SpecialName, cfg.Render(p.SpecialImage, strconv.Itoa(tokens[pos].ID)), p.Score)
	}
	return nil
}

func placeholder(id int, name, image string, score float64) *metadata.Token {
	return &metadata.Token{
		ID:         id,
		Name:       name,
		Image:      image,
		Attributes: map[string]string{},
		Score:      score,
	}
}
