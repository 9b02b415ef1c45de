package score

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mchmarny/nftmeta/pkg/attr"
	"github.com/mchmarny/nftmeta/pkg/config"
	"github.com/mchmarny/nftmeta/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = attr.NameTable{
	"1": "Green Eyes",
	"2": "Red Eyes",
	"3": "Blue Eyes",
	"4": "Laser Eyes",
	"5": "Dero Man Suit",
	"6": "Hoodie",
	"7": "Pirate Hat",
}

func entry(id int, attrs ...string) *metadata.Entry {
	e := &metadata.Entry{Name: fmt.Sprintf("#%d", id)}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.Attributes = append(e.Attributes, &metadata.Attribute{TraitType: attrs[i], Value: attrs[i+1]})
	}
	return e
}

func testConfig() *config.Config {
	c := config.Default()
	c.Placeholders.Count = 0
	c.Placeholders.SpecialIndex = -1
	return c
}

func tokensWithScores(scores ...float64) []*metadata.Token {
	tokens := make([]*metadata.Token, len(scores))
	for i, s := range scores {
		tokens[i] = &metadata.Token{ID: i + 1, Score: s, Attributes: map[string]string{}}
	}
	return tokens
}

func TestFix_TokenCountMatchesInput(t *testing.T) {
	doc := &metadata.Document{Collection: []*metadata.Entry{
		entry(1, "eyes", "Untitled_Artwork 1", "background", "blue"),
		entry(2, "eyes", "Untitled_Artwork 2"),
		entry(3, "shirts", "6", "base", "x"),
		entry(4),
	}}

	res, err := Fix(doc, testNames, testConfig())
	require.NoError(t, err)
	assert.Len(t, res.Tokens, len(doc.Collection))
	assert.Equal(t, 4, res.Stats.Total)

	_, ok := res.Stats.Category("Background")
	assert.False(t, ok)
}

func TestBuildTokens_Templates(t *testing.T) {
	cfg := testConfig()
	doc := &metadata.Document{Collection: []*metadata.Entry{entry(12, "Eyes", "1")}}

	tokens, stats, err := BuildTokens(doc, attr.NewRenamer(testNames, cfg.ArtifactPrefix, cfg.ExcludedCategories), cfg)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, 12, tokens[0].ID)
	assert.Equal(t, "Dero Seals #12", tokens[0].Name)
	assert.Equal(t, "ipfs://"+cfg.FolderCID+"/low/12.jpg", tokens[0].Image)
	assert.Equal(t, map[string]string{"Eyes": "Green Eyes"}, tokens[0].Attributes)
	assert.Equal(t, 1, stats.Total)
}

func TestBuildTokens_KeepsLeadingZeros(t *testing.T) {
	cfg := testConfig()
	doc := &metadata.Document{Collection: []*metadata.Entry{{Name: "#007"}}}

	tokens, _, err := BuildTokens(doc, attr.NewRenamer(testNames, cfg.ArtifactPrefix, cfg.ExcludedCategories), cfg)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, 7, tokens[0].ID)
	assert.Equal(t, "Dero Seals #007", tokens[0].Name)
	assert.Equal(t, "ipfs://"+cfg.FolderCID+"/low/007.jpg", tokens[0].Image)
}

func TestBuildTokens_StatsInInputOrder(t *testing.T) {
	cfg := testConfig()
	doc := &metadata.Document{Collection: []*metadata.Entry{
		entry(1, "shirts", "6", "eyes", "2"),
		entry(2, "eyes", "1", "shirts", "5"),
	}}

	_, stats, err := BuildTokens(doc, attr.NewRenamer(testNames, cfg.ArtifactPrefix, cfg.ExcludedCategories), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shirts", "Eyes"}, stats.Categories())

	eyes, _ := stats.Category("Eyes")
	assert.Equal(t, []string{"Red Eyes", "Green Eyes", NoneAttribute}, eyes.Names())
}

func TestFix_Errors(t *testing.T) {
	_, err := Fix(&metadata.Document{Collection: []*metadata.Entry{entry(1, "eyes", "99")}}, testNames, testConfig())
	assert.ErrorIs(t, err, attr.ErrUnknownValue)

	_, err = Fix(&metadata.Document{Collection: []*metadata.Entry{{Name: "#x"}}}, testNames, testConfig())
	assert.Error(t, err)

	_, err = Fix(nil, testNames, testConfig())
	assert.Error(t, err)

	_, err = Fix(&metadata.Document{}, testNames, nil)
	assert.Error(t, err)
}

func TestComputeStats_CountsSumToTotal(t *testing.T) {
	tokens := []*metadata.Token{
		{ID: 1, Attributes: map[string]string{"Eyes": "Green Eyes", "Hats": "Pirate Hat"}},
		{ID: 2, Attributes: map[string]string{"Eyes": "Red Eyes"}},
		{ID: 3, Attributes: map[string]string{"Eyes": "Green Eyes"}},
		{ID: 4, Attributes: map[string]string{}},
		{ID: 5, Attributes: map[string]string{"Hats": "Pirate Hat"}},
		{ID: 6, Attributes: map[string]string{"Eyes": "Laser Eyes"}},
	}

	stats := ComputeStats(tokens)
	for _, category := range stats.Categories() {
		c, ok := stats.Category(category)
		require.True(t, ok)

		var count int
		var pct float64
		for _, name := range c.Names() {
			a, _ := c.Attribute(name)
			count += a.Count
			pct += a.Percentage
		}
		assert.Equal(t, len(tokens), count, category)
		assert.InDelta(t, 100, pct, 0.05, category)
	}

	eyes, _ := stats.Category("Eyes")
	assert.Equal(t, 4, eyes.Count)
	assert.Equal(t, 66.67, eyes.Percentage)
	none, _ := eyes.Attribute(NoneAttribute)
	assert.Equal(t, 2, none.Count)
	assert.Equal(t, 33.33, none.Percentage)
	assert.Zero(t, none.Score)
	assert.Equal(t, NoneAttribute, eyes.Names()[len(eyes.Names())-1])
}

func TestComputeStats_HalfScoresTwo(t *testing.T) {
	tokens := make([]*metadata.Token, 0, 10)
	for i := 0; i < 10; i++ {
		hat := "Pirate Hat"
		if i%2 == 1 {
			hat = "Top Hat"
		}
		tokens = append(tokens, &metadata.Token{ID: i, Attributes: map[string]string{"Hats": hat}})
	}

	stats := ComputeStats(tokens)
	s, ok := stats.AttributeScore("Hats", "Pirate Hat")
	require.True(t, ok)
	assert.Equal(t, 2.0, s)

	hats, _ := stats.Category("Hats")
	a, _ := hats.Attribute("Top Hat")
	assert.Equal(t, 50.0, a.Percentage)
}

func TestComputeStats_RoundsScore(t *testing.T) {
	tokens := []*metadata.Token{
		{ID: 1, Attributes: map[string]string{"Eyes": "Green Eyes"}},
		{ID: 2, Attributes: map[string]string{"Eyes": "Red Eyes"}},
		{ID: 3, Attributes: map[string]string{"Eyes": "Red Eyes"}},
	}
	stats := ComputeStats(tokens)
	s, _ := stats.AttributeScore("Eyes", "Red Eyes")
	assert.Equal(t, 1.5, s)
	s, _ = stats.AttributeScore("Eyes", "Green Eyes")
	assert.Equal(t, 3.0, s)
}

func TestScoreTokens(t *testing.T) {
	tokens := []*metadata.Token{
		{ID: 1, Attributes: map[string]string{"Eyes": "Green Eyes", "Hats": "Pirate Hat"}},
		{ID: 2, Attributes: map[string]string{"Eyes": "Red Eyes"}},
		{ID: 3, Attributes: map[string]string{"Eyes": "Red Eyes"}},
		{ID: 4, Attributes: map[string]string{}},
	}
	stats := ComputeStats(tokens)
	require.NoError(t, ScoreTokens(tokens, stats))

	// Green Eyes 4/1 + Pirate Hat 4/1
	assert.Equal(t, 8.0, tokens[0].Score)
	assert.Equal(t, 2.0, tokens[1].Score)
	assert.Zero(t, tokens[3].Score)
}

func TestScoreTokens_MissingStats(t *testing.T) {
	tokens := []*metadata.Token{{ID: 1, Attributes: map[string]string{"Eyes": "Green Eyes"}}}
	stats := ComputeStats(nil)
	assert.ErrorIs(t, ScoreTokens(tokens, stats), ErrMissingStats)
}

func TestSortByScore_StableDescending(t *testing.T) {
	tokens := tokensWithScores(1, 5, 3, 5, 1, 3)
	SortByScore(tokens)

	ids := make([]int, len(tokens))
	for i, tk := range tokens {
		ids[i] = tk.ID
	}
	assert.Equal(t, []int{2, 4, 3, 6, 1, 5}, ids)
}

func TestApplyEyesCorrection(t *testing.T) {
	rule := config.Default().Eyes
	tests := []struct {
		name    string
		attrs   map[string]string
		want    map[string]string
		changed bool
	}{
		{
			name:    "suit with green eyes",
			attrs:   map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Green Eyes"},
			want:    map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Blue Eyes"},
			changed: true,
		},
		{
			name:    "suit with red eyes",
			attrs:   map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Red Eyes"},
			want:    map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Blue Eyes"},
			changed: true,
		},
		{
			name:    "suit without eyes",
			attrs:   map[string]string{"Shirts": "Dero Man Suit"},
			want:    map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Blue Eyes"},
			changed: true,
		},
		{
			name:  "suit with other eyes",
			attrs: map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Laser Eyes"},
			want:  map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Laser Eyes"},
		},
		{
			name:  "suit with blue eyes",
			attrs: map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Blue Eyes"},
			want:  map[string]string{"Shirts": "Dero Man Suit", "Eyes": "Blue Eyes"},
		},
		{
			name:  "no suit green eyes",
			attrs: map[string]string{"Shirts": "Hoodie", "Eyes": "Green Eyes"},
			want:  map[string]string{"Shirts": "Hoodie", "Eyes": "Green Eyes"},
		},
		{
			name:  "no shirt no eyes",
			attrs: map[string]string{},
			want:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &metadata.Token{Attributes: tt.attrs}
			assert.Equal(t, tt.changed, ApplyEyesCorrection(tk, rule))
			assert.Equal(t, tt.want, tk.Attributes)
		})
	}
}

func TestFix_StatsCountedBeforeEyesCorrection(t *testing.T) {
	doc := &metadata.Document{Collection: []*metadata.Entry{
		entry(1, "shirts", "5", "eyes", "1"),
		entry(2, "eyes", "3"),
		entry(3, "eyes", "1"),
		entry(4, "shirts", "6"),
	}}

	res, err := Fix(doc, testNames, testConfig())
	require.NoError(t, err)

	eyes, ok := res.Stats.Category("Eyes")
	require.True(t, ok)
	green, _ := eyes.Attribute("Green Eyes")
	assert.Equal(t, 2, green.Count)
	assert.Equal(t, 2.0, green.Score)
	blue, _ := eyes.Attribute("Blue Eyes")
	assert.Equal(t, 1, blue.Count)
	assert.Equal(t, 4.0, blue.Score)
	assert.Equal(t, []string{"Shirts", "Eyes"}, res.Stats.Categories())

	scores := make(map[int]float64)
	ids := make([]int, 0, len(res.Tokens))
	for _, tk := range res.Tokens {
		scores[tk.ID] = tk.Score
		ids = append(ids, tk.ID)
	}
	// suit 4 + corrected Blue Eyes 4
	assert.Equal(t, 8.0, scores[1])
	assert.Equal(t, 4.0, scores[2])
	assert.Equal(t, 2.0, scores[3])
	assert.Equal(t, 4.0, scores[4])
	assert.Equal(t, []int{1, 2, 4, 3}, ids)
	assert.Equal(t, "Blue Eyes", res.Tokens[0].Attributes["Eyes"])
}

func TestFix_CorrectedValueWithoutStats(t *testing.T) {
	doc := &metadata.Document{Collection: []*metadata.Entry{
		entry(1, "shirts", "5"),
		entry(2, "shirts", "6", "eyes", "1"),
	}}

	_, err := Fix(doc, testNames, testConfig())
	assert.ErrorIs(t, err, ErrMissingStats)
}

func TestRound2_TiesToEven(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{73.125, 73.12},
		{2.675, 2.67},
		{1.5, 1.5},
		{200.0 / 3, 66.67},
		{100.0 / 3, 33.33},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round2(tt.in), "%v", tt.in)
	}
}

func TestComputeStats_RoundsTieToEven(t *testing.T) {
	tokens := make([]*metadata.Token, 800)
	for i := range tokens {
		tokens[i] = &metadata.Token{ID: i + 1, Attributes: map[string]string{}}
	}
	tokens[0].Attributes["Hats"] = "Pirate Hat"

	stats := ComputeStats(tokens)
	hats, ok := stats.Category("Hats")
	require.True(t, ok)
	assert.Equal(t, 0.12, hats.Percentage)

	a, _ := hats.Attribute("Pirate Hat")
	assert.Equal(t, 0.12, a.Percentage)
	assert.Equal(t, 800.0, a.Score)
}

func TestApplyPlaceholders(t *testing.T) {
	const n = 3600
	scores := make([]float64, n)
	tokens := tokensWithScores(scores...)
	cfg := config.Default()

	require.NoError(t, ApplyPlaceholders(tokens, cfg))

	for i := 1; i <= 9; i++ {
		pos := n - 11 + i
		tk := tokens[pos]
		assert.Equal(t, fmt.Sprintf("Captain #%d", i), tk.Name)
		assert.Equal(t, pos+1, tk.ID)
		assert.Equal(t, "ipfs://"+cfg.FolderCID+"/low/captain.jpg", tk.Image)
		assert.Equal(t, 100.0, tk.Score)
		assert.Empty(t, tk.Attributes)
	}
	assert.Empty(t, tokens[n-1].Name)
	assert.Empty(t, tokens[n-11].Name)

	jeff := tokens[3499]
	assert.Equal(t, "Jeff", jeff.Name)
	assert.Equal(t, 3500, jeff.ID)
	assert.Equal(t, "ipfs://"+cfg.FolderCID+"/low/jeff.jpg", jeff.Image)
	assert.NotNil(t, jeff.Attributes)
}

func TestApplyPlaceholders_OutOfRange(t *testing.T) {
	cfg := config.Default()
	assert.ErrorIs(t, ApplyPlaceholders(tokensWithScores(make([]float64, 5)...), cfg), ErrPlaceholderOutOfRange)
	assert.ErrorIs(t, ApplyPlaceholders(tokensWithScores(make([]float64, 3499)...), cfg), ErrPlaceholderOutOfRange)

	cfg.Placeholders.SpecialIndex = -1
	assert.NoError(t, ApplyPlaceholders(tokensWithScores(make([]float64, 10)...), cfg))
}

func TestStats_MarshalJSON(t *testing.T) {
	tokens := []*metadata.Token{
		{ID: 1, Attributes: map[string]string{"Shirts": "Hoodie"}},
		{ID: 2, Attributes: map[string]string{"Eyes": "Red Eyes", "Shirts": "Dero Man Suit"}},
	}
	b, err := json.Marshal(ComputeStats(tokens))
	require.NoError(t, err)

	out := string(b)
	assert.Less(t, strings.Index(out, `"Shirts"`), strings.Index(out, `"Eyes"`))
	assert.Less(t, strings.Index(out, `"Hoodie"`), strings.Index(out, `"Dero Man Suit"`))
	assert.Contains(t, out, `"None":{"count":1,"percentage":50,"score":0}`)

	var generic map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	assert.Equal(t, float64(2), generic["Shirts"]["count"])
}
