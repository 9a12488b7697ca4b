package outfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanJSON(t *testing.T) {
	raw := `{"title":"Smart casual","description":"desc","item_ids":["shirt-1","jeans-2"],"tips":["tuck it in"]}`

	res, err := Parse(raw, KindOutfitSuggestion, sampleItems())
	require.NoError(t, err)
	assert.Equal(t, "Smart casual", res.Title)
	assert.Equal(t, []string{"shirt-1", "jeans-2"}, res.ItemIDs)
	assert.False(t, res.Fallback)
}

func TestParseCodeFence(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\",\"description\":\"d\"}\n```"

	res, err := Parse(raw, KindOutfitSuggestion, nil)
	require.NoError(t, err)
	assert.Equal(t, "Fenced", res.Title)
}

func TestParseSurroundingProse(t *testing.T) {
	raw := `Here is my suggestion: {"title":"Wrapped","description":"d"} Hope you like it!`

	res, err := Parse(raw, KindOutfitSuggestion, nil)
	require.NoError(t, err)
	assert.Equal(t, "Wrapped", res.Title)
}

func TestParseFiltersUnknownItemIDs(t *testing.T) {
	raw := `{"title":"t","description":"d","item_ids":["shirt-1","made-up-99"]}`

	res, err := Parse(raw, KindOutfitSuggestion, sampleItems())
	require.NoError(t, err)
	assert.Equal(t, []string{"shirt-1"}, res.ItemIDs)
}

func TestParseMissingTitleUsesKindDefault(t *testing.T) {
	raw := `{"description":"only a description"}`

	res, err := Parse(raw, KindStyleAnalysis, nil)
	require.NoError(t, err)
	assert.Equal(t, "Wardrobe style overview", res.Title)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not json at all"},
		{"empty object", "{}"},
		{"empty string", ""},
		{"broken json", `{"title": "unterminated`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, KindOutfitSuggestion, nil)
			assert.Error(t, err)
		})
	}
}

func TestValidateResponseFallsBack(t *testing.T) {
	res := ValidateResponse("total garbage", KindOutfitSuggestion, sampleItems())

	require.NotNil(t, res)
	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Title)
	assert.NotEmpty(t, res.Description)
	assert.Equal(t, []string{"shirt-1", "jeans-2", "boots-3"}, res.ItemIDs)
}

func TestFallbackResultDeterministic(t *testing.T) {
	a := FallbackResult(KindOccasionMatch, sampleItems())
	b := FallbackResult(KindOccasionMatch, sampleItems())

	assert.Equal(t, a, b)
	assert.True(t, a.Fallback)
	assert.Equal(t, "Occasion-ready look", a.Title)
	assert.Contains(t, a.Description, "White shirt")
}

func TestRequestKindValid(t *testing.T) {
	assert.True(t, KindOutfitSuggestion.Valid())
	assert.True(t, KindStyleAnalysis.Valid())
	assert.True(t, KindOccasionMatch.Valid())
	assert.False(t, RequestKind("haircut_advice").Valid())
}
