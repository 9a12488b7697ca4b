package outfit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptContainsItemsAndContext(t *testing.T) {
	p := BuildPrompt(KindOutfitSuggestion, sampleItems(), map[string]any{"occasion": "wedding"})

	assert.Contains(t, p, "[shirt-1] White shirt")
	assert.Contains(t, p, "[boots-3] Chelsea boots")
	assert.Contains(t, p, "occasion: wedding")
	assert.Contains(t, p, `"item_ids"`)
}

func TestBuildPromptContextKeysSorted(t *testing.T) {
	ctx := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}
	p1 := BuildPrompt(KindStyleAnalysis, sampleItems(), ctx)
	p2 := BuildPrompt(KindStyleAnalysis, sampleItems(), ctx)

	assert.Equal(t, p1, p2)
	assert.Less(t, strings.Index(p1, "alpha"), strings.Index(p1, "mid"))
	assert.Less(t, strings.Index(p1, "mid"), strings.Index(p1, "zeta"))
}

func TestBuildBatchPromptMarkers(t *testing.T) {
	entries := []BatchEntry{
		{Kind: KindOutfitSuggestion, Items: sampleItems()},
		{Kind: KindOutfitSuggestion, Items: sampleItems(), Context: map[string]any{"occasion": "work"}},
		{Kind: KindOutfitSuggestion, Items: sampleItems()},
	}
	p := BuildBatchPrompt(entries)

	assert.Contains(t, p, "=== LOOK 1 ===")
	assert.Contains(t, p, "=== LOOK 2 ===")
	assert.Contains(t, p, "=== LOOK 3 ===")
	assert.NotContains(t, p, "=== LOOK 4 ===")
	// Markers appear in positional order.
	assert.Less(t, strings.Index(p, "=== LOOK 1 ==="), strings.Index(p, "=== LOOK 2 ==="))
}

func TestSectionMarker(t *testing.T) {
	assert.Equal(t, "=== LOOK 1 ===", SectionMarker(0))
	assert.Equal(t, "=== LOOK 7 ===", SectionMarker(6))
}

func TestSplitSectionsExact(t *testing.T) {
	raw := "=== LOOK 1 ===\n{\"title\":\"a\"}\n=== LOOK 2 ===\n{\"title\":\"b\"}\n"

	sections := SplitSections(raw)
	require.Len(t, sections, 2)
	assert.Equal(t, `{"title":"a"}`, sections[0])
	assert.Equal(t, `{"title":"b"}`, sections[1])
}

func TestSplitSectionsDropsPreamble(t *testing.T) {
	raw := "Sure! Here are the looks.\n=== LOOK 1 ===\nfirst\n=== LOOK 2 ===\nsecond"

	sections := SplitSections(raw)
	require.Len(t, sections, 2)
	assert.Equal(t, "first", sections[0])
	assert.Equal(t, "second", sections[1])
}

func TestSplitSectionsTolerantFormatting(t *testing.T) {
	// Extra whitespace around the marker still splits.
	raw := "  ===  LOOK  1  ===  \nbody one\n===LOOK 2===\nbody two"

	sections := SplitSections(raw)
	require.Len(t, sections, 2)
	assert.Equal(t, "body one", sections[0])
	assert.Equal(t, "body two", sections[1])
}

func TestSplitSectionsNoMarkers(t *testing.T) {
	assert.Nil(t, SplitSections("just one big answer without any markers"))
	assert.Nil(t, SplitSections(""))
}

func TestSplitSectionsMarkerInsideLineIgnored(t *testing.T) {
	// A marker that is not alone on its line must not split.
	raw := "the text mentions === LOOK 1 === inline only"
	assert.Nil(t, SplitSections(raw))
}
