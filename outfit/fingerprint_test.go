package outfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func sampleItems() []ClothingItem {
	return []ClothingItem{
		{ID: "shirt-1", Name: "White shirt", Category: "top"},
		{ID: "jeans-2", Name: "Dark jeans", Category: "bottom"},
		{ID: "boots-3", Name: "Chelsea boots", Category: "shoes"},
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	ctx := map[string]any{"occasion": "wedding", "season": "summer"}

	fp1 := Fingerprint("alice", KindOutfitSuggestion, sampleItems(), ctx)
	fp2 := Fingerprint("alice", KindOutfitSuggestion, sampleItems(), ctx)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64) // sha256 hex
}

func TestFingerprintItemOrderIndependent(t *testing.T) {
	items := sampleItems()
	reversed := []ClothingItem{items[2], items[1], items[0]}

	fp1 := Fingerprint("alice", KindOutfitSuggestion, items, nil)
	fp2 := Fingerprint("alice", KindOutfitSuggestion, reversed, nil)

	assert.Equal(t, fp1, fp2)
}

func TestFingerprintDiverges(t *testing.T) {
	items := sampleItems()
	base := Fingerprint("alice", KindOutfitSuggestion, items, nil)

	assert.NotEqual(t, base, Fingerprint("bob", KindOutfitSuggestion, items, nil), "owner must affect fingerprint")
	assert.NotEqual(t, base, Fingerprint("alice", KindStyleAnalysis, items, nil), "kind must affect fingerprint")
	assert.NotEqual(t, base, Fingerprint("alice", KindOutfitSuggestion, items[:2], nil), "item set must affect fingerprint")
	assert.NotEqual(t, base, Fingerprint("alice", KindOutfitSuggestion, items, map[string]any{"occasion": "work"}), "context must affect fingerprint")
}

func TestFingerprintEmptyAndNilContextEqual(t *testing.T) {
	items := sampleItems()
	assert.Equal(t,
		Fingerprint("alice", KindOutfitSuggestion, items, nil),
		Fingerprint("alice", KindOutfitSuggestion, items, map[string]any{}),
	)
}

func TestFingerprintEmptyItems(t *testing.T) {
	fp := Fingerprint("alice", KindOutfitSuggestion, nil, nil)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("alice", KindOutfitSuggestion, []ClothingItem{}, nil))
}

func TestFingerprintItemWithoutID(t *testing.T) {
	a := []ClothingItem{{Name: "Red scarf", Category: "accessory"}}
	b := []ClothingItem{{Name: "Red scarf", Category: "accessory"}}
	c := []ClothingItem{{Name: "Blue scarf", Category: "accessory"}}

	assert.Equal(t,
		Fingerprint("alice", KindOutfitSuggestion, a, nil),
		Fingerprint("alice", KindOutfitSuggestion, b, nil),
	)
	assert.NotEqual(t,
		Fingerprint("alice", KindOutfitSuggestion, a, nil),
		Fingerprint("alice", KindOutfitSuggestion, c, nil),
	)
}

func TestCanonicalContextKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"occasion": "work", "season": "winter", "budget": 100.0}
	b := map[string]any{"budget": 100.0, "season": "winter", "occasion": "work"}

	assert.Equal(t, CanonicalContext(a), CanonicalContext(b))
	assert.Empty(t, CanonicalContext(nil))
}

func TestFingerprintPermutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		items := make([]ClothingItem, n)
		for i := range items {
			items[i] = ClothingItem{
				ID:   rapid.StringMatching(`[a-z]{1,6}-[0-9]{1,3}`).Draw(t, "id"),
				Name: rapid.StringN(0, 12, 12).Draw(t, "name"),
			}
		}

		perm := rapid.Permutation(items).Draw(t, "perm")

		fp1 := Fingerprint("owner", KindOutfitSuggestion, items, nil)
		fp2 := Fingerprint("owner", KindOutfitSuggestion, perm, nil)
		if fp1 != fp2 {
			t.Fatalf("fingerprint depends on item order: %s vs %s", fp1, fp2)
		}
	})
}
