package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(fp string) Entry {
	return Entry{
		Fingerprint: fp,
		Owner:       "alice",
		Kind:        "outfit_suggestion",
		ItemIDs:     []string{"shirt-1", "jeans-2"},
		Context:     `{"occasion":"work"}`,
		Result:      `{"title":"Office look"}`,
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleEntry("fp-1")))

	entry, ok, err := store.Get(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", entry.Owner)
	assert.Equal(t, []string{"shirt-1", "jeans-2"}, entry.ItemIDs)
	assert.False(t, entry.CreatedAt.IsZero(), "Put should stamp CreatedAt")
}

func TestMemoryStoreGetMiss(t *testing.T) {
	store := NewMemoryStore()
	entry, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, entry)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := sampleEntry("fp-1")
	require.NoError(t, store.Put(ctx, first))

	second := sampleEntry("fp-1")
	second.Result = `{"title":"Updated look"}`
	require.NoError(t, store.Put(ctx, second))

	entry, ok, err := store.Get(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, entry.Result, "Updated look")
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreKeepsExplicitCreatedAt(t *testing.T) {
	store := NewMemoryStore()
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := sampleEntry("fp-1")
	entry.CreatedAt = stamp
	require.NoError(t, store.Put(context.Background(), entry))

	got, ok, err := store.Get(context.Background(), "fp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stamp, got.CreatedAt)
}
