package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRedisTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, ttl, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleEntry("fp-redis")))

	entry, ok, err := store.Get(ctx, "fp-redis")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", entry.Owner)
	assert.Equal(t, "outfit_suggestion", entry.Kind)
	assert.Equal(t, []string{"shirt-1", "jeans-2"}, entry.ItemIDs)
	assert.JSONEq(t, `{"title":"Office look"}`, entry.Result)
}

func TestRedisStoreKeyPrefixAndTTL(t *testing.T) {
	store, mr := newRedisTestStore(t, 30*time.Minute)
	require.NoError(t, store.Put(context.Background(), sampleEntry("fp-ttl")))

	key := "outfit:result:fp-ttl"
	require.True(t, mr.Exists(key))
	assert.Equal(t, 30*time.Minute, mr.TTL(key))
}

func TestRedisStoreGetMiss(t *testing.T) {
	store, _ := newRedisTestStore(t, time.Hour)
	entry, ok, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, entry)
}

func TestRedisStoreGetAfterServerGone(t *testing.T) {
	store, mr := newRedisTestStore(t, time.Hour)
	mr.Close()

	_, _, err := store.Get(context.Background(), "fp")
	assert.Error(t, err)
}
