package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohsansi/olympiad-console/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// An in-process miniredis is used unless TEST_REDIS_ADDR points to a server.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestKVStore_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store := NewKVStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "olympiad.token", "tok-1"))

	v, ok, err := store.Get(ctx, "olympiad.token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)

	// Stored under the default prefix.
	assert.Equal(t, int64(1), client.Exists(ctx, "olympiad:olympiad.token").Val())
}

func TestKVStore_GetNonExistent(t *testing.T) {
	store := NewKVStore(setupTestRedis(t))

	v, ok, err := store.Get(context.Background(), "non-existent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestKVStore_Delete(t *testing.T) {
	store := NewKVStore(setupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Set(ctx, "b", "2"))
	require.NoError(t, store.Delete(ctx, "a", "b", "never-set"))
	require.NoError(t, store.Delete(ctx))

	for _, k := range []string{"a", "b"} {
		_, ok, err := store.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestKVStore_WriteBatch(t *testing.T) {
	client := setupTestRedis(t)
	store := NewKVStoreWithOptions(client, KVStoreOptions{Prefix: "test-prefix:"})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "olympiad.profile", "{}"))
	err := store.WriteBatch(ctx,
		map[string]string{"olympiad.token": "t", "olympiad.kind": "ADMIN"},
		[]string{"olympiad.profile"},
	)
	require.NoError(t, err)

	keys, err := client.Keys(ctx, "test-prefix:*").Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test-prefix:olympiad.token", "test-prefix:olympiad.kind"}, keys)
}

func TestKVStore_TTLExpiration(t *testing.T) {
	client, srv := testutil.SetupMiniRedis(t)
	store := NewKVStoreWithOptions(client, KVStoreOptions{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.WriteBatch(ctx, map[string]string{"olympiad.token": "t"}, nil))
	assert.Equal(t, time.Minute, srv.TTL("olympiad:olympiad.token"))

	srv.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "olympiad.token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_BackendErrorsAreWrapped(t *testing.T) {
	client, srv := testutil.SetupMiniRedis(t)
	store := NewKVStore(client)
	srv.SetError("READONLY forced failure")

	_, _, err := store.Get(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")

	err = store.WriteBatch(context.Background(), map[string]string{"a": "1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis batch write")
}
