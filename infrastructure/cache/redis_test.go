package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	redisCache, err := NewRedisCache("redis://"+server.Addr(), zap.NewNop())
	require.NoError(t, err)
	return redisCache, server
}

func TestRedisCache_SetAndGet(t *testing.T) {
	redisCache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Set(ctx, "schema:ws-1:active", map[string]interface{}{
		"version": 3,
		"name":    "initial",
	}, 60))

	value, found := redisCache.Get(ctx, "schema:ws-1:active")
	require.True(t, found)
	// JSON numbers decode as float64
	assert.Equal(t, map[string]interface{}{
		"version": float64(3),
		"name":    "initial",
	}, value)
}

func TestRedisCache_GetMissing(t *testing.T) {
	redisCache, _ := setupTestCache(t)

	value, found := redisCache.Get(context.Background(), "absent")
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	redisCache, server := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Set(ctx, "short-lived", "value", 1))
	_, found := redisCache.Get(ctx, "short-lived")
	require.True(t, found)

	server.FastForward(2 * time.Second)

	_, found = redisCache.Get(ctx, "short-lived")
	assert.False(t, found)
}

func TestRedisCache_NoExpiry(t *testing.T) {
	redisCache, server := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Set(ctx, "pinned", "value", 0))
	server.FastForward(24 * time.Hour)

	value, found := redisCache.Get(ctx, "pinned")
	require.True(t, found)
	assert.Equal(t, "value", value)
}

func TestRedisCache_Delete(t *testing.T) {
	redisCache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Set(ctx, "doomed", "value", 60))
	require.NoError(t, redisCache.Delete(ctx, "doomed"))

	_, found := redisCache.Get(ctx, "doomed")
	assert.False(t, found)

	// Deleting an absent key is not an error
	require.NoError(t, redisCache.Delete(ctx, "doomed"))
}

func TestRedisCache_ClearOnlyTouchesPrefix(t *testing.T) {
	redisCache, server := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, redisCache.Set(ctx, "a", 1, 60))
	require.NoError(t, redisCache.Set(ctx, "b", 2, 60))
	require.NoError(t, server.Set("other-app:key", "kept"))

	require.NoError(t, redisCache.Clear(ctx))

	_, found := redisCache.Get(ctx, "a")
	assert.False(t, found)
	_, found = redisCache.Get(ctx, "b")
	assert.False(t, found)
	assert.True(t, server.Exists("other-app:key"))
}

func TestRedisCache_CorruptEntryIsAMiss(t *testing.T) {
	redisCache, server := setupTestCache(t)

	require.NoError(t, server.Set(defaultKeyPrefix+"bad", "{not json"))

	value, found := redisCache.Get(context.Background(), "bad")
	assert.False(t, found)
	assert.Nil(t, value)
}
