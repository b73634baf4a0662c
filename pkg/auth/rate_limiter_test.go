package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewSlidingWindowLimiter(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed, "request over the limit should be denied")
}

func TestSlidingWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, allowed, "a different key should have its own budget")
}

func TestSlidingWindowLimiter_ResetClearsKey(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "client-a"))

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed, "reset should restore the budget")
}

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	// Capacity 3, refilling fast enough to observe within the test
	limiter := NewTokenBucketLimiter(3, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "burst")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "burst")
	require.NoError(t, err)
	assert.False(t, allowed, "bucket should be empty after the burst")

	time.Sleep(50 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "burst")
	require.NoError(t, err)
	assert.True(t, allowed, "bucket should refill over time")
}

func TestCompositeRateLimiter_DeniesWhenAnyDenies(t *testing.T) {
	strict := NewSlidingWindowLimiter(1, time.Minute)
	loose := NewSlidingWindowLimiter(100, time.Minute)
	limiter := NewCompositeRateLimiter(loose, strict)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed, "the stricter limiter should deny")
}

func TestIPAndUserRateLimiters_PrefixKeys(t *testing.T) {
	ctx := context.Background()

	ipLimiter := NewIPRateLimiter(1)
	userLimiter := NewUserRateLimiter(1)

	allowed, err := ipLimiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = ipLimiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Same raw key through the user limiter is unaffected
	allowed, err = userLimiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
