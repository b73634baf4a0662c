package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedRateLimiter implements fixed-window rate limiting backed by
// Redis so limits hold across instances and Lambda invocations.
type DistributedRateLimiter struct {
	client    redis.UniversalClient
	limit     int
	window    time.Duration
	keyPrefix string
}

// NewDistributedIPRateLimiter creates a rate limiter for IP addresses
func NewDistributedIPRateLimiter(client redis.UniversalClient, requestsPerMinute int) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		limit:     requestsPerMinute,
		window:    time.Minute,
		keyPrefix: "ip",
	}
}

// NewDistributedUserRateLimiter creates a rate limiter for user IDs
func NewDistributedUserRateLimiter(client redis.UniversalClient, requestsPerMinute int) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		limit:     requestsPerMinute,
		window:    time.Minute,
		keyPrefix: "user",
	}
}

// NewDistributedRateLimiter creates a generic distributed rate limiter
func NewDistributedRateLimiter(client redis.UniversalClient, limit int, window time.Duration, keyPrefix string) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
	}
}

func (r *DistributedRateLimiter) windowKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", r.keyPrefix, key, windowStart.Unix())
}

// Allow checks if a request is allowed under the rate limit. On Redis
// failure it fails open so an unavailable limiter never blocks traffic; the
// returned error lets callers log the degradation.
func (r *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		// No Redis configured, useful for local development
		return true, nil
	}

	now := time.Now()
	windowStart := now.Truncate(r.window)
	k := r.windowKey(key, windowStart)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limiter error (failing open): %w", err)
	}

	return incr.Val() <= int64(r.limit), nil
}

// GetRemaining returns the number of requests remaining in the current window
func (r *DistributedRateLimiter) GetRemaining(ctx context.Context, key string) (int, time.Duration, error) {
	now := time.Now()
	windowStart := now.Truncate(r.window)
	windowEnd := windowStart.Add(r.window)

	if r.client == nil {
		return r.limit, time.Until(windowEnd), nil
	}

	count, err := r.client.Get(ctx, r.windowKey(key, windowStart)).Int()
	if err != nil {
		if err == redis.Nil {
			return r.limit, time.Until(windowEnd), nil
		}
		return r.limit, time.Until(windowEnd), fmt.Errorf("failed to read rate limit entry: %w", err)
	}

	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, time.Until(windowEnd), nil
}

// Reset clears the rate limit for a given key (useful for testing or admin operations)
func (r *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}

	windowStart := time.Now().Truncate(r.window)
	return r.client.Del(ctx, r.windowKey(key, windowStart)).Err()
}

// GetLimit returns the configured rate limit
func (r *DistributedRateLimiter) GetLimit() int {
	return r.limit
}

// GetWindow returns the configured time window
func (r *DistributedRateLimiter) GetWindow() time.Duration {
	return r.window
}

// SetHeaders adds rate limit headers to an HTTP response
func (r *DistributedRateLimiter) SetHeaders(ctx context.Context, key string, headers map[string]string) error {
	remaining, resetIn, err := r.GetRemaining(ctx, key)
	if err != nil {
		return err
	}

	headers["X-RateLimit-Limit"] = fmt.Sprintf("%d", r.limit)
	headers["X-RateLimit-Remaining"] = fmt.Sprintf("%d", remaining)
	headers["X-RateLimit-Reset"] = fmt.Sprintf("%d", time.Now().Add(resetIn).Unix())

	return nil
}
