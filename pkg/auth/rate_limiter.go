package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

const (
	sweepInterval = 5 * time.Minute
	idleEviction  = 30 * time.Minute
)

// SlidingWindowLimiter approximates a sliding window by weighting the
// previous fixed window's count against the current one. Memory per key is
// constant regardless of traffic.
type SlidingWindowLimiter struct {
	mu        sync.Mutex
	counters  map[string]*windowCounter
	limit     int
	window    time.Duration
	lastSweep time.Time
}

type windowCounter struct {
	windowStart time.Time
	current     int
	previous    int
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		counters:  make(map[string]*windowCounter),
		limit:     limit,
		window:    windowSize,
		lastSweep: time.Now(),
	}
}

// Allow checks if a request is allowed
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	windowStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	c, exists := l.counters[key]
	if !exists {
		c = &windowCounter{windowStart: windowStart}
		l.counters[key] = c
	}

	// Roll the window forward
	if !c.windowStart.Equal(windowStart) {
		if windowStart.Sub(c.windowStart) >= 2*l.window {
			c.previous = 0
		} else {
			c.previous = c.current
		}
		c.current = 0
		c.windowStart = windowStart
	}

	elapsed := float64(now.Sub(windowStart)) / float64(l.window)
	estimated := float64(c.previous)*(1-elapsed) + float64(c.current)

	if estimated >= float64(l.limit) {
		return false, nil
	}

	c.current++
	return true, nil
}

// Reset resets the rate limit for a key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.counters, key)
	return nil
}

// maybeSweep evicts counters idle for longer than idleEviction. Called with
// the lock held.
func (l *SlidingWindowLimiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now

	for key, c := range l.counters {
		if now.Sub(c.windowStart) > idleEviction {
			delete(l.counters, key)
		}
	}
}

// TokenBucketLimiter implements token bucket rate limiting with continuous
// refill. Allows short bursts up to the bucket capacity.
type TokenBucketLimiter struct {
	mu           sync.Mutex
	buckets      map[string]*tokenBucket
	capacity     float64
	refillPerSec float64
	lastSweep    time.Time
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a new token bucket rate limiter. The bucket
// starts full and refills at refillPerSec tokens per second up to capacity.
func NewTokenBucketLimiter(capacity int, refillPerSec float64) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets:      make(map[string]*tokenBucket),
		capacity:     float64(capacity),
		refillPerSec: refillPerSec,
		lastSweep:    time.Now(),
	}
}

// Allow checks if a request is allowed
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	b, exists := l.buckets[key]
	if !exists {
		b = &tokenBucket{tokens: l.capacity, lastSeen: now}
		l.buckets[key] = b
	}

	refill := now.Sub(b.lastSeen).Seconds() * l.refillPerSec
	b.tokens = min(l.capacity, b.tokens+refill)
	b.lastSeen = now

	if b.tokens < 1 {
		return false, nil
	}

	b.tokens--
	return true, nil
}

// Reset resets the rate limit for a key
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

func (l *TokenBucketLimiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now

	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleEviction {
			delete(l.buckets, key)
		}
	}
}

// IPRateLimiter wraps a rate limiter for IP-based limiting
type IPRateLimiter struct {
	limiter RateLimiter
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from an IP is allowed
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("ip:%s", ip))
}

// UserRateLimiter wraps a rate limiter for user-based limiting
type UserRateLimiter struct {
	limiter RateLimiter
}

// NewUserRateLimiter creates a new user-based rate limiter
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from a user is allowed
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("user:%s", userID))
}

// CompositeRateLimiter combines multiple rate limiters. A request must pass
// every limiter to be allowed.
type CompositeRateLimiter struct {
	limiters []RateLimiter
}

// NewCompositeRateLimiter creates a new composite rate limiter
func NewCompositeRateLimiter(limiters ...RateLimiter) *CompositeRateLimiter {
	return &CompositeRateLimiter{
		limiters: limiters,
	}
}

// Allow checks if a request is allowed by all limiters
func (l *CompositeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	for _, limiter := range l.limiters {
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

// Reset resets all limiters for a key
func (l *CompositeRateLimiter) Reset(ctx context.Context, key string) error {
	for _, limiter := range l.limiters {
		if err := limiter.Reset(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
