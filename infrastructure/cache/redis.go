// Package cache provides the Redis-backed implementation of ports.Cache.
// Values are stored as JSON under a shared key prefix so one Redis
// database can serve several deployments.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "lattice:"

// RedisCache implements ports.Cache on a Redis client
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisCache connects to the Redis instance named by the URL and
// verifies the connection before returning
func NewRedisCache(redisURL string, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, logger), nil
}

// NewRedisCacheWithClient wraps an existing Redis client
func NewRedisCacheWithClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: defaultKeyPrefix,
		logger: logger,
	}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get retrieves a value from cache. Values come back as decoded JSON, so
// structs stored by Set are returned as maps. Read failures are treated
// as misses; the caller falls through to the source of truth.
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	payload, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Cache read failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(payload, &value); err != nil {
		c.logger.Warn("Cache entry is not valid JSON",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	return value, true
}

// Set stores a value in cache with TTL in seconds. A non-positive TTL
// stores the value without expiration.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	var expiry time.Duration
	if ttl > 0 {
		expiry = time.Duration(ttl) * time.Second
	}
	if err := c.client.Set(ctx, c.key(key), payload, expiry).Err(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry under the cache's prefix. Keys outside the
// prefix are untouched.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear cache entries: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache entries: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("clear cache entries: %w", err)
		}
	}
	return nil
}

// Client exposes the underlying connection for components that share it,
// such as the distributed rate limiter
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Ping checks if Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
