package ocrserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw recognition responses keyed by image source.
type Cache interface {
	Get(ctx context.Context, src string) ([]byte, bool, error)
	Set(ctx context.Context, src string, data []byte) error
}

// Purger is implemented by caches that can drop every entry.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// DefaultCacheTTL is how long a cached response is kept.
const DefaultCacheTTL = 7 * 24 * time.Hour

const defaultKeyPrefix = "ocroverlay:ocr:"

// RedisCache keeps recognition responses in Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at redisURL
// (redis://[:password@]host:port/db).
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ocrserver: invalid redis URL: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opt), ttl), nil
}

// NewRedisCacheFromClient wraps an existing client. A ttl of zero uses
// DefaultCacheTTL.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, prefix: defaultKeyPrefix, ttl: ttl}
}

// Key returns the Redis key used for src.
func (c *RedisCache) Key(src string) string {
	return c.prefix + src
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, src string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.Key(src)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, src string, data []byte) error {
	return c.client.Set(ctx, c.Key(src), data, c.ttl).Err()
}

// Purge implements Purger. It deletes every key under the cache prefix.
func (c *RedisCache) Purge(ctx context.Context) (int, error) {
	var deleted int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, iter.Err()
}

// Close closes the connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
