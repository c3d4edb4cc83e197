package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
)

// CacheStore implements port.CacheStore on Redis strings.
type CacheStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewCacheStore constructs a Redis-backed cache store.
func NewCacheStore(client *redis.Client, keyPrefix string) *CacheStore {
	return &CacheStore{client: client, keyPrefix: keyPrefix}
}

// Get retrieves a cached value, translating absent keys into ErrCacheMiss.
func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, port.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set stores a value with the provided TTL.
func (c *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (c *CacheStore) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *CacheStore) key(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.keyPrefix, key)
}

var _ port.CacheStore = (*CacheStore)(nil)
