package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the key is absent or expired in the cache store.
var ErrCacheMiss = errors.New("cache: miss")

// CacheStore is the minimal key-value contract the read-through loader
// requires. Implementations may be Redis-backed or process-local.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
