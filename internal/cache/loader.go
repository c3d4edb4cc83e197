package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
)

// ProfileKey builds the cache key for a user's profile payload.
func ProfileKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

// Loader provides read-through caching over a CacheStore. Cache failures are
// logged and treated as misses so the store never blocks reads.
type Loader struct {
	store  port.CacheStore
	logger *zap.Logger
}

// NewLoader wires a read-through loader.
func NewLoader(store port.CacheStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// GetOrSet returns the cached value for key, or invokes fetch, caches the
// result for ttl, and returns it. dest must be a JSON-unmarshalable pointer.
func (l *Loader) GetOrSet(ctx context.Context, key string, ttl time.Duration, dest any, fetch func(ctx context.Context) (any, error)) error {
	cached, err := l.store.Get(ctx, key)
	if err == nil {
		if err := json.Unmarshal(cached, dest); err == nil {
			return nil
		}
		// Corrupt entry, fall through to refetch.
		if delErr := l.store.Delete(ctx, key); delErr != nil {
			l.logger.Warn("evict corrupt cache entry failed", zap.String("key", key), zap.Error(delErr))
		}
	} else if !errors.Is(err, port.ErrCacheMiss) {
		l.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := fetch(ctx)
	if err != nil {
		return err
	}

	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := l.store.Set(ctx, key, bytes, ttl); err != nil {
		l.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return json.Unmarshal(bytes, dest)
}

// Invalidate drops a cached key. Used after writes that change the payload.
func (l *Loader) Invalidate(ctx context.Context, key string) {
	if err := l.store.Delete(ctx, key); err != nil {
		l.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
