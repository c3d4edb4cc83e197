package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// CacheStore implements port.CacheStore in process memory. Expired entries
// are discarded lazily on read.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCacheStore constructs an in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{entries: make(map[string]cacheEntry)}
}

// Get retrieves a cached value or port.ErrCacheMiss.
func (c *CacheStore) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, port.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, port.ErrCacheMiss
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores a value with the provided TTL. A zero TTL means no expiry.
func (c *CacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: stored, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Delete removes a key.
func (c *CacheStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

var _ port.CacheStore = (*CacheStore)(nil)
