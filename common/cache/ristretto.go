// Package cache provides a small TTL-aware local cache on top of
// ristretto, used to memoize expensive pure computations that get
// called repeatedly with the same inputs across the process lifetime.
//
// Adapted from the teacher's general-purpose ristretto wrapper; the
// current consumer is internal/rules' wait-set memoization.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// GeneralCache is a generic string-keyed cache with a default TTL.
type GeneralCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewGeneralCache builds a cache bounded by maxCost entries (every Set
// stores its entry at cost 1), with entries expiring after ttl unless
// refreshed.
func NewGeneralCache(maxCost int64, ttl time.Duration) (*GeneralCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ristretto cache: %w", err)
	}

	return &GeneralCache{cache: cache, ttl: ttl}, nil
}

// Set stores value under key using the cache's default TTL.
func (c *GeneralCache) Set(key string, value interface{}) bool {
	return c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *GeneralCache) SetWithTTL(key string, value interface{}, ttl time.Duration) bool {
	return c.cache.SetWithTTL(key, value, 1, ttl)
}

// Get retrieves the value stored under key, if present and unexpired.
func (c *GeneralCache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Delete evicts key.
func (c *GeneralCache) Delete(key string) {
	c.cache.Del(key)
}

// Wait blocks until every Set call issued so far has been applied.
// Ristretto's writes are buffered and applied asynchronously; tests
// and anything checking a just-written key should call this first.
func (c *GeneralCache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's background goroutines.
func (c *GeneralCache) Close() {
	c.cache.Close()
}
