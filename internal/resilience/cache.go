// Package resilience holds the in-process building blocks that keep the
// service responsive when upstream providers misbehave: a TTL cache, a
// fixed-window rate limiter, retry with backoff and a timing monitor.
package resilience

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe key/value store with per-entry expiry.
// Expired entries are evicted lazily on access.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]cacheEntry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewCache returns a cache whose entries live for defaultTTL unless Set is
// given an explicit TTL.
func NewCache[K comparable, V any](defaultTTL time.Duration) *Cache[K, V] {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Cache[K, V]{
		items:      make(map[K]cacheEntry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Set stores value under key using the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key for ttl. A non-positive ttl falls back to
// the default.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get returns the value for key. An entry is reported missing only once the
// clock is strictly past its expiry, at which point it is evicted.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len purges expired entries and returns the number that remain.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	return len(c.items)
}

// Purge drops every expired entry and reports how many were removed.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked()
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]cacheEntry[V])
	c.mu.Unlock()
}

func (c *Cache[K, V]) purgeLocked() int {
	now := c.now()
	removed := 0
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}
