// Package cache provides a small in-memory TTL cache. The enrichment engine
// uses it to avoid re-querying the search provider for the same school within
// a batch window.
package cache

import (
	"sync"
	"time"
)

// TTL is a concurrency-safe key/value cache where every entry carries its own
// expiry. Expired entries are dropped lazily on read and in bulk by Purge.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTL creates an empty cache.
func NewTTL[V any]() *TTL[V] {
	return &TTL[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// NewTTLWithClock creates a cache with an injectable clock for tests.
func NewTTLWithClock[V any](now func() time.Time) *TTL[V] {
	c := NewTTL[V]()
	c.now = now
	return c
}

// Get returns the cached value and whether a live entry was found.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the given ttl. A non-positive ttl is a no-op.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Purge removes all expired entries and returns how many were dropped.
func (c *TTL[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of entries, including any not yet purged.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
