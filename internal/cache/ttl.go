// internal/cache/ttl.go

// Package cache provides the time-to-live cache shared between requests.
package cache

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a concurrent string-keyed cache whose entries expire a fixed
// duration after their last write. Expired entries are evicted lazily on access.
// Concurrent Sets for one key are last-writer-wins.
type TTLCache[V any] struct {
	ttl     time.Duration
	entries cmap.ConcurrentMap[string, entry[V]]
	now     func() time.Time
}

// New returns a cache with the given time-to-live.
func New[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		ttl:     ttl,
		entries: cmap.New[entry[V]](),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.entries.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		// Only drop the entry if no concurrent Set has refreshed it meanwhile.
		c.entries.RemoveCb(key, func(_ string, cur entry[V], exists bool) bool {
			return exists && c.now().After(cur.expiresAt)
		})
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	c.entries.Set(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Touch rewrites an existing, unexpired entry so its time-to-live restarts.
// It reports whether the key was present.
func (c *TTLCache[V]) Touch(key string) bool {
	v, ok := c.Get(key)
	if ok {
		c.Set(key, v)
	}
	return ok
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *TTLCache[V]) Len() int {
	return c.entries.Count()
}
