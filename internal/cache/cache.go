// Package cache provides an in-memory key/value store bounded by a total
// cost budget with least-recently-used eviction. It is a performance
// accelerator only: entries hold no authoritative state and the cache may
// be purged at any time.
//
// The cache is not safe for concurrent use; callers sharing one across
// goroutines must serialize access themselves.
package cache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// maxEntries caps the number of entries independently of cost, so the
// recency list cannot grow without bound when entries are cheap.
const maxEntries = 1 << 16

type entry[V any] struct {
	value V
	cost  int64
}

// Cache is a cost-bounded LRU cache.
type Cache[K comparable, V any] struct {
	lru     *simplelru.LRU[K, entry[V]]
	maxCost int64
	cost    int64
}

// New creates a cache that holds at most maxCost total cost.
func New[K comparable, V any](maxCost int64) (*Cache[K, V], error) {
	if maxCost <= 0 {
		return nil, fmt.Errorf("cache: max cost must be positive, got %d", maxCost)
	}
	c := &Cache[K, V]{maxCost: maxCost}
	lru, err := simplelru.NewLRU(maxEntries, func(_ K, e entry[V]) {
		c.cost -= e.cost
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create LRU: %w", err)
	}
	c.lru = lru
	return c, nil
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given cost, evicting least recently
// used entries until the total cost fits the budget. A value whose own
// cost exceeds the budget is not stored at all; any previous value under
// the key is still removed.
func (c *Cache[K, V]) Set(key K, value V, cost int64) {
	if cost > c.maxCost {
		c.lru.Remove(key)
		return
	}
	// Replacing an entry: the eviction callback does not fire on Add for
	// an existing key, so settle the old cost here.
	if old, ok := c.lru.Peek(key); ok {
		c.cost -= old.cost
	}
	c.lru.Add(key, entry[V]{value: value, cost: cost})
	c.cost += cost

	for c.cost > c.maxCost {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Remove drops the entry for key if present.
func (c *Cache[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

// Purge unconditionally empties the cache.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Cost returns the total cost currently held.
func (c *Cache[K, V]) Cost() int64 {
	return c.cost
}
