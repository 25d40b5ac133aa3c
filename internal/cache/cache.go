package cache

import "sync"

// Cache is a mutex-guarded LRU cache. An insert that pushes it past
// capacity drops the least recently used entry. A capacity of 0
// disables eviction.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[K, V]
	recency  list[K]
	capacity int
}

type entry[K comparable, V any] struct {
	value V
	node  *node[K]
}

// New returns an empty cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*entry[K, V]),
		capacity: capacity,
	}
}

// Get returns the value stored under key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.recency.moveToFront(e.node)
	return e.value, true
}

// GetOrCreate returns the value stored under key, calling create and
// caching its result on a miss. create runs under the cache lock, so a
// given key is computed at most once.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.recency.moveToFront(e.node)
		return e.value
	}

	value := create()
	c.entries[key] = &entry[K, V]{value: value, node: c.recency.pushFront(key)}
	if c.capacity > 0 {
		for len(c.entries) > c.capacity {
			old, ok := c.recency.popBack()
			if !ok {
				break
			}
			delete(c.entries, old)
		}
	}
	return value
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
