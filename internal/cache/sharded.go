package cache

import "sync"

// shardCount must stay a power of two so a hash masks down to a shard
// index without a modulo.
const shardCount = 16

// defaultShardCapacity bounds each shard when the caller passes no
// capacity of its own.
const defaultShardCapacity = 256

// Hasher maps a key to the hash used for shard selection.
type Hasher[K any] func(K) uint64

// Uint64Hasher uses the key itself as the hash. Suitable when keys are
// already well-mixed digests.
func Uint64Hasher(u uint64) uint64 { return u }

// ShardedCache spreads an LRU cache over shardCount independently
// locked shards. Capacity applies per shard, so hot keys in one shard
// never evict entries in another.
type ShardedCache[K comparable, V any] struct {
	shards   [shardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[K, V]
	recency list[K]
}

// NewSharded returns an empty sharded cache holding at most capacity
// entries per shard. A capacity of 0 or less falls back to
// defaultShardCapacity.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K]) *ShardedCache[K, V] {
	if capacity <= 0 {
		capacity = defaultShardCapacity
	}
	c := &ShardedCache[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*entry[K, V])
	}
	return c
}

func (c *ShardedCache[K, V]) shardFor(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&(shardCount-1)]
}

// Get returns the value stored under key and marks it recently used
// within its shard.
func (c *ShardedCache[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)

	s.mu.RLock()
	_, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}

	// The recency bump needs the write lock. The entry may have been
	// evicted in between, so look it up again.
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	s.recency.moveToFront(e.node)
	return e.value, true
}

// Set stores value under key. A full shard evicts its least recently
// used entry first.
func (c *ShardedCache[K, V]) Set(key K, value V) {
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.value = value
		s.recency.moveToFront(e.node)
		return
	}
	for len(s.entries) >= c.capacity {
		old, ok := s.recency.popBack()
		if !ok {
			break
		}
		delete(s.entries, old)
	}
	s.entries[key] = &entry[K, V]{value: value, node: s.recency.pushFront(key)}
}

// Len returns the entry count summed over all shards.
func (c *ShardedCache[K, V]) Len() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}
