package cache

import (
	"sync"
	"sync/atomic"
)

// ShardCount is the number of shards. Must be a power of 2.
const ShardCount = 16

const shardMask = ShardCount - 1

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int // total across shards
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}

// Sharded is a thread-safe LRU cache keyed by 64-bit hashes and split into
// ShardCount shards, each with its own lock and LRU order. Keys select their
// shard by their low bits, so they must already be well mixed (FNV or
// similar).
type Sharded[V any] struct {
	shards   [ShardCount]*shard[V]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[uint64]*shardEntry[V]
	lru     *lruList[uint64]
}

type shardEntry[V any] struct {
	value V
	node  *lruNode[uint64]
}

// NewSharded creates a cache holding about capacity entries in total.
// Each shard holds at least one entry.
func NewSharded[V any](capacity int) *Sharded[V] {
	c := &Sharded[V]{capacity: max(1, (capacity+ShardCount-1)/ShardCount)}
	for i := range c.shards {
		c.shards[i] = &shard[V]{
			entries: make(map[uint64]*shardEntry[V]),
			lru:     newLRUList[uint64](),
		}
	}
	return c
}

func (c *Sharded[V]) shardFor(key uint64) *shard[V] {
	return c.shards[key&shardMask]
}

// Get returns the value stored under key and marks it recently used.
func (c *Sharded[V]) Get(key uint64) (V, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(e.node)
	v := e.value
	s.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// Set stores value under key, evicting the shard's least recently used
// entries when it is full. Values are stored as-is and must not be modified
// afterwards.
func (c *Sharded[V]) Set(key uint64, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.value = value
		s.lru.MoveToFront(e.node)
		return
	}
	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
	s.entries[key] = &shardEntry[V]{value: value, node: s.lru.PushFront(key)}
}

// Delete removes key. It reports whether the key was present.
func (c *Sharded[V]) Delete(key uint64) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.lru.Remove(e.node)
	delete(s.entries, key)
	return true
}

// Clear removes every entry. Statistics are kept.
func (c *Sharded[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[uint64]*shardEntry[V])
		s.lru.Clear()
		s.mu.Unlock()
	}
}

// Len returns the number of entries across all shards.
func (c *Sharded[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Capacity returns the total capacity across all shards.
func (c *Sharded[V]) Capacity() int { return c.capacity * ShardCount }

// Stats returns the current statistics.
func (c *Sharded[V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Len:       c.Len(),
		Capacity:  c.Capacity(),
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		Evictions: c.evictions.Load(),
	}
}
