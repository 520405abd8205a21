package memo

import (
	"context"
	"sync"
)

// MemoryCache keeps entries in process. With a positive capacity the oldest
// insertion is evicted first.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[Key]Entry
	order    []Key
	capacity int

	hits, misses, evictions uint64
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryCache{
		entries:  make(map[Key]Entry),
		capacity: capacity,
	}
}

func (c *MemoryCache) Get(_ context.Context, key Key) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok, nil
}

func (c *MemoryCache) Peek(_ context.Context, key Key) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, key Key, e Entry) error {
	if !e.valid() {
		return ErrInvalidEntry
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = e

	for c.capacity > 0 && len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.evictions++
	}
	return nil
}

func (c *MemoryCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]Entry)
	c.order = nil
	return nil
}

func (c *MemoryCache) Stats(context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Capacity:  c.capacity,
	}, nil
}

func (c *MemoryCache) Close() error { return nil }
