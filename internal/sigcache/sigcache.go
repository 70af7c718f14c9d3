// Package sigcache deduplicates ledger event identifiers with a bounded
// FIFO window.
package sigcache

import (
	"fmt"
	"sync"
)

// Default window sizing: capacity = window × multiple.
const (
	DefaultWindow   = 10
	DefaultMultiple = 10
)

// Cache remembers the most recent signatures up to a fixed capacity and
// evicts strictly in insertion order. It is safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	ring []string
	head int // index of the oldest entry
	size int
	set  map[string]struct{}
}

// New creates a cache holding window × multiple identifiers.
// It panics if either argument is not positive.
func New(window, multiple int) *Cache {
	if window <= 0 || multiple <= 0 {
		panic(fmt.Sprintf("sigcache: invalid sizing window=%d multiple=%d", window, multiple))
	}
	capacity := window * multiple
	return &Cache{
		ring: make([]string, capacity),
		set:  make(map[string]struct{}, capacity),
	}
}

// Seen reports whether id is currently remembered.
func (c *Cache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.set[id]
	return ok
}

// Record remembers id, evicting the oldest entry when full. Recording an
// id that is already present is a no-op.
func (c *Cache) Record(id string) {
	c.mu.Lock()
	c.record(id)
	c.mu.Unlock()
}

// CheckAndRecord records id and reports whether it was already present.
// Exactly one of several concurrent callers with the same id gets false.
func (c *Cache) CheckAndRecord(id string) (seen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.set[id]; ok {
		return true
	}
	c.record(id)
	return false
}

func (c *Cache) record(id string) {
	if _, ok := c.set[id]; ok {
		return
	}
	capacity := len(c.ring)
	if c.size == capacity {
		delete(c.set, c.ring[c.head])
		c.ring[c.head] = id
		c.head = (c.head + 1) % capacity
	} else {
		c.ring[(c.head+c.size)%capacity] = id
		c.size++
	}
	c.set[id] = struct{}{}
}

// Forget drops id so that a later CheckAndRecord treats it as new. The
// eviction order of the remaining ids is unchanged.
func (c *Cache) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.set[id]; !ok {
		return
	}
	delete(c.set, id)

	capacity := len(c.ring)
	kept := 0
	for i := 0; i < c.size; i++ {
		v := c.ring[(c.head+i)%capacity]
		if v == id {
			continue
		}
		c.ring[(c.head+kept)%capacity] = v
		kept++
	}
	c.ring[(c.head+kept)%capacity] = ""
	c.size = kept
}

// Len returns the number of remembered ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the maximum number of remembered ids.
func (c *Cache) Capacity() int {
	return len(c.ring)
}
