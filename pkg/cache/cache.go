// Package cache provides a thread-safe LRU cache for parsed formulas.
//
// The engine keeps one cache so that a schema's formula fields are parsed
// once and then evaluated for every record that is read.
//
// # Example
//
//	c := cache.New(1024)
//	f, err := c.GetOrCompile(`=LEN([Name])`, func() (*evaluator.Formula, error) {
//	    return parser.Parse(`=LEN([Name])`)
//	})
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/sandrolain/goformula/pkg/evaluator"
)

type entry struct {
	key     string
	formula *evaluator.Formula
}

// Cache maps formula text to its parsed tree. A schema's formula fields are
// looked up on every record read, so the hot entries are the formulas of
// the schemas currently in use; formulas of schemas no longer read age out
// once the capacity is reached.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache holding up to capacity formulas. A non-positive
// capacity means 256.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the parsed formula for text, counting a hit or a miss.
func (c *Cache) Get(key string) (*evaluator.Formula, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	// A repeated lookup of the most recent formula needs no reordering.
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if !alreadyFront {
		// The entry may have been evicted between the two locks.
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok {
			c.misses.Add(1)
			return nil, false
		}
	}
	c.hits.Add(1)
	return el.Value.(*entry).formula, true
}

// Set stores f under its formula text, evicting the formula read longest
// ago when the cache is full.
func (c *Cache) Set(key string, f *evaluator.Formula) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).formula = f
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, formula: f})
	c.items[key] = el
}

// GetOrCompile returns the cached formula for key or parses it with
// compile. A formula that fails to parse is not stored, so a schema fix is
// picked up on the next read.
func (c *Cache) GetOrCompile(key string, compile func() (*evaluator.Formula, error)) (*evaluator.Formula, error) {
	if f, ok := c.Get(key); ok {
		return f, nil
	}
	f, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, f)
	return f, nil
}

// Stats returns the lookups answered from the cache and those that were not.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached formulas.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of cached formulas.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate drops the formula parsed from key, e.g. after a schema edit.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear drops every cached formula.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked drops the formula read longest ago. c.mu must be held for
// writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
