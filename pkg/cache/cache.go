// Package cache provides a thread-safe LRU cache for compiled queries.
//
// The evaluator uses it when caching is enabled, so that a plan that is
// evaluated against many documents is decoded and optimized only once.
//
// # Example
//
//	c := cache.New(1024)
//	q, err := c.GetOrCompile(string(src), func() (*expr.Query, error) {
//		return plan.Compile(src)
//	})
package cache

import (
	"container/list"
	"sync"

	"github.com/sandrolain/goxq/pkg/expr"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 256

type entry struct {
	key   string
	query *expr.Query
}

// Cache is a thread-safe LRU cache of compiled queries. Once the capacity is
// reached, the least recently accessed entry is evicted.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	compile  sync.Mutex
}

// New creates a cache with the given capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the query cached under key and marks it most recently used.
func (c *Cache) Get(key string) (*expr.Query, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	front := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !front {
		// the entry may have been evicted in between
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()
		if !ok {
			return nil, false
		}
	}
	return el.Value.(*entry).query, true
}

// Set inserts or replaces a query.
func (c *Cache) Set(key string, q *expr.Query) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).query = q
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, query: q})
}

// GetOrCompile returns the query cached under key, or compiles and caches
// it. Compilation errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*expr.Query, error)) (*expr.Query, error) {
	if q, ok := c.Get(key); ok {
		return q, nil
	}
	c.compile.Lock()
	defer c.compile.Unlock()
	if q, ok := c.Get(key); ok {
		return q, nil
	}
	q, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, q)
	return q, nil
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Capacity returns the maximum number of cached queries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry. c.mu must be held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
