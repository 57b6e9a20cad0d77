// Package answercache memoises name resolution results. The zone never changes
// while serving, so entries never go stale; the LRU only bounds memory.
package answercache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Answer is a cached resolution result. Found is false for a cached miss.
type Answer struct {
	Text  string
	Found bool
}

// Cache is an LRU of query name to Answer with hit/miss counters.
type Cache struct {
	lru    *lru.Cache[string, Answer]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache holding up to size names. Size must be positive.
func New(size int) (*Cache, error) {
	c, err := lru.New[string, Answer](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached answer for name.
func (c *Cache) Get(name string) (Answer, bool) {
	if a, ok := c.lru.Get(name); ok {
		c.hits.Add(1)
		return a, true
	}
	c.misses.Add(1)
	return Answer{}, false
}

// Put stores the answer for name.
func (c *Cache) Put(name string, a Answer) {
	c.lru.Add(name, a)
}

// Len returns the number of cached names.
func (c *Cache) Len() int { return c.lru.Len() }

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
