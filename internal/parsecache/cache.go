// Package parsecache remembers the results of parsing text so that servers
// evaluating the same messages repeatedly parse each one only once.
package parsecache

import (
	"sync"

	"github.com/edwingeng/deque"
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/zephyrtronium/counter"
)

// Cache is a bounded cache of parse results. Parsed expressions are never
// modified, so one result may be shared by any number of goroutines. It is
// safe to use a Cache concurrently.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64][]entry
	// order holds the key of each entry in insertion order. When the cache
	// is full, the oldest entry is evicted.
	order deque.Deque
	n     int
	max   int
	opts  []counter.ParseOption

	hits, misses int64
}

type entry struct {
	text string
	expr *counter.Expr
	err  error
}

// New creates a cache holding up to size results of parsing with opts. If
// size is not positive, nothing is cached.
func New(size int, opts ...counter.ParseOption) *Cache {
	if size < 0 {
		size = 0
	}
	return &Cache{
		entries: make(map[uint64][]entry),
		order:   deque.NewDeque(),
		max:     size,
		opts:    opts,
	}
}

// Parse returns the result of counter.Parse for text, parsing it only if it
// is not already cached. Errors are cached as well.
func (c *Cache) Parse(text string) (*counter.Expr, error) {
	if c.max == 0 {
		return counter.Parse(text, c.opts...)
	}
	h := fnv1a.HashString64(text)
	c.mu.Lock()
	for _, e := range c.entries[h] {
		if e.text == text {
			c.hits++
			c.mu.Unlock()
			return e.expr, e.err
		}
	}
	c.misses++
	c.mu.Unlock()

	// Parse outside the lock. Concurrent misses on the same text may both
	// parse it; the second insert finds the first and keeps it.
	expr, err := counter.Parse(text, c.opts...)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries[h] {
		if e.text == text {
			return e.expr, e.err
		}
	}
	for c.n >= c.max {
		c.evict()
	}
	c.entries[h] = append(c.entries[h], entry{text: text, expr: expr, err: err})
	c.order.PushBack(h)
	c.n++
	return expr, err
}

// evict removes the oldest entry. c.mu must be held.
func (c *Cache) evict() {
	h := c.order.PopFront().(uint64)
	b := c.entries[h]
	// Entries sharing a key are appended in insertion order, so the oldest
	// is first.
	if len(b) <= 1 {
		delete(c.entries, h)
	} else {
		c.entries[h] = append(b[:0:0], b[1:]...)
	}
	c.n--
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Stats returns the number of lookups that found a cached result and the
// number that had to parse.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
