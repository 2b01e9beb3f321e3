// Package cache provides a generic LRU cache with time-based expiry.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

const (
	DefaultTTL         = 300 * time.Second
	DefaultMaxCapacity = 1000
)

// Options configures a TTL cache. Zero values fall back to the defaults.
type Options struct {
	// TTL is the expiry window measured from insertion, not from last access.
	TTL time.Duration
	// MaxCapacity bounds the number of entries; inserting a new key into a
	// full cache evicts the least recently used entry.
	MaxCapacity int
}

type entry[V any] struct {
	value V
	ts    time.Time
}

// TTL is safe for concurrent use. One lock covers lookup, expiry and
// eviction, so an expired entry is never removed after a newer Set.
type TTL[K comparable, V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU
	ttl time.Duration
	now func() time.Time
}

func New[K comparable, V any](opts Options) (*TTL[K, V], error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxCapacity <= 0 {
		opts.MaxCapacity = DefaultMaxCapacity
	}
	l, err := simplelru.NewLRU(opts.MaxCapacity, nil)
	if err != nil {
		return nil, err
	}
	return &TTL[K, V]{
		lru: l,
		ttl: opts.TTL,
		now: time.Now,
	}, nil
}

// Get returns the value for key if it is present and has not expired.
// Expired entries are removed on the way out.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	e := raw.(entry[V])
	if c.now().Sub(e.ts) >= c.ttl {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set inserts or overwrites key with a fresh insertion time.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.lru.Add(key, entry[V]{value: value, ts: c.now()})
	c.mu.Unlock()
}

func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	c.lru.Remove(key)
	c.mu.Unlock()
}

// Len counts entries that are still live. It does not touch recency.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, k := range c.lru.Keys() {
		raw, ok := c.lru.Peek(k)
		if ok && now.Sub(raw.(entry[V]).ts) < c.ttl {
			n++
		}
	}
	return n
}
