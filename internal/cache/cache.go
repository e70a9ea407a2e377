// Package cache provides a bounded in-process TTL cache and a sliding-window
// rate limiter, both safe for concurrent use.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key     string
	value   string
	expires time.Time
	elem    *list.Element
}

// Cache is a string-keyed TTL cache with a capacity bound. When full, the
// least recently used entry is evicted.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*entry
	order    *list.List // front = most recently used
	now      func() time.Time
}

func New(ttl time.Duration, capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*entry),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value and whether it was present and unexpired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(e.expires) {
		c.remove(e)
		return "", false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(e.elem)
		return
	}
	if len(c.entries) >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.remove(back.Value.(*entry))
		}
	}
	e := &entry{key: key, value: value, expires: c.now().Add(c.ttl)}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
}

// Len returns the number of entries, including any not yet expired-swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) remove(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}

// RateLimiter allows at most limit events per key within a sliding window.
// Keys whose events have all aged out are swept from the table, so the key
// set stays bounded by the recently active callers.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records an event for key and reports whether it fits the window.
// Refused events are not recorded.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	r.sweep(now, cutoff)
	kept := r.hits[key][:0]
	for _, t := range r.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.limit {
		r.hits[key] = kept
		return false
	}
	r.hits[key] = append(kept, now)
	return true
}

// sweep drops keys with no events left in the window. Runs at most once per
// window so Allow stays cheap between sweeps.
func (r *RateLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(r.lastSweep) < r.window {
		return
	}
	r.lastSweep = now
	for key, times := range r.hits {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(r.hits, key)
		}
	}
}

// Len returns the number of keys currently tracked.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hits)
}
