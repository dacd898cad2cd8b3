package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// memoryItem pairs a cached value with its own expiry deadline.
type memoryItem[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache is a bounded in-process LRU cache with per-key expiry.
// A single mutex guards every read-check-write; no I/O happens under it.
type MemoryCache[V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, memoryItem[V]]
	ttl time.Duration
	now func() time.Time
}

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*memoryCacheOptions)

type memoryCacheOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(o *memoryCacheOptions) {
		o.now = now
	}
}

// NewMemoryCache creates a cache holding at most size entries, each expiring ttl after it was set.
func NewMemoryCache[V any](size int, ttl time.Duration, opts ...MemoryCacheOption) (*MemoryCache[V], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("memory cache ttl must be positive, got %s", ttl)
	}

	o := memoryCacheOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	l, err := simplelru.NewLRU[string, memoryItem[V]](size, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &MemoryCache[V]{
		lru: l,
		ttl: ttl,
		now: o.now,
	}, nil
}

// Get returns the value for key and marks it most recently used.
// Expired entries are removed and reported as a miss.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if !c.now().Before(item.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return item.value, true
}

// Set stores value under key with the default TTL, evicting the least recently used entry when full.
func (c *MemoryCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a specific TTL.
func (c *MemoryCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, memoryItem[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	})
}

// Delete removes key. It reports whether the key was present.
func (c *MemoryCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Remove(key)
}

// Purge removes every entry.
func (c *MemoryCache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
}

// CleanupExpired removes expired entries and returns how many were dropped.
func (c *MemoryCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		item, ok := c.lru.Peek(key)
		if ok && !now.Before(item.expiresAt) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, including expired ones not yet cleaned up.
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}
