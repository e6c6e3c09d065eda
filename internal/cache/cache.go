// Package cache provides a thread-safe in-process TTL cache used for
// classifier results and category duration aggregates.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// TTLCache is a thread-safe cache with a per-cache TTL and LRU eviction.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	items   map[string]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
}

type cacheItem[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// New creates a cache that keeps at most maxSize entries, each valid
// for ttl after its last Set.
func New[V any](maxSize int, ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a value from the cache. The second return value reports
// whether a live entry was found.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[V])
	if time.Now().After(item.expiresAt) {
		// Expired entries are swept on Set; Get only holds a read lock.
		return zero, false
	}
	return item.value, true
}

// Set stores a value in the cache.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.lru.MoveToFront(elem)
		item := elem.Value.(*cacheItem[V])
		item.value = value
		item.expiresAt = time.Now().Add(c.ttl)
		return
	}

	elem := c.lru.PushFront(&cacheItem[V]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		c.evictOldest()
	}
}

// Clear removes all items from the cache.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru = list.New()
}

// Size returns the current number of items in the cache.
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

func (c *TTLCache[V]) evictOldest() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	c.lru.Remove(elem)
	delete(c.items, elem.Value.(*cacheItem[V]).key)
}
