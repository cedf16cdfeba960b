package sampler

import (
	"fmt"
	"sync"
	"time"
)

// Cache memoizes live samples with a TTL and LRU eviction.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	order      []string // front=oldest
	maxEntries int
	ttl        time.Duration

	nowFunc func() time.Time
}

type cacheEntry struct {
	value    float64
	storedAt time.Time
}

// NewCache returns a cache holding at most maxEntries values for ttl.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		nowFunc:    time.Now,
	}
}

func cacheKey(lat, lon float64, field string, hour int) string {
	return fmt.Sprintf("%s/%d/%g/%g", field, hour, lat, lon)
}

// Get returns a cached value that has not expired.
func (c *Cache) Get(lat, lon float64, field string, hour int) (float64, bool) {
	key := cacheKey(lat, lon, field, hour)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.nowFunc().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return 0, false
	}
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	return e.value, true
}

// Put stores a value, evicting the least recently used entry at capacity.
func (c *Cache) Put(lat, lon float64, field string, hour int, value float64) {
	key := cacheKey(lat, lon, field, hour)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeFromOrder(key)
	}
	for len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = cacheEntry{value: value, storedAt: c.nowFunc()}
	c.order = append(c.order, key)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
