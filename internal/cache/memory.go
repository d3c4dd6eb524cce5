package cache

import (
	"sync"
	"time"

	"cadenza/pkg/models"
)

// entry is a cached item with an expiration time.
type entry struct {
	value      interface{}
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// MemoryCache is a simple TTL-bound in-memory cache.
type MemoryCache struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*entry),
		ttl:   ttl,
	}

	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired() {
		return nil, false
	}
	return e.value, true
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache.
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*entry)
}

// Size returns the number of items in the cache.
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// cleanupExpired removes expired entries periodically.
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, e := range c.items {
			if e.expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// SearchCache caches remote search results per query so repeated searches
// do not hit the remote API.
type SearchCache struct {
	*MemoryCache
}

// NewSearchCache creates a search result cache with a 15 minute TTL.
func NewSearchCache() *SearchCache {
	return &SearchCache{
		MemoryCache: NewMemoryCache(15 * time.Minute),
	}
}

// SetResults caches the tracks returned for a query.
func (sc *SearchCache) SetResults(query string, tracks []models.RemoteTrack) {
	sc.Set(query, tracks)
}

// GetResults retrieves cached tracks for a query.
func (sc *SearchCache) GetResults(query string) ([]models.RemoteTrack, bool) {
	value, exists := sc.Get(query)
	if !exists {
		return nil, false
	}

	tracks, ok := value.([]models.RemoteTrack)
	return tracks, ok
}
