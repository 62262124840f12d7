package geocode

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// AddressCache implements an LRU (Least Recently Used) cache for resolved
// addresses, keyed by coordinate cell.
type AddressCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.RWMutex
}

type cacheEntry struct {
	key   string
	value string
}

// cellKey buckets coordinates into roughly 11 meter cells so nearby taps
// share one resolution.
func cellKey(coord domain.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f", coord.Lat, coord.Lng)
}

// NewAddressCache creates a new LRU cache with the specified capacity
func NewAddressCache(capacity int) *AddressCache {
	return &AddressCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get retrieves a value from the cache. It takes the write lock because a
// hit reorders the recency list.
func (c *AddressCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return "", false
}

// Set adds or updates a value in the cache
func (c *AddressCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Update existing entry
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	// Add new entry
	entry := &cacheEntry{key, value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	// Evict oldest if over capacity
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the current number of items in the cache
func (c *AddressCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Clear removes all items from the cache
func (c *AddressCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*list.Element)
	c.lru = list.New()
}
