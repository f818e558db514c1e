package oracle

import (
	"sync"
	"time"
)

// PriceCache keeps fan-token price listings for a short time. It fronts the
// listing operation only, quotes always read the DEX directly.
type PriceCache struct {
	mu       sync.RWMutex
	cache    map[string]*cachedPrices
	cacheTTL time.Duration
}

// cachedPrices represents a cached listing with timestamp
type cachedPrices struct {
	prices    []FanTokenPrice
	timestamp time.Time
}

// NewPriceCache creates a new price cache, a zero TTL disables caching
func NewPriceCache(cacheTTL time.Duration) *PriceCache {
	return &PriceCache{
		cache:    make(map[string]*cachedPrices),
		cacheTTL: cacheTTL,
	}
}

// Get retrieves a cached listing if it's still valid
func (c *PriceCache) Get(key string) ([]FanTokenPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[key]
	if !exists {
		return nil, false
	}

	// Check if cache is still valid
	if time.Since(cached.timestamp) >= c.cacheTTL {
		return nil, false
	}

	return append([]FanTokenPrice(nil), cached.prices...), true
}

// Set stores a listing in the cache with current timestamp
func (c *PriceCache) Set(key string, prices []FanTokenPrice) {
	if c.cacheTTL <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cachedPrices{
		prices:    append([]FanTokenPrice(nil), prices...),
		timestamp: time.Now(),
	}
}

// Clear removes all cached entries
func (c *PriceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cachedPrices)
}

// Stats returns the number of cached listings and the TTL
func (c *PriceCache) Stats() (int, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache), c.cacheTTL
}
