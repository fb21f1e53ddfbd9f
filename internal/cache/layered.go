package cache

import "time"

// LayeredCache checks a fast cache before a durable one and promotes hits
type LayeredCache struct {
	fast    Cache
	durable Cache
}

// NewLayeredCache composes two caches
func NewLayeredCache(fast, durable Cache) *LayeredCache {
	return &LayeredCache{fast: fast, durable: durable}
}

// Get retrieves a value, promoting durable hits into the fast layer
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.fast.Get(key); found {
		return val, true
	}

	if val, found := c.durable.Get(key); found {
		_ = c.fast.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.durable.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.fast.Delete(key)
	return c.durable.Delete(key)
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	_ = c.fast.Clear()
	return c.durable.Clear()
}
