package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through a fast cache into a slow one and writes both
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache combines two caches. Hits in slow are promoted into fast.
func NewLayeredCache(fast, slow Cache) *LayeredCache {
	return &LayeredCache{fast: fast, slow: slow}
}

// NewMemoryDiskCache is the usual memory-over-disk pair
func NewMemoryDiskCache(memoryTTL time.Duration, dir string, diskTTL time.Duration) *LayeredCache {
	return NewLayeredCache(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(dir, diskTTL))
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.fast.Get(key); ok {
		return val, true
	}
	val, ok := c.slow.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.fast.Set(key, val, 0)
	return val, true
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	return errors.Join(c.fast.Set(key, value, ttl), c.slow.Set(key, value, ttl))
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.fast.Delete(key), c.slow.Delete(key))
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.fast.Clear(), c.slow.Clear())
}
