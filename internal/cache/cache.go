package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores opaque values by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key. The raw value is hashed so any string
// (a URL, a claim) is safe as a file name.
func Key(namespace, raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return "factcheck:" + namespace + ":v1:" + hex.EncodeToString(hash[:])
}

// GetJSON decodes a cached JSON value. A corrupt entry counts as a miss.
func GetJSON[T any](c Cache, key string) (T, bool) {
	var v T
	data, ok := c.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		_ = c.Delete(key)
		return v, false
	}
	return v, true
}

// SetJSON encodes v and stores it
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}
