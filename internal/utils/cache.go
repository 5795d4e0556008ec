package utils

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of cached entries
const DefaultCacheSize = 4096

// CacheItem represents a cached item with the fingerprint it was computed from
type CacheItem[T any] struct {
	Value       T
	Fingerprint string
}

// Cache is a bounded, concurrency-safe cache whose entries are only served
// while the caller's fingerprint still matches the stored one.
type Cache[K comparable, V any] struct {
	items *lru.Cache[K, CacheItem[V]]
}

// NewCache creates a new cache holding at most size entries
func NewCache[K comparable, V any](size int) (*Cache[K, V], error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	items, err := lru.New[K, CacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{items: items}, nil
}

// Get retrieves an item regardless of its fingerprint
func (c *Cache[K, V]) Get(key K) (V, bool) {
	if item, ok := c.items.Get(key); ok {
		return item.Value, true
	}
	var zero V
	return zero, false
}

// GetValidated retrieves an item only if it was stored under the same
// fingerprint. Stale entries are evicted.
func (c *Cache[K, V]) GetValidated(key K, fingerprint string) (V, bool) {
	var zero V
	item, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if item.Fingerprint != fingerprint {
		c.items.Remove(key)
		return zero, false
	}
	return item.Value, true
}

// Set stores an item together with its fingerprint
func (c *Cache[K, V]) Set(key K, value V, fingerprint string) {
	c.items.Add(key, CacheItem[V]{Value: value, Fingerprint: fingerprint})
}

// Delete removes an item from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.items.Remove(key)
}

// Clear removes all items from the cache
func (c *Cache[K, V]) Clear() {
	c.items.Purge()
}

// Size returns the number of items in the cache
func (c *Cache[K, V]) Size() int {
	return c.items.Len()
}

// ContentFingerprint hashes file content for cache validation
func ContentFingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
