package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is an LRU whose entries expire, for data that drifts between
// scans such as query volume. A ttl of zero disables expiry.
type TTLCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

func NewTTL[K comparable, V any](maxSize int, ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{lru: expirable.NewLRU[K, V](maxSize, nil, ttl)}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) { return c.lru.Get(key) }
func (c *TTLCache[K, V]) Set(key K, value V)  { c.lru.Add(key, value) }
func (c *TTLCache[K, V]) Len() int            { return c.lru.Len() }

// GetOrLoad behaves like Cache.GetOrLoad; loaded values expire after the ttl.
func (c *TTLCache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	return getOrLoad[K, V](c.lru, key, load)
}
