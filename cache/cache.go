package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// backend is the part of the golang-lru caches the wrappers rely on.
type backend[K comparable, V any] interface {
	Get(key K) (V, bool)
	Add(key K, value V) bool
	Len() int
}

// getOrLoad returns the cached value for key, calling load on a miss. Only
// successful loads are cached; concurrent misses may each call load.
func getOrLoad[K comparable, V any](b backend[K, V], key K, load func() (V, error)) (V, error) {
	if v, ok := b.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	b.Add(key, v)
	return v, nil
}

// Cache is a size-bounded LRU. Values never expire; it holds data that is
// fixed for a key, such as the start block of a content-addressed manifest.
type Cache[K comparable, V any] struct {
	lru *lru.Cache[K, V]
}

func New[K comparable, V any](maxSize int) *Cache[K, V] {
	c, err := lru.New[K, V](maxSize)
	if err != nil {
		panic(fmt.Sprintf("invalid start block cache size %d: %s", maxSize, err.Error()))
	}
	return &Cache[K, V]{lru: c}
}

func (c *Cache[K, V]) Get(key K) (V, bool) { return c.lru.Get(key) }
func (c *Cache[K, V]) Set(key K, value V)  { c.lru.Add(key, value) }
func (c *Cache[K, V]) Len() int            { return c.lru.Len() }

func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	return getOrLoad[K, V](c.lru, key, load)
}
