package aggregate

import (
	"sync"

	"github.com/aouyang1/go-salesforecast/dataset"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 64

// Cache is a size bounded LRU of selected slices of a single dataset. It is safe for
// concurrent use. Cached slices are shared and must not be modified.
type Cache struct {
	ds    *dataset.Dataset
	cache *lru.Cache[dataset.SeriesKey, *Slice]

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewCache returns a cache holding up to size slices. A non positive size uses
// DefaultCacheSize.
func NewCache(ds *dataset.Dataset, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[dataset.SeriesKey, *Slice](size)
	if err != nil {
		return nil, err
	}
	return &Cache{ds: ds, cache: cache}, nil
}

// Select returns the cached slice of the store and family, selecting it on a miss
func (c *Cache) Select(store int, family string) (*Slice, error) {
	key := dataset.SeriesKey{Store: store, Family: family}
	if s, ok := c.cache.Get(key); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return s, nil
	}

	s, err := Select(c.ds, store, family)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, s)

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return s, nil
}

// Stats returns the number of hits and misses
func (c *Cache) Stats() (uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached slices
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Dataset returns the dataset the slices are selected from
func (c *Cache) Dataset() *dataset.Dataset {
	return c.ds
}
