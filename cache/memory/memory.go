// Package memory provides an in-memory cache.Cache with adaptive
// replacement eviction.
package memory

import (
	"errors"

	"github.com/hashicorp/golang-lru/arc/v2"
)

// Cache holds up to a fixed number of payloads in memory.
// The cache is safe for concurrent use.
type Cache struct {
	arc      *arc.ARCCache[string, []byte]
	maxEntry int
}

// Option configures a memory cache.
type Option func(*Cache)

// WithMaxEntrySize skips payloads larger than n bytes. Use 0 to cache
// payloads of any size.
func WithMaxEntrySize(n int) Option {
	return func(c *Cache) {
		c.maxEntry = n
	}
}

// New creates a cache holding at most entries payloads.
func New(entries int, opts ...Option) (*Cache, error) {
	if entries <= 0 {
		return nil, errors.New("cache entries must be > 0")
	}
	a, err := arc.NewARC[string, []byte](entries)
	if err != nil {
		return nil, err
	}
	c := &Cache{arc: a}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxEntry < 0 {
		return nil, errors.New("max entry size must be >= 0")
	}
	return c, nil
}

// Get returns the cached payload for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.arc.Get(key)
}

// Put stores data under key.
func (c *Cache) Put(key string, data []byte) error {
	if c.maxEntry > 0 && len(data) > c.maxEntry {
		return nil
	}
	c.arc.Add(key, data)
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(key string) error {
	c.arc.Remove(key)
	return nil
}

// Len returns the number of cached payloads.
func (c *Cache) Len() int {
	return c.arc.Len()
}
