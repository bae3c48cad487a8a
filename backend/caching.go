package backend

import (
	"context"
	"io"
	"strings"

	"github.com/hupe1980/relate/internal/cache"
)

// Caching wraps a Backend with an LRU read cache. Records are immutable once
// written, so cached bytes stay valid until the key is rewritten or deleted.
type Caching struct {
	inner Backend
	cache *cache.LRU
}

var _ Invalidator = (*Caching)(nil)

// NewCaching creates a read cache in front of inner.
func NewCaching(inner Backend, c *cache.LRU) *Caching {
	return &Caching{inner: inner, cache: c}
}

// Get serves from the cache, filling it on miss.
func (c *Caching) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}

	data, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, data)
	return data, nil
}

// Put writes through and invalidates the cached entry.
func (c *Caching) Put(ctx context.Context, key string, data []byte) error {
	c.cache.Delete(key)
	return c.inner.Put(ctx, key, data)
}

// Delete removes the key from the cache and the inner backend.
func (c *Caching) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return c.inner.Delete(ctx, key)
}

// List is not cached; listings change with every write.
func (c *Caching) List(ctx context.Context, prefix string) ([]string, error) {
	return c.inner.List(ctx, prefix)
}

// Lock delegates to the inner backend when it is a Locker.
func (c *Caching) Lock(ctx context.Context, name string) (func() error, error) {
	if l, ok := c.inner.(Locker); ok {
		return l.Lock(ctx, name)
	}
	return func() error { return nil }, nil
}

// InvalidatePrefix drops every cached key with the given prefix.
func (c *Caching) InvalidatePrefix(prefix string) {
	c.cache.Invalidate(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Stats returns cache hit and miss counts.
func (c *Caching) Stats() (hits, misses int64) {
	return c.cache.Stats()
}

// Close closes the inner backend if it holds resources.
func (c *Caching) Close() error {
	if cl, ok := c.inner.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
