package cache

import (
	"strings"
	"testing"

	"github.com/hupe1980/relate/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	t.Run("GetSet", func(t *testing.T) {
		c := NewLRU(1024, nil)

		_, ok := c.Get("a")
		assert.False(t, ok)

		c.Set("a", []byte("alpha"))
		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, "alpha", string(v))

		hits, misses := c.Stats()
		assert.Equal(t, int64(1), hits)
		assert.Equal(t, int64(1), misses)
	})

	t.Run("Eviction", func(t *testing.T) {
		c := NewLRU(10, nil)
		c.Set("a", []byte("12345"))
		c.Set("b", []byte("12345"))
		_, _ = c.Get("a") // a is now most recent
		c.Set("c", []byte("12345"))

		_, ok := c.Get("b")
		assert.False(t, ok, "least recently used entry is evicted")
		_, ok = c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, int64(10), c.Size())
	})

	t.Run("Overwrite", func(t *testing.T) {
		c := NewLRU(100, nil)
		c.Set("a", []byte("1"))
		c.Set("a", []byte("1234"))
		assert.Equal(t, int64(4), c.Size())
		assert.Equal(t, 1, c.Len())
	})

	t.Run("TooLarge", func(t *testing.T) {
		c := NewLRU(2, nil)
		c.Set("a", []byte("123"))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Invalidate", func(t *testing.T) {
		c := NewLRU(100, nil)
		c.Set("Descriptions/a/soap/x", []byte("1"))
		c.Set("Descriptions/b/soap/y", []byte("2"))
		c.Set("Collections/c/ler/z", []byte("3"))

		c.Invalidate(func(key string) bool { return strings.HasPrefix(key, "Descriptions/") })
		assert.Equal(t, 1, c.Len())

		c.Delete("Collections/c/ler/z")
		assert.Equal(t, 0, c.Len())
		assert.Equal(t, int64(0), c.Size())
	})

	t.Run("ResourceBudget", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 4})
		c := NewLRU(100, rc)

		c.Set("a", []byte("1234"))
		c.Set("b", []byte("1"))
		_, ok := c.Get("b")
		assert.False(t, ok, "shared budget is exhausted")
		assert.Equal(t, int64(4), rc.MemoryUsage())

		c.Delete("a")
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})
}
