package backend_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/backend/backendtest"
	"github.com/hupe1980/relate/internal/cache"
	"github.com/hupe1980/relate/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		return backend.NewMemory()
	})
}

func TestLocal(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		b, err := backend.NewLocal(t.TempDir())
		require.NoError(t, err)
		return b
	})
}

func TestCaching(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		return backend.NewCaching(backend.NewMemory(), cache.NewLRU(1<<20, nil))
	})
}

func TestLocal_PrunesEmptyParents(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	b, err := backend.NewLocal(root)
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, "Descriptions/a/soap/r1.rec", []byte("1")))
	require.NoError(t, b.Put(ctx, "Descriptions/b/soap/r2.rec", []byte("2")))

	require.NoError(t, b.Delete(ctx, "Descriptions/a/soap/r1.rec"))

	_, err = os.Stat(filepath.Join(root, "Descriptions", "a"))
	assert.True(t, os.IsNotExist(err), "empty entity directory is pruned")

	_, err = os.Stat(filepath.Join(root, "Descriptions", "b", "soap", "r2.rec"))
	assert.NoError(t, err, "siblings remain")

	require.NoError(t, b.Delete(ctx, "Descriptions/b/soap/r2.rec"))
	_, err = os.Stat(filepath.Join(root, "Descriptions"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(root)
	assert.NoError(t, err, "root is never pruned")
}

func TestLocal_InvalidKeys(t *testing.T) {
	b, err := backend.NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/abs", "a/../b", "a//b", ".locks/x", "a/.tmp-1"} {
		err := b.Put(context.Background(), key, nil)
		assert.ErrorIs(t, err, backend.ErrInvalidKey, key)
	}
}

func TestLocal_WriteFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("Descriptions", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	b, err := backend.NewLocal(root, func(o *backend.LocalOptions) {
		o.FileSystem = ffs
	})
	require.NoError(t, err)

	err = b.Put(ctx, "Descriptions/a/soap/r.rec", []byte("payload"))
	require.ErrorIs(t, err, fs.ErrInjected)

	keys, err := b.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "readers never observe a partial record")
}

func TestLocal_Lock(t *testing.T) {
	ctx := context.Background()
	b, err := backend.NewLocal(t.TempDir())
	require.NoError(t, err)

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := b.Lock(ctx, "Descriptions/a/soap")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, unlock())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())

	keys, err := b.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "lock files are not listed")
}

func TestLocal_LockContext(t *testing.T) {
	b, err := backend.NewLocal(t.TempDir())
	require.NoError(t, err)

	unlock, err := b.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer func() { _ = unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCaching_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := backend.NewMemory()
	c := backend.NewCaching(inner, cache.NewLRU(1<<20, nil))

	require.NoError(t, c.Put(ctx, "k", []byte("v1")))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)
	_, err = c.Get(ctx, "k")
	require.NoError(t, err)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// Writes through the wrapper invalidate.
	require.NoError(t, c.Put(ctx, "k", []byte("v2")))
	data, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestJoinSplit(t *testing.T) {
	key := backend.Join("Descriptions", "a", "soap", "r.rec")
	assert.Equal(t, "Descriptions/a/soap/r.rec", key)
	assert.Equal(t, []string{"Descriptions", "a", "soap", "r.rec"}, backend.Split(key))
}
