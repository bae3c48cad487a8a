// Package backendtest provides a conformance suite for backend.Backend
// implementations.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/relate/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the Backend contract against a fresh backend per subtest.
func Run(t *testing.T, newBackend func(t *testing.T) backend.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, "Descriptions/a/soap/missing.rec")
		assert.True(t, errors.Is(err, backend.ErrNotFound), "got %v", err)
	})

	t.Run("PutGet", func(t *testing.T) {
		b := newBackend(t)
		key := "Descriptions/a/soap/a_soap_1.rec"
		require.NoError(t, b.Put(ctx, key, []byte("payload")))

		data, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("Overwrite", func(t *testing.T) {
		b := newBackend(t)
		key := "Collections/c/ler/c_ler_1.rec"
		require.NoError(t, b.Put(ctx, key, []byte("v1")))
		require.NoError(t, b.Put(ctx, key, []byte("v2")))

		data, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		key := "Descriptions/a/soap/a_soap_1.rec"
		require.NoError(t, b.Put(ctx, key, []byte("x")))
		require.NoError(t, b.Delete(ctx, key))

		_, err := b.Get(ctx, key)
		assert.True(t, errors.Is(err, backend.ErrNotFound))

		// Deleting again is not an error.
		require.NoError(t, b.Delete(ctx, key))
	})

	t.Run("List", func(t *testing.T) {
		b := newBackend(t)
		keys := []string{
			"Descriptions/b/soap/b_soap_1.rec",
			"Descriptions/a/soap/a_soap_2.rec",
			"Descriptions/a/soap/a_soap_1.rec",
			"Descriptions/a/acsf/a_acsf_1.rec",
			"Collections/c/ler/c_ler_1.rec",
		}
		for _, k := range keys {
			require.NoError(t, b.Put(ctx, k, []byte(k)))
		}

		got, err := b.List(ctx, "Descriptions/a/")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Descriptions/a/acsf/a_acsf_1.rec",
			"Descriptions/a/soap/a_soap_1.rec",
			"Descriptions/a/soap/a_soap_2.rec",
		}, got)

		got, err = b.List(ctx, "Descriptions/a/soap/a_soap_1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Descriptions/a/soap/a_soap_1.rec"}, got)

		got, err = b.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, got, len(keys))

		got, err = b.List(ctx, "Nothing/")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ConcurrentPut", func(t *testing.T) {
		b := newBackend(t)
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := fmt.Sprintf("Descriptions/e%d/soap/r.rec", i)
				assert.NoError(t, b.Put(ctx, key, []byte{byte(i)}))
			}()
		}
		wg.Wait()

		got, err := b.List(ctx, "Descriptions/")
		require.NoError(t, err)
		assert.Len(t, got, 16)
	})
}
