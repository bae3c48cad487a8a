package relate_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/relate"
	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/config"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/store"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]config.StoreConfig{
		"memory": {Backend: config.BackendMemory},
		"local": {
			Backend:            config.BackendLocal,
			Root:               filepath.Join(dir, "local"),
			Compression:        "zstd",
			CacheBytes:         1 << 20,
			IOLimitBytesPerSec: 1 << 30,
		},
		"bolt":   {Backend: config.BackendBolt, Root: filepath.Join(dir, "relate.db"), Compression: "lz4"},
		"sqlite": {Backend: config.BackendSQLite, Root: filepath.Join(dir, "relate.sqlite"), Codec: "json"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st, err := relate.OpenStore(ctx, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, st.Close()) })

			p := params.MustNew(map[string]any{"rcut": 5.0})
			_, err = st.StoreDescription(ctx, [][]float64{{1, 2}}, nil, "a", "soap", p)
			require.NoError(t, err)

			var got [][]float64
			_, err = st.GetDescription(ctx, "a", "soap", p, &got)
			require.NoError(t, err)
			assert.Equal(t, [][]float64{{1, 2}}, got)
		})
	}
}

func TestOpenBackendCaching(t *testing.T) {
	b, err := relate.OpenBackend(context.Background(), config.StoreConfig{
		Backend:    config.BackendMemory,
		CacheBytes: 1024,
	})
	require.NoError(t, err)
	_, ok := b.(*backend.Caching)
	assert.True(t, ok)
}

func TestOpenStoreInvalid(t *testing.T) {
	ctx := context.Background()

	_, err := relate.OpenStore(ctx, config.StoreConfig{Backend: "floppy"})
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = relate.OpenStore(ctx, config.StoreConfig{Backend: config.BackendMemory, Compression: "gzip"})
	require.Error(t, err)
}
