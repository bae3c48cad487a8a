package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/backend/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		b, err := Open(filepath.Join(t.TempDir(), "store.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestBackend_PrefixIsLiteral(t *testing.T) {
	ctx := context.Background()
	b, err := Open(filepath.Join(t.TempDir(), "nested", "store.db"))
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	// LIKE wildcards in keys must not widen the match.
	require.NoError(t, b.Put(ctx, "Descriptions/a_b/x.rec", []byte("1")))
	require.NoError(t, b.Put(ctx, "Descriptions/a%b/x.rec", []byte("2")))
	require.NoError(t, b.Put(ctx, "Descriptions/axb/x.rec", []byte("3")))

	keys, err := b.List(ctx, "Descriptions/a_b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"Descriptions/a_b/x.rec"}, keys)
}
