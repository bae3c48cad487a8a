package minio

import (
	"context"
	"os"
	"testing"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/backend/backendtest"
	"github.com/hupe1980/relate/resource"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// TestBackend_Integration requires a running MinIO instance.
// Skip if not available.
func TestBackend_Integration(t *testing.T) {
	endpoint := envOr("RELATE_MINIO_ENDPOINT", "localhost:9000")
	accessKey := envOr("RELATE_MINIO_ACCESS_KEY", "minioadmin")
	secretKey := envOr("RELATE_MINIO_SECRET_KEY", "minioadmin")
	bucket := "test-relate"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	for name, limit := range map[string]*resource.Controller{"Unlimited": nil, "IOBudget": rc} {
		t.Run(name, func(t *testing.T) {
			backendtest.Run(t, func(t *testing.T) backend.Backend {
				b := New(client, bucket, t.Name()).WithResources(limit)
				t.Cleanup(func() {
					keys, _ := b.List(ctx, "")
					for _, k := range keys {
						_ = b.Delete(ctx, k)
					}
				})
				return b
			})
		})
	}

	t.Run("CanceledPut", func(t *testing.T) {
		b := New(client, bucket, t.Name()).WithResources(rc)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, b.Put(cctx, "a.rec", []byte("content")), context.Canceled)
	})
}

func TestWithResources(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{Creds: credentials.NewStaticV4("k", "s", "")})
	require.NoError(t, err)

	b := New(client, "bucket", "root")
	assert.Nil(t, b.rc)

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1024})
	assert.Same(t, b, b.WithResources(rc))
	assert.Same(t, rc, b.rc)
	assert.Equal(t, "root/a.rec", b.key("a.rec"))
}
