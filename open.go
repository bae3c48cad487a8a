package relate

import (
	"context"
	"fmt"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/backend/bolt"
	"github.com/hupe1980/relate/backend/dynamodb"
	"github.com/hupe1980/relate/backend/minio"
	"github.com/hupe1980/relate/backend/s3"
	"github.com/hupe1980/relate/backend/sqlite"
	"github.com/hupe1980/relate/config"
	"github.com/hupe1980/relate/internal/cache"
	"github.com/hupe1980/relate/resource"
	"github.com/hupe1980/relate/store"
)

// OpenBackend creates the persistence medium described by cfg.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (backend.Backend, error) {
	var rc *resource.Controller
	if cfg.IOLimitBytesPerSec > 0 {
		rc = resource.NewController(resource.Config{IOLimitBytesPerSec: cfg.IOLimitBytesPerSec})
	}

	var (
		b   backend.Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		b = backend.NewMemory()
	case config.BackendLocal, "":
		b, err = backend.NewLocal(cfg.Root, func(o *backend.LocalOptions) {
			o.Resources = rc
		})
	case config.BackendBolt:
		b, err = bolt.Open(cfg.Root)
	case config.BackendSQLite:
		b, err = sqlite.Open(cfg.Root)
	case config.BackendS3:
		optFns := []func(o *s3.Options){s3.WithPrefix(cfg.S3.Prefix), s3.WithRegion(cfg.S3.Region), s3.WithResources(rc)}
		if cfg.S3.Endpoint != "" {
			optFns = append(optFns, s3.WithEndpoint(cfg.S3.Endpoint))
		}
		if cfg.S3.UsePathStyle {
			optFns = append(optFns, func(o *s3.Options) { o.UsePathStyle = true })
		}
		b, err = s3.New(ctx, cfg.S3.Bucket, optFns...)
	case config.BackendMinIO:
		b, err = minio.Dial(ctx, minio.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Secure:    cfg.MinIO.Secure,
			Region:    cfg.MinIO.Region,
			Resources: rc,
		}, cfg.MinIO.Bucket, cfg.MinIO.Prefix)
	case config.BackendDynamoDB:
		b, err = dynamodb.New(ctx, cfg.DynamoDB.Table, func(o *dynamodb.Options) {
			o.Region = cfg.DynamoDB.Region
			o.Endpoint = cfg.DynamoDB.Endpoint
		})
	default:
		return nil, &store.InvalidArgumentError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	if cfg.CacheBytes > 0 {
		b = backend.NewCaching(b, cache.NewLRU(cfg.CacheBytes, nil))
	}
	return b, nil
}

// OpenStore creates a store on the backend described by cfg. optFns are
// applied after the options derived from cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig, optFns ...func(o *store.Options)) (*store.Store, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store.New(b, append(opts, optFns...)...), nil
}
