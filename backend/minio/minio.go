package minio

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/resource"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Backend implements backend.Backend for MinIO and S3-compatible storage.
type Backend struct {
	client *minio.Client
	bucket string
	prefix string
	rc     *resource.Controller
}

// New creates a MinIO backend. rootPrefix is prepended to all keys.
func New(client *minio.Client, bucket, rootPrefix string) *Backend {
	p := strings.Trim(rootPrefix, "/")
	if p != "" {
		p += "/"
	}
	return &Backend{
		client: client,
		bucket: bucket,
		prefix: p,
	}
}

// Config describes a connection to a MinIO endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Region    string
	// Resources charges object bodies against an IO budget. Optional.
	Resources *resource.Controller
}

// Dial creates a client from cfg and ensures the bucket exists.
func Dial(ctx context.Context, cfg Config, bucket, rootPrefix string) (*Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, err
		}
	}

	return New(client, bucket, rootPrefix).WithResources(cfg.Resources), nil
}

// WithResources charges uploads and downloads against rc's IO budget.
func (b *Backend) WithResources(rc *resource.Controller) *Backend {
	b.rc = rc
	return b
}

func (b *Backend) key(name string) string {
	return b.prefix + name
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Get downloads an object.
func (b *Backend) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.key(name), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; a missing key surfaces on the first read.
	var buf bytes.Buffer
	if _, err := io.Copy(resource.NewRateLimitedWriter(ctx, &buf, b.rc), obj); err != nil {
		if isNotFound(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// Put writes an object.
func (b *Backend) Put(ctx context.Context, name string, data []byte) error {
	body := resource.NewRateLimitedReader(ctx, bytes.NewReader(data), b.rc)
	_, err := b.client.PutObject(ctx, b.bucket, b.key(name), body, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// Delete removes an object.
func (b *Backend) Delete(ctx context.Context, name string) error {
	err := b.client.RemoveObject(ctx, b.bucket, b.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns all object names with the given prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    b.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, b.prefix)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
