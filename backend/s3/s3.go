package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/relate/backend"
	"github.com/hupe1980/relate/resource"
)

// Client is the subset of the S3 API used by the backend.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configures the S3 backend.
type Options struct {
	Prefix   string
	Region   string
	Endpoint string
	// UsePathStyle addresses buckets as host/bucket (S3-compatible services).
	UsePathStyle bool
	Upload       UploadConfig
	// Client overrides the client built from the default AWS configuration.
	Client Client
	// Resources charges object bodies against an IO budget. Optional.
	Resources *resource.Controller
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) func(o *Options) {
	return func(o *Options) { o.Prefix = prefix }
}

// WithRegion sets the AWS region.
func WithRegion(region string) func(o *Options) {
	return func(o *Options) { o.Region = region }
}

// WithEndpoint sets a custom endpoint and enables path-style addressing.
func WithEndpoint(endpoint string) func(o *Options) {
	return func(o *Options) {
		o.Endpoint = endpoint
		o.UsePathStyle = true
	}
}

// WithClient uses an existing client.
func WithClient(c Client) func(o *Options) {
	return func(o *Options) { o.Client = c }
}

// WithResources charges uploads and downloads against rc's IO budget.
func WithResources(rc *resource.Controller) func(o *Options) {
	return func(o *Options) { o.Resources = rc }
}

// WithUploadConfig overrides the upload tuning.
func WithUploadConfig(cfg UploadConfig) func(o *Options) {
	return func(o *Options) { o.Upload = cfg }
}

// Backend implements backend.Backend for S3.
type Backend struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	upload   UploadConfig
	rc       *resource.Controller
}

// New creates an S3 backend. Unless WithClient is given, the client is built
// from the default AWS configuration chain.
func New(ctx context.Context, bucket string, optFns ...func(o *Options)) (*Backend, error) {
	opts := Options{Upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.Client
	if client == nil {
		var cfgFns []func(*config.LoadOptions) error
		if opts.Region != "" {
			cfgFns = append(cfgFns, config.WithRegion(opts.Region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, cfgFns...)
		if err != nil {
			return nil, fmt.Errorf("s3: load aws config: %w", err)
		}
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
			}
			o.UsePathStyle = opts.UsePathStyle
		})
	}

	b := NewWithClient(client, bucket, opts.Prefix, opts.Upload)
	b.rc = opts.Resources
	return b, nil
}

// NewWithClient creates an S3 backend from an existing client.
func NewWithClient(client Client, bucket, rootPrefix string, upload UploadConfig) *Backend {
	return &Backend{
		client:   client,
		uploader: newUploader(client, upload),
		bucket:   bucket,
		prefix:   normalizePrefix(rootPrefix),
		upload:   upload,
	}
}

func (b *Backend) key(name string) string {
	return b.prefix + name
}

// Get downloads an object.
func (b *Backend) Get(ctx context.Context, name string) ([]byte, error) {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resource.NewRateLimitedReader(ctx, resp.Body, b.rc))
}

// Put uploads an object. Records below the multipart part size are written
// with a single checksummed PUT.
func (b *Backend) Put(ctx context.Context, name string, data []byte) error {
	key := b.key(name)
	if int64(len(data)) < b.upload.PartSize {
		return putWithChecksum(ctx, b.client, b.bucket, key, data, b.rc, b.upload.EnableChecksum)
	}

	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(b.bucket),
		Key:               aws.String(key),
		Body:              newBody(ctx, data, b.rc),
		ChecksumAlgorithm: b.upload.checksumAlgorithm(),
	})
	return err
}

// Delete removes an object. S3 deletes are idempotent.
func (b *Backend) Delete(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// List pages through ListObjectsV2. S3 returns keys in UTF-8 byte order.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.key(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if rel != "" {
				keys = append(keys, rel)
			}
		}
	}
	return keys, nil
}

// normalizePrefix returns "" or a prefix ending in exactly one slash.
func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
