package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/relate/internal/hash"
	"github.com/hupe1980/relate/resource"
)

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads and the
	// threshold below which records are written with a single PUT.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool

	// LeavePartsOnError keeps uploaded parts when a multipart upload fails.
	// Default: false (abort on error)
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:          8 * 1024 * 1024,
		Concurrency:       5,
		EnableChecksum:    true,
		LeavePartsOnError: false,
	}
}

func (c UploadConfig) checksumAlgorithm() types.ChecksumAlgorithm {
	if c.EnableChecksum {
		return types.ChecksumAlgorithmCrc32c
	}
	return ""
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize >= manager.MinUploadPartSize {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// computeCRC32C returns the CRC32C checksum base64 encoded (S3 format).
func computeCRC32C(data []byte) string {
	sum := hash.CRC32C(data)
	// S3 expects big-endian bytes.
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return base64.StdEncoding.EncodeToString(b)
}

// limitedBody charges reads against an IO budget and stays seekable, so the
// SDK can still sign and retry the request. Rewound bytes are charged again.
type limitedBody struct {
	*bytes.Reader
	limited io.Reader
}

func (b *limitedBody) Read(p []byte) (int, error) { return b.limited.Read(p) }

func newBody(ctx context.Context, data []byte, rc *resource.Controller) io.ReadSeeker {
	r := bytes.NewReader(data)
	if rc == nil {
		return r
	}
	return &limitedBody{Reader: r, limited: resource.NewRateLimitedReader(ctx, r, rc)}
}

func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte, rc *resource.Controller, checksum bool) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          newBody(ctx, data, rc),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if checksum {
		input.ChecksumCRC32C = aws.String(computeCRC32C(data))
	}

	_, err := client.PutObject(ctx, input)
	return err
}
