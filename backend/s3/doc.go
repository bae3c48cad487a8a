// Package s3 provides an Amazon S3 implementation of backend.Backend.
//
// # Usage
//
//	b, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("relate/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	st := store.New(b)
//
// # Features
//
//   - CRC32C-checked single PUTs for small records
//   - Multipart uploads through the transfer manager for large records
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
