// Package bolt provides a backend.Backend stored in a single bbolt file.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/relate/backend"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("records")

// Options configures the bolt backend.
type Options struct {
	// Timeout bounds how long Open waits for the file lock. Defaults to 1s.
	Timeout time.Duration
	// NoSync skips fsync after each commit. Only for tests.
	NoSync bool
}

// Backend implements backend.Backend on bbolt. All records live in one bucket;
// keys sort byte-wise, which matches lexical order of slash paths.
type Backend struct {
	db *bolt.DB
}

// Open opens or creates the database file at path.
func Open(path string, optFns ...func(o *Options)) (*Backend, error) {
	opts := Options{Timeout: time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.Timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Backend{db: db}, nil
}

// Get returns a copy of the record; bbolt values are only valid inside the transaction.
func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return backend.ErrNotFound
		}
		out = bytes.Clone(v)
		return nil
	})
	return out, err
}

// Put stores data in a single transaction.
func (b *Backend) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", backend.ErrInvalidKey)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		// bbolt treats a nil value as a missing key.
		if data == nil {
			data = []byte{}
		}
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

// Delete removes a record.
func (b *Backend) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// List seeks to prefix and scans forward.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Close closes the database file.
func (b *Backend) Close() error {
	return b.db.Close()
}
