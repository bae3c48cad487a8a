package backend

import (
	"context"
	"os"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Backend is a key-value medium for immutable records.
type Backend interface {
	// Get returns the record stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key atomically.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Locker is implemented by backends that can serialize writers of a key path
// across processes.
type Locker interface {
	// Lock blocks until the named lock is held. The returned function releases it.
	Lock(ctx context.Context, name string) (unlock func() error, err error)
}

// Invalidator is implemented by backends that cache reads. Keys removed by
// another process never pass through Delete, so bulk clears drop the whole
// prefix.
type Invalidator interface {
	InvalidatePrefix(prefix string)
}

// Join builds a backend key from path elements.
func Join(elem ...string) string {
	return strings.Join(elem, "/")
}

// Split splits a backend key into its path elements.
func Split(key string) []string {
	return strings.Split(key, "/")
}

func hasPrefix(key, prefix string) bool {
	return prefix == "" || strings.HasPrefix(key, prefix)
}
