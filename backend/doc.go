// Package backend provides the persistence media behind the result store.
//
// A Backend is a flat, slash-separated key space of immutable byte records.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - Memory: in-process map, for tests and ephemeral sessions
//   - Local: filesystem rooted at a directory, atomic temp-then-rename writes
//   - Caching: LRU read cache in front of any Backend
//   - bolt.Backend, sqlite.Backend: embedded single-file databases
//   - s3.Backend, minio.Backend, dynamodb.Backend: remote object and table stores
//
// # Custom Implementations
//
//	type Backend interface {
//	    Get(ctx, key) ([]byte, error)      // ErrNotFound if absent
//	    Put(ctx, key, data) error          // atomic, readers never see partial data
//	    Delete(ctx, key) error             // nil if absent
//	    List(ctx, prefix) ([]string, error) // sorted keys
//	}
//
// Backends that can coordinate writers across processes also implement Locker.
package backend
