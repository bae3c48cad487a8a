// Package store implements the result store: a persistent, parameter-aware
// memoization cache with two namespaces.
//
//   - Descriptions: per-entity results, keyed by entity id, descriptor name
//     and canonical parameters.
//   - Collections: collection-wide results, keyed by collection name, method
//     name, canonical parameters and a based-on reference to the description
//     they were derived from.
//
// # Layout
//
// Every result is a pair of records in the backend:
//
//	<namespace>/<key1>/<key2>/<key1>_<key2>_<uuid>.rec       payload
//	<namespace>/<key1>/<key2>/info_<key1>_<key2>_<uuid>.rec  metadata
//
// Parameters live only in the metadata record. The payload is written first;
// the metadata record is the commit marker, so a result is visible only once
// both exist. UUIDv7 suffixes sort chronologically and lookups return the
// newest match.
//
// # Hits
//
// A lookup scans the metadata records filed under (namespace, key1, key2).
// Candidates are narrowed by canonical key and decided by params.Params.Equal
// and Reference.Equal. A result computed without a based-on reference never
// matches one computed with one.
//
// # Errors
//
// Missing results are ErrNotFound. Records that exist but cannot be decoded
// are ErrDeserialization; callers recover by clearing and recomputing.
package store
