// Package cache provides the in-memory read cache placed in front of slow
// store backends.
//
// Cached values are immutable record bytes keyed by their backend key. The
// cache is bounded by a byte capacity and, optionally, by a shared
// resource.Controller memory budget.
package cache
