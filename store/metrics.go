package store

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives store operation events.
// Implement it to feed a monitoring system; see the prom subpackage for a
// Prometheus implementation.
type MetricsCollector interface {
	// RecordLookup is called after each lookup. hit reports whether a
	// committed record matched.
	RecordLookup(ns Namespace, hit bool, duration time.Duration)

	// RecordWrite is called after each store operation with the number of
	// payload bytes written.
	RecordWrite(ns Namespace, bytes int, duration time.Duration, err error)

	// RecordLoad is called after each payload load.
	RecordLoad(ns Namespace, duration time.Duration, err error)

	// RecordClear is called after each clear with the number of results removed.
	RecordClear(ns Namespace, removed int, err error)
}

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLookup(Namespace, bool, time.Duration)      {}
func (NoopMetricsCollector) RecordWrite(Namespace, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(Namespace, time.Duration, error)       {}
func (NoopMetricsCollector) RecordClear(Namespace, int, error)                {}

// BasicMetricsCollector keeps in-memory counters across both namespaces.
type BasicMetricsCollector struct {
	Hits            atomic.Int64
	Misses          atomic.Int64
	Writes          atomic.Int64
	WriteErrors     atomic.Int64
	BytesWritten    atomic.Int64
	WriteTotalNanos atomic.Int64
	Loads           atomic.Int64
	LoadErrors      atomic.Int64
	Clears          atomic.Int64
	ClearErrors     atomic.Int64
	Removed         atomic.Int64
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(_ Namespace, hit bool, _ time.Duration) {
	if hit {
		b.Hits.Add(1)
		return
	}
	b.Misses.Add(1)
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(_ Namespace, bytes int, duration time.Duration, err error) {
	b.Writes.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.BytesWritten.Add(int64(bytes))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ Namespace, _ time.Duration, err error) {
	b.Loads.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordClear implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClear(_ Namespace, removed int, err error) {
	b.Clears.Add(1)
	b.Removed.Add(int64(removed))
	if err != nil {
		b.ClearErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Hits:         b.Hits.Load(),
		Misses:       b.Misses.Load(),
		Writes:       b.Writes.Load(),
		WriteErrors:  b.WriteErrors.Load(),
		BytesWritten: b.BytesWritten.Load(),
		Loads:        b.Loads.Load(),
		LoadErrors:   b.LoadErrors.Load(),
		Clears:       b.Clears.Load(),
		ClearErrors:  b.ClearErrors.Load(),
		Removed:      b.Removed.Load(),
	}
	if s.Writes > 0 {
		s.WriteAvgNanos = b.WriteTotalNanos.Load() / s.Writes
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Hits          int64
	Misses        int64
	Writes        int64
	WriteErrors   int64
	BytesWritten  int64
	WriteAvgNanos int64
	Loads         int64
	LoadErrors    int64
	Clears        int64
	ClearErrors   int64
	Removed       int64
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s BasicMetricsStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
