package relate

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting pipeline metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; store-level metrics are collected separately through
// store.WithMetrics.
type MetricsCollector interface {
	// RecordDescribe is called once per entity and Describe call.
	// cached reports a store hit; err is nil if successful.
	RecordDescribe(descriptor string, cached bool, duration time.Duration, err error)

	// RecordProcess is called after each collection-wide method, LER included.
	RecordProcess(method string, cached bool, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordDescribe(string, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordProcess(string, bool, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	DescribeCount      atomic.Int64
	DescribeCached     atomic.Int64
	DescribeErrors     atomic.Int64
	DescribeTotalNanos atomic.Int64
	ProcessCount       atomic.Int64
	ProcessCached      atomic.Int64
	ProcessErrors      atomic.Int64
	ProcessTotalNanos  atomic.Int64
}

// RecordDescribe implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDescribe(_ string, cached bool, duration time.Duration, err error) {
	b.DescribeCount.Add(1)
	b.DescribeTotalNanos.Add(duration.Nanoseconds())
	if cached {
		b.DescribeCached.Add(1)
	}
	if err != nil {
		b.DescribeErrors.Add(1)
	}
}

// RecordProcess implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProcess(_ string, cached bool, duration time.Duration, err error) {
	b.ProcessCount.Add(1)
	b.ProcessTotalNanos.Add(duration.Nanoseconds())
	if cached {
		b.ProcessCached.Add(1)
	}
	if err != nil {
		b.ProcessErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		DescribeCount:    b.DescribeCount.Load(),
		DescribeCached:   b.DescribeCached.Load(),
		DescribeErrors:   b.DescribeErrors.Load(),
		DescribeAvgNanos: avg(b.DescribeTotalNanos.Load(), b.DescribeCount.Load()),
		ProcessCount:     b.ProcessCount.Load(),
		ProcessCached:    b.ProcessCached.Load(),
		ProcessErrors:    b.ProcessErrors.Load(),
		ProcessAvgNanos:  avg(b.ProcessTotalNanos.Load(), b.ProcessCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	DescribeCount    int64
	DescribeCached   int64
	DescribeErrors   int64
	DescribeAvgNanos int64
	ProcessCount     int64
	ProcessCached    int64
	ProcessErrors    int64
	ProcessAvgNanos  int64
}
