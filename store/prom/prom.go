// Package prom exports store metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/relate/store"
)

// Collector implements store.MetricsCollector with Prometheus instruments.
type Collector struct {
	lookups  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	written  *prometheus.CounterVec
	removed  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var _ store.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relate_store_lookups_total",
			Help: "Store lookups by namespace and result",
		}, []string{"namespace", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relate_store_operation_latency_seconds",
			Help:    "Latency of store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "namespace"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relate_store_written_bytes_total",
			Help: "Payload bytes committed",
		}, []string{"namespace"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relate_store_removed_records_total",
			Help: "Results removed by clear operations",
		}, []string{"namespace"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relate_store_errors_total",
			Help: "Failed store operations",
		}, []string{"op", "namespace"}),
	}

	for _, col := range []prometheus.Collector{c.lookups, c.latency, c.written, c.removed, c.failures} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordLookup implements store.MetricsCollector.
func (c *Collector) RecordLookup(ns store.Namespace, hit bool, d time.Duration) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.lookups.WithLabelValues(string(ns), result).Inc()
	c.latency.WithLabelValues("lookup", string(ns)).Observe(d.Seconds())
}

// RecordWrite implements store.MetricsCollector.
func (c *Collector) RecordWrite(ns store.Namespace, bytes int, d time.Duration, err error) {
	c.latency.WithLabelValues("write", string(ns)).Observe(d.Seconds())
	if err != nil {
		c.failures.WithLabelValues("write", string(ns)).Inc()
		return
	}
	c.written.WithLabelValues(string(ns)).Add(float64(bytes))
}

// RecordLoad implements store.MetricsCollector.
func (c *Collector) RecordLoad(ns store.Namespace, d time.Duration, err error) {
	c.latency.WithLabelValues("load", string(ns)).Observe(d.Seconds())
	if err != nil {
		c.failures.WithLabelValues("load", string(ns)).Inc()
	}
}

// RecordClear implements store.MetricsCollector.
func (c *Collector) RecordClear(ns store.Namespace, removed int, err error) {
	c.removed.WithLabelValues(string(ns)).Add(float64(removed))
	if err != nil {
		c.failures.WithLabelValues("clear", string(ns)).Inc()
	}
}

// Lookups returns the lookup counter for ns and result ("hit" or "miss").
func (c *Collector) Lookups(ns store.Namespace, result string) prometheus.Counter {
	return c.lookups.WithLabelValues(string(ns), result)
}

// Written returns the written-bytes counter for ns.
func (c *Collector) Written(ns store.Namespace) prometheus.Counter {
	return c.written.WithLabelValues(string(ns))
}

// Removed returns the removed-records counter for ns.
func (c *Collector) Removed(ns store.Namespace) prometheus.Counter {
	return c.removed.WithLabelValues(string(ns))
}
