package relate

import (
	"log/slog"

	"github.com/hupe1980/relate/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	workers          int
	skipLERDescribe  bool
}

// Option configures a Collection.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := relate.NewJSONLogger(slog.LevelInfo)
//	col, _ := relate.NewCollection("alloys", st, entities, relate.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithResources bounds concurrent descriptor and classification workers.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithWorkers sets how many entities are described concurrently.
// Defaults to 1, the sequential reference behavior.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithoutLERDescriptions stops LER from storing each entity's histogram as a
// description.
func WithoutLERDescriptions() Option {
	return func(o *options) {
		o.skipLERDescribe = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		workers:          1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

type callOptions struct {
	override bool
}

// CallOption configures a single Describe, Process or LER call.
type CallOption func(*callOptions)

// WithOverride recomputes even when a matching record is stored. The new
// record replaces the old one.
func WithOverride() CallOption {
	return func(o *callOptions) {
		o.override = true
	}
}

func applyCallOptions(optFns []CallOption) callOptions {
	var o callOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
