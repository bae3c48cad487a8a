package store

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/relate/codec"
)

// WriteMode selects how a write treats an already committed matching record.
type WriteMode int

const (
	// WriteReplace commits the new record and removes older matching ones.
	WriteReplace WriteMode = iota
	// WriteExclusive fails with ErrConcurrencyConflict if a matching record
	// is already committed.
	WriteExclusive
)

func (m WriteMode) String() string {
	switch m {
	case WriteReplace:
		return "replace"
	case WriteExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Options configures a Store.
type Options struct {
	// Codec encodes payloads and metadata. Defaults to codec.Default.
	Codec codec.Codec

	// Compression is applied to payload bodies. Metadata is never compressed.
	Compression codec.Compression

	// WriteMode defaults to WriteReplace.
	WriteMode WriteMode

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Metrics defaults to NoopMetricsCollector.
	Metrics MetricsCollector

	// Now is the clock used for Metadata.Created.
	Now func() time.Time

	// NewID generates record ids. It must return time-ordered ids.
	NewID func() (uuid.UUID, error)
}

func defaultOptions() Options {
	return Options{
		Codec:     codec.Default,
		WriteMode: WriteReplace,
		Logger:    slog.New(slog.DiscardHandler),
		Metrics:   NoopMetricsCollector{},
		Now:       time.Now,
		NewID:     uuid.NewV7,
	}
}

// WithCodec sets the record codec.
func WithCodec(c codec.Codec) func(o *Options) {
	return func(o *Options) { o.Codec = c }
}

// WithCompression sets payload compression.
func WithCompression(c codec.Compression) func(o *Options) {
	return func(o *Options) { o.Compression = c }
}

// WithWriteMode sets the write mode.
func WithWriteMode(m WriteMode) func(o *Options) {
	return func(o *Options) { o.WriteMode = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) func(o *Options) {
	return func(o *Options) { o.Metrics = m }
}
