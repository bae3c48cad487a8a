package relate

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with relate-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogDescribe logs the outcome of describing one entity.
func (l *Logger) LogDescribe(ctx context.Context, entity, descriptor string, cached bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "describe failed",
			"entity", entity,
			"descriptor", descriptor,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "describe completed",
			"entity", entity,
			"descriptor", descriptor,
			"cached", cached,
		)
	}
}

// LogProcess logs the outcome of a collection-wide method.
func (l *Logger) LogProcess(ctx context.Context, method, basedOn string, cached bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "process failed",
			"method", method,
			"based_on", basedOn,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "process completed",
			"method", method,
			"based_on", basedOn,
			"cached", cached,
		)
	}
}

// LogClear logs a clear operation.
func (l *Logger) LogClear(ctx context.Context, target string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "clear failed",
			"target", target,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "clear completed",
			"target", target,
		)
	}
}
