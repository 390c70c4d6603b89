package postgresengine

import (
	"context"

	"github.com/AntonStoeckl/clef-go/clef"
)

// ContextualLogger interface for context-aware logging, e.g. with trace correlation.
// *slog.Logger satisfies it.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Option defines a functional option for configuring a QueryEngine.
type Option func(*QueryEngine) error

// WithTableName sets the table holding the CLEF documents. Default: "clef_events".
func WithTableName(tableName string) Option {
	return func(qe *QueryEngine) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		qe.tableName = tableName

		return nil
	}
}

// WithDocumentColumn sets the jsonb column holding one CLEF object per row. Default: "document".
func WithDocumentColumn(column string) Option {
	return func(qe *QueryEngine) error {
		if column == "" {
			return ErrEmptyColumnName
		}

		qe.documentColumn = column

		return nil
	}
}

// WithOrderColumn sets the column which restores the file order of the events. Default: "id".
func WithOrderColumn(column string) Option {
	return func(qe *QueryEngine) error {
		if column == "" {
			return ErrEmptyColumnName
		}

		qe.orderColumn = column

		return nil
	}
}

// WithLogger sets the logger for the QueryEngine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Event counts and durations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause query failures.
func WithLogger(logger clef.Logger) Option {
	return func(qe *QueryEngine) error {
		qe.logger = logger
		return nil
	}
}

// WithContextualLogger sets a logger which receives the same messages as the one set by WithLogger,
// together with the context of the query.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(qe *QueryEngine) error {
		qe.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the QueryEngine.
// It receives query durations, returned event counts, and database errors.
func WithMetrics(collector clef.MetricsCollector) Option {
	return func(qe *QueryEngine) error {
		qe.metricsCollector = collector
		return nil
	}
}
