package testdoubles

import (
	"context"
	"sync"
)

// ContextualLoggerSpy is a postgresengine.ContextualLogger implementation that captures
// contextual logging calls for testing, including the context each call received.
type ContextualLoggerSpy struct {
	records []SpyContextualLogRecord
	mu      sync.Mutex
}

// SpyContextualLogRecord represents a recorded contextual log call.
type SpyContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// NewContextualLoggerSpy creates a new ContextualLoggerSpy instance.
func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{records: make([]SpyContextualLogRecord, 0)}
}

// DebugContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "debug", msg, args)
}

// InfoContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "info", msg, args)
}

// WarnContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "warn", msg, args)
}

// ErrorContext implements the ContextualLogger interface for testing.
func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "error", msg, args)
}

func (s *ContextualLoggerSpy) record(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	argsCopy := make([]any, len(args))
	copy(argsCopy, args)

	s.records = append(s.records, SpyContextualLogRecord{Level: level, Message: msg, Args: argsCopy, Context: ctx})
}

// RecordsWithLevel returns the captured log records of one level.
func (s *ContextualLoggerSpy) RecordsWithLevel(level string) []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpyContextualLogRecord, 0)
	for _, record := range s.records {
		if record.Level == level {
			records = append(records, record)
		}
	}

	return records
}

// HasLogWithContextValue checks if there's a log record of the given level and message
// whose context carries value under key.
func (s *ContextualLoggerSpy) HasLogWithContextValue(level, message string, key, value any) bool {
	for _, record := range s.RecordsWithLevel(level) {
		if record.Message == message && record.Context != nil && record.Context.Value(key) == value {
			return true
		}
	}

	return false
}
