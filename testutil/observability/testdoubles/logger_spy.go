package testdoubles

import (
	"sync"
)

// LoggerSpy is a clef.Logger implementation that captures logging calls for testing.
type LoggerSpy struct {
	records []SpyLogRecord
	mu      sync.Mutex
}

// SpyLogRecord represents a recorded log call.
type SpyLogRecord struct {
	Level   string
	Message string
	Args    []any
}

// NewLoggerSpy creates a new LoggerSpy instance.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{records: make([]SpyLogRecord, 0)}
}

func (s *LoggerSpy) Debug(msg string, args ...any) { s.record("debug", msg, args) }
func (s *LoggerSpy) Info(msg string, args ...any)  { s.record("info", msg, args) }
func (s *LoggerSpy) Warn(msg string, args ...any)  { s.record("warn", msg, args) }
func (s *LoggerSpy) Error(msg string, args ...any) { s.record("error", msg, args) }

func (s *LoggerSpy) record(level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	argsCopy := make([]any, len(args))
	copy(argsCopy, args)

	s.records = append(s.records, SpyLogRecord{Level: level, Message: msg, Args: argsCopy})
}

// Records returns a copy of all captured log records.
func (s *LoggerSpy) Records() []SpyLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpyLogRecord, len(s.records))
	copy(records, s.records)

	return records
}

// RecordsWithLevel returns the captured log records of one level.
func (s *LoggerSpy) RecordsWithLevel(level string) []SpyLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpyLogRecord, 0)
	for _, record := range s.records {
		if record.Level == level {
			records = append(records, record)
		}
	}

	return records
}

// HasLog checks if there's a log record of the given level with the given message.
func (s *LoggerSpy) HasLog(level, message string) bool {
	return len(s.recordsMatching(level, message)) > 0
}

// HasLogWithAttr checks if there's a log record of the given level and message carrying the key/value pair.
func (s *LoggerSpy) HasLogWithAttr(level, message, key string, value any) bool {
	for _, record := range s.recordsMatching(level, message) {
		for i := 0; i+1 < len(record.Args); i += 2 {
			if record.Args[i] == key && record.Args[i+1] == value {
				return true
			}
		}
	}

	return false
}

func (s *LoggerSpy) recordsMatching(level, message string) []SpyLogRecord {
	matching := make([]SpyLogRecord, 0)
	for _, record := range s.RecordsWithLevel(level) {
		if record.Message == message {
			matching = append(matching, record)
		}
	}

	return matching
}
