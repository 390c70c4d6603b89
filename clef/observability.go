package clef

import (
	"math"
	"time"
)

// Logger interface for operational logging, warnings, and error reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector interface for collecting parse and filter metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

const (
	MetricParseDuration  = "clef_parse_duration_seconds"
	MetricParsedEvents   = "clef_parsed_events"
	MetricParseErrors    = "clef_parse_errors_total"
	MetricFilterDuration = "clef_filter_duration_seconds"
	MetricMatchedEvents  = "clef_filter_matched_events"
	MetricSkippedEvents  = "clef_filter_skipped_events"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	operationParse  = "parse"
	operationFilter = "filter"
	statusSuccess   = "success"
	statusError     = "error"
)

const (
	logAttrError      = "error"
	logAttrPath       = "path"
	logAttrLine       = "line"
	logAttrEventCount = "event_count"
	logAttrLineCount  = "line_count"
	logAttrSkipped    = "skipped"
	logAttrMatched    = "matched"
	logAttrDurationMS = "duration_ms"
	logAttrTimestamp  = "timestamp"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
