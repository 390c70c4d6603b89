package postgresengine

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	MetricQueryDuration = "clef_db_query_duration_seconds"
	MetricQueriedEvents = "clef_db_queried_events"
	MetricQueryErrors   = "clef_db_query_errors_total"

	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgDecodeDocumentFailed   = "failed to decode stored clef document"
	logMsgQueryCompleted         = "query completed"
	logMsgSQLExecuted            = "executed sql for: query"
	logMsgOperation              = "clef query engine: "

	logAttrError      = "error"
	logAttrQuery      = "query"
	logAttrEventCount = "event_count"
	logAttrDurationMS = "duration_ms"
	logAttrPosition   = "position"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"
	operationQuery = "query"
	statusSuccess  = "success"
	statusError    = "error"

	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseQuery = "database_query"
	errorTypeScanRow       = "scan_row"
	errorTypeDecodeDoc     = "decode_document"
)

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (qe QueryEngine) logQueryWithDuration(ctx context.Context, sqlQuery string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if qe.logger != nil {
		qe.logger.Debug(logMsgSQLExecuted, args...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.DebugContext(ctx, logMsgSQLExecuted, args...)
	}
}

// logOperation logs operational information at info level.
func (qe QueryEngine) logOperation(ctx context.Context, action string, args ...any) {
	if qe.logger != nil {
		qe.logger.Info(logMsgOperation+action, args...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (qe QueryEngine) logWarning(ctx context.Context, message string, args ...any) {
	if qe.logger != nil {
		qe.logger.Warn(message, args...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level.
func (qe QueryEngine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if qe.logger != nil {
		qe.logger.Error(message, allArgs...)
	}

	if qe.contextualLogger != nil {
		qe.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, ErrScanningDBRowFailed):
		return errorTypeScanRow
	case errors.Is(err, ErrDecodingDocumentFailed):
		return errorTypeDecodeDoc
	case errors.Is(err, ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	default:
		return errorTypeDatabaseQuery
	}
}

// queryMetricsObserver encapsulates the metrics collection for one query.
type queryMetricsObserver struct {
	qe QueryEngine
}

func (qe QueryEngine) startQueryMetrics() queryMetricsObserver {
	return queryMetricsObserver{qe: qe}
}

// recordSuccess records the duration and the number of returned events.
func (qmo queryMetricsObserver) recordSuccess(eventCount int, duration time.Duration) {
	collector := qmo.qe.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{labelOperation: operationQuery, labelStatus: statusSuccess}
	collector.RecordDuration(MetricQueryDuration, duration, labels)
	collector.RecordValue(MetricQueriedEvents, float64(eventCount), labels)
}

// recordError records the duration and counts the error by type.
func (qmo queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	collector := qmo.qe.metricsCollector
	if collector == nil {
		return
	}

	collector.RecordDuration(MetricQueryDuration, duration, map[string]string{labelOperation: operationQuery, labelStatus: statusError})
	collector.IncrementCounter(MetricQueryErrors, map[string]string{
		labelOperation: operationQuery,
		labelStatus:    statusError,
		labelErrorType: errorType,
	})
}
