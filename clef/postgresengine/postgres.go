package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/clef/postgresengine/internal/adapters"
)

const (
	defaultTableName      = "clef_events"
	defaultDocumentColumn = "document"
	defaultOrderColumn    = "id"
	dialectPostgres       = "postgres"

	fieldAccessText    = "? ->> ?"
	fieldAccessJSON    = "? -> ? = ?::jsonb"
	fieldPatternMatch  = "coalesce(? ->> ?, '') ~ ?"
	documentContains   = "? @> ?::jsonb"
	timestampOfField   = "(CASE WHEN pg_input_is_valid(? ->> ?, 'timestamptz') THEN (? ->> ?)::timestamptz END)"
)

type sqlQueryString = string

var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// QueryEngine runs CLEF filter criteria against a PostgreSQL table of jsonb documents.
type QueryEngine struct {
	db               adapters.DBAdapter
	tableName        string
	documentColumn   string
	orderColumn      string
	logger           clef.Logger
	contextualLogger ContextualLogger
	metricsCollector clef.MetricsCollector
}

// NewQueryEngineFromPGXPool creates a new QueryEngine using a pgx Pool with optional configuration.
func NewQueryEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (QueryEngine, error) {
	if db == nil {
		return QueryEngine{}, ErrNilDatabaseConnection
	}

	return newQueryEngine(adapters.NewPGXAdapter(db), options...)
}

// NewQueryEngineFromPGXPoolWithReplica creates a new QueryEngine which sends its queries to the replica pool.
func NewQueryEngineFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (QueryEngine, error) {
	if primary == nil || replica == nil {
		return QueryEngine{}, ErrNilDatabaseConnection
	}

	return newQueryEngine(adapters.NewPGXAdapterWithReplica(primary, replica), options...)
}

// NewQueryEngineFromSQLDB creates a new QueryEngine using a sql.DB with optional configuration.
func NewQueryEngineFromSQLDB(db *sql.DB, options ...Option) (QueryEngine, error) {
	if db == nil {
		return QueryEngine{}, ErrNilDatabaseConnection
	}

	return newQueryEngine(adapters.NewSQLAdapter(db), options...)
}

// NewQueryEngineFromSQLX creates a new QueryEngine using a sqlx.DB with optional configuration.
func NewQueryEngineFromSQLX(db *sqlx.DB, options ...Option) (QueryEngine, error) {
	if db == nil {
		return QueryEngine{}, ErrNilDatabaseConnection
	}

	return newQueryEngine(adapters.NewSQLXAdapter(db), options...)
}

func newQueryEngine(db adapters.DBAdapter, options ...Option) (QueryEngine, error) {
	qe := QueryEngine{
		db:             db,
		tableName:      defaultTableName,
		documentColumn: defaultDocumentColumn,
		orderColumn:    defaultOrderColumn,
	}

	for _, option := range options {
		if err := option(&qe); err != nil {
			return QueryEngine{}, err
		}
	}

	return qe, nil
}

// QueryFilter runs the criteria of a FilterBuilder. A configuration error of the builder is returned unchanged.
func (qe QueryEngine) QueryFilter(ctx context.Context, builder *clef.FilterBuilder) (clef.Events, error) {
	if err := builder.Err(); err != nil {
		return clef.Events{}, err
	}

	return qe.Query(ctx, builder.Criteria())
}

// Query returns the stored events matching all set criteria, in the order of the order column.
// A start time after the end time fails with clef.ErrInvertedTimeRange before the database is asked.
func (qe QueryEngine) Query(ctx context.Context, criteria clef.Criteria) (clef.Events, error) {
	metrics := qe.startQueryMetrics()
	start := time.Now()

	if criteria.StartTime != nil && criteria.EndTime != nil && criteria.StartTime.After(*criteria.EndTime) {
		return clef.Events{}, fmt.Errorf(
			"%w: start time (%s) is after end time (%s)",
			clef.ErrInvertedTimeRange,
			criteria.StartTime.Format(time.RFC3339Nano),
			criteria.EndTime.Format(time.RFC3339Nano),
		)
	}

	sqlQuery, buildQueryErr := qe.buildSelectQuery(criteria)
	if buildQueryErr != nil {
		qe.logError(ctx, logMsgBuildSelectQueryFailed, buildQueryErr)
		metrics.recordError(errorTypeBuildQuery, time.Since(start))

		return clef.Events{}, buildQueryErr
	}

	rows, queryErr := qe.executeQuery(ctx, sqlQuery)
	if queryErr != nil {
		metrics.recordError(errorTypeDatabaseQuery, time.Since(start))
		return clef.Events{}, queryErr
	}
	defer qe.closeRows(ctx, rows)

	events, processErr := qe.processQueryResults(ctx, rows)
	if processErr != nil {
		metrics.recordError(errorTypeOf(processErr), time.Since(start))
		return clef.Events{}, processErr
	}

	duration := time.Since(start)
	metrics.recordSuccess(events.Len(), duration)
	qe.logOperation(ctx, logMsgQueryCompleted, logAttrEventCount, events.Len(), logAttrDurationMS, toMilliseconds(duration))

	return events, nil
}

// executeQuery executes the SQL query and logs it with its timing.
func (qe QueryEngine) executeQuery(ctx context.Context, sqlQuery sqlQueryString) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := qe.db.Query(ctx, sqlQuery)
	qe.logQueryWithDuration(ctx, sqlQuery, time.Since(start))

	if queryErr != nil {
		qe.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(ErrQueryingEventsFailed, queryErr)
	}

	return rows, nil
}

// closeRows closes database rows and logs any errors.
func (qe QueryEngine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		qe.logWarning(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// processQueryResults decodes every row into a clef.Event.
func (qe QueryEngine) processQueryResults(ctx context.Context, rows adapters.DBRows) (clef.Events, error) {
	events := clef.NewEvents()

	for rows.Next() {
		var document []byte

		if rowScanErr := rows.Scan(&document); rowScanErr != nil {
			qe.logError(ctx, logMsgScanRowFailed, rowScanErr)
			return clef.Events{}, errors.Join(ErrScanningDBRowFailed, rowScanErr)
		}

		event, decodeErr := decodeDocument(document)
		if decodeErr != nil {
			qe.logError(ctx, logMsgDecodeDocumentFailed, decodeErr, logAttrPosition, events.Len())
			return clef.Events{}, decodeErr
		}

		events.Add(event)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		qe.logError(ctx, logMsgDBQueryFailed, rowsErr)
		return clef.Events{}, errors.Join(ErrQueryingEventsFailed, rowsErr)
	}

	return events, nil
}

func decodeDocument(document []byte) (clef.Event, error) {
	var object map[string]any

	if err := jsonAPI.Unmarshal(document, &object); err != nil {
		return clef.Event{}, errors.Join(ErrDecodingDocumentFailed, err)
	}

	if object == nil {
		return clef.Event{}, fmt.Errorf("%w: document is not a JSON object", ErrDecodingDocumentFailed)
	}

	return clef.NewEvent(object), nil
}

func (qe QueryEngine) buildSelectQuery(criteria clef.Criteria) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(qe.tableName).
		Select(goqu.I(qe.documentColumn)).
		Order(goqu.I(qe.orderColumn).Asc())

	conditions, conditionsErr := qe.whereConditions(criteria)
	if conditionsErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, conditionsErr)
	}

	if len(conditions) > 0 {
		selectStmt = selectStmt.Where(goqu.And(conditions...))
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// whereConditions translates every set criterion into one condition, all of which must hold.
func (qe QueryEngine) whereConditions(criteria clef.Criteria) ([]goqu.Expression, error) {
	document := goqu.I(qe.documentColumn)
	conditions := make([]goqu.Expression, 0)

	if criteria.StartTime != nil {
		conditions = append(conditions, qe.timestampOf(document).Gte(criteria.StartTime.UTC()))
	}

	if criteria.EndTime != nil {
		conditions = append(conditions, qe.timestampOf(document).Lte(criteria.EndTime.UTC()))
	}

	if criteria.Level != "" {
		conditions = append(conditions, goqu.L(fieldAccessText, document, string(clef.FieldLevel)).Eq(criteria.Level))
	}

	patterns := []struct {
		field   clef.Field
		pattern *regexp.Regexp
	}{
		{clef.FieldMessage, criteria.MessagePattern},
		{clef.FieldMessageTemplate, criteria.MessageTemplatePattern},
		{clef.FieldException, criteria.ExceptionPattern},
		{clef.FieldRenderings, criteria.RenderingsPattern},
	}

	for _, p := range patterns {
		if p.pattern != nil {
			conditions = append(conditions, goqu.L(fieldPatternMatch, document, string(p.field), p.pattern.String()))
		}
	}

	if len(criteria.UserFields) > 0 {
		contained, err := containmentDocument(criteria.UserFields)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, goqu.L(documentContains, document, contained))
	}

	if criteria.EventID != nil {
		eventID, err := jsonAPI.MarshalToString(criteria.EventID)
		if err != nil {
			return nil, fmt.Errorf("event id: %w", err)
		}

		conditions = append(conditions, goqu.L(fieldAccessJSON, document, string(clef.FieldEventID), eventID))
	}

	return conditions, nil
}

// timestampOf converts "@t" to timestamptz, yielding NULL for values PostgreSQL cannot read as one.
// A NULL never satisfies a time bound, so a malformed row is left out instead of failing the query.
func (qe QueryEngine) timestampOf(document exp.IdentifierExpression) exp.LiteralExpression {
	field := string(clef.FieldTimestamp)

	return goqu.L(timestampOfField, document, field, document, field)
}

// containmentDocument renders user fields with their wire keys, e.g. "@Source" becomes "@@Source".
func containmentDocument(userFields map[string]any) (string, error) {
	wire := make(map[string]any, len(userFields))
	for key, val := range userFields {
		wire[clef.EscapeUserKey(key)] = val
	}

	contained, err := jsonAPI.MarshalToString(wire)
	if err != nil {
		return "", fmt.Errorf("user fields: %w", err)
	}

	return contained, nil
}
