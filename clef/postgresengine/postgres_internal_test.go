package postgresengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/clef/postgresengine/internal/adapters"
	"github.com/AntonStoeckl/clef-go/testutil/observability/testdoubles"
)

type ctxKey string

type fakeRows struct {
	documents [][]byte
	position  int
	scanErr   error
	rowsErr   error
	closed    bool
}

func (r *fakeRows) Next() bool {
	if r.position >= len(r.documents) {
		return false
	}
	r.position++

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}

	*(dest[0].(*[]byte)) = r.documents[r.position-1]

	return nil
}

func (r *fakeRows) Err() error {
	return r.rowsErr
}

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

type fakeDB struct {
	rows     *fakeRows
	queryErr error
	queries  []string
}

func (db *fakeDB) Query(_ context.Context, query string) (adapters.DBRows, error) {
	db.queries = append(db.queries, query)
	if db.queryErr != nil {
		return nil, db.queryErr
	}

	return db.rows, nil
}

func givenDocuments(documents ...string) *fakeRows {
	rows := &fakeRows{}
	for _, document := range documents {
		rows.documents = append(rows.documents, []byte(document))
	}

	return rows
}

func criteriaOf(t *testing.T, builder *clef.FilterBuilder) clef.Criteria {
	t.Helper()
	require.NoError(t, builder.Err())

	return builder.Criteria()
}

//nolint:funlen
func Test_BuildSelectQuery(t *testing.T) {
	engine, err := newQueryEngine(&fakeDB{})
	require.NoError(t, err)

	tests := []struct {
		name             string
		builder          *clef.FilterBuilder
		expectedContains []string
	}{
		{
			name:    "no_criteria_selects_everything_in_order",
			builder: clef.BuildFilter(clef.Events{}),
			expectedContains: []string{
				`SELECT "document" FROM "clef_events"`,
				`ORDER BY "id" ASC`,
			},
		},
		{
			name:             "level",
			builder:          clef.BuildFilter(clef.Events{}).Level("Error"),
			expectedContains: []string{`"document" ->> '@l' = 'Error'`},
		},
		{
			name: "time_range",
			builder: clef.BuildFilter(clef.Events{}).
				StartTime("2026-01-24T10:00:00Z").
				EndTime("2026-01-24T12:00:00+02:00"),
			expectedContains: []string{
				`(CASE WHEN pg_input_is_valid("document" ->> '@t', 'timestamptz')`,
				`THEN ("document" ->> '@t')::timestamptz END) >= '2026-01-24T10:00:00Z'`,
				`THEN ("document" ->> '@t')::timestamptz END) <= '2026-01-24T10:00:00Z'`,
			},
		},
		{
			name: "patterns",
			builder: clef.BuildFilter(clef.Events{}).
				MessageRegex("timed out").
				MessageTemplateRegex("^Request").
				ExceptionRegex("Timeout").
				RenderingsRegex("42"),
			expectedContains: []string{
				`coalesce("document" ->> '@m', '') ~ 'timed out'`,
				`coalesce("document" ->> '@mt', '') ~ '^Request'`,
				`coalesce("document" ->> '@x', '') ~ 'Timeout'`,
				`coalesce("document" ->> '@r', '') ~ '42'`,
			},
		},
		{
			name:             "user_fields_use_wire_keys",
			builder:          clef.BuildFilter(clef.Events{}).UserFields(map[string]any{"@Source": "gateway", "Attempt": 2}),
			expectedContains: []string{`"document" @> '{"@@Source":"gateway","Attempt":2}'::jsonb`},
		},
		{
			name:             "event_id",
			builder:          clef.BuildFilter(clef.Events{}).EventID(7),
			expectedContains: []string{`"document" -> '@i' = '7'::jsonb`},
		},
		{
			name:             "event_id_beyond_float_precision",
			builder:          clef.BuildFilter(clef.Events{}).EventID(int64(9007199254740993)),
			expectedContains: []string{`"document" -> '@i' = '9007199254740993'::jsonb`},
		},
		{
			name:             "quotes_are_escaped",
			builder:          clef.BuildFilter(clef.Events{}).Level("O'Brien"),
			expectedContains: []string{`'O''Brien'`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sqlQuery, err := engine.buildSelectQuery(criteriaOf(t, tc.builder))

			require.NoError(t, err)
			for _, fragment := range tc.expectedContains {
				assert.Contains(t, sqlQuery, fragment)
			}
		})
	}
}

func Test_BuildSelectQuery_WithoutCriteriaHasNoWhereClause(t *testing.T) {
	engine, err := newQueryEngine(&fakeDB{})
	require.NoError(t, err)

	sqlQuery, err := engine.buildSelectQuery(clef.Criteria{})

	require.NoError(t, err)
	assert.NotContains(t, sqlQuery, "WHERE")
}

func Test_BuildSelectQuery_CustomTableAndColumns(t *testing.T) {
	engine, err := newQueryEngine(
		&fakeDB{},
		WithTableName("app_logs"),
		WithDocumentColumn("payload"),
		WithOrderColumn("seq"),
	)
	require.NoError(t, err)

	sqlQuery, err := engine.buildSelectQuery(criteriaOf(t, clef.BuildFilter(clef.Events{}).Level("Fatal")))

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `SELECT "payload" FROM "app_logs"`)
	assert.Contains(t, sqlQuery, `"payload" ->> '@l' = 'Fatal'`)
	assert.Contains(t, sqlQuery, `ORDER BY "seq" ASC`)
}

func Test_BuildSelectQuery_UnrenderableUserField(t *testing.T) {
	engine, err := newQueryEngine(&fakeDB{})
	require.NoError(t, err)

	_, err = engine.buildSelectQuery(clef.Criteria{UserFields: map[string]any{"Payload": make(chan int)}})

	assert.ErrorIs(t, err, ErrBuildingQueryFailed)
}

func Test_Query_DecodesDocumentsInRowOrder(t *testing.T) {
	rows := givenDocuments(
		`{"@t":"2026-01-24T10:00:00Z","@l":"Error","@m":"first","@@Source":"db"}`,
		`{"@t":"2026-01-24T10:00:01Z","@l":"Error","@m":"second"}`,
	)
	db := &fakeDB{rows: rows}
	logger := testdoubles.NewLoggerSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()
	engine, err := newQueryEngine(db, WithLogger(logger), WithMetrics(metrics))
	require.NoError(t, err)

	events, err := engine.QueryFilter(context.Background(), clef.BuildFilter(clef.Events{}).Level("Error"))

	require.NoError(t, err)
	require.Equal(t, 2, events.Len())
	first, _ := events.At(0)
	message, _ := first.Message()
	source, _ := first.UserField("@Source")
	assert.Equal(t, "first", message)
	assert.Equal(t, "db", source)

	assert.True(t, rows.closed)
	require.Len(t, db.queries, 1)
	assert.True(t, logger.HasLog("debug", "executed sql for: query"))
	assert.True(t, logger.HasLogWithAttr("info", "clef query engine: query completed", "event_count", 2))
	queried, _ := metrics.LastValue(MetricQueriedEvents)
	assert.Equal(t, 2.0, queried)
	assert.True(t, metrics.HasDurationRecord(MetricQueryDuration))
}

//nolint:funlen
func Test_Query_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name              string
		db                *fakeDB
		criteria          clef.Criteria
		expectedErr       error
		expectedErrorType string
	}{
		{
			name:              "database_rejects_query",
			db:                &fakeDB{queryErr: boom},
			expectedErr:       ErrQueryingEventsFailed,
			expectedErrorType: errorTypeDatabaseQuery,
		},
		{
			name:              "row_cannot_be_scanned",
			db:                &fakeDB{rows: &fakeRows{documents: [][]byte{nil}, scanErr: boom}},
			expectedErr:       ErrScanningDBRowFailed,
			expectedErrorType: errorTypeScanRow,
		},
		{
			name:              "document_is_not_json",
			db:                &fakeDB{rows: givenDocuments(`{"@l":`)},
			expectedErr:       ErrDecodingDocumentFailed,
			expectedErrorType: errorTypeDecodeDoc,
		},
		{
			name:              "document_is_null",
			db:                &fakeDB{rows: givenDocuments(`null`)},
			expectedErr:       ErrDecodingDocumentFailed,
			expectedErrorType: errorTypeDecodeDoc,
		},
		{
			name:              "streaming_rows_fails",
			db:                &fakeDB{rows: &fakeRows{rowsErr: boom}},
			expectedErr:       ErrQueryingEventsFailed,
			expectedErrorType: errorTypeDatabaseQuery,
		},
		{
			name:              "criteria_cannot_be_rendered",
			db:                &fakeDB{},
			criteria:          clef.Criteria{EventID: func() {}},
			expectedErr:       ErrBuildingQueryFailed,
			expectedErrorType: errorTypeBuildQuery,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger := testdoubles.NewLoggerSpy()
			metrics := testdoubles.NewMetricsCollectorSpy()
			engine, err := newQueryEngine(tc.db, WithLogger(logger), WithMetrics(metrics))
			require.NoError(t, err)

			events, err := engine.Query(context.Background(), tc.criteria)

			assert.ErrorIs(t, err, tc.expectedErr)
			assert.True(t, events.IsEmpty())
			assert.NotEmpty(t, logger.RecordsWithLevel("error"))
			assert.True(t, metrics.HasCounterRecordWithLabel(MetricQueryErrors, "error_type", tc.expectedErrorType))

			if tc.db.rows != nil {
				assert.True(t, tc.db.rows.closed)
			}
		})
	}
}

func Test_Query_InvertedTimeRangeNeverReachesDatabase(t *testing.T) {
	db := &fakeDB{rows: givenDocuments()}
	engine, err := newQueryEngine(db)
	require.NoError(t, err)

	criteria := criteriaOf(t, clef.BuildFilter(clef.Events{}).
		StartTime("2026-01-24T11:00:00Z").
		EndTime("2026-01-24T10:00:00Z"))

	_, err = engine.Query(context.Background(), criteria)

	assert.ErrorIs(t, err, clef.ErrInvertedTimeRange)
	assert.Empty(t, db.queries)
}

func Test_QueryFilter_ReturnsBuilderError(t *testing.T) {
	db := &fakeDB{rows: givenDocuments()}
	engine, err := newQueryEngine(db)
	require.NoError(t, err)

	_, err = engine.QueryFilter(context.Background(), clef.BuildFilter(clef.Events{}).MessageRegex("(["))

	assert.ErrorIs(t, err, clef.ErrInvalidArgument)
	assert.Empty(t, db.queries)
}

func Test_Query_ContextualLoggerReceivesQueryContext(t *testing.T) {
	logger := testdoubles.NewContextualLoggerSpy()
	engine, err := newQueryEngine(&fakeDB{rows: givenDocuments(`{"@l":"Error"}`)}, WithContextualLogger(logger))
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), ctxKey("request"), "r-1")

	_, err = engine.Query(ctx, clef.Criteria{})

	require.NoError(t, err)
	assert.True(t, logger.HasLogWithContextValue("info", "clef query engine: query completed", ctxKey("request"), "r-1"))
	assert.True(t, logger.HasLogWithContextValue("debug", "executed sql for: query", ctxKey("request"), "r-1"))
}

func Test_Options_RejectEmptyNames(t *testing.T) {
	_, err := newQueryEngine(&fakeDB{}, WithTableName(""))
	assert.ErrorIs(t, err, ErrEmptyTableName)

	_, err = newQueryEngine(&fakeDB{}, WithDocumentColumn(""))
	assert.ErrorIs(t, err, ErrEmptyColumnName)

	_, err = newQueryEngine(&fakeDB{}, WithOrderColumn(""))
	assert.ErrorIs(t, err, ErrEmptyColumnName)
}
