package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/clef/postgresengine"
	"github.com/AntonStoeckl/clef-go/testutil/clef/fixtures"
	"github.com/AntonStoeckl/clef-go/testutil/observability/testdoubles"
	"github.com/AntonStoeckl/clef-go/testutil/postgresengine/pgtesthelpers"
)

var _ postgresengine.ContextualLogger = (*testdoubles.ContextualLoggerSpy)(nil)

func Test_Constructors_RejectNilConnections(t *testing.T) {
	_, err := postgresengine.NewQueryEngineFromPGXPool(nil)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)

	_, err = postgresengine.NewQueryEngineFromPGXPoolWithReplica(nil, nil)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)

	_, err = postgresengine.NewQueryEngineFromSQLDB(nil)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)

	_, err = postgresengine.NewQueryEngineFromSQLX(nil)
	assert.ErrorIs(t, err, postgresengine.ErrNilDatabaseConnection)
}

//nolint:funlen
func Test_QueryEngine_AgreesWithInMemoryFilter(t *testing.T) {
	wrapper := pgtesthelpers.CreateWrapperWithTestConfig(t)

	lines := append(
		fixtures.GivenFiveLeveledEventLines(t),
		fixtures.BuildRequestFailedLine(t, "2026-01-24T10:00:05Z", fixtures.GivenUniqueID(t), 42.5),
		`{"@t":"2026-01-24T10:00:06Z","@m":"Large id","@i":9007199254740993}`,
		`{"@t":"2026-01-24T10:00:07Z","@m":"Neighbouring large id","@i":9007199254740992}`,
	)
	tableName := pgtesthelpers.GivenDocumentTable(t, lines...)

	engine, err := wrapper.NewQueryEngine(postgresengine.WithTableName(tableName))
	require.NoError(t, err)

	inMemory, err := clef.NewParser(fixtures.GivenClefFile(t, lines...))
	require.NoError(t, err)
	events, err := inMemory.Parse()
	require.NoError(t, err)

	tests := []struct {
		name  string
		build func(fb *clef.FilterBuilder) *clef.FilterBuilder
	}{
		{"everything", func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb }},
		{"level", func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.Level("Error") }},
		{"time_range", func(fb *clef.FilterBuilder) *clef.FilterBuilder {
			return fb.StartTime("2026-01-24T10:00:01Z").EndTime("2026-01-24T12:00:03+02:00")
		}},
		{"message_regex", func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.MessageRegex("Event [24]") }},
		{"exception_regex", func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.ExceptionRegex("Timeout") }},
		{"user_fields", func(fb *clef.FilterBuilder) *clef.FilterBuilder {
			return fb.UserFields(map[string]any{"Number": 3, "Environment": "Production"})
		}},
		{"escaped_user_field", func(fb *clef.FilterBuilder) *clef.FilterBuilder {
			return fb.UserFields(map[string]any{"@Source": "gateway"})
		}},
		{"event_id", func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID("a1b2c3d4") }},
		{"event_id_beyond_float_precision", func(fb *clef.FilterBuilder) *clef.FilterBuilder {
			return fb.EventID(int64(9007199254740993))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expected, err := tc.build(clef.BuildFilter(events)).Filter()
			require.NoError(t, err)

			actual, err := engine.QueryFilter(context.Background(), tc.build(clef.BuildFilter(clef.Events{})))
			require.NoError(t, err)

			require.Equal(t, expected.Len(), actual.Len())
			for i, event := range expected.All() {
				other, _ := actual.At(i)
				assert.Equal(t, event.String(), other.String())
				assert.Equal(t, event.UserFields(), other.UserFields())
			}
		})
	}
}

func Test_QueryEngine_TimeRangeExcludesUnreadableTimestamps(t *testing.T) {
	wrapper := pgtesthelpers.CreateWrapperWithTestConfig(t)

	lines := append(
		fixtures.GivenFiveLeveledEventLines(t),
		`{"@t":"2026-02-30T10:00:00Z","@m":"Impossible date"}`,
		`{"@t":"2026-01-24 garbage","@m":"Trailing garbage"}`,
		`{"@t":"not a date","@m":"No date at all"}`,
	)
	tableName := pgtesthelpers.GivenDocumentTable(t, lines...)

	engine, err := wrapper.NewQueryEngine(postgresengine.WithTableName(tableName))
	require.NoError(t, err)

	events, err := engine.QueryFilter(
		context.Background(),
		clef.BuildFilter(clef.Events{}).StartTime(fixtures.ScenarioStart).EndTime("2026-12-31T00:00:00Z"),
	)
	require.NoError(t, err)

	assert.Equal(t, 5, events.Len())
	for _, event := range events.All() {
		message, _ := event.Message()
		assert.Contains(t, message, "Event ")
	}
}

func Benchmark_QueryEngine_Query_Many_Events(b *testing.B) {
	// setup
	ctx := context.Background()
	wrapper := pgtesthelpers.CreateWrapperWithTestConfig(b)

	// arrange
	tableName := pgtesthelpers.GivenDocumentTable(b, fixtures.GivenManyEventLines(b, 2000)...)
	engine, err := wrapper.NewQueryEngine(postgresengine.WithTableName(tableName))
	require.NoError(b, err)

	builder := clef.BuildFilter(clef.Events{}).
		Level("Error").
		UserFields(map[string]any{"Environment": "Production"})

	// act
	b.Run("query errors", func(b *testing.B) {
		b.ResetTimer()
		var queryTime time.Duration

		for i := 0; i < b.N; i++ {
			start := time.Now()
			_, queryErr := engine.QueryFilter(ctx, builder)
			queryTime += time.Since(start)

			b.StopTimer()
			assert.NoError(b, queryErr)
			b.StartTimer()
		}

		b.ReportMetric(float64(queryTime.Milliseconds())/float64(b.N), "ms/query-op")
	})
}
