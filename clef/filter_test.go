package clef_test

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/testutil/clef/fixtures"
	"github.com/AntonStoeckl/clef-go/testutil/observability/testdoubles"
)

func givenScenarioEvents(t *testing.T) clef.Events {
	t.Helper()

	parser, err := clef.NewParser(fixtures.GivenClefFile(t, fixtures.GivenFiveLeveledEventLines(t)...))
	require.NoError(t, err)

	events, err := parser.Parse()
	require.NoError(t, err)

	return events
}

func givenEvents(raws ...map[string]any) clef.Events {
	events := make([]clef.Event, 0, len(raws))
	for _, raw := range raws {
		events = append(events, clef.NewEvent(raw))
	}

	return clef.NewEvents(events...)
}

func messagesOf(events clef.Events) []string {
	messages := make([]string, 0, events.Len())
	for _, event := range events.All() {
		message, _ := event.Message()
		messages = append(messages, message)
	}

	return messages
}

//nolint:funlen
func Test_FilterBuilder_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name        string
		build       func(fb *clef.FilterBuilder) *clef.FilterBuilder
		expectedErr error
	}{
		{
			name:        "empty_level",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.Level("") },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name:        "empty_start_time",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.StartTime("") },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name:        "unparseable_end_time",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EndTime("yesterday") },
			expectedErr: clef.ErrInvalidTimestamp,
		},
		{
			name:        "empty_message_pattern",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.MessageRegex("") },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name:        "invalid_message_template_pattern",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.MessageTemplateRegex("([") },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name:        "invalid_exception_pattern",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.ExceptionRegex("a{2,1}") },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name:        "invalid_renderings_pattern",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.RenderingsRegex("*") },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name:        "nil_user_fields",
			build:       func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.UserFields(nil) },
			expectedErr: clef.ErrInvalidArgument,
		},
		{
			name: "inverted_time_range",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.StartTime("2026-01-24T10:00:03Z").EndTime("2026-01-24T10:00:01Z")
			},
			expectedErr: clef.ErrInvertedTimeRange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filtered, err := tc.build(clef.BuildFilter(givenScenarioEvents(t))).Filter()

			assert.ErrorIs(t, err, tc.expectedErr)
			assert.ErrorIs(t, err, clef.ErrInvalidFilter)
			assert.ErrorIs(t, err, clef.ErrParse)
			assert.True(t, filtered.IsEmpty())
		})
	}
}

func Test_FilterBuilder_KeepsFirstConfigurationError(t *testing.T) {
	fb := clef.BuildFilter(clef.Events{}).
		MessageRegex("([").
		Level("").
		StartTime("garbage")

	require.Error(t, fb.Err())
	assert.Contains(t, fb.Err().Error(), "message regex")
	assert.Contains(t, fb.Err().Error(), "([")
	assert.NotErrorIs(t, fb.Err(), clef.ErrInvalidTimestamp)

	var timestampErr *clef.InvalidTimestampError
	_, err := clef.BuildFilter(clef.Events{}).StartTime("garbage").Filter()
	require.ErrorAs(t, err, &timestampErr)
	assert.Equal(t, "garbage", timestampErr.Timestamp)
}

func Test_FilterBuilder_InvertedRangeIsReportedByFilterOnly(t *testing.T) {
	fb := clef.BuildFilter(givenScenarioEvents(t)).
		StartTime("2026-01-24T10:00:03Z").
		EndTime("2026-01-24T10:00:01Z")

	assert.NoError(t, fb.Err())

	_, _, err := fb.FilterWithReport()
	assert.ErrorIs(t, err, clef.ErrInvertedTimeRange)
}

//nolint:funlen
func Test_FilterBuilder_Scenario(t *testing.T) {
	events := givenScenarioEvents(t)

	tests := []struct {
		name     string
		build    func(fb *clef.FilterBuilder) *clef.FilterBuilder
		expected []string
	}{
		{
			name:     "no_criteria_returns_everything",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb },
			expected: []string{"Event 1", "Event 2", "Event 3", "Event 4", "Event 5"},
		},
		{
			name:     "level",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.Level("Error") },
			expected: []string{"Event 1", "Event 4"},
		},
		{
			name:     "level_is_case_sensitive",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.Level("error") },
			expected: []string{},
		},
		{
			name: "inclusive_time_range",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.StartTime("2026-01-24T10:00:01Z").EndTime("2026-01-24T10:00:03Z")
			},
			expected: []string{"Event 2", "Event 3", "Event 4"},
		},
		{
			name: "open_ended_start",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.StartTime("2026-01-24T10:00:04Z")
			},
			expected: []string{"Event 5"},
		},
		{
			name: "time_range_with_offset",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.EndTime("2026-01-24T12:00:00+02:00")
			},
			expected: []string{"Event 1"},
		},
		{
			name: "level_and_time_range",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.Level("Error").StartTime("2026-01-24T10:00:01Z").EndTime("2026-01-24T10:00:03Z")
			},
			expected: []string{"Event 4"},
		},
		{
			name:     "message_regex_searches_anywhere",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.MessageRegex("[35]$") },
			expected: []string{"Event 3", "Event 5"},
		},
		{
			name:     "message_template_regex",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.MessageTemplateRegex(`\{Number\}`) },
			expected: []string{"Event 1", "Event 2", "Event 3", "Event 4", "Event 5"},
		},
		{
			name: "user_fields_compare_numbers_by_value",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.UserFields(map[string]any{"Number": 3, "Environment": "Production"})
			},
			expected: []string{"Event 3"},
		},
		{
			name: "missing_user_field_excludes",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.UserFields(map[string]any{"Tenant": "acme"})
			},
			expected: []string{},
		},
		{
			name: "exception_regex_excludes_events_without_exception",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.ExceptionRegex("Timeout")
			},
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filtered, err := tc.build(clef.BuildFilter(events)).Filter()

			require.NoError(t, err)
			assert.Equal(t, tc.expected, messagesOf(filtered))
			assert.Equal(t, 5, events.Len(), "filtering must not modify the input")
		})
	}
}

//nolint:funlen
func Test_FilterBuilder_ReifiedFieldCriteria(t *testing.T) {
	requestID := fixtures.GivenUniqueID(t)
	failed := clef.NewEvent(decodeLine(t, fixtures.BuildRequestFailedLine(t, "2026-01-24T10:00:00Z", requestID, 42.5)))
	numbered := clef.NewEvent(map[string]any{"@m": "numbered", "@i": 7.0, "@r": 3.0})
	plain := clef.NewEvent(map[string]any{"@m": "plain"})
	events := clef.NewEvents(failed, numbered, plain)

	tests := []struct {
		name          string
		build         func(fb *clef.FilterBuilder) *clef.FilterBuilder
		expectedCount int
	}{
		{
			name:          "exception_regex_spans_lines",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.ExceptionRegex(`(?s)Timeout.*Invoke`) },
			expectedCount: 1,
		},
		{
			name:          "renderings_regex_matches_json_text",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.RenderingsRegex(`^\["42\.5"\]$`) },
			expectedCount: 1,
		},
		{
			name:          "renderings_regex_on_number",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.RenderingsRegex(`^3$`) },
			expectedCount: 1,
		},
		{
			name:          "missing_field_is_empty_text",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.ExceptionRegex(`^$|nothing`) },
			expectedCount: 2,
		},
		{
			name:          "string_event_id",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID("a1b2c3d4") },
			expectedCount: 1,
		},
		{
			name:          "numeric_event_id_compared_by_value",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID(7) },
			expectedCount: 1,
		},
		{
			name:          "nil_event_id_clears_criterion",
			build:         func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID(7).EventID(nil) },
			expectedCount: 3,
		},
		{
			name: "escaped_user_field",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.UserFields(map[string]any{"@Source": "gateway", "RequestId": requestID.String()})
			},
			expectedCount: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filtered, err := tc.build(clef.BuildFilter(events)).Filter()

			require.NoError(t, err)
			assert.Equal(t, tc.expectedCount, filtered.Len())
		})
	}
}

func Test_FilterBuilder_TimestampHandling(t *testing.T) {
	events := givenEvents(
		map[string]any{"@m": "naive", "@t": "2026-01-24T10:00:00"},
		map[string]any{"@m": "offset", "@t": "2026-01-24T12:00:00+02:00"},
		map[string]any{"@m": "missing"},
		map[string]any{"@m": "null", "@t": nil},
		map[string]any{"@m": "empty", "@t": ""},
		map[string]any{"@m": "garbage", "@t": "not a time"},
		map[string]any{"@m": "number", "@t": 1706090400.0},
	)

	filtered, report, err := clef.BuildFilter(events).
		StartTime("2026-01-24T10:00:00Z").
		EndTime("2026-01-24T10:00:00Z").
		FilterWithReport()

	require.NoError(t, err)
	assert.Equal(t, []string{"naive", "offset"}, messagesOf(filtered))
	assert.Equal(t, 7, report.Scanned)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Warnings, 3)
	assert.Contains(t, report.Warnings[0], "not a time")
	assert.Contains(t, report.Warnings[1], "invalid timestamp")
	assert.Equal(t, "2 event(s) were skipped due to malformed data", report.Warnings[2])
}

func Test_FilterBuilder_ZeroInstantIsAValidBound(t *testing.T) {
	events := givenEvents(
		map[string]any{"@m": "zero instant", "@t": "0001-01-01T00:00:00Z"},
		map[string]any{"@m": "recent", "@t": "2026-01-24T10:00:00Z"},
	)

	filtered, err := clef.BuildFilter(events).EndTime("0001-01-01T00:00:00Z").Filter()
	require.NoError(t, err)
	assert.Equal(t, []string{"zero instant"}, messagesOf(filtered))

	criteria := clef.BuildFilter(events).StartTime("0001-01-01T00:00:00Z").Criteria()
	assert.True(t, criteria.HasTimeRange())

	_, err = clef.BuildFilter(events).StartTime("2026-01-24T10:00:00Z").EndTime("0001-01-01T00:00:00Z").Filter()
	assert.ErrorIs(t, err, clef.ErrInvertedTimeRange)
}

//nolint:funlen
func Test_FilterBuilder_NumbersAreComparedExactly(t *testing.T) {
	lines := []string{
		`{"@m":"exact","@i":9007199254740993,"Count":42.0}`,
		`{"@m":"neighbour","@i":9007199254740992,"Count":42.5}`,
		`{"@m":"decimal","@i":0.1,"Count":1e2}`,
	}
	parser, err := clef.NewParser(fixtures.GivenClefFile(t, lines...))
	require.NoError(t, err)
	events, err := parser.Parse()
	require.NoError(t, err)

	tests := []struct {
		name     string
		build    func(fb *clef.FilterBuilder) *clef.FilterBuilder
		expected []string
	}{
		{
			name:     "event_id_beyond_float_precision",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID(int64(9007199254740993)) },
			expected: []string{"exact"},
		},
		{
			name:     "neighbouring_event_id",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID(int64(9007199254740992)) },
			expected: []string{"neighbour"},
		},
		{
			name:     "unsigned_event_id",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID(uint64(9007199254740993)) },
			expected: []string{"exact"},
		},
		{
			name:     "decimal_event_id",
			build:    func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID(0.1) },
			expected: []string{"decimal"},
		},
		{
			name: "integer_equals_decimal_with_zero_fraction",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.UserFields(map[string]any{"Count": 42})
			},
			expected: []string{"exact"},
		},
		{
			name: "exponent_notation",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.UserFields(map[string]any{"Count": 100})
			},
			expected: []string{"decimal"},
		},
		{
			name: "number_does_not_equal_its_text",
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder {
				return fb.UserFields(map[string]any{"Count": "42"})
			},
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filtered, err := tc.build(clef.BuildFilter(events)).Filter()

			require.NoError(t, err)
			assert.Equal(t, tc.expected, messagesOf(filtered))
		})
	}
}

//nolint:funlen
func Test_FilterBuilder_UnexpectedFailureSkipsOnlyThatEvent(t *testing.T) {
	tests := []struct {
		name   string
		events clef.Events
		build  func(fb *clef.FilterBuilder) *clef.FilterBuilder
	}{
		{
			name: "event_id_which_panics_when_rendered",
			events: givenEvents(
				map[string]any{"@m": "first", "@i": "abc"},
				map[string]any{"@m": "broken", "@i": explodingValue{}},
				map[string]any{"@m": "last", "@i": "abc"},
			),
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.EventID("abc") },
		},
		{
			name: "renderings_which_panic_when_rendered",
			events: givenEvents(
				map[string]any{"@m": "first", "@r": []any{"a"}},
				map[string]any{"@m": "broken", "@r": explodingValue{}},
				map[string]any{"@m": "last"},
			),
			build: func(fb *clef.FilterBuilder) *clef.FilterBuilder { return fb.RenderingsRegex(".*") },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger := testdoubles.NewLoggerSpy()

			filtered, report, err := tc.build(clef.BuildFilter(tc.events, clef.WithLogger(logger))).FilterWithReport()

			require.NoError(t, err)
			assert.Equal(t, []string{"first", "last"}, messagesOf(filtered))
			assert.Equal(t, 3, report.Scanned)
			assert.Equal(t, 2, report.Matched)
			assert.Equal(t, 1, report.Skipped)
			require.Len(t, report.Warnings, 2)
			assert.Contains(t, report.Warnings[0], "unexpected error filtering event")
			assert.Contains(t, report.Warnings[0], "rendering exploded")
			assert.Equal(t, "1 event(s) were skipped due to malformed data", report.Warnings[1])
			assert.Len(t, logger.RecordsWithLevel("warn"), 2)
		})
	}
}

// explodingValue panics when it is rendered as JSON.
type explodingValue struct{}

func (explodingValue) MarshalJSON() ([]byte, error) {
	panic("rendering exploded")
}

func Test_FilterBuilder_WithoutTimeRangeIgnoresTimestamps(t *testing.T) {
	events := givenEvents(
		map[string]any{"@l": "Error", "@t": "not a time"},
		map[string]any{"@l": "Error"},
	)

	filtered, report, err := clef.BuildFilter(events).Level("Error").FilterWithReport()

	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())
	assert.Zero(t, report.Skipped)
	assert.Empty(t, report.Warnings)
}

func Test_FilterBuilder_IncomparableCriterionSkipsEvent(t *testing.T) {
	events := givenEvents(
		map[string]any{"@m": "has it", "Payload": "x"},
		map[string]any{"@m": "lacks it"},
	)

	filtered, report, err := clef.BuildFilter(events).
		UserFields(map[string]any{"Payload": make(chan int)}).
		FilterWithReport()

	require.NoError(t, err)
	assert.True(t, filtered.IsEmpty())
	assert.Equal(t, 1, report.Skipped)
	assert.Contains(t, report.Warnings[0], "user field Payload")
}

func Test_FilterBuilder_EmptyUserFieldsWarns(t *testing.T) {
	logger := testdoubles.NewLoggerSpy()

	filtered, report, err := clef.BuildFilter(givenScenarioEvents(t), clef.WithLogger(logger)).
		UserFields(map[string]any{}).
		FilterWithReport()

	require.NoError(t, err)
	assert.Equal(t, 5, filtered.Len())
	assert.Equal(t, []string{"user fields criterion is empty, no filtering will be applied"}, report.Warnings)
	assert.True(t, logger.HasLogWithAttr(
		"warn",
		"filter warning",
		"warning",
		"user fields criterion is empty, no filtering will be applied",
	))
}

func Test_FilterBuilder_UserFieldsAreCopied(t *testing.T) {
	fields := map[string]any{"Environment": "Production"}
	fb := clef.BuildFilter(givenScenarioEvents(t)).UserFields(fields)

	fields["Environment"] = "Staging"

	filtered, err := fb.Filter()
	require.NoError(t, err)
	assert.Equal(t, 5, filtered.Len())
	assert.Equal(t, map[string]any{"Environment": "Production"}, fb.Criteria().UserFields)
}

func Test_FilterBuilder_IsRepeatable(t *testing.T) {
	fb := clef.BuildFilter(givenScenarioEvents(t)).Level("Error")

	first, err := fb.Filter()
	require.NoError(t, err)
	second, err := fb.Filter()
	require.NoError(t, err)

	assert.Equal(t, messagesOf(first), messagesOf(second))
}

func Test_FilterBuilder_Criteria(t *testing.T) {
	criteria := clef.BuildFilter(clef.Events{}).
		Level("Error").
		StartTime("2026-01-24T10:00:00Z").
		MessageRegex("boom").
		EventID("abc").
		Criteria()

	assert.Equal(t, "Error", criteria.Level)
	assert.True(t, criteria.HasTimeRange())
	require.NotNil(t, criteria.StartTime)
	assert.Equal(t, "2026-01-24T10:00:00Z", criteria.StartTime.Format(time.RFC3339))
	assert.Nil(t, criteria.EndTime)
	require.NotNil(t, criteria.MessagePattern)
	assert.Equal(t, "boom", criteria.MessagePattern.String())
	assert.Nil(t, criteria.ExceptionPattern)
	assert.Equal(t, "abc", criteria.EventID)
}

func Test_Parser_EventFilterSharesObservability(t *testing.T) {
	logger := testdoubles.NewLoggerSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()
	path := fixtures.GivenClefFile(t, append(fixtures.GivenFiveLeveledEventLines(t), `{"@t":"bogus","@l":"Error"}`)...)
	parser, err := clef.NewParser(path, clef.WithLogger(logger), clef.WithMetrics(metrics))
	require.NoError(t, err)

	events, err := parser.Parse()
	require.NoError(t, err)

	filtered, err := parser.EventFilter(events).StartTime("2026-01-24T10:00:00Z").Filter()
	require.NoError(t, err)

	assert.Equal(t, 5, filtered.Len())
	assert.Len(t, logger.RecordsWithLevel("warn"), 2)
	assert.True(t, logger.HasLogWithAttr("debug", "filter completed", "skipped", 1))
	assert.True(t, metrics.HasDurationRecord(clef.MetricFilterDuration))

	matched, _ := metrics.LastValue(clef.MetricMatchedEvents)
	skipped, _ := metrics.LastValue(clef.MetricSkippedEvents)
	assert.Equal(t, 5.0, matched)
	assert.Equal(t, 1.0, skipped)
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()

	var raw map[string]any
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(line, &raw))

	return raw
}
