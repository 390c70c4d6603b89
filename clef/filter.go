package clef

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"time"
)

const (
	criterionStartTime       = "start time"
	criterionEndTime         = "end time"
	criterionLevel           = "level"
	criterionMessage         = "message regex"
	criterionMessageTemplate = "message template regex"
	criterionException       = "exception regex"
	criterionRenderings      = "renderings regex"
	criterionUserFields      = "user fields"

	warnMsgEmptyUserFields  = "user fields criterion is empty, no filtering will be applied"
	warnMsgInvalidTimestamp = "skipping event with invalid timestamp '%v': %v"
	warnMsgUnstringable     = "skipping event with %s field which cannot be matched: %v"
	warnMsgIncomparable     = "skipping event with %s which cannot be compared: %v"
	warnMsgUnexpected       = "unexpected error filtering event: %v. Event skipped."
	warnMsgSkippedTotal     = "%d event(s) were skipped due to malformed data"

	logMsgFilterWarning   = "filter warning"
	logMsgFilterCompleted = "filter completed"
	logAttrWarning        = "warning"
)

/***** Criteria *****/

// Criteria is a read-only snapshot of what a FilterBuilder is configured to match.
// Unset criteria are nil or empty: nil time bounds, empty Level, nil patterns, nil UserFields and nil EventID.
// A bound at the zero instant 0001-01-01T00:00:00Z is set like any other.
type Criteria struct {
	StartTime              *time.Time
	EndTime                *time.Time
	Level                  string
	MessagePattern         *regexp.Regexp
	MessageTemplatePattern *regexp.Regexp
	ExceptionPattern       *regexp.Regexp
	RenderingsPattern      *regexp.Regexp
	UserFields             map[string]any
	EventID                any
}

// HasTimeRange reports whether at least one time bound is set.
func (c Criteria) HasTimeRange() bool {
	return c.StartTime != nil || c.EndTime != nil
}

/***** FilterReport *****/

// FilterReport carries the advisory diagnostics of one filter run.
// Skipped counts events which were excluded because their data was malformed.
type FilterReport struct {
	Scanned  int
	Matched  int
	Skipped  int
	Warnings []string
}

/***** FilterBuilder *****/

// FilterBuilder collects filter criteria through chained calls and evaluates them with Filter.
//
// Every criterion is validated when it is set. Since chained calls cannot return errors,
// the first configuration error is kept, reported by Err, and returned by Filter before any event is scanned.
// Calls after a configuration error are ignored.
//
// All set criteria must match for an event to be included:
//
//	errors, err := clef.BuildFilter(events).
//		Level("Error").
//		StartTime("2026-01-24T00:00:00Z").
//		UserFields(map[string]any{"Environment": "Production"}).
//		Filter()
type FilterBuilder struct {
	events         Events
	settings       settings
	criteria       Criteria
	configWarnings []string
	err            error
}

// BuildFilter creates a FilterBuilder over events. The events are read, never modified.
func BuildFilter(events Events, options ...Option) *FilterBuilder {
	s, err := applyOptions(options)

	return newFilterBuilder(events, s, err)
}

func newFilterBuilder(events Events, s settings, err error) *FilterBuilder {
	return &FilterBuilder{
		events:   events,
		settings: s,
		err:      err,
	}
}

// StartTime sets the inclusive lower time bound, an ISO-8601 timestamp.
func (fb *FilterBuilder) StartTime(value string) *FilterBuilder {
	if fb.err != nil {
		return fb
	}

	fb.criteria.StartTime, fb.err = parseTimeBound(criterionStartTime, value)

	return fb
}

// EndTime sets the inclusive upper time bound, an ISO-8601 timestamp.
func (fb *FilterBuilder) EndTime(value string) *FilterBuilder {
	if fb.err != nil {
		return fb
	}

	fb.criteria.EndTime, fb.err = parseTimeBound(criterionEndTime, value)

	return fb
}

// Level sets the level which must be equal to the event's level.
func (fb *FilterBuilder) Level(value string) *FilterBuilder {
	if fb.err != nil {
		return fb
	}

	if value == "" {
		fb.err = emptyCriterionError(criterionLevel)
		return fb
	}

	fb.criteria.Level = value

	return fb
}

// MessageRegex sets a pattern which must match somewhere in the rendered message.
func (fb *FilterBuilder) MessageRegex(pattern string) *FilterBuilder {
	return fb.setPattern(criterionMessage, pattern, &fb.criteria.MessagePattern)
}

// MessageTemplateRegex sets a pattern which must match somewhere in the message template.
func (fb *FilterBuilder) MessageTemplateRegex(pattern string) *FilterBuilder {
	return fb.setPattern(criterionMessageTemplate, pattern, &fb.criteria.MessageTemplatePattern)
}

// ExceptionRegex sets a pattern which must match somewhere in the exception text.
func (fb *FilterBuilder) ExceptionRegex(pattern string) *FilterBuilder {
	return fb.setPattern(criterionException, pattern, &fb.criteria.ExceptionPattern)
}

// RenderingsRegex sets a pattern which must match somewhere in the JSON text of the renderings.
func (fb *FilterBuilder) RenderingsRegex(pattern string) *FilterBuilder {
	return fb.setPattern(criterionRenderings, pattern, &fb.criteria.RenderingsPattern)
}

// UserFields sets user fields which must all be present on an event with equal values.
// Values are compared by their JSON representation, so 42 equals 42.0.
// An empty map is accepted with a warning and does not filter anything.
func (fb *FilterBuilder) UserFields(fields map[string]any) *FilterBuilder {
	if fb.err != nil {
		return fb
	}

	if fields == nil {
		fb.err = fmt.Errorf("%w: %s cannot be nil", ErrInvalidArgument, criterionUserFields)
		return fb
	}

	if len(fields) == 0 {
		fb.configWarnings = append(fb.configWarnings, warnMsgEmptyUserFields)
		fb.logWarning(warnMsgEmptyUserFields)
	}

	fb.criteria.UserFields = maps.Clone(fields)

	return fb
}

// EventID sets the value the event id must be equal to. Nil clears the criterion.
func (fb *FilterBuilder) EventID(value any) *FilterBuilder {
	if fb.err != nil {
		return fb
	}

	fb.criteria.EventID = value

	return fb
}

// Err returns the first configuration error, if any.
func (fb *FilterBuilder) Err() error {
	return fb.err
}

// Criteria returns a snapshot of the configured criteria.
func (fb *FilterBuilder) Criteria() Criteria {
	criteria := fb.criteria
	criteria.StartTime = cloneTime(fb.criteria.StartTime)
	criteria.EndTime = cloneTime(fb.criteria.EndTime)
	criteria.UserFields = maps.Clone(fb.criteria.UserFields)

	return criteria
}

// Filter evaluates the criteria against every event and returns the matching events in source order.
func (fb *FilterBuilder) Filter() (Events, error) {
	filtered, _, err := fb.FilterWithReport()

	return filtered, err
}

// FilterWithReport works like Filter and additionally returns the warnings of the run.
//
// Configuration errors, including a start time after the end time, abort before any event is scanned.
// Events with malformed data are excluded and counted as skipped, they never abort the run.
// Running it again re-evaluates from scratch.
func (fb *FilterBuilder) FilterWithReport() (Events, FilterReport, error) {
	if fb.err != nil {
		return Events{}, FilterReport{}, fb.err
	}

	if err := fb.validateTimeRange(); err != nil {
		return Events{}, FilterReport{}, err
	}

	start := time.Now()
	report := FilterReport{Warnings: slices.Clone(fb.configWarnings)}
	filtered := Events{events: make([]Event, 0)}

	for _, event := range fb.events.events {
		report.Scanned++

		outcome, warning := fb.evaluate(event)

		switch outcome {
		case outcomeMatched:
			filtered.Add(event)

		case outcomeSkipped:
			report.Skipped++
			report.Warnings = append(report.Warnings, warning)
			fb.logWarning(warning)

		case outcomeExcluded:
		}
	}

	if report.Skipped > 0 {
		warning := fmt.Sprintf(warnMsgSkippedTotal, report.Skipped)
		report.Warnings = append(report.Warnings, warning)
		fb.logWarning(warning)
	}

	report.Matched = filtered.Len()
	fb.observe(report, time.Since(start))

	return filtered, report, nil
}

func (fb *FilterBuilder) validateTimeRange() error {
	if fb.criteria.StartTime == nil || fb.criteria.EndTime == nil {
		return nil
	}

	if fb.criteria.StartTime.After(*fb.criteria.EndTime) {
		return fmt.Errorf(
			"%w: start time (%s) is after end time (%s)",
			ErrInvertedTimeRange,
			fb.criteria.StartTime.Format(time.RFC3339Nano),
			fb.criteria.EndTime.Format(time.RFC3339Nano),
		)
	}

	return nil
}

func (fb *FilterBuilder) setPattern(criterion string, pattern string, target **regexp.Regexp) *FilterBuilder {
	if fb.err != nil {
		return fb
	}

	if pattern == "" {
		fb.err = emptyCriterionError(criterion)
		return fb
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		fb.err = fmt.Errorf("%w: invalid %s pattern '%s': %w", ErrInvalidArgument, criterion, pattern, err)
		return fb
	}

	*target = compiled

	return fb
}

func (fb *FilterBuilder) logWarning(warning string) {
	if fb.settings.logger != nil {
		fb.settings.logger.Warn(logMsgFilterWarning, logAttrWarning, warning)
	}
}

func (fb *FilterBuilder) observe(report FilterReport, duration time.Duration) {
	if fb.settings.logger != nil {
		fb.settings.logger.Debug(
			logMsgFilterCompleted,
			logAttrEventCount, report.Scanned,
			logAttrMatched, report.Matched,
			logAttrSkipped, report.Skipped,
			logAttrDurationMS, toMilliseconds(duration),
		)
	}

	if fb.settings.metricsCollector != nil {
		labels := map[string]string{labelOperation: operationFilter, labelStatus: statusSuccess}
		fb.settings.metricsCollector.RecordDuration(MetricFilterDuration, duration, labels)
		fb.settings.metricsCollector.RecordValue(MetricMatchedEvents, float64(report.Matched), labels)
		fb.settings.metricsCollector.RecordValue(MetricSkippedEvents, float64(report.Skipped), labels)
	}
}

func parseTimeBound(criterion string, value string) (*time.Time, error) {
	if value == "" {
		return nil, emptyCriterionError(criterion)
	}

	parsed, err := ParseTimestamp(value)
	if err != nil {
		return nil, &InvalidTimestampError{Timestamp: value, Err: err}
	}

	return &parsed, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	clone := *t

	return &clone
}

func emptyCriterionError(criterion string) error {
	return fmt.Errorf("%w: %s cannot be empty", ErrInvalidArgument, criterion)
}
