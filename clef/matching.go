package clef

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
)

type outcome int

const (
	outcomeExcluded outcome = iota
	outcomeMatched
	outcomeSkipped
)

// criterionCheck decides about one criterion. A warning accompanies outcomeSkipped.
type criterionCheck func(event Event) (outcome, string)

// evaluate runs all checks in order and stops at the first one which does not match.
// A panic inside one check skips only the current event.
func (fb *FilterBuilder) evaluate(event Event) (result outcome, warning string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = outcomeSkipped
			warning = fmt.Sprintf(warnMsgUnexpected, recovered)
		}
	}()

	checks := []criterionCheck{
		fb.matchTimeRange,
		fb.matchLevel,
		fb.patternCheck(FieldMessage, fb.criteria.MessagePattern),
		fb.patternCheck(FieldMessageTemplate, fb.criteria.MessageTemplatePattern),
		fb.patternCheck(FieldException, fb.criteria.ExceptionPattern),
		fb.patternCheck(FieldRenderings, fb.criteria.RenderingsPattern),
		fb.matchUserFields,
		fb.matchEventID,
	}

	for _, check := range checks {
		if result, warning = check(event); result != outcomeMatched {
			return result, warning
		}
	}

	return outcomeMatched, ""
}

func (fb *FilterBuilder) matchTimeRange(event Event) (outcome, string) {
	if !fb.criteria.HasTimeRange() {
		return outcomeMatched, ""
	}

	raw, ok := event.Reified(FieldTimestamp)
	if !ok || raw == nil || raw == "" {
		return outcomeExcluded, ""
	}

	timestamp, ok := raw.(string)
	if !ok {
		return outcomeSkipped, fmt.Sprintf(warnMsgInvalidTimestamp, raw, "not a string")
	}

	eventTime, err := ParseTimestamp(timestamp)
	if err != nil {
		return outcomeSkipped, fmt.Sprintf(warnMsgInvalidTimestamp, timestamp, err)
	}

	if fb.criteria.StartTime != nil && eventTime.Before(*fb.criteria.StartTime) {
		return outcomeExcluded, ""
	}

	if fb.criteria.EndTime != nil && eventTime.After(*fb.criteria.EndTime) {
		return outcomeExcluded, ""
	}

	return outcomeMatched, ""
}

func (fb *FilterBuilder) matchLevel(event Event) (outcome, string) {
	if fb.criteria.Level == "" {
		return outcomeMatched, ""
	}

	if level, ok := event.Level(); !ok || level != fb.criteria.Level {
		return outcomeExcluded, ""
	}

	return outcomeMatched, ""
}

func (fb *FilterBuilder) patternCheck(field Field, pattern *regexp.Regexp) criterionCheck {
	return func(event Event) (outcome, string) {
		if pattern == nil {
			return outcomeMatched, ""
		}

		text, err := fieldText(event, field)
		if err != nil {
			return outcomeSkipped, fmt.Sprintf(warnMsgUnstringable, field, err)
		}

		if !pattern.MatchString(text) {
			return outcomeExcluded, ""
		}

		return outcomeMatched, ""
	}
}

func (fb *FilterBuilder) matchUserFields(event Event) (outcome, string) {
	if len(fb.criteria.UserFields) == 0 {
		return outcomeMatched, ""
	}

	for key, expected := range fb.criteria.UserFields {
		actual, ok := event.UserField(key)
		if !ok {
			return outcomeExcluded, ""
		}

		equal, err := jsonEqual(actual, expected)
		if err != nil {
			return outcomeSkipped, fmt.Sprintf(warnMsgIncomparable, "user field "+key, err)
		}

		if !equal {
			return outcomeExcluded, ""
		}
	}

	return outcomeMatched, ""
}

func (fb *FilterBuilder) matchEventID(event Event) (outcome, string) {
	if fb.criteria.EventID == nil {
		return outcomeMatched, ""
	}

	actual, ok := event.EventID()
	if !ok {
		return outcomeExcluded, ""
	}

	equal, err := jsonEqual(actual, fb.criteria.EventID)
	if err != nil {
		return outcomeSkipped, fmt.Sprintf(warnMsgIncomparable, "event id", err)
	}

	if !equal {
		return outcomeExcluded, ""
	}

	return outcomeMatched, ""
}

// fieldText returns the text a pattern is matched against: "" for a missing field,
// the string itself for strings, and the JSON text for any other value.
func fieldText(event Event, field Field) (string, error) {
	raw, ok := event.Reified(field)
	if !ok {
		return "", nil
	}

	if s, isString := raw.(string); isString {
		return s, nil
	}

	return jsonAPI.MarshalToString(raw)
}

// jsonEqual compares two values as JSON: both sides are rendered and decoded again,
// so 42 equals 42.0 and integers are compared exactly at any size.
func jsonEqual(a, b any) (bool, error) {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa == sb, nil
		}
	}

	na, err := normalizeJSON(a)
	if err != nil {
		return false, err
	}

	nb, err := normalizeJSON(b)
	if err != nil {
		return false, err
	}

	return valuesEqual(na, nb), nil
}

func normalizeJSON(value any) (any, error) {
	text, err := jsonAPI.Marshal(value)
	if err != nil {
		return nil, err
	}

	var normalized any
	if err := jsonAPI.Unmarshal(text, &normalized); err != nil {
		return nil, err
	}

	return normalized, nil
}

func valuesEqual(a, b any) bool {
	switch va := a.(type) {
	case json.Number:
		vb, ok := b.(json.Number)

		return ok && numbersEqual(va, vb)

	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}

		for key, val := range va {
			other, found := vb[key]
			if !found || !valuesEqual(val, other) {
				return false
			}
		}

		return true

	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}

		for i := range va {
			if !valuesEqual(va[i], vb[i]) {
				return false
			}
		}

		return true

	default:
		return a == b
	}
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}

	ra, okA := new(big.Rat).SetString(a.String())
	rb, okB := new(big.Rat).SetString(b.String())
	if !okA || !okB {
		return false
	}

	return ra.Cmp(rb) == 0
}
