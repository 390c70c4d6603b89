package clef

import (
	"fmt"
	"maps"

	jsoniter "github.com/json-iterator/go"
)

const (
	toMapKeyReified  = "reified"
	toMapKeyUser     = "user"
	goStringPreview  = 50
	absentFieldValue = "<nil>"
)

// jsonAPI decodes numbers as json.Number so that integers beyond 2^53 survive unchanged.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Event is one CLEF log event, split into reified and user fields.
//
// An Event is constructed once from a decoded JSON object and is not mutated afterward.
// All map-returning accessors hand out copies.
type Event struct {
	reified map[Field]any
	user    map[string]any
}

// NewEvent classifies the decoded JSON object raw and builds an Event from it.
func NewEvent(raw map[string]any) Event {
	reified, user := ClassifyFields(raw)

	return Event{reified: reified, user: user}
}

// BuildEvent builds an Event from already classified fields.
// Keys of user which are reified wire keys are ignored, so that the partition stays disjoint.
func BuildEvent(reified map[Field]any, user map[string]any) Event {
	event := Event{
		reified: make(map[Field]any, len(reified)),
		user:    make(map[string]any, len(user)),
	}

	for field, val := range reified {
		if IsReified(string(field)) {
			event.reified[field] = val
		}
	}

	for key, val := range user {
		if !IsReified(key) {
			event.user[key] = val
		}
	}

	return event
}

// Timestamp returns the raw "@t" text, not parsed.
func (e Event) Timestamp() (string, bool) {
	return e.stringField(FieldTimestamp)
}

// Message returns the rendered message "@m".
func (e Event) Message() (string, bool) {
	return e.stringField(FieldMessage)
}

// MessageTemplate returns the message template "@mt".
func (e Event) MessageTemplate() (string, bool) {
	return e.stringField(FieldMessageTemplate)
}

// Level returns the level "@l" exactly as written in the log.
func (e Event) Level() (string, bool) {
	return e.stringField(FieldLevel)
}

// Exception returns the exception text "@x".
func (e Event) Exception() (string, bool) {
	return e.stringField(FieldException)
}

// EventID returns the raw event id, which may be any JSON scalar.
func (e Event) EventID() (any, bool) {
	return e.Reified(FieldEventID)
}

// Renderings returns the raw renderings value, usually a JSON array.
func (e Event) Renderings() (any, bool) {
	return e.Reified(FieldRenderings)
}

// Reified returns the raw value of a reified field.
func (e Event) Reified(field Field) (any, bool) {
	val, ok := e.reified[field]

	return val, ok
}

// ReifiedFields returns a copy of all reified fields of the event.
func (e Event) ReifiedFields() map[Field]any {
	return maps.Clone(e.reified)
}

// UserField returns the value of one user field.
func (e Event) UserField(key string) (any, bool) {
	val, ok := e.user[key]

	return val, ok
}

// UserFields returns a copy of the user fields of the event.
func (e Event) UserFields() map[string]any {
	if e.user == nil {
		return map[string]any{}
	}

	return maps.Clone(e.user)
}

// ToMap returns the event as {"reified": {...}, "user": {...}} with reified fields keyed by wire key.
func (e Event) ToMap() map[string]any {
	reified := make(map[string]any, len(e.reified))
	for field, val := range e.reified {
		reified[string(field)] = val
	}

	return map[string]any{
		toMapKeyReified: reified,
		toMapKeyUser:    e.UserFields(),
	}
}

// ToCLEF returns the event as one CLEF object again, with "@"-prefixed user keys escaped to "@@".
func (e Event) ToCLEF() map[string]any {
	object := make(map[string]any, len(e.reified)+len(e.user))

	for field, val := range e.reified {
		object[string(field)] = val
	}

	for key, val := range e.user {
		object[EscapeUserKey(key)] = val
	}

	return object
}

// ToJSON renders ToMap as JSON with sorted object keys.
// HTML characters are not escaped and numbers keep the digits they were parsed with.
func (e Event) ToJSON() (string, error) {
	return jsonAPI.MarshalToString(e.ToMap())
}

// String renders the event as "[timestamp] level: message".
func (e Event) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.display(FieldTimestamp), e.display(FieldLevel), e.display(FieldMessage))
}

func (e Event) GoString() string {
	preview := absentFieldValue
	if msg, ok := e.Message(); ok {
		runes := []rune(msg)
		if len(runes) > goStringPreview {
			runes = runes[:goStringPreview]
		}
		preview = string(runes)
	}

	return fmt.Sprintf("clef.Event{timestamp=%s, level=%s, message=%s...}", e.display(FieldTimestamp), e.display(FieldLevel), preview)
}

// stringField returns a reified field only when it is present and holds a string.
func (e Event) stringField(field Field) (string, bool) {
	val, ok := e.reified[field]
	if !ok {
		return "", false
	}

	s, ok := val.(string)

	return s, ok
}

func (e Event) display(field Field) string {
	val, ok := e.reified[field]
	if !ok || val == nil {
		return absentFieldValue
	}

	return fmt.Sprint(val)
}
