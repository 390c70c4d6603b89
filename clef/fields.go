package clef

import (
	"strings"
)

// Field is the wire key of one of the reified (standard) CLEF fields.
type Field string

const (
	FieldTimestamp       Field = "@t"
	FieldMessage         Field = "@m"
	FieldMessageTemplate Field = "@mt"
	FieldLevel           Field = "@l"
	FieldException       Field = "@x"
	FieldEventID         Field = "@i"
	FieldRenderings      Field = "@r"
)

// escapePrefix marks a user field whose name itself starts with '@'.
const escapePrefix = "@@"

var reifiedFields = []Field{
	FieldTimestamp,
	FieldMessage,
	FieldMessageTemplate,
	FieldLevel,
	FieldException,
	FieldEventID,
	FieldRenderings,
}

// ReifiedFields returns the closed set of reified fields in their documented order.
func ReifiedFields() []Field {
	fields := make([]Field, len(reifiedFields))
	copy(fields, reifiedFields)

	return fields
}

// IsReified reports whether key is exactly one of the reified wire keys.
func IsReified(key string) bool {
	switch Field(key) {
	case FieldTimestamp, FieldMessage, FieldMessageTemplate, FieldLevel, FieldException, FieldEventID, FieldRenderings:
		return true
	default:
		return false
	}
}

// ClassifyFields partitions one decoded CLEF object into reified and user fields.
//
//   - a key equal to a reified wire key is kept as reified field
//   - a key starting with "@@" becomes a user field with one leading '@' removed
//   - every other key is a user field as is
//
// When an escaped key and a literal key name the same user field, e.g. "@@Foo" and "@Foo",
// the escaped key wins and the literal one is dropped, whatever the iteration order.
// Values are passed through untouched.
func ClassifyFields(raw map[string]any) (map[Field]any, map[string]any) {
	reified := make(map[Field]any)
	user := make(map[string]any, len(raw))

	for key, val := range raw {
		switch {
		case IsReified(key):
			reified[Field(key)] = val

		case strings.HasPrefix(key, escapePrefix):
			user[key[1:]] = val

		case strings.HasPrefix(key, "@") && hasKey(raw, "@"+key):
			// shadowed by its escaped form

		default:
			user[key] = val
		}
	}

	return reified, user
}

func hasKey(raw map[string]any, key string) bool {
	_, ok := raw[key]

	return ok
}

// EscapeUserKey returns the wire key of the user field key, doubling a leading '@'.
func EscapeUserKey(key string) string {
	if strings.HasPrefix(key, "@") {
		return "@" + key
	}

	return key
}
