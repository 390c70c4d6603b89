package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	// ScenarioStart is the timestamp of the first event of GivenFiveLeveledEventLines.
	ScenarioStart = "2026-01-24T10:00:00Z"

	clefFileName = "events.clef"
)

// ScenarioLevels are the levels of GivenFiveLeveledEventLines in order.
var ScenarioLevels = []string{"Error", "Warning", "Information", "Error", "Fatal"}

// Fields is one CLEF object before it is rendered as a line.
type Fields = map[string]any

// Line renders fields as one CLEF line (without line break).
func Line(t testing.TB, fields Fields) string {
	t.Helper()

	line, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(fields)
	if err != nil {
		t.Fatalf("failed to render clef line: %v", err)
	}

	return line
}

// GivenClefFile writes lines, each followed by a line break, into a fresh temporary file and returns its path.
func GivenClefFile(t testing.TB, lines ...string) string {
	t.Helper()

	return GivenRawFile(t, []byte(strings.Join(lines, "\n")+"\n"))
}

// GivenRawFile writes content unchanged into a fresh temporary file and returns its path.
func GivenRawFile(t testing.TB, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), clefFileName)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write clef file: %v", err)
	}

	return path
}

// GivenUniqueID returns a new time-ordered UUID.
func GivenUniqueID(t testing.TB) uuid.UUID {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("failed to generate uuid: %v", err)
	}

	return id
}

// ScenarioTimestamp returns the timestamp of the n-th (0-based) scenario event.
func ScenarioTimestamp(n int) string {
	start, _ := time.Parse(time.RFC3339, ScenarioStart)

	return start.Add(time.Duration(n) * time.Second).UTC().Format(time.RFC3339)
}

// GivenFiveLeveledEventLines returns five CLEF lines one second apart starting at ScenarioStart,
// with the levels of ScenarioLevels, a message "Event N" (1-based) and a unique RequestId each.
func GivenFiveLeveledEventLines(t testing.TB) []string {
	t.Helper()

	lines := make([]string, 0, len(ScenarioLevels))
	for i, level := range ScenarioLevels {
		lines = append(lines, Line(t, Fields{
			"@t":          ScenarioTimestamp(i),
			"@l":          level,
			"@m":          "Event " + string(rune('1'+i)),
			"@mt":         "Event {Number}",
			"Number":      i + 1,
			"RequestId":   GivenUniqueID(t).String(),
			"Environment": "Production",
		}))
	}

	return lines
}

// BuildRequestFailedLine renders a typical error event with exception, event id, renderings
// and an escaped user field "@@Source".
func BuildRequestFailedLine(t testing.TB, timestamp string, requestID uuid.UUID, elapsedMS float64) string {
	t.Helper()

	return Line(t, Fields{
		"@t":        timestamp,
		"@l":        "Error",
		"@mt":       "Request {RequestId} failed after {Elapsed:0.0} ms",
		"@m":        "Request " + requestID.String() + " failed after " + jsoniterFloat(elapsedMS) + " ms",
		"@x":        "System.TimeoutException: The operation has timed out.\n   at Api.Handler.Invoke()",
		"@i":        "a1b2c3d4",
		"@r":        []any{jsoniterFloat(elapsedMS)},
		"@@Source":  "gateway",
		"RequestId": requestID.String(),
		"Elapsed":   elapsedMS,
	})
}

func jsoniterFloat(f float64) string {
	s, _ := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(f)

	return s
}
