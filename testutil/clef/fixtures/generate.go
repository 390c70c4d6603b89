package fixtures

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
)

const numRequestIDs = 100

var (
	endpoints = []string{"/api/orders", "/api/orders/{id}", "/api/customers", "/api/invoices", "/health"}
	services  = []string{"gateway", "orders", "billing"}
)

// GenerateMixedEvents returns n CLEF objects with increasing timestamps from start on.
// About 80% are request logs at Information level, 12% slow requests at Warning level
// and 8% failed requests at Error level carrying an exception and an event id.
// Request ids are drawn from a small pool, so user field criteria match more than one event.
func GenerateMixedEvents(n int, start time.Time, rng *rand.Rand) []Fields {
	requestIDs := make([]string, numRequestIDs)
	for i := range requestIDs {
		requestIDs[i] = uuid.Must(uuid.NewRandomFromReader(rngReader{rng})).String()
	}

	fakeClock := start.UTC()
	events := make([]Fields, 0, n)

	for i := 0; i < n; i++ {
		fakeClock = fakeClock.Add(time.Duration(rng.IntN(2000)+1) * time.Millisecond)

		requestID := requestIDs[rng.IntN(len(requestIDs))]
		endpoint := endpoints[rng.IntN(len(endpoints))]
		elapsed := float64(rng.IntN(50000)) / 100

		fields := Fields{
			"@t":          fakeClock.Format(time.RFC3339Nano),
			"@mt":         "HTTP {Method} {Path} responded {StatusCode} in {Elapsed:0.00} ms",
			"Method":      "GET",
			"Path":        endpoint,
			"RequestId":   requestID,
			"Elapsed":     elapsed,
			"StatusCode":  200,
			"@@Source":    services[rng.IntN(len(services))],
			"Environment": "Production",
		}

		switch action := rng.IntN(100); {
		case action < 80:
			fields["@l"] = "Information"
		case action < 92:
			fields["@l"] = "Warning"
			fields["@r"] = []any{fmt.Sprintf("%.2f", elapsed)}
		default:
			fields["@l"] = "Error"
			fields["StatusCode"] = 500
			fields["@x"] = "System.TimeoutException: The operation has timed out.\n   at Api.Handler.Invoke()"
			fields["@i"] = fmt.Sprintf("%08x", rng.Uint32())
		}

		fields["@m"] = fmt.Sprintf("HTTP GET %s responded %v in %.2f ms", endpoint, fields["StatusCode"], elapsed)
		events = append(events, fields)
	}

	return events
}

// GivenManyEventLines renders GenerateMixedEvents with a fixed seed, starting at ScenarioStart.
func GivenManyEventLines(t testing.TB, n int) []string {
	t.Helper()

	start, _ := time.Parse(time.RFC3339, ScenarioStart)
	events := GenerateMixedEvents(n, start, rand.New(rand.NewPCG(1, 2)))

	lines := make([]string, 0, n)
	for _, fields := range events {
		lines = append(lines, Line(t, fields))
	}

	return lines
}

// rngReader feeds uuid generation from rng, so that a seeded rng yields the same ids.
type rngReader struct {
	rng *rand.Rand
}

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.UintN(256))
	}

	return len(p), nil
}
