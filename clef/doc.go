// Package clef parses CLEF (Compact Log Event Format) files and queries the parsed events.
//
// CLEF is newline-delimited JSON, one log event per line. Keys starting with a single '@' are
// reified (standard) fields, every other key is a user field:
//   - @t: timestamp (ISO-8601)
//   - @m: rendered message
//   - @mt: message template
//   - @l: level
//   - @x: exception
//   - @i: event id
//   - @r: renderings
//
// A user field whose name starts with '@' is written with an additional '@' on the wire ("@@Foo"),
// and is exposed as "@Foo".
//
// Key types:
//   - Parser: reads a CLEF file, either in bulk (Parse) or lazily (Iter)
//   - Event: one log event with reified and user fields
//   - Events: an ordered, sliceable collection of events
//   - FilterBuilder: fluent AND-composed filter over Events
//
// Common usage pattern:
//
//	parser, _ := clef.NewParser("application.clef")
//	events, err := parser.Parse()
//	if err != nil {
//		// handle error, errors.Is(err, clef.ErrParse) matches every failure of this package
//	}
//
//	errorsInProduction, err := parser.EventFilter(events).
//		Level("Error").
//		StartTime("2026-01-24T00:00:00Z").
//		UserFields(map[string]any{"Environment": "Production"}).
//		Filter()
//
//	// stream large files and stop early
//	for event, err := range parser.Iter() {
//		if err != nil {
//			break
//		}
//		if level, _ := event.Level(); level == "Fatal" {
//			break
//		}
//	}
package clef
