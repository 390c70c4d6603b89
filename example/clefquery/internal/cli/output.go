package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/clef-go/clef"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// ErrUnknownOutputFormat is returned for output formats other than text and json.
var ErrUnknownOutputFormat = errors.New("unknown output format")

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutputFormat, format)
	}
}

// writeEvents prints one event per line, "[timestamp] level: message" for text or the event's JSON.
func writeEvents(w io.Writer, format string, events clef.Events) error {
	for _, event := range events.All() {
		line := event.String()

		if format == outputJSON {
			var err error
			if line, err = event.ToJSON(); err != nil {
				return fmt.Errorf("rendering event: %w", err)
			}
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// viewFlags select which part of the result is printed.
type viewFlags struct {
	head    int
	tail    int
	reverse bool
}

func (vf *viewFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&vf.head, "head", 0, "print only the first N matching events")
	flags.IntVar(&vf.tail, "tail", 0, "print only the last N matching events")
	flags.BoolVar(&vf.reverse, "reverse", false, "print the newest event first")
}

func (vf *viewFlags) apply(events clef.Events) clef.Events {
	if vf.head > 0 {
		events = events.Slice(clef.Open, vf.head)
	}

	if vf.tail > 0 {
		events = events.Slice(-vf.tail, clef.Open)
	}

	if vf.reverse {
		events = events.Reversed()
	}

	return events
}
