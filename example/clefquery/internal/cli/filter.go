package cli

import (
	"fmt"
	"io"
	"iter"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/clef-go/clef"
)

const (
	stdinPath = "-"

	logMsgFilterFinished = "filter finished"
)

func newFilterCommand(a *app) *cobra.Command {
	var criteria criteriaFlags
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Print the events of a CLEF file which match all given criteria",
		Long: `Print the events of a CLEF file which match all given criteria, in file order.
Use - as FILE to read from standard input.

Events with a malformed timestamp are skipped when a time bound is set, they are
reported as warnings on stderr.`,
		Example: `  clefquery filter app.clef --level Error --start 2026-01-24T00:00:00Z
  clefquery filter app.clef --field Environment=Production --field Attempt=3 -o json
  clefquery filter app.clef --queries queries.yaml --query production-errors --tail 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := a.v.GetString(keyOutput)
			if err := validateOutput(format); err != nil {
				return err
			}

			builder, err := a.filterBuilder(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			builder, err = criteria.apply(builder, a.v.GetString(keyQueries))
			if err != nil {
				return err
			}

			filtered, report, err := builder.FilterWithReport()
			if err != nil {
				return err
			}

			a.logger.Info(
				logMsgFilterFinished,
				"scanned", report.Scanned,
				"matched", report.Matched,
				"skipped", report.Skipped,
				"warnings", len(report.Warnings),
			)

			return writeEvents(cmd.OutOrStdout(), format, view.apply(filtered))
		},
	}

	criteria.register(cmd)
	view.register(cmd)

	return cmd
}

func newCountCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count FILE",
		Short: "Print the number of events in a CLEF file",
		Long:  "Print the number of events in a CLEF file. The file is streamed, use - to read from standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.eventSource(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			count := 0
			for _, err := range events {
				if err != nil {
					return err
				}
				count++
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), count)

			return err
		},
	}
}

// filterBuilder parses the whole source and returns a FilterBuilder over its events.
func (a *app) filterBuilder(path string, stdin io.Reader) (*clef.FilterBuilder, error) {
	if path == stdinPath {
		events := clef.NewEvents()

		for event, err := range clef.ParseReader(stdin, a.clefOptions()...) {
			if err != nil {
				return nil, err
			}

			events.Add(event)
		}

		return clef.BuildFilter(events, a.clefOptions()...), nil
	}

	parser, err := clef.NewParser(path, a.clefOptions()...)
	if err != nil {
		return nil, err
	}

	events, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	return parser.EventFilter(events), nil
}

// eventSource returns the lazy event sequence of path, or of stdin for "-".
func (a *app) eventSource(path string, stdin io.Reader) (iter.Seq2[clef.Event, error], error) {
	if path == stdinPath {
		return clef.ParseReader(stdin, a.clefOptions()...), nil
	}

	parser, err := clef.NewParser(path, a.clefOptions()...)
	if err != nil {
		return nil, err
	}

	return parser.Iter(), nil
}
