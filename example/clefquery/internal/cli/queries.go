package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/clef-go/example/clefquery/internal/querydef"
)

func newQueriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queries",
		Short: "List the saved queries of the --queries file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.v.GetString(keyQueries)
			if path == "" {
				return ErrMissingQueriesFile
			}

			defs, err := querydef.Load(path)
			if err != nil {
				return err
			}

			for _, name := range defs.Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
