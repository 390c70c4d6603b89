// Package main provides clefquery, a command line tool which filters Compact Log Event Format (CLEF) files
// and CLEF documents stored in PostgreSQL.
package main

import (
	"os"

	"github.com/AntonStoeckl/clef-go/example/clefquery/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
