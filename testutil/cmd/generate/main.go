// Package main generates a large CLEF fixture file for benchmarks and for manual tests of clefquery.
//
// Run it from anywhere inside the module, the file is written to testutil/fixtures/events.clef.
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/clef-go/testutil/clef/fixtures"
)

const (
	tenThousand     = 10000
	hundredThousand = tenThousand * 10
	million         = hundredThousand * 10

	// NumEvents - Number of CLEF events to be created - adapt this as needed
	//
	// WARNING
	//
	// One million events create a CLEF file of roughly 450MB, the CSV file is about the same size.
	// The in-memory parser holds all events of a file, so keep an eye on the memory of the machine.
	NumEvents = 1 * million

	// WriteCSVFileEnabled determines whether the documents are also written to a CSV file,
	// which can be loaded with COPY clef_events (document) FROM ... WITH (FORMAT csv).
	WriteCSVFileEnabled = false

	// Seed makes repeated runs produce the same file.
	Seed = 42

	OutputDir      = "testutil/fixtures" // The directory to put the fixture data into - should be fine as is.
	OutputCLEFFile = "events.clef"       // The CLEF file to put the fixture data into - should be fine as is.
	OutputCSVFile  = "events.csv"        // The CSV file to put the fixture data into - should be fine as is.
)

type writers struct {
	clefFile   *os.File
	clefWriter *bufio.Writer
	csvFile    *os.File
	csvWriter  *csv.Writer
	eventCount int
}

func main() {
	if err := generateFixtureData(); err != nil {
		panic(fmt.Sprintf("Error generating fixture data: %v\n", err))
	}
}

func generateFixtureData() error {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	outputDir := filepath.Join(projectRoot, OutputDir)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w, err := setupWriters(outputDir)
	if err != nil {
		return err
	}
	defer closeWriters(w)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := fixtures.GenerateMixedEvents(NumEvents, start, rand.New(rand.NewPCG(Seed, Seed)))

	for _, fields := range events {
		if err := writeEvent(w, fields); err != nil {
			return err
		}
	}

	fmt.Printf("Successfully generated %d events and wrote CLEF to %s\n", w.eventCount, filepath.Join(outputDir, OutputCLEFFile))
	if WriteCSVFileEnabled {
		fmt.Printf("Successfully generated %d events and wrote CSV to %s\n", w.eventCount, filepath.Join(outputDir, OutputCSVFile))
	}

	return nil
}

func setupWriters(outputDir string) (*writers, error) {
	w := &writers{}

	clefFile, err := os.Create(filepath.Join(outputDir, OutputCLEFFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create CLEF file: %w", err)
	}
	w.clefFile = clefFile
	w.clefWriter = bufio.NewWriter(clefFile)

	if WriteCSVFileEnabled {
		csvFile, err := os.Create(filepath.Join(outputDir, OutputCSVFile))
		if err != nil {
			_ = clefFile.Close() // makes no sense to handle this
			return nil, fmt.Errorf("failed to create CSV file: %w", err)
		}

		w.csvFile = csvFile
		w.csvWriter = csv.NewWriter(csvFile)
	}

	return w, nil
}

func closeWriters(w *writers) {
	if err := w.clefWriter.Flush(); err != nil {
		fmt.Printf("Failed to flush CLEF file: %v\n", err)
	}
	_ = w.clefFile.Close()

	if w.csvWriter != nil {
		w.csvWriter.Flush()
		_ = w.csvFile.Close()
	}
}

func writeEvent(w *writers, fields fixtures.Fields) error {
	line, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(fields)
	if err != nil {
		return fmt.Errorf("failed to render CLEF line: %w", err)
	}

	if _, err := w.clefWriter.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write CLEF line: %w", err)
	}

	if WriteCSVFileEnabled {
		if err := w.csvWriter.Write([]string{line}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.eventCount++

	return nil
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find project root (no go.mod found)")
}
