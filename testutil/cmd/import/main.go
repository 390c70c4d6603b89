// Package main imports a CLEF file into the PostgreSQL table the clef query engine reads from.
//
// Usage: TEST_POSTGRES_DSN=postgres://... go run ./testutil/cmd/import [FILE]
//
// FILE defaults to testutil/fixtures/events.clef as written by testutil/cmd/generate.
// The table clef_events is created if needed and truncated before the import.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/testutil/postgresengine/config"
)

const (
	defaultInputFile = "testutil/fixtures/events.clef"
	tableName        = "clef_events"
	documentColumn   = "document"
	batchSize        = 10000
)

const prepareTableScript = `
CREATE TABLE IF NOT EXISTS clef_events (
    id       bigserial PRIMARY KEY,
    document jsonb     NOT NULL
);

DROP INDEX IF EXISTS idx_clef_events_level;
DROP INDEX IF EXISTS idx_clef_events_document_gin;

TRUNCATE TABLE clef_events RESTART IDENTITY;
`

const createIndexesScript = `
CREATE INDEX idx_clef_events_level ON clef_events ((document ->> '@l'));
CREATE INDEX idx_clef_events_document_gin ON clef_events USING gin (document jsonb_path_ops);

ANALYZE clef_events;
`

func main() {
	inputFile := defaultInputFile
	if len(os.Args) > 1 {
		inputFile = os.Args[1]
	}

	if err := importCLEFFile(context.Background(), inputFile); err != nil {
		log.Fatalf("Error importing CLEF data: %v", err)
	}
}

func importCLEFFile(ctx context.Context, inputFile string) error {
	dsn, ok := config.PostgresTestDSN()
	if !ok {
		return fmt.Errorf("%s is not set", config.EnvTestDSN)
	}

	connPool, err := config.PostgresPGXPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer connPool.Close()

	parser, err := clef.NewParser(inputFile)
	if err != nil {
		return err
	}

	fmt.Println("Preparing table...")
	if _, err = connPool.Exec(ctx, prepareTableScript); err != nil {
		return fmt.Errorf("failed to prepare table: %w", err)
	}

	start := time.Now()
	imported := int64(0)
	batch := make([][]any, 0, batchSize)

	for event, iterErr := range parser.Iter() {
		if iterErr != nil {
			return iterErr
		}

		document, renderErr := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event.ToCLEF())
		if renderErr != nil {
			return fmt.Errorf("failed to render document: %w", renderErr)
		}

		batch = append(batch, []any{document})

		if len(batch) == batchSize {
			if imported, err = copyBatch(ctx, connPool, batch, imported); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if imported, err = copyBatch(ctx, connPool, batch, imported); err != nil {
		return err
	}

	fmt.Println("Creating indexes...")
	if _, err = connPool.Exec(ctx, createIndexesScript); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	fmt.Printf("Successfully imported %d events from %s in %s\n", imported, inputFile, time.Since(start).Round(time.Millisecond))

	return nil
}

func copyBatch(ctx context.Context, connPool *pgxpool.Pool, batch [][]any, imported int64) (int64, error) {
	if len(batch) == 0 {
		return imported, nil
	}

	copied, err := connPool.CopyFrom(ctx, pgx.Identifier{tableName}, []string{documentColumn}, pgx.CopyFromRows(batch))
	if err != nil {
		return imported, fmt.Errorf("failed to copy batch: %w", err)
	}

	return imported + copied, nil
}
