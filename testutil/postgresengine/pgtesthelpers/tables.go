package pgtesthelpers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/clef-go/testutil/clef/fixtures"
	"github.com/AntonStoeckl/clef-go/testutil/postgresengine/config"
)

// GivenDocumentTable creates a table (id bigserial, document jsonb) with a unique name,
// inserts one row per CLEF line in the given order, and drops the table on cleanup.
func GivenDocumentTable(t testing.TB, lines ...string) string {
	t.Helper()

	dsn, ok := config.PostgresTestDSN()
	if !ok {
		t.Skipf("%s is not set, skipping PostgreSQL test", config.EnvTestDSN)
	}

	ctx := context.Background()
	pool, err := config.PostgresPGXPool(ctx, dsn)
	require.NoError(t, err, "error in arranging test database")
	defer pool.Close()

	tableName := "clef_events_" + strings.ReplaceAll(fixtures.GivenUniqueID(t).String(), "-", "")
	identifier := pgx.Identifier{tableName}.Sanitize()

	_, err = pool.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (id bigserial PRIMARY KEY, document jsonb NOT NULL)", identifier))
	require.NoError(t, err, "error in arranging test table")

	t.Cleanup(func() {
		cleanupPool, cleanupErr := config.PostgresPGXPool(context.Background(), dsn)
		if cleanupErr != nil {
			return
		}
		defer cleanupPool.Close()

		_, _ = cleanupPool.Exec(context.Background(), "DROP TABLE IF EXISTS "+identifier)
	})

	for _, line := range lines {
		_, err = pool.Exec(ctx, fmt.Sprintf("INSERT INTO %s (document) VALUES ($1::jsonb)", identifier), line)
		require.NoError(t, err, "error in arranging test data")
	}

	return tableName
}
