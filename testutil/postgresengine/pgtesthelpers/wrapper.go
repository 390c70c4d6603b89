package pgtesthelpers

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/clef-go/clef/postgresengine"
	"github.com/AntonStoeckl/clef-go/testutil/postgresengine/config"
)

// Adapter type constants
const (
	envAdapterType = "ADAPTER_TYPE"
	typePGXPool    = "pgx.pool"
	typeSQLDB      = "sql.db"
	typeSQLXDB     = "sqlx.db"
)

// Wrapper abstracts over the different database handles a QueryEngine can be created from.
type Wrapper interface {
	NewQueryEngine(options ...postgresengine.Option) (postgresengine.QueryEngine, error)
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
}

func (w *PGXPoolWrapper) NewQueryEngine(options ...postgresengine.Option) (postgresengine.QueryEngine, error) {
	return postgresengine.NewQueryEngineFromPGXPool(w.pool, options...)
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
}

func (w *SQLDBWrapper) NewQueryEngine(options ...postgresengine.Option) (postgresengine.QueryEngine, error) {
	return postgresengine.NewQueryEngineFromSQLDB(w.db, options...)
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
}

func (w *SQLXWrapper) NewQueryEngine(options ...postgresengine.Option) (postgresengine.QueryEngine, error) {
	return postgresengine.NewQueryEngineFromSQLX(w.db, options...)
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the wrapper selected by ADAPTER_TYPE and closes it on cleanup.
// The test is skipped when no test database is configured.
func CreateWrapperWithTestConfig(t testing.TB) Wrapper {
	t.Helper()

	dsn, ok := config.PostgresTestDSN()
	if !ok {
		t.Skipf("%s is not set, skipping PostgreSQL test", config.EnvTestDSN)
	}

	ctx := context.Background()
	var wrapper Wrapper

	switch os.Getenv(envAdapterType) {
	case typeSQLDB:
		db, err := config.PostgresSQLDB(ctx, dsn)
		require.NoError(t, err, "error in arranging test database")
		wrapper = &SQLDBWrapper{db: db}

	case typeSQLXDB:
		db, err := config.PostgresSQLX(ctx, dsn)
		require.NoError(t, err, "error in arranging test database")
		wrapper = &SQLXWrapper{db: db}

	case "", typePGXPool:
		pool, err := config.PostgresPGXPool(ctx, dsn)
		require.NoError(t, err, "error in arranging test database")
		wrapper = &PGXPoolWrapper{pool: pool}

	default:
		t.Fatalf("unsupported %s: %q", envAdapterType, os.Getenv(envAdapterType))
	}

	t.Cleanup(wrapper.Close)

	return wrapper
}
