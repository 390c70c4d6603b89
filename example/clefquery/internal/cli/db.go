package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/clef/postgresengine"
)

const (
	keyPGDSN            = "pg-dsn"
	keyPGReplicaDSN     = "pg-replica-dsn"
	keyPGDriver         = "pg-driver"
	keyPGTable          = "pg-table"
	keyPGDocumentColumn = "pg-document-column"
	keyPGOrderColumn    = "pg-order-column"

	driverPGX  = "pgx"
	driverSQL  = "sql"
	driverSQLX = "sqlx"

	sqlDriverName = "postgres"
)

var (
	// ErrMissingDSN is returned by the db command without a connection string.
	ErrMissingDSN = errors.New("missing PostgreSQL connection string, set --pg-dsn or CLEFQ_PG_DSN")

	// ErrUnknownDriver is returned for drivers other than pgx, sql and sqlx.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrReplicaNeedsPGX is returned when a replica is configured for a driver other than pgx.
	ErrReplicaNeedsPGX = errors.New("a read replica is only supported with the pgx driver")
)

func newDBCommand(a *app) *cobra.Command {
	var criteria criteriaFlags
	var view viewFlags

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Print the CLEF documents stored in PostgreSQL which match all given criteria",
		Long: `Print the CLEF documents stored in a PostgreSQL jsonb column which match all given criteria,
in the order of the order column.

Patterns are evaluated as POSIX regular expressions by PostgreSQL, timestamps which
cannot be cast to timestamptz never match a time bound.`,
		Example: `  clefquery db --pg-dsn postgres://localhost/logs --level Error --field Environment=Production
  CLEFQ_PG_DSN=postgres://localhost/logs clefquery db --pg-driver sqlx --message "timed out"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := a.v.GetString(keyOutput)
			if err := validateOutput(format); err != nil {
				return err
			}

			builder, err := criteria.apply(clef.BuildFilter(clef.Events{}), a.v.GetString(keyQueries))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, closeDB, err := a.openQueryEngine(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			events, err := engine.QueryFilter(ctx, builder)
			if err != nil {
				return err
			}

			return writeEvents(cmd.OutOrStdout(), format, view.apply(events))
		},
	}

	flags := cmd.Flags()
	flags.String(keyPGDSN, "", "PostgreSQL connection string")
	flags.String(keyPGReplicaDSN, "", "connection string of a read replica which receives the queries (pgx only)")
	flags.String(keyPGDriver, driverPGX, "database driver: pgx, sql or sqlx")
	flags.String(keyPGTable, "clef_events", "table holding the CLEF documents")
	flags.String(keyPGDocumentColumn, "document", "jsonb column holding one CLEF document per row")
	flags.String(keyPGOrderColumn, "id", "column which defines the order of the events")

	criteria.register(cmd)
	view.register(cmd)

	return cmd
}

// openQueryEngine connects with the configured driver. The returned func releases the connection.
func (a *app) openQueryEngine(ctx context.Context) (postgresengine.QueryEngine, func(), error) {
	noop := func() {}

	dsn := a.v.GetString(keyPGDSN)
	if dsn == "" {
		return postgresengine.QueryEngine{}, noop, ErrMissingDSN
	}

	driver := a.v.GetString(keyPGDriver)
	replicaDSN := a.v.GetString(keyPGReplicaDSN)

	if replicaDSN != "" && driver != driverPGX {
		return postgresengine.QueryEngine{}, noop, ErrReplicaNeedsPGX
	}

	options := []postgresengine.Option{
		postgresengine.WithTableName(a.v.GetString(keyPGTable)),
		postgresengine.WithDocumentColumn(a.v.GetString(keyPGDocumentColumn)),
		postgresengine.WithOrderColumn(a.v.GetString(keyPGOrderColumn)),
		postgresengine.WithContextualLogger(a.logger),
	}

	if a.metrics != nil {
		options = append(options, postgresengine.WithMetrics(a.metrics))
	}

	switch driver {
	case driverPGX:
		return a.openPGX(ctx, dsn, replicaDSN, options)
	case driverSQL:
		return a.openSQLDB(ctx, dsn, options)
	case driverSQLX:
		return a.openSQLX(ctx, dsn, options)
	default:
		return postgresengine.QueryEngine{}, noop, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func (a *app) openPGX(
	ctx context.Context,
	dsn string,
	replicaDSN string,
	options []postgresengine.Option,
) (postgresengine.QueryEngine, func(), error) {
	primary, err := connectPGXPool(ctx, dsn)
	if err != nil {
		return postgresengine.QueryEngine{}, func() {}, fmt.Errorf("connecting to primary database: %w", err)
	}

	if replicaDSN == "" {
		engine, engineErr := postgresengine.NewQueryEngineFromPGXPool(primary, options...)
		if engineErr != nil {
			primary.Close()
			return postgresengine.QueryEngine{}, func() {}, engineErr
		}

		return engine, primary.Close, nil
	}

	replica, err := connectPGXPool(ctx, replicaDSN)
	if err != nil {
		primary.Close()
		return postgresengine.QueryEngine{}, func() {}, fmt.Errorf("connecting to replica database: %w", err)
	}

	closeBoth := func() {
		replica.Close()
		primary.Close()
	}

	engine, err := postgresengine.NewQueryEngineFromPGXPoolWithReplica(primary, replica, options...)
	if err != nil {
		closeBoth()
		return postgresengine.QueryEngine{}, func() {}, err
	}

	a.logger.Debug("using read replica for queries")

	return engine, closeBoth, nil
}

func connectPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, pingErr
	}

	return pool, nil
}

func (a *app) openSQLDB(ctx context.Context, dsn string, options []postgresengine.Option) (postgresengine.QueryEngine, func(), error) {
	db, err := sql.Open(sqlDriverName, dsn)
	if err != nil {
		return postgresengine.QueryEngine{}, func() {}, fmt.Errorf("opening database: %w", err)
	}

	closeDB := func() {
		if closeErr := db.Close(); closeErr != nil {
			a.logger.Warn("closing database failed", "error", closeErr.Error())
		}
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		closeDB()
		return postgresengine.QueryEngine{}, func() {}, fmt.Errorf("connecting to database: %w", pingErr)
	}

	engine, err := postgresengine.NewQueryEngineFromSQLDB(db, options...)
	if err != nil {
		closeDB()
		return postgresengine.QueryEngine{}, func() {}, err
	}

	return engine, closeDB, nil
}

func (a *app) openSQLX(ctx context.Context, dsn string, options []postgresengine.Option) (postgresengine.QueryEngine, func(), error) {
	db, err := sqlx.ConnectContext(ctx, sqlDriverName, dsn)
	if err != nil {
		return postgresengine.QueryEngine{}, func() {}, fmt.Errorf("connecting to database: %w", err)
	}

	closeDB := func() {
		if closeErr := db.Close(); closeErr != nil {
			a.logger.Warn("closing database failed", "error", closeErr.Error())
		}
	}

	engine, err := postgresengine.NewQueryEngineFromSQLX(db, options...)
	if err != nil {
		closeDB()
		return postgresengine.QueryEngine{}, func() {}, err
	}

	return engine, closeDB, nil
}
