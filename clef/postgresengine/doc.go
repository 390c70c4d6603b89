// Package postgresengine queries CLEF events which were ingested into PostgreSQL as jsonb documents.
//
// Each row holds one CLEF object exactly as it appears in the file, wire keys included ("@t", "@@Source").
// The engine translates clef.Criteria into one SELECT, so the database does the filtering,
// and returns the matching rows as clef.Events in the order of the order column.
//
// The time range guard uses pg_input_is_valid, so PostgreSQL 16 or later is required.
//
// Supported database adapters: pgxpool.Pool (optionally with a read replica), sql.DB, and sqlx.DB.
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	engine, _ := postgresengine.NewQueryEngineFromPGXPool(
//		db,
//		postgresengine.WithTableName("app_logs"),
//		postgresengine.WithLogger(slog.Default()),
//	)
//
//	criteria := clef.BuildFilter(clef.Events{}).Level("Error").StartTime("2026-01-24T00:00:00Z")
//	events, err := engine.QueryFilter(ctx, criteria)
//
// Differences to the in-memory filter:
//   - patterns are evaluated by PostgreSQL (POSIX regular expressions)
//   - user fields use jsonb containment, so array values match when they contain the expected elements
//   - timestamps without offset are interpreted in the session time zone
//   - rows with a timestamp PostgreSQL cannot read are excluded instead of skipped with a warning
package postgresengine
