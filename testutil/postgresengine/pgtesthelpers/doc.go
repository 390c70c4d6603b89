// Package pgtesthelpers provides test utilities for PostgreSQL query engine testing with multi-adapter support.
//
// This package enables testing across different PostgreSQL drivers (pgx, sql.DB, sqlx.DB) through
// a unified Wrapper interface. Test adapter selection is controlled via the ADAPTER_TYPE environment
// variable.
//
// Adapter Types:
//
//	pgx.pool: wraps pgx.Pool
//	sql.db: wraps database/sql with the lib/pq driver
//	sqlx.db: wraps sqlx.DB with the lib/pq driver
//
// Utility Functions:
//
//	CreateWrapperWithTestConfig: creates the wrapper selected by ADAPTER_TYPE, skips without TEST_POSTGRES_DSN
//	GivenDocumentTable: creates a table with a unique name, filled with CLEF lines, dropped on cleanup
//
// Environment Variables:
//
//	ADAPTER_TYPE: selects adapter (pgx.pool, sql.db, sqlx.db), default pgx.pool
//	TEST_POSTGRES_DSN: PostgreSQL DSN, tests are skipped when it is not set
package pgtesthelpers
