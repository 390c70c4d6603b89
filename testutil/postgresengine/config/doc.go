// Package config provides PostgreSQL database configuration for query engine testing.
//
// It contains factory functions for the supported adapters (pgx.Pool, sql.DB, sqlx.DB).
// The DSN is taken from TEST_POSTGRES_DSN.
package config
