// Package adapters provide database adapter implementations for the PostgreSQL query engine.
//
// The engine only reads, so every adapter implements the same small DBAdapter interface
// over pgxpool.Pool, sql.DB, or sqlx.DB.
package adapters
