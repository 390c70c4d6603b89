package postgresengine

import (
	"errors"
)

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil database handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned by WithTableName for an empty name.
	ErrEmptyTableName = errors.New("empty table name supplied")

	// ErrEmptyColumnName is returned by WithDocumentColumn and WithOrderColumn for an empty name.
	ErrEmptyColumnName = errors.New("empty column name supplied")

	// ErrBuildingQueryFailed is returned when the criteria can not be translated to SQL.
	ErrBuildingQueryFailed = errors.New("building the query failed")

	// ErrQueryingEventsFailed is returned when the database rejects the query or fails while streaming rows.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrScanningDBRowFailed is returned when a result row can not be scanned.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrDecodingDocumentFailed is returned when a stored document is not a JSON object.
	ErrDecodingDocumentFailed = errors.New("decoding stored document failed")
)
