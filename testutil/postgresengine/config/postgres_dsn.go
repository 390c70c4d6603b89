package config

import (
	"os"
)

// EnvTestDSN names the environment variable holding the DSN of the test database.
const EnvTestDSN = "TEST_POSTGRES_DSN"

// PostgresTestDSN returns the DSN of the test database and whether one is configured.
func PostgresTestDSN() (string, bool) {
	dsn := os.Getenv(EnvTestDSN)

	return dsn, dsn != ""
}
