// Package fixtures provides CLEF test data: line builders, temporary CLEF files,
// and the canned event sets used across the test suites.
package fixtures
