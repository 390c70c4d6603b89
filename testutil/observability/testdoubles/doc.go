// Package testdoubles provides test doubles (spies) for the observability interfaces of package clef
// and its query engine.
//
// This package contains spy implementations for:
//   - LoggerSpy: captures Debug/Info/Warn/Error calls with their key/value arguments
//   - ContextualLoggerSpy: captures context-aware logging calls together with their context
//   - MetricsCollectorSpy: captures metrics recording calls for verification
//
// These test doubles enable testing of logging and metrics instrumentation
// without requiring actual logging or telemetry backends.
package testdoubles
