// Package promadapters provides a Prometheus implementation of clef.MetricsCollector.
//
// Instruments are created on first use and registered with the given prometheus.Registerer:
//   - RecordDuration -> HistogramVec, observed in seconds
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// The label names of an instrument are fixed by its first observation.
// Later observations with a different label set are dropped.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	collector := promadapters.NewMetricsCollector(registry, "")
//	parser, _ := clef.NewParser("app.clef", clef.WithMetrics(collector))
package promadapters
