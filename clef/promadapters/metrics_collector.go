package promadapters

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const helpPrefix = "clef metric "

// MetricsCollector implements clef.MetricsCollector on top of Prometheus vectors.
// It is safe for concurrent use.
type MetricsCollector struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector creates a collector which registers its instruments with registerer.
// A non-empty namespace is prepended to every metric name.
func NewMetricsCollector(registerer prometheus.Registerer, namespace string) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		namespace:  namespace,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration observes the duration in seconds.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	histogram := m.getOrCreateHistogram(metricName, labels)
	if histogram == nil {
		return
	}

	if observer, err := histogram.GetMetricWith(labels); err == nil {
		observer.Observe(duration.Seconds())
	}
}

// IncrementCounter adds one to the counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	counter := m.getOrCreateCounter(metricName, labels)
	if counter == nil {
		return
	}

	if c, err := counter.GetMetricWith(labels); err == nil {
		c.Inc()
	}
}

// RecordValue sets the gauge to value.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	gauge := m.getOrCreateGauge(metricName, labels)
	if gauge == nil {
		return
	}

	if g, err := gauge.GetMetricWith(labels); err == nil {
		g.Set(value)
	}
}

func (m *MetricsCollector) getOrCreateHistogram(metricName string, labels map[string]string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[metricName]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      metricName,
		Help:      helpPrefix + metricName,
		Buckets:   prometheus.DefBuckets,
	}, labelNames(labels))

	registered, ok := register(m.registerer, histogram).(*prometheus.HistogramVec)
	if !ok {
		return nil
	}

	m.histograms[metricName] = registered

	return registered
}

func (m *MetricsCollector) getOrCreateCounter(metricName string, labels map[string]string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[metricName]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      metricName,
		Help:      helpPrefix + metricName,
	}, labelNames(labels))

	registered, ok := register(m.registerer, counter).(*prometheus.CounterVec)
	if !ok {
		return nil
	}

	m.counters[metricName] = registered

	return registered
}

func (m *MetricsCollector) getOrCreateGauge(metricName string, labels map[string]string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[metricName]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      metricName,
		Help:      helpPrefix + metricName,
	}, labelNames(labels))

	registered, ok := register(m.registerer, gauge).(*prometheus.GaugeVec)
	if !ok {
		return nil
	}

	m.gauges[metricName] = registered

	return registered
}

// register registers collector and returns it, or the collector registered earlier under the same name.
// It returns nil if the registration fails for any other reason.
func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		return alreadyRegistered.ExistingCollector
	}

	return nil
}

func labelNames(labels map[string]string) []string {
	return slices.Sorted(maps.Keys(labels))
}
