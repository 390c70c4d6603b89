package clef

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// settings holds what the functional options configure for a Parser or a FilterBuilder.
type settings struct {
	encodingName     string
	encoding         encoding.Encoding
	logger           Logger
	metricsCollector MetricsCollector
}

// Option defines a functional option for configuring a Parser or a FilterBuilder.
type Option func(*settings) error

// WithEncoding sets the text encoding of the CLEF source, e.g. "utf-16le" or "windows-1252".
// Names are resolved as WHATWG/IANA labels. Without this option the source is read as UTF-8.
// FilterBuilders ignore it.
func WithEncoding(name string) Option {
	return func(s *settings) error {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrUnknownEncoding, name, err)
		}

		s.encodingName = name
		s.encoding = enc

		return nil
	}
}

// WithLogger sets the logger.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: parse and filter summaries with timing
// Warn level: events skipped while filtering, empty criteria
// Error level: failures which abort a parse.
func WithLogger(logger Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector which receives durations, event counts and error counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *settings) error {
		s.metricsCollector = collector
		return nil
	}
}

func applyOptions(options []Option) (settings, error) {
	s := settings{}

	for _, option := range options {
		if err := option(&s); err != nil {
			return settings{}, err
		}
	}

	return s, nil
}
