package clef

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"strings"
	"time"

	"golang.org/x/text/transform"
)

const (
	byteOrderMark = "\ufeff"

	logMsgParseCompleted = "parse completed"
	logMsgParseStopped   = "parse stopped by consumer"
	logMsgParseFailed    = "parse failed"
	logMsgCloseFailed    = "failed to close clef file"

	errorTypeFileNotFound = "file_not_found"
	errorTypeIO           = "io"
	errorTypeJSONDecode   = "json_decode"
)

var errNotAnObject = errors.New("line is not a JSON object")

// Parser reads the CLEF file at one path. It holds no open resources between calls,
// so one Parser can be used for any number of parse runs.
type Parser struct {
	path     string
	settings settings
}

// NewParser creates a Parser bound to path with optional configuration.
// The file is not touched before Iter or Parse is called.
func NewParser(path string, options ...Option) (Parser, error) {
	s, err := applyOptions(options)
	if err != nil {
		return Parser{}, err
	}

	return Parser{path: path, settings: s}, nil
}

// Path returns the path the Parser is bound to.
func (p Parser) Path() string {
	return p.path
}

// ParseEvent classifies one decoded CLEF object into an Event.
func ParseEvent(raw map[string]any) Event {
	return NewEvent(raw)
}

// Iter returns a lazy, single-pass sequence of the events in the file.
//
// The file is opened when iteration starts and closed when the file is exhausted, when the consumer
// stops early, or when an error is yielded. An error is always the last element of the sequence.
func (p Parser) Iter() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		start := time.Now()

		file, openErr := os.Open(p.path)
		if openErr != nil {
			err := p.openError(openErr)
			p.observeFailure(err, 0, time.Since(start))
			yield(Event{}, err)

			return
		}
		defer p.closeFile(file)

		p.iterate(file, start, yield)
	}
}

// Parse reads the whole file into an Events sequence.
// On failure, no partial result is returned.
func (p Parser) Parse() (Events, error) {
	collection := Events{events: make([]Event, 0)}

	for event, err := range p.Iter() {
		if err != nil {
			return Events{}, err
		}

		collection.Add(event)
	}

	return collection, nil
}

// EventFilter creates a FilterBuilder over events which shares the Parser's logger and metrics collector.
func (p Parser) EventFilter(events Events) *FilterBuilder {
	return newFilterBuilder(events, p.settings, nil)
}

// ParseReader returns a lazy sequence of the events read from r, which must yield CLEF text.
// Closing r is the caller's responsibility.
func ParseReader(r io.Reader, options ...Option) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		s, err := applyOptions(options)
		if err != nil {
			yield(Event{}, err)
			return
		}

		Parser{settings: s}.iterate(r, time.Now(), yield)
	}
}

func (p Parser) iterate(r io.Reader, start time.Time, yield func(Event, error) bool) {
	decoder := p.newLineDecoder(r)

	for {
		event, ok, err := decoder.next()
		if err != nil {
			p.observeFailure(err, decoder.line, time.Since(start))
			yield(Event{}, err)

			return
		}

		if !ok {
			p.observeSuccess(logMsgParseCompleted, decoder, time.Since(start))
			return
		}

		if !yield(event, nil) {
			p.observeSuccess(logMsgParseStopped, decoder, time.Since(start))
			return
		}
	}
}

func (p Parser) newLineDecoder(r io.Reader) *lineDecoder {
	if p.settings.encoding != nil {
		r = transform.NewReader(r, p.settings.encoding.NewDecoder())
	}

	return &lineDecoder{reader: bufio.NewReader(r), source: p.path}
}

func (p Parser) openError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &FileNotFoundError{Path: p.path, Err: err}
	}

	return &IOError{Path: p.path, Err: err}
}

func (p Parser) closeFile(file *os.File) {
	if closeErr := file.Close(); closeErr != nil {
		if p.settings.logger != nil {
			p.settings.logger.Warn(logMsgCloseFailed, logAttrError, closeErr.Error(), logAttrPath, p.path)
		}
	}
}

func (p Parser) observeSuccess(message string, decoder *lineDecoder, duration time.Duration) {
	if p.settings.logger != nil {
		p.settings.logger.Debug(
			message,
			logAttrPath, p.path,
			logAttrEventCount, decoder.events,
			logAttrLineCount, decoder.line,
			logAttrDurationMS, toMilliseconds(duration),
		)
	}

	if p.settings.metricsCollector != nil {
		labels := map[string]string{labelOperation: operationParse, labelStatus: statusSuccess}
		p.settings.metricsCollector.RecordDuration(MetricParseDuration, duration, labels)
		p.settings.metricsCollector.RecordValue(MetricParsedEvents, float64(decoder.events), labels)
	}
}

func (p Parser) observeFailure(err error, line int, duration time.Duration) {
	if p.settings.logger != nil {
		p.settings.logger.Error(logMsgParseFailed, logAttrError, err.Error(), logAttrPath, p.path, logAttrLine, line)
	}

	if p.settings.metricsCollector != nil {
		p.settings.metricsCollector.RecordDuration(
			MetricParseDuration,
			duration,
			map[string]string{labelOperation: operationParse, labelStatus: statusError},
		)
		p.settings.metricsCollector.IncrementCounter(
			MetricParseErrors,
			map[string]string{labelOperation: operationParse, labelErrorType: errorType(err)},
		)
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrFileNotFound):
		return errorTypeFileNotFound
	case errors.Is(err, ErrDecodingLineFailed):
		return errorTypeJSONDecode
	default:
		return errorTypeIO
	}
}

// lineDecoder turns the lines of a CLEF source into events, skipping blank lines.
type lineDecoder struct {
	reader *bufio.Reader
	source string
	line   int
	events int
}

// next returns the next event, ok=false once the source is exhausted.
func (d *lineDecoder) next() (Event, bool, error) {
	for {
		raw, readErr := d.reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return Event{}, false, &IOError{Path: d.source, Err: readErr}
		}

		if raw == "" && readErr != nil {
			return Event{}, false, nil
		}

		d.line++

		if d.line == 1 {
			raw = strings.TrimPrefix(raw, byteOrderMark)
		}

		content := strings.TrimSpace(raw)
		if content == "" {
			continue
		}

		var object map[string]any
		if err := jsonAPI.UnmarshalFromString(content, &object); err != nil {
			return Event{}, false, &JSONDecodeError{Line: d.line, Content: content, Err: err}
		}

		if object == nil {
			return Event{}, false, &JSONDecodeError{Line: d.line, Content: content, Err: errNotAnObject}
		}

		d.events++

		return NewEvent(object), true, nil
	}
}
