package clef

import (
	"errors"
	"fmt"
)

const maxDisplayedLineContent = 100

// ErrParse is the base of every parse or filter failure of this package.
var ErrParse = errors.New("clef failure")

var (
	// ErrFileNotFound is returned when the CLEF source path does not resolve to a file.
	ErrFileNotFound = fmt.Errorf("%w: file not found", ErrParse)

	// ErrReadingFileFailed is returned for any other I/O failure while opening or reading a source.
	ErrReadingFileFailed = fmt.Errorf("%w: reading file failed", ErrParse)

	// ErrDecodingLineFailed is returned when a non-blank line is not a JSON object.
	ErrDecodingLineFailed = fmt.Errorf("%w: invalid json line", ErrParse)

	// ErrUnknownEncoding is returned when a text encoding name can not be resolved.
	ErrUnknownEncoding = fmt.Errorf("%w: unknown text encoding", ErrParse)

	// ErrInvalidFilter is the base of every filter configuration failure.
	ErrInvalidFilter = fmt.Errorf("%w: invalid filter", ErrParse)

	// ErrInvalidArgument is returned for an empty or otherwise unusable filter criterion.
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", ErrInvalidFilter)

	// ErrInvalidTimestamp is returned when a configured time bound is not an ISO-8601 timestamp.
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid timestamp", ErrInvalidFilter)

	// ErrInvertedTimeRange is returned when the configured start time is after the end time.
	ErrInvertedTimeRange = fmt.Errorf("%w: start time is after end time", ErrInvalidFilter)
)

var (
	// ErrIndexOutOfRange is returned by Events.At for an index outside of the sequence.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrZeroSliceStep is returned by Events.SliceStep for a step of 0.
	ErrZeroSliceStep = errors.New("slice step cannot be zero")
)

// FileNotFoundError carries the path which could not be found.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("clef file not found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() []error {
	return []error{ErrFileNotFound, e.Err}
}

// IOError carries the path and the underlying cause of a failed read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("error reading file %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrReadingFileFailed, e.Err}
}

// JSONDecodeError describes a line which could not be decoded.
// Line is 1-indexed and Content holds the complete trimmed line.
type JSONDecodeError struct {
	Line    int
	Content string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("invalid JSON on line %d: %v\nContent: %s", e.Line, e.Err, e.DisplayContent())
}

// DisplayContent returns the line content shortened to 100 characters, marked with "..." when truncated.
func (e *JSONDecodeError) DisplayContent() string {
	runes := []rune(e.Content)
	if len(runes) <= maxDisplayedLineContent {
		return e.Content
	}

	return string(runes[:maxDisplayedLineContent]) + "..."
}

func (e *JSONDecodeError) Unwrap() []error {
	return []error{ErrDecodingLineFailed, e.Err}
}

// InvalidTimestampError carries a configured time bound which failed to parse.
type InvalidTimestampError struct {
	Timestamp string
	Err       error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp format '%s': %v", e.Timestamp, e.Err)
}

func (e *InvalidTimestampError) Unwrap() []error {
	return []error{ErrInvalidTimestamp, e.Err}
}

// IndexError carries the rejected index and the length of the sequence.
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for %d events", e.Index, e.Length)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
