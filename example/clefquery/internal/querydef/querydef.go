// Package querydef loads named filter definitions from YAML files.
//
// A definitions file looks like this:
//
//	queries:
//	  production-errors:
//	    level: Error
//	    start: "2026-01-24T00:00:00Z"
//	    message: "timed out"
//	    fields:
//	      Environment: Production
package querydef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/clef-go/clef"
)

var (
	// ErrReadingFileFailed is returned when the definitions file cannot be read.
	ErrReadingFileFailed = errors.New("reading query definitions failed")

	// ErrDecodingFileFailed is returned when the definitions file is not valid YAML or has unknown keys.
	ErrDecodingFileFailed = errors.New("decoding query definitions failed")

	// ErrUnknownQuery is returned by Lookup for names which are not defined.
	ErrUnknownQuery = errors.New("unknown query")
)

// Definition holds the criteria of one named query. Empty values are not applied.
type Definition struct {
	Start      string         `yaml:"start"`
	End        string         `yaml:"end"`
	Level      string         `yaml:"level"`
	Message    string         `yaml:"message"`
	Template   string         `yaml:"template"`
	Exception  string         `yaml:"exception"`
	Renderings string         `yaml:"renderings"`
	EventID    any            `yaml:"event_id"`
	Fields     map[string]any `yaml:"fields"`
}

// Definitions maps query names to their criteria.
type Definitions struct {
	Queries map[string]Definition `yaml:"queries"`
}

// Load reads and decodes the definitions file at path.
func Load(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("%w: %w", ErrReadingFileFailed, err)
	}

	return Parse(data)
}

// Parse decodes definitions from YAML. Unknown keys are rejected, an empty document yields no queries.
func Parse(data []byte) (Definitions, error) {
	var defs Definitions

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return Definitions{}, fmt.Errorf("%w: %w", ErrDecodingFileFailed, err)
	}

	return defs, nil
}

// Lookup returns the definition called name.
func (d Definitions) Lookup(name string) (Definition, error) {
	def, ok := d.Queries[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownQuery, name)
	}

	return def, nil
}

// Names returns the defined query names in sorted order.
func (d Definitions) Names() []string {
	names := slices.AppendSeq(make([]string, 0, len(d.Queries)), maps.Keys(d.Queries))
	slices.Sort(names)

	return names
}

// Apply sets every non-empty criterion of the definition on builder.
func (def Definition) Apply(builder *clef.FilterBuilder) *clef.FilterBuilder {
	if def.Start != "" {
		builder = builder.StartTime(def.Start)
	}

	if def.End != "" {
		builder = builder.EndTime(def.End)
	}

	if def.Level != "" {
		builder = builder.Level(def.Level)
	}

	if def.Message != "" {
		builder = builder.MessageRegex(def.Message)
	}

	if def.Template != "" {
		builder = builder.MessageTemplateRegex(def.Template)
	}

	if def.Exception != "" {
		builder = builder.ExceptionRegex(def.Exception)
	}

	if def.Renderings != "" {
		builder = builder.RenderingsRegex(def.Renderings)
	}

	if def.EventID != nil {
		builder = builder.EventID(def.EventID)
	}

	if len(def.Fields) > 0 {
		builder = builder.UserFields(def.Fields)
	}

	return builder
}
