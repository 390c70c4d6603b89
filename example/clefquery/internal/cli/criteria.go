package cli

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/example/clefquery/internal/querydef"
)

var (
	// ErrInvalidFieldFlag is returned for --field values which are not key=value.
	ErrInvalidFieldFlag = errors.New("invalid --field value, expected key=value")

	// ErrMissingQueriesFile is returned when --query is used without a queries file.
	ErrMissingQueriesFile = errors.New("--query needs a queries file, set --queries")
)

// jsonAPI keeps numbers as json.Number, so --event-id and --field keep integers beyond 2^53 exact.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// criteriaFlags holds the filter criteria given on the command line.
type criteriaFlags struct {
	start      string
	end        string
	level      string
	message    string
	template   string
	exception  string
	renderings string
	eventID    string
	fields     []string
	query      string
}

func (cf *criteriaFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&cf.start, "start", "", "inclusive lower time bound, ISO-8601")
	flags.StringVar(&cf.end, "end", "", "inclusive upper time bound, ISO-8601")
	flags.StringVar(&cf.level, "level", "", "level the event must have, e.g. Error")
	flags.StringVar(&cf.message, "message", "", "regular expression matched against the rendered message")
	flags.StringVar(&cf.template, "template", "", "regular expression matched against the message template")
	flags.StringVar(&cf.exception, "exception", "", "regular expression matched against the exception")
	flags.StringVar(&cf.renderings, "renderings", "", "regular expression matched against the JSON text of the renderings")
	flags.StringVar(&cf.eventID, "event-id", "", "event id, read as JSON when possible, e.g. 42 or a1b2c3d4")
	flags.StringArrayVar(&cf.fields, "field", nil, "user field as key=value, values are read as JSON when possible (repeatable)")
	flags.StringVar(&cf.query, "query", "", "name of a saved query, flags are applied on top of it")
}

// apply sets the saved query, if any, and then the flag criteria on builder.
// User fields of the saved query and of --field flags are merged, flags win.
func (cf *criteriaFlags) apply(builder *clef.FilterBuilder, queriesPath string) (*clef.FilterBuilder, error) {
	fields := make(map[string]any)

	if cf.query != "" {
		def, err := lookupQuery(queriesPath, cf.query)
		if err != nil {
			return nil, err
		}

		maps.Copy(fields, def.Fields)
		def.Fields = nil
		builder = def.Apply(builder)
	}

	for _, raw := range cf.fields {
		key, value, err := parseField(raw)
		if err != nil {
			return nil, err
		}

		fields[key] = value
	}

	fromFlags := querydef.Definition{
		Start:      cf.start,
		End:        cf.end,
		Level:      cf.level,
		Message:    cf.message,
		Template:   cf.template,
		Exception:  cf.exception,
		Renderings: cf.renderings,
		Fields:     fields,
	}

	if cf.eventID != "" {
		fromFlags.EventID = parseValue(cf.eventID)
	}

	builder = fromFlags.Apply(builder)

	return builder, builder.Err()
}

func lookupQuery(queriesPath, name string) (querydef.Definition, error) {
	if queriesPath == "" {
		return querydef.Definition{}, ErrMissingQueriesFile
	}

	defs, err := querydef.Load(queriesPath)
	if err != nil {
		return querydef.Definition{}, err
	}

	return defs.Lookup(name)
}

func parseField(raw string) (string, any, error) {
	key, value, found := strings.Cut(raw, "=")
	if !found || key == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidFieldFlag, raw)
	}

	return key, parseValue(value), nil
}

// parseValue reads s as JSON, so 42 becomes a number and true a boolean. Anything else stays a string.
func parseValue(s string) any {
	var value any
	if err := jsonAPI.UnmarshalFromString(s, &value); err != nil {
		return s
	}

	return value
}
