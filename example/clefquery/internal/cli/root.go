// Package cli wires the clefquery commands: cobra for the command tree, viper for configuration
// from flags, CLEFQ_* environment variables and an optional YAML config file.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AntonStoeckl/clef-go/clef"
	"github.com/AntonStoeckl/clef-go/clef/promadapters"
)

const (
	envPrefix      = "CLEFQ"
	configFileName = ".clefquery"
	configFileType = "yaml"

	keyLogLevel = "log-level"
	keyOutput   = "output"
	keyEncoding = "encoding"
	keyQueries  = "queries"
	keyMetrics  = "metrics"
)

// ErrInvalidLogLevel is returned for log levels slog does not know.
var ErrInvalidLogLevel = errors.New("invalid log level")

type app struct {
	cfgFile  string
	v        *viper.Viper
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *promadapters.MetricsCollector
}

// NewRootCommand builds the clefquery command tree. Every call has its own configuration state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "clefquery",
		Short: "Filter Compact Log Event Format (CLEF) logs",
		Long: `clefquery reads newline-delimited CLEF files, as written by Serilog and Seq,
and prints the events which match all given criteria.

Every persistent flag can also be set in $HOME/.clefquery.yaml or ./.clefquery.yaml,
or through an environment variable, e.g. CLEFQ_LOG_LEVEL=debug.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.printMetrics,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.clefquery.yaml)")
	flags.String(keyLogLevel, "warn", "log level: debug, info, warn or error")
	flags.StringP(keyOutput, "o", outputText, "output format: text or json")
	flags.String(keyEncoding, "", "text encoding of the input, e.g. utf-16le or windows-1252 (default utf-8)")
	flags.String(keyQueries, "", "YAML file with saved queries")
	flags.Bool(keyMetrics, false, "print the collected metrics to stderr when the command is done")

	rootCmd.AddCommand(
		newFilterCommand(a),
		newCountCommand(a),
		newDBCommand(a),
		newQueriesCommand(a),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.initConfig(cmd); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(keyLogLevel))); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, a.v.GetString(keyLogLevel))
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if a.v.GetBool(keyMetrics) {
		a.registry = prometheus.NewRegistry()
		a.metrics = promadapters.NewMetricsCollector(a.registry, "")
	}

	return nil
}

// initConfig reads in the config file and environment variables, flags win over both.
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName(configFileName)
		a.v.SetConfigType(configFileType)
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	return nil
}

// clefOptions returns the parser and filter options for the configured encoding, logger and metrics.
func (a *app) clefOptions() []clef.Option {
	options := []clef.Option{clef.WithLogger(a.logger)}

	if encoding := a.v.GetString(keyEncoding); encoding != "" {
		options = append(options, clef.WithEncoding(encoding))
	}

	if a.metrics != nil {
		options = append(options, clef.WithMetrics(a.metrics))
	}

	return options
}

// printMetrics writes every gathered series in a compact exposition-like format.
func (a *app) printMetrics(cmd *cobra.Command, _ []string) error {
	if a.registry == nil {
		return nil
	}

	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	out := cmd.ErrOrStderr()

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
			}

			series := family.GetName() + "{" + strings.Join(labels, ",") + "}"

			switch {
			case metric.GetCounter() != nil:
				fmt.Fprintf(out, "%s %g\n", series, metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				fmt.Fprintf(out, "%s %g\n", series, metric.GetGauge().GetValue())
			case metric.GetHistogram() != nil:
				histogram := metric.GetHistogram()
				fmt.Fprintf(out, "%s count=%d sum=%g\n", series, histogram.GetSampleCount(), histogram.GetSampleSum())
			}
		}
	}

	return nil
}
