package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "heystat [flags] dir...",
		Short:         "Decode load-test reports and plot them per directory",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Input flags
	flags.String("dialect", string(DialectAuto), "Report dialect: 'auto', 'text', or 'json'")
	flags.String("batch-mode", BatchModeFailFast, "Reaction to a bad report: 'fail-fast' or 'collect-all'")
	flags.IntP("parallelism", "p", DefaultParallelism, "Number of files decoded concurrently")
	flags.Int("buckets", 0, "Histogram lines per text report (0 means the standard 11)")

	// Label flags
	flags.String("labels", LabelPolicyFixed, "Label policy: 'fixed' or 'numeric'")
	flags.String("label-format", "", "Format for the numeric label policy (default \"%02d ГБ\")")
	flags.String("label-file", "", "YAML file mapping file names to labels for the fixed policy")

	// Output flags
	flags.Bool("save", false, "Save a PNG plot into each directory")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Browse the decoded runs in a terminal dashboard")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.StringSlice("threshold", nil, "Assertions on every run (repeatable, e.g., 'latency:p99 < 50')")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported to the collector")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of decode traces to sample")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP connection")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if args := fs.Args(); len(args) > 0 {
		cfg.Dirs = append([]string(nil), args...)
	}
	if fs.Changed("dialect") {
		val, err := fs.GetString("dialect")
		if err != nil {
			return err
		}
		cfg.Dialect = Dialect(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("batch-mode") {
		val, err := fs.GetString("batch-mode")
		if err != nil {
			return err
		}
		cfg.BatchMode = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("parallelism") {
		val, err := fs.GetInt("parallelism")
		if err != nil {
			return err
		}
		cfg.Parallelism = val
	}
	if fs.Changed("buckets") {
		val, err := fs.GetInt("buckets")
		if err != nil {
			return err
		}
		cfg.Buckets = val
	}
	if fs.Changed("labels") {
		val, err := fs.GetString("labels")
		if err != nil {
			return err
		}
		cfg.Labels.Policy = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("label-format") {
		val, err := fs.GetString("label-format")
		if err != nil {
			return err
		}
		cfg.Labels.Format = val
	}
	if fs.Changed("label-file") {
		val, err := fs.GetString("label-file")
		if err != nil {
			return err
		}
		cfg.Labels.File = strings.TrimSpace(val)
	}
	if fs.Changed("save") {
		val, err := fs.GetBool("save")
		if err != nil {
			return err
		}
		cfg.Save = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	return applyTracingFlagOverrides(&cfg.Tracing, fs)
}

func applyTracingFlagOverrides(tc *TracingConfig, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		tc.ServiceName = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		tc.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		tc.Insecure = val
	}
	return nil
}
