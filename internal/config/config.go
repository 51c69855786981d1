package config

import (
	"fmt"
	"os"
	"strings"
)

type Dialect string

const (
	DialectAuto Dialect = "auto"
	DialectText Dialect = "text"
	DialectJSON Dialect = "json"
)

const (
	BatchModeFailFast   = "fail-fast"
	BatchModeCollectAll = "collect-all"
)

const (
	LabelPolicyFixed   = "fixed"
	LabelPolicyNumeric = "numeric"
)

const DefaultParallelism = 4

type Config struct {
	Dirs        []string      `mapstructure:"dirs"`
	Save        bool          `mapstructure:"save"`
	Dialect     Dialect       `mapstructure:"dialect"`
	Labels      LabelsConfig  `mapstructure:"labels"`
	BatchMode   string        `mapstructure:"batch_mode"`
	Parallelism int           `mapstructure:"parallelism"`
	Buckets     int           `mapstructure:"buckets"`
	JSONOutput  bool          `mapstructure:"json_output"`
	HTMLOutput  string        `mapstructure:"html_output"`
	Dashboard   bool          `mapstructure:"dashboard"`
	Verbose     bool          `mapstructure:"verbose"`
	Thresholds  []string      `mapstructure:"thresholds"`
	ConfigFile  string        `mapstructure:"-"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// LabelsConfig selects how file names become run labels.
type LabelsConfig struct {
	Policy string `mapstructure:"policy"` // "fixed" or "numeric"
	Format string `mapstructure:"format"` // numeric policy format, e.g. "%02d GB"
	File   string `mapstructure:"file"`   // YAML table for the fixed policy
}

// TracingConfig configures OpenTelemetry export of decode spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether an OTLP endpoint is configured, either directly or
// through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if len(c.Dirs) == 0 {
		issues = append(issues, "at least one directory is required (use --help for usage information)")
	}
	for idx, dir := range c.Dirs {
		if strings.TrimSpace(dir) == "" {
			issues = append(issues, fmt.Sprintf("dirs[%d]: directory must not be empty", idx))
		}
	}

	switch c.Dialect {
	case DialectAuto, DialectText, DialectJSON, "":
	default:
		issues = append(issues, fmt.Sprintf("dialect: must be 'auto', 'text', or 'json', got %q", c.Dialect))
	}

	switch c.BatchMode {
	case BatchModeFailFast, BatchModeCollectAll, "":
	default:
		issues = append(issues, fmt.Sprintf("batch_mode: must be %q or %q, got %q", BatchModeFailFast, BatchModeCollectAll, c.BatchMode))
	}

	if c.Parallelism < 1 {
		issues = append(issues, "parallelism must be >= 1")
	}
	if c.Buckets < 0 {
		issues = append(issues, "buckets must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	issues = append(issues, validateLabelsConfig(c.Labels)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateLabelsConfig(labels LabelsConfig) []string {
	var issues []string
	switch labels.Policy {
	case LabelPolicyFixed, "":
		if strings.TrimSpace(labels.Format) != "" {
			fmt.Fprintln(os.Stderr, "WARNING: labels.format is ignored by the fixed label policy.")
		}
	case LabelPolicyNumeric:
		if labels.Format != "" && !strings.Contains(labels.Format, "%") {
			issues = append(issues, fmt.Sprintf("labels: format %q has no formatting verb", labels.Format))
		}
		if strings.TrimSpace(labels.File) != "" {
			issues = append(issues, "labels: file is only valid with the fixed policy")
		}
	default:
		issues = append(issues, fmt.Sprintf("labels: policy must be 'fixed' or 'numeric', got %q", labels.Policy))
	}
	return issues
}

func validateTracingConfig(tc TracingConfig) []string {
	var issues []string
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", tc.SampleRate))
	}
	switch strings.ToLower(tc.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", tc.Protocol))
	}
	if tc.Insecure && strings.TrimSpace(tc.Endpoint) != "" {
		fmt.Fprintln(os.Stderr, "WARNING: OTLP export is using an insecure connection.")
	}
	return issues
}
