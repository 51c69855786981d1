package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/torosent/heystat/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{"runs"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dialect != config.DialectAuto {
		t.Errorf("Dialect = %q, want auto", cfg.Dialect)
	}
	if cfg.BatchMode != config.BatchModeFailFast {
		t.Errorf("BatchMode = %q, want fail-fast", cfg.BatchMode)
	}
	if cfg.Parallelism != config.DefaultParallelism {
		t.Errorf("Parallelism = %d, want %d", cfg.Parallelism, config.DefaultParallelism)
	}
	if cfg.Labels.Policy != config.LabelPolicyFixed {
		t.Errorf("Labels.Policy = %q, want fixed", cfg.Labels.Policy)
	}
	if cfg.Tracing.SampleRate != 1.0 || cfg.Tracing.Protocol != "grpc" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Save || cfg.JSONOutput || cfg.Dashboard || cfg.Verbose {
		t.Errorf("unexpected boolean defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadWithoutArgumentsRequestsHelp(t *testing.T) {
	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(nil) error = %v, want ErrHelpRequested", err)
	}

	_, err = config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--target=http://example.com", "runs"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"dirs": ["bench/a", "bench/b"],
		"dialect": "json",
		"batchMode": "collect-all",
		"parallelism": 3,
		"labels": {"policy": "numeric", "format": "%d GB"},
		"jsonOutput": true,
		"tracing": {"endpoint": "collector:4317", "insecure": true}
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--parallelism", "6"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Dirs) != 2 || cfg.Dirs[0] != "bench/a" {
		t.Errorf("Dirs = %v, want [bench/a bench/b]", cfg.Dirs)
	}
	if cfg.Dialect != config.DialectJSON {
		t.Errorf("Dialect = %q, want json", cfg.Dialect)
	}
	if cfg.BatchMode != config.BatchModeCollectAll {
		t.Errorf("BatchMode = %q, want collect-all", cfg.BatchMode)
	}
	if cfg.Parallelism != 6 {
		t.Errorf("Parallelism = %d, want 6 (flag overrides file)", cfg.Parallelism)
	}
	if cfg.Labels.Policy != config.LabelPolicyNumeric || cfg.Labels.Format != "%d GB" {
		t.Errorf("Labels = %+v", cfg.Labels)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if cfg.Tracing.Endpoint != "collector:4317" || !cfg.Tracing.Insecure {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %v, want default 1.0", cfg.Tracing.SampleRate)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"dirs:",
		"  - from-file",
		"save: true",
		"labels:",
		"  policy: fixed",
		"  file: labels.yaml",
		"html_output: summary.html",
		"verbose: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "from-args"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Dirs) != 1 || cfg.Dirs[0] != "from-args" {
		t.Errorf("Dirs = %v, want positional arguments to win", cfg.Dirs)
	}
	if !cfg.Save {
		t.Error("Save = false, want true")
	}
	if cfg.Labels.File != "labels.yaml" {
		t.Errorf("Labels.File = %q, want labels.yaml", cfg.Labels.File)
	}
	if cfg.HTMLOutput != "summary.html" {
		t.Errorf("HTMLOutput = %q, want summary.html", cfg.HTMLOutput)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Dirs:        []string{"runs"},
			Dialect:     config.DialectAuto,
			BatchMode:   config.BatchModeFailFast,
			Parallelism: 1,
			Labels:      config.LabelsConfig{Policy: config.LabelPolicyFixed},
			Tracing:     config.TracingConfig{SampleRate: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		issue  string
	}{
		{"no dirs", func(c *config.Config) { c.Dirs = nil }, "at least one directory"},
		{"empty dir", func(c *config.Config) { c.Dirs = []string{" "} }, "dirs[0]"},
		{"dialect", func(c *config.Config) { c.Dialect = "xml" }, "dialect"},
		{"batch mode", func(c *config.Config) { c.BatchMode = "retry" }, "batch_mode"},
		{"parallelism", func(c *config.Config) { c.Parallelism = 0 }, "parallelism"},
		{"buckets", func(c *config.Config) { c.Buckets = -1 }, "buckets"},
		{"dashboard with json", func(c *config.Config) { c.Dashboard = true; c.JSONOutput = true }, "mutually exclusive"},
		{"label policy", func(c *config.Config) { c.Labels.Policy = "random" }, "policy"},
		{"label format", func(c *config.Config) {
			c.Labels = config.LabelsConfig{Policy: config.LabelPolicyNumeric, Format: "GB"}
		}, "formatting verb"},
		{"label file with numeric", func(c *config.Config) {
			c.Labels = config.LabelsConfig{Policy: config.LabelPolicyNumeric, File: "x.yaml"}
		}, "fixed policy"},
		{"sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
		{"tracing protocol", func(c *config.Config) { c.Tracing.Protocol = "thrift" }, "protocol"},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config: Validate() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, issue := range verr.Issues() {
				if strings.Contains(issue, tt.issue) {
					found = true
				}
			}
			if !found {
				t.Errorf("issues %v do not mention %q", verr.Issues(), tt.issue)
			}
		})
	}
}

func TestTracingEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if (config.TracingConfig{}).Enabled() {
		t.Error("Enabled() = true without endpoint")
	}
	if !(config.TracingConfig{Endpoint: "localhost:4317"}).Enabled() {
		t.Error("Enabled() = false with endpoint")
	}
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	if !(config.TracingConfig{}).Enabled() {
		t.Error("Enabled() = false with OTEL_EXPORTER_OTLP_ENDPOINT")
	}
}
