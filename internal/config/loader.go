package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Dialect:     DialectAuto,
		BatchMode:   BatchModeFailFast,
		Parallelism: DefaultParallelism,
		ConfigFile:  configPath,
		Labels:      LabelsConfig{Policy: LabelPolicyFixed},
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	for i, dir := range cfg.Dirs {
		cfg.Dirs[i] = strings.TrimSpace(dir)
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "dirs", "directories"); ok {
		dirs, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("dirs: %w", err)
		}
		cfg.Dirs = dirs
	}

	if raw, ok := lookupSetting(settings, "save"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		cfg.Save = val
	}

	if raw, ok := lookupSetting(settings, "dialect"); ok {
		val, err := asKeyword(raw)
		if err != nil {
			return fmt.Errorf("dialect: %w", err)
		}
		if val != "" {
			cfg.Dialect = Dialect(val)
		}
	}

	if raw, ok := lookupSetting(settings, "batchmode", "batch_mode", "batch-mode"); ok {
		val, err := asKeyword(raw)
		if err != nil {
			return fmt.Errorf("batchMode: %w", err)
		}
		if val != "" {
			cfg.BatchMode = val
		}
	}

	if raw, ok := lookupSetting(settings, "parallelism"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("parallelism: %w", err)
		}
		cfg.Parallelism = val
	}

	if raw, ok := lookupSetting(settings, "buckets"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("buckets: %w", err)
		}
		cfg.Buckets = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "labels"); ok {
		labels, err := parseLabels(raw, cfg.Labels)
		if err != nil {
			return fmt.Errorf("labels: %w", err)
		}
		cfg.Labels = labels
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tc, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tc
	}

	return nil
}

func parseLabels(value interface{}, base LabelsConfig) (LabelsConfig, error) {
	// A bare string selects the policy.
	if _, ok := value.(string); ok {
		policy, err := asKeyword(value)
		if err != nil {
			return LabelsConfig{}, err
		}
		base.Policy = policy
		return base, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return LabelsConfig{}, err
	}
	if raw, ok := lookupSetting(settings, "policy"); ok {
		val, err := asKeyword(raw)
		if err != nil {
			return LabelsConfig{}, fmt.Errorf("policy: %w", err)
		}
		base.Policy = val
	}
	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return LabelsConfig{}, fmt.Errorf("format: %w", err)
		}
		base.Format = val
	}
	if raw, ok := lookupSetting(settings, "file"); ok {
		val, err := asString(raw)
		if err != nil {
			return LabelsConfig{}, fmt.Errorf("file: %w", err)
		}
		base.File = strings.TrimSpace(val)
	}
	return base, nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		base.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asKeyword(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		base.Protocol = val
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		base.ServiceName = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		base.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		base.Insecure = val
	}
	return base, nil
}
