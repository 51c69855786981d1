package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/torosent/heystat/internal/config"
	"github.com/torosent/heystat/internal/dashboard"
	"github.com/torosent/heystat/internal/label"
	"github.com/torosent/heystat/internal/output"
	"github.com/torosent/heystat/internal/plot"
	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
	"github.com/torosent/heystat/internal/threshold"
	"github.com/torosent/heystat/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()
	if provider.Enabled() {
		logger.Debug("Exporting decode traces", zap.String("endpoint", provider.Endpoint()))
	}

	dirLoader, err := newSourceLoader(cfg, logger, provider)
	if err != nil {
		return err
	}

	dirs, err := loadDirs(ctx, dirLoader, cfg.Dirs)
	if err != nil {
		return err
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, dirs); err != nil {
			return fmt.Errorf("failed to write JSON summary: %w", err)
		}
	} else {
		output.PrintReport(stdout, dirs)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(dirs)
	if !cfg.JSONOutput {
		output.PrintThresholdResults(stdout, results)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, dirs); err != nil {
			return err
		}
		logger.Info("Wrote HTML report", zap.String("path", cfg.HTMLOutput))
	}

	if cfg.Save {
		if err := savePlots(dirs, logger); err != nil {
			return err
		}
	}

	if cfg.Dashboard {
		dash, err := dashboard.New(dirs)
		if err != nil {
			return err
		}
		if err := dash.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if failed := threshold.Failed(results); len(failed) > 0 {
		for _, r := range failed {
			logger.Debug("Threshold failed", zap.String("threshold", r.Threshold.Raw), zap.String("dir", r.Dir),
				zap.String("label", r.Label), zap.Int("run", r.Run), zap.Float64("actual", r.Actual))
		}
		return fmt.Errorf("%d of %d threshold checks failed", len(failed), len(results))
	}

	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func newSourceLoader(cfg *config.Config, logger *zap.Logger, provider *tracing.Provider) (*source.Loader, error) {
	resolver, err := label.New(label.Policy(cfg.Labels.Policy), cfg.Labels.Format, cfg.Labels.File)
	if err != nil {
		return nil, err
	}
	mode, err := report.ParseBatchMode(cfg.BatchMode)
	if err != nil {
		return nil, err
	}
	return &source.Loader{
		Decoders:    source.DefaultDecoders(cfg.Buckets),
		Resolver:    resolver,
		Dialect:     toReportDialect(cfg.Dialect),
		Mode:        mode,
		Parallelism: cfg.Parallelism,
		Logger:      logger,
		Tracer:      provider.Tracer(),
	}, nil
}

// loadDirs decodes the directories in command-line order. Nothing is
// returned unless every directory decoded cleanly.
func loadDirs(ctx context.Context, loader *source.Loader, paths []string) ([]source.Dir, error) {
	dirs := make([]source.Dir, 0, len(paths))
	for _, path := range paths {
		dir, err := loader.LoadDir(ctx, path)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func toReportDialect(d config.Dialect) report.Dialect {
	switch d {
	case config.DialectText:
		return report.DialectText
	case config.DialectJSON:
		return report.DialectJSON
	default:
		return ""
	}
}

func writeHTMLReport(path string, dirs []source.Dir) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, dirs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func savePlots(dirs []source.Dir, logger *zap.Logger) error {
	for _, dir := range dirs {
		fig, err := plot.Render(dir)
		if err != nil {
			return fmt.Errorf("%s: %w", dir.Path, err)
		}
		path := plot.FileName(dir.Path)
		if err := fig.Save(path); err != nil {
			return fmt.Errorf("%s: %w", dir.Path, err)
		}
		logger.Info("Saved plot", zap.String("dir", dir.Path), zap.String("path", path))
	}
	return nil
}
