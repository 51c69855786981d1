// Command heygen writes synthetic hey-style reports, one file per label id,
// for trying out heystat without a load-test rig.
package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/heystat/internal/metrics"
	"github.com/torosent/heystat/internal/report"
)

type options struct {
	dialect     string
	out         string
	ids         []string
	runs        int
	seed        int64
	buckets     int
	samples     int
	median      time.Duration
	spread      float64
	failureRate float64
	concurrency int
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	defaults := metrics.DefaultWorkload()
	opts := options{}

	cmd := &cobra.Command{
		Use:           "heygen [flags]",
		Short:         "Write synthetic hey-style reports",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.dialect, "dialect", string(report.DialectText), "Report dialect: 'text' or 'json'")
	flags.StringVarP(&opts.out, "out", "o", "", "Directory to write report files into (stdout when empty)")
	flags.StringSliceVar(&opts.ids, "ids", nil, "File ids (default 1,2,3 for text and 4,8,16 for json)")
	flags.IntVar(&opts.runs, "runs", 3, "Reports per file")
	flags.Int64Var(&opts.seed, "seed", 1, "Random seed")
	flags.IntVar(&opts.buckets, "buckets", 0, "Histogram lines per text report (0 means the standard 11)")
	flags.IntVar(&opts.samples, "samples", defaults.Samples, "Requests per report")
	flags.DurationVar(&opts.median, "median", defaults.Median, "Median latency of the first id")
	flags.Float64Var(&opts.spread, "spread", defaults.Spread, "Sigma of the log-normal latency distribution")
	flags.Float64Var(&opts.failureRate, "failure-rate", defaults.FailureRate, "Fraction of failed requests")
	flags.IntVar(&opts.concurrency, "concurrency", defaults.Concurrency, "Simulated concurrent workers")
	return cmd
}

// generate writes opts.runs reports per id. Each id slows the median down by
// half of the first one, so later ids plot as slower runs.
func generate(opts options, stdout io.Writer) error {
	dialect := report.Dialect(strings.ToLower(opts.dialect))
	if dialect != report.DialectText && dialect != report.DialectJSON {
		return fmt.Errorf("unknown dialect %q", opts.dialect)
	}
	if opts.runs < 1 {
		return fmt.Errorf("runs must be >= 1, got %d", opts.runs)
	}

	ids := opts.ids
	if len(ids) == 0 {
		ids = defaultIDs(dialect)
	}
	if opts.out != "" {
		if err := os.MkdirAll(opts.out, 0o755); err != nil {
			return err
		}
	}

	rng := rand.New(rand.NewSource(opts.seed))
	for i, id := range ids {
		workload := metrics.Workload{
			Samples:     opts.samples,
			Median:      opts.median + time.Duration(i)*opts.median/2,
			Spread:      opts.spread,
			FailureRate: opts.failureRate,
			Concurrency: opts.concurrency,
		}
		var buf bytes.Buffer
		for run := 0; run < opts.runs; run++ {
			if err := writeReport(&buf, workload, rng, dialect, opts.buckets); err != nil {
				return fmt.Errorf("id %s: %w", id, err)
			}
		}

		if opts.out == "" {
			if _, err := stdout.Write(buf.Bytes()); err != nil {
				return err
			}
			continue
		}
		path := filepath.Join(opts.out, id+"."+extension(dialect))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	return nil
}

func writeReport(w io.Writer, workload metrics.Workload, rng *rand.Rand, dialect report.Dialect, buckets int) error {
	collector, elapsed, err := workload.Run(rng)
	if err != nil {
		return err
	}
	rec, err := collector.Record("", dialect, elapsed, buckets)
	if err != nil {
		return err
	}
	if dialect == report.DialectJSON {
		return report.WriteJSON(w, rec)
	}
	return report.WriteText(w, rec)
}

func defaultIDs(dialect report.Dialect) []string {
	if dialect == report.DialectJSON {
		return []string{"4", "8", "16"}
	}
	return []string{"1", "2", "3"}
}

func extension(dialect report.Dialect) string {
	if dialect == report.DialectJSON {
		return "json"
	}
	return "txt"
}
