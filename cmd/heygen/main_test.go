package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/heystat/internal/label"
	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
)

func TestGeneratedReportsDecode(t *testing.T) {
	tests := []struct {
		name     string
		dialect  report.Dialect
		resolver label.Resolver
		labels   []string
	}{
		{"text", report.DialectText, label.DefaultFixed(), []string{"0-4 GB", "4-8 GB", "8-8.4 GB"}},
		{"json", report.DialectJSON, label.Numeric{}, []string{"16 ГБ", "04 ГБ", "08 ГБ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			var stdout bytes.Buffer
			opts := options{
				dialect:     string(tt.dialect),
				out:         dir,
				runs:        2,
				seed:        3,
				samples:     100,
				median:      defaultMedian,
				spread:      0.4,
				concurrency: 4,
			}
			if err := generate(opts, &stdout); err != nil {
				t.Fatalf("generate() error = %v", err)
			}
			if n := strings.Count(stdout.String(), "wrote "); n != 3 {
				t.Errorf("expected 3 files written, got %d", n)
			}

			loader := &source.Loader{
				Decoders:    source.DefaultDecoders(0),
				Resolver:    tt.resolver,
				Mode:        report.FailFast,
				Parallelism: 2,
			}
			got, err := loader.LoadDir(context.Background(), dir)
			if err != nil {
				t.Fatalf("LoadDir() error = %v", err)
			}
			if len(got.Files) != 3 {
				t.Fatalf("expected 3 files, got %d", len(got.Files))
			}
			for i, f := range got.Files {
				if f.Label != tt.labels[i] {
					t.Errorf("file %s label = %q, want %q", f.Path, f.Label, tt.labels[i])
				}
				if len(f.Records) != 2 {
					t.Errorf("file %s has %d records, want 2", f.Path, len(f.Records))
				}
			}
		})
	}
}

func TestGenerateStdout(t *testing.T) {
	var stdout bytes.Buffer
	opts := options{
		dialect:     "text",
		ids:         []string{"1"},
		runs:        3,
		seed:        1,
		samples:     50,
		median:      defaultMedian,
		concurrency: 1,
	}
	if err := generate(opts, &stdout); err != nil {
		t.Fatalf("generate() error = %v", err)
	}
	records, err := report.NewTextDecoder(nil).DecodeFile(stdout.Bytes(), "x", report.FailFast)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	opts := options{dialect: "json", ids: []string{"7"}, runs: 1, seed: 42, samples: 20, median: defaultMedian, concurrency: 2}
	var a, b bytes.Buffer
	if err := generate(opts, &a); err != nil {
		t.Fatalf("generate() error = %v", err)
	}
	if err := generate(opts, &b); err != nil {
		t.Fatalf("generate() error = %v", err)
	}
	if a.String() != b.String() {
		t.Errorf("same seed produced different reports")
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		opts options
	}{
		{"unknown dialect", options{dialect: "xml", runs: 1, samples: 1, median: defaultMedian, concurrency: 1}},
		{"no runs", options{dialect: "text", runs: 0, samples: 1, median: defaultMedian, concurrency: 1}},
		{"bad workload", options{dialect: "text", runs: 1, samples: 0, median: defaultMedian, concurrency: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := generate(tt.opts, &bytes.Buffer{}); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	dir := t.TempDir()
	cmd := newCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--dialect", "json", "--ids", "32", "--runs", "1", "--samples", "10", "--out", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "32.json")); err != nil {
		t.Errorf("expected 32.json: %v", err)
	}
}

const defaultMedian = 2 * time.Millisecond
