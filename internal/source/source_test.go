package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/heystat/internal/label"
	"github.com/torosent/heystat/internal/report"
)

func textRecord(total float64) report.Record {
	rec := report.Record{
		Dialect: report.DialectText,
		Summary: map[report.Metric]float64{
			report.MetricTotal:   total,
			report.MetricSlowest: 0.01,
			report.MetricFastest: 0.001,
			report.MetricAverage: 0.004,
			report.MetricStddev:  0.002,
		},
		RequestsPerSecond: 250,
		Latencies:         make(map[float64]float64),
	}
	for i := 0; i < report.DefaultBuckets; i++ {
		rec.Histogram = append(rec.Histogram, report.Bucket{Boundary: 0.001 * float64(i+1), Count: int64(i)})
	}
	for i, p := range report.Percentiles {
		rec.Latencies[p] = 0.001 * float64(i+1)
	}
	return rec
}

func jsonRecord(totalTime float64) report.Record {
	rec := report.Record{
		Dialect: report.DialectJSON,
		Summary: map[report.Metric]float64{
			report.MetricTotal:   totalTime,
			report.MetricSlowest: 9e6,
			report.MetricFastest: 1e6,
			report.MetricAverage: 3e6,
		},
		RequestsPerSecond: 100,
		Requests:          50,
		Latencies:         make(map[float64]float64),
	}
	for i, p := range report.Percentiles {
		rec.Latencies[p] = 1e6 * float64(i+1)
	}
	return rec
}

func writeReports(t *testing.T, path string, recs ...report.Record) {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range recs {
		var err error
		if rec.Dialect == report.DialectText {
			err = report.WriteText(&buf, rec)
		} else {
			err = report.WriteJSON(&buf, rec)
		}
		if err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	writeFile(t, path, buf.String())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2.txt"), "")
	writeFile(t, filepath.Join(dir, "1.txt"), "")
	writeFile(t, filepath.Join(dir, "notes.md"), "")
	if err := os.Mkdir(filepath.Join(dir, "3.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := Scan(dir, "")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %+v", files)
	}
	for i, name := range []string{"1.txt", "2.txt"} {
		if filepath.Base(files[i].Path) != name {
			t.Errorf("files[%d] = %s, want %s", i, files[i].Path, name)
		}
		if files[i].Dialect != report.DialectText {
			t.Errorf("files[%d].Dialect = %s, want text", i, files[i].Dialect)
		}
	}

	if _, err := Scan(dir, report.DialectJSON); !errors.Is(err, ErrNoReports) {
		t.Errorf("expected ErrNoReports for json scan, got %v", err)
	}
}

func TestScanMixedDialects(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1.txt"), "")
	writeFile(t, filepath.Join(dir, "07.json"), "")

	if _, err := Scan(dir, ""); err == nil || !strings.Contains(err.Error(), "mixes") {
		t.Errorf("expected mixed dialect error, got %v", err)
	}
	files, err := Scan(dir, report.DialectJSON)
	if err != nil {
		t.Fatalf("Scan(json) error = %v", err)
	}
	if len(files) != 1 || files[0].Dialect != report.DialectJSON {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestScanErrors(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := Scan(t.TempDir(), "xml"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func newLoader(mode report.BatchMode) *Loader {
	return &Loader{
		Decoders:    DefaultDecoders(0),
		Resolver:    label.DefaultFixed(),
		Mode:        mode,
		Parallelism: 2,
	}
}

func TestLoadDirText(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "1.txt"), textRecord(1), textRecord(2))
	writeReports(t, filepath.Join(dir, "2.txt"), textRecord(3))
	writeReports(t, filepath.Join(dir, "3.txt"), textRecord(4))

	got, err := newLoader(report.FailFast).LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if got.Path != dir || got.Dialect() != report.DialectText {
		t.Errorf("unexpected dir %s (%s)", got.Path, got.Dialect())
	}

	wantLabels := []string{"0-4 GB", "4-8 GB", "8-8.4 GB"}
	if len(got.Files) != len(wantLabels) {
		t.Fatalf("expected %d files, got %d", len(wantLabels), len(got.Files))
	}
	for i, want := range wantLabels {
		if got.Files[i].Label != want {
			t.Errorf("Files[%d].Label = %q, want %q", i, got.Files[i].Label, want)
		}
	}
	if len(got.Records()) != 4 {
		t.Errorf("expected 4 records, got %d", len(got.Records()))
	}

	runs := got.Runs()
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if len(runs[0]) != 3 || len(runs[1]) != 1 {
		t.Fatalf("unexpected run sizes %d and %d", len(runs[0]), len(runs[1]))
	}
	if runs[0][2].Summary[report.MetricTotal] != 4 || runs[1][0].Summary[report.MetricTotal] != 2 {
		t.Errorf("runs are not grouped by position: %+v", runs)
	}
	if runs[1][0].Label != "0-4 GB" {
		t.Errorf("runs[1][0].Label = %q", runs[1][0].Label)
	}
}

func TestLoadDirJSON(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "16.json"), jsonRecord(3e9))
	writeReports(t, filepath.Join(dir, "07.json"), jsonRecord(1e9), jsonRecord(2e9))

	l := newLoader(report.FailFast)
	l.Resolver = label.Numeric{Format: label.DefaultFormat}

	got, err := l.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if got.Dialect() != report.DialectJSON {
		t.Errorf("Dialect() = %s, want json", got.Dialect())
	}
	if len(got.Files) != 2 || got.Files[0].Label != "07 ГБ" || got.Files[1].Label != "16 ГБ" {
		t.Fatalf("unexpected files %+v", got.Files)
	}
	if len(got.Files[0].Records) != 2 {
		t.Errorf("expected 2 records in 07.json, got %d", len(got.Files[0].Records))
	}
}

func TestLoadDirFailFast(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "1.txt"), textRecord(1))
	writeFile(t, filepath.Join(dir, "2.txt"), "\nSummary:\n  Total: soon\n")
	writeReports(t, filepath.Join(dir, "3.txt"), textRecord(3))

	got, err := newLoader(report.FailFast).LoadDir(context.Background(), dir)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got.Files) != 0 {
		t.Errorf("expected no files on failure, got %d", len(got.Files))
	}

	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected *FileError, got %T: %v", err, err)
	}
	if filepath.Base(fileErr.Path) != "2.txt" {
		t.Errorf("FileError.Path = %s, want 2.txt", fileErr.Path)
	}
	if !errors.Is(err, report.ErrMalformedReport) {
		t.Errorf("expected ErrMalformedReport in chain, got %v", err)
	}
}

func TestLoadDirFailFastReportsFirstFile(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "1.txt"), textRecord(1))
	writeFile(t, filepath.Join(dir, "2.txt"), "\nSummary:\n  Total: soon\n")
	writeReports(t, filepath.Join(dir, "3.txt"), textRecord(3))
	writeFile(t, filepath.Join(dir, "4.txt"), "\nSummary:\n  Total: later\n")
	writeReports(t, filepath.Join(dir, "5.txt"), textRecord(5))

	l := newLoader(report.FailFast)
	l.Resolver = label.Numeric{Format: label.DefaultFormat}
	l.Parallelism = 4
	for i := 0; i < 20; i++ {
		_, err := l.LoadDir(context.Background(), dir)
		var fileErr *FileError
		if !errors.As(err, &fileErr) {
			t.Fatalf("attempt %d: expected *FileError, got %v", i, err)
		}
		if filepath.Base(fileErr.Path) != "2.txt" {
			t.Fatalf("attempt %d: FileError.Path = %s, want 2.txt", i, fileErr.Path)
		}
	}
}

func TestLoadDirFailFastEmptyJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1.json"), "\n")

	_, err := newLoader(report.FailFast).LoadDir(context.Background(), dir)
	if !errors.Is(err, report.ErrMalformedReport) {
		t.Fatalf("expected ErrMalformedReport for an empty file, got %v", err)
	}
}

func TestLoadDirUnknownLabel(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "9.txt"), textRecord(1))

	_, err := newLoader(report.FailFast).LoadDir(context.Background(), dir)
	var unknown *label.UnknownLabelError
	if !errors.As(err, &unknown) || unknown.ID != "9" {
		t.Fatalf("expected UnknownLabelError for 9, got %v", err)
	}
}

func TestLoadDirCollectAll(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "1.txt"), textRecord(1))

	var partial bytes.Buffer
	if err := report.WriteText(&partial, textRecord(2)); err != nil {
		t.Fatal(err)
	}
	partial.WriteString("trailing garbage\n")
	writeFile(t, filepath.Join(dir, "2.txt"), partial.String())
	writeReports(t, filepath.Join(dir, "9.txt"), textRecord(9))

	got, err := newLoader(report.CollectAll).LoadDir(context.Background(), dir)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 decoded files, got %d", len(got.Files))
	}
	if len(got.Files[1].Records) != 1 {
		t.Errorf("expected the good report of 2.txt to survive, got %d", len(got.Files[1].Records))
	}

	msg := err.Error()
	for _, want := range []string{"2.txt", "9.txt"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
	var batch *report.BatchError
	if !errors.As(err, &batch) {
		t.Errorf("expected *report.BatchError in chain, got %v", err)
	}
	var unknown *label.UnknownLabelError
	if !errors.As(err, &unknown) {
		t.Errorf("expected UnknownLabelError in chain, got %v", err)
	}
}

func TestLoadDirSpans(t *testing.T) {
	dir := t.TempDir()
	writeReports(t, filepath.Join(dir, "1.txt"), textRecord(1))
	writeReports(t, filepath.Join(dir, "2.txt"), textRecord(2))

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	l := newLoader(report.FailFast)
	l.Tracer = tp.Tracer("test")
	if _, err := l.LoadDir(context.Background(), dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	counts := make(map[string]int)
	for _, span := range exporter.GetSpans() {
		counts[span.Name]++
	}
	if counts["decode dir"] != 1 || counts["decode file"] != 2 {
		t.Errorf("unexpected spans %v", counts)
	}
}

func TestRunsEmpty(t *testing.T) {
	if runs := (Dir{}).Runs(); len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
