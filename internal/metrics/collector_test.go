package metrics_test

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/torosent/heystat/internal/metrics"
	"github.com/torosent/heystat/internal/report"
)

func TestCollectorLatencyStats(t *testing.T) {
	c := metrics.NewCollector()

	// Record deterministic latencies.
	c.RecordRequest(10*time.Millisecond, nil)
	c.RecordRequest(20*time.Millisecond, nil)
	c.RecordRequest(30*time.Millisecond, nil)
	c.RecordRequest(40*time.Millisecond, nil)
	c.RecordRequest(50*time.Millisecond, nil)
	c.RecordRequest(time.Second, errors.New("EOF"))

	stats := c.Stats(0)

	if stats.Total != 6 {
		t.Errorf("expected total 6, got %d", stats.Total)
	}
	if stats.Successes != 5 {
		t.Errorf("expected successes 5, got %d", stats.Successes)
	}
	if stats.Failures != 1 {
		t.Errorf("expected failures 1, got %d", stats.Failures)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLatency)
	}
	if stats.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms (failures excluded), got %s", stats.MaxLatency)
	}
	if stats.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLatency)
	}
	if stats.Errors["EOF"] != 1 {
		t.Errorf("expected one EOF error, got %v", stats.Errors)
	}
	if stats.RequestsPerSec != 0 {
		t.Errorf("expected zero RPS without elapsed time, got %v", stats.RequestsPerSec)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	c := metrics.NewCollector()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		c.RecordRequest(time.Duration(i)*time.Millisecond, nil)
	}

	stats := c.Stats(time.Second)

	tests := []struct {
		p        float64
		min, max time.Duration
	}{
		{10, 9 * time.Millisecond, 11 * time.Millisecond},
		{50, 49 * time.Millisecond, 51 * time.Millisecond},
		{90, 89 * time.Millisecond, 91 * time.Millisecond},
		{99.9, 99 * time.Millisecond, 101 * time.Millisecond},
	}
	for _, tt := range tests {
		got := stats.Percentiles[tt.p]
		if got < tt.min || got > tt.max {
			t.Errorf("expected p%v in [%s, %s], got %s", tt.p, tt.min, tt.max, got)
		}
	}
	if len(stats.Percentiles) != len(report.Percentiles) {
		t.Errorf("expected %d percentiles, got %d", len(report.Percentiles), len(stats.Percentiles))
	}
	if stats.RequestsPerSec != 100 {
		t.Errorf("expected 100 RPS, got %v", stats.RequestsPerSec)
	}
}

func TestConcurrentRecording(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				c.RecordRequest(time.Millisecond, nil)
			}
		}()
	}
	wg.Wait()

	stats := c.Stats(0)
	expected := workers * recordsPerWorker
	if stats.Total != int64(expected) {
		t.Errorf("expected total %d, got %d", expected, stats.Total)
	}
}

func linearCollector() *metrics.Collector {
	c := metrics.NewCollector()
	for i := 1; i <= 100; i++ {
		c.RecordRequest(time.Duration(i)*time.Millisecond, nil)
	}
	return c
}

func TestRecordText(t *testing.T) {
	rec, err := linearCollector().Record("run", report.DialectText, time.Second, 0)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if rec.Summary[report.MetricTotal] != 1 {
		t.Errorf("expected Total 1s, got %v", rec.Summary[report.MetricTotal])
	}
	if rec.Summary[report.MetricFastest] != 0.001 || rec.Summary[report.MetricSlowest] != 0.1 {
		t.Errorf("unexpected fastest/slowest %v/%v", rec.Summary[report.MetricFastest], rec.Summary[report.MetricSlowest])
	}
	if len(rec.Histogram) != report.DefaultBuckets {
		t.Fatalf("expected %d buckets, got %d", report.DefaultBuckets, len(rec.Histogram))
	}
	if rec.Histogram[0].Boundary != 0.001 || rec.Histogram[len(rec.Histogram)-1].Boundary != 0.1 {
		t.Errorf("unexpected bucket range %v..%v", rec.Histogram[0].Boundary, rec.Histogram[len(rec.Histogram)-1].Boundary)
	}
	if rec.TotalCount() != 100 {
		t.Errorf("expected histogram total 100, got %d", rec.TotalCount())
	}

	var buf bytes.Buffer
	if err := report.WriteText(&buf, rec); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	decoded, err := report.NewTextDecoder(nil).Decode(report.SplitLines(buf.Bytes()), "run")
	if err != nil {
		t.Fatalf("generated report does not decode: %v\n%s", err, buf.String())
	}
	if math.Abs(decoded.RequestsPerSecond-100) > 1e-9 {
		t.Errorf("decoded RPS = %v, want 100", decoded.RequestsPerSecond)
	}
}

func TestRecordTextCustomBuckets(t *testing.T) {
	rec, err := linearCollector().Record("run", report.DialectText, time.Second, 3)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(rec.Histogram) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(rec.Histogram))
	}

	var buf bytes.Buffer
	if err := report.WriteText(&buf, rec); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	decoder := report.NewTextDecoder(report.NewTextSchema(3))
	if _, err := decoder.Decode(report.SplitLines(buf.Bytes()), "run"); err != nil {
		t.Fatalf("generated report does not decode: %v", err)
	}
}

func TestRecordJSON(t *testing.T) {
	c := linearCollector()
	c.RecordRequest(time.Millisecond, errors.New("context deadline exceeded"))

	rec, err := c.Record("07 ГБ", report.DialectJSON, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if rec.Summary[report.MetricTotal] != 2e9 {
		t.Errorf("expected TotalTime in nanoseconds, got %v", rec.Summary[report.MetricTotal])
	}
	if rec.Requests != 100 {
		t.Errorf("expected 100 successful requests, got %d", rec.Requests)
	}
	if rec.RequestsPerSecond != 50 {
		t.Errorf("expected 50 RPS, got %v", rec.RequestsPerSecond)
	}
	if rec.Errors["context deadline exceeded"] != 1 {
		t.Errorf("unexpected errors %v", rec.Errors)
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, rec); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	decoded, err := report.NewJSONDecoder().Decode(buf.Bytes(), "07 ГБ")
	if err != nil {
		t.Fatalf("generated report does not decode: %v\n%s", err, buf.String())
	}
	if decoded.Summary[report.MetricFastest] != 1e6 {
		t.Errorf("decoded Fastest = %v, want 1e6", decoded.Summary[report.MetricFastest])
	}
}

func TestRecordErrors(t *testing.T) {
	if _, err := metrics.NewCollector().Record("", report.DialectText, time.Second, 0); !errors.Is(err, metrics.ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
	if _, err := linearCollector().Record("", report.DialectText, 0, 0); err == nil {
		t.Error("expected error for zero elapsed time")
	}
	if _, err := linearCollector().Record("", "xml", time.Second, 0); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestWorkloadRun(t *testing.T) {
	w := metrics.DefaultWorkload()
	w.Samples = 500
	w.FailureRate = 0.1

	c1, elapsed1, err := w.Run(rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	c2, elapsed2, err := w.Run(rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed1 != elapsed2 {
		t.Errorf("same seed produced different elapsed times %s and %s", elapsed1, elapsed2)
	}

	s1, s2 := c1.Stats(elapsed1), c2.Stats(elapsed2)
	if s1.Total != 500 || s1.Successes != s2.Successes || s1.MeanLatency != s2.MeanLatency {
		t.Errorf("runs differ: %+v vs %+v", s1, s2)
	}
	if s1.Failures == 0 {
		t.Error("expected some simulated failures")
	}

	if _, err := c1.Record("1", report.DialectText, elapsed1, 0); err != nil {
		t.Errorf("Record() error = %v", err)
	}
}

func TestWorkloadValidation(t *testing.T) {
	tests := map[string]func(*metrics.Workload){
		"samples":     func(w *metrics.Workload) { w.Samples = 0 },
		"median":      func(w *metrics.Workload) { w.Median = 0 },
		"spread":      func(w *metrics.Workload) { w.Spread = -1 },
		"failures":    func(w *metrics.Workload) { w.FailureRate = 1 },
		"concurrency": func(w *metrics.Workload) { w.Concurrency = 0 },
	}
	for name, mutate := range tests {
		w := metrics.DefaultWorkload()
		mutate(&w)
		if _, _, err := w.Run(rand.New(rand.NewSource(1))); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
