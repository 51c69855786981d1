package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/heystat/internal/report"
)

// ErrNoSamples is returned by Collector.Record before any request succeeded.
var ErrNoSamples = errors.New("no successful requests recorded")

// Collector records per-request latencies in a thread-safe manner.
type Collector struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
	errors     map[string]int64
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64                     `json:"total"`
	Successes      int64                     `json:"successes"`
	Failures       int64                     `json:"failures"`
	MinLatency     time.Duration             `json:"min_latency"`
	MaxLatency     time.Duration             `json:"max_latency"`
	MeanLatency    time.Duration             `json:"mean_latency"`
	StddevLatency  time.Duration             `json:"stddev_latency"`
	Percentiles    map[float64]time.Duration `json:"-"`
	Duration       time.Duration             `json:"duration"`
	RequestsPerSec float64                   `json:"requests_per_sec"`
	Errors         map[string]int64          `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:   h,
		errors: make(map[string]int64),
	}
}

// RecordRequest records a single request. Failed requests are counted by
// error message and excluded from the latency statistics.
func (c *Collector) RecordRequest(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.failures++
		c.errors[err.Error()]++
		return
	}

	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)
	c.sumLatency += latency

	if c.successes == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
	c.successes++
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked(elapsed)
}

func (c *Collector) statsLocked(elapsed time.Duration) Stats {
	stats := Stats{
		Total:      c.successes + c.failures,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		Duration:   elapsed,
	}

	if c.successes > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / c.successes)
		stats.StddevLatency = time.Duration(c.hist.StdDev() * float64(time.Microsecond))
		stats.Percentiles = make(map[float64]time.Duration, len(report.Percentiles))
		for _, p := range report.Percentiles {
			stats.Percentiles[p] = time.Duration(c.hist.ValueAtQuantile(p)) * time.Microsecond
		}
	}
	if elapsed > 0 && c.successes > 0 {
		stats.RequestsPerSec = float64(c.successes) / elapsed.Seconds()
	}

	if len(c.errors) > 0 {
		stats.Errors = make(map[string]int64, len(c.errors))
		for k, v := range c.errors {
			stats.Errors[k] = v
		}
	}
	return stats
}

// Record renders the collected samples as a report record. Text records
// carry seconds and a histogram of the given number of buckets (the
// standard count when buckets is zero); JSON records carry nanoseconds.
func (c *Collector) Record(label string, dialect report.Dialect, elapsed time.Duration, buckets int) (report.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.successes == 0 {
		return report.Record{}, ErrNoSamples
	}
	if elapsed <= 0 {
		return report.Record{}, fmt.Errorf("elapsed time must be positive, got %s", elapsed)
	}
	stats := c.statsLocked(elapsed)

	switch dialect {
	case report.DialectText:
		if buckets == 0 {
			buckets = report.DefaultBuckets
		}
		if buckets < 0 {
			return report.Record{}, fmt.Errorf("bucket count must be positive, got %d", buckets)
		}
		rec := report.Record{
			Label:   label,
			Dialect: report.DialectText,
			Summary: map[report.Metric]float64{
				report.MetricTotal:   elapsed.Seconds(),
				report.MetricSlowest: stats.MaxLatency.Seconds(),
				report.MetricFastest: stats.MinLatency.Seconds(),
				report.MetricAverage: stats.MeanLatency.Seconds(),
				report.MetricStddev:  stats.StddevLatency.Seconds(),
			},
			RequestsPerSecond: stats.RequestsPerSec,
			Histogram:         c.histogramLocked(stats.MinLatency, stats.MaxLatency, buckets),
			Latencies:         make(map[float64]float64, len(report.Percentiles)),
		}
		for p, d := range stats.Percentiles {
			rec.Latencies[p] = d.Seconds()
		}
		return rec, nil

	case report.DialectJSON:
		rec := report.Record{
			Label:   label,
			Dialect: report.DialectJSON,
			Summary: map[report.Metric]float64{
				report.MetricTotal:   float64(elapsed.Nanoseconds()),
				report.MetricSlowest: float64(stats.MaxLatency.Nanoseconds()),
				report.MetricFastest: float64(stats.MinLatency.Nanoseconds()),
				report.MetricAverage: float64(stats.MeanLatency.Nanoseconds()),
			},
			RequestsPerSecond: stats.RequestsPerSec,
			Requests:          stats.Successes,
			Latencies:         make(map[float64]float64, len(report.Percentiles)),
			Errors:            stats.Errors,
		}
		for p, d := range stats.Percentiles {
			rec.Latencies[p] = float64(d.Nanoseconds())
		}
		return rec, nil

	default:
		return report.Record{}, fmt.Errorf("unknown dialect %q", dialect)
	}
}

// histogramLocked spreads the recorded values over evenly spaced buckets
// from fastest to slowest. A value belongs to the first bucket whose
// boundary is not below it.
func (c *Collector) histogramLocked(fastest, slowest time.Duration, n int) []report.Bucket {
	out := make([]report.Bucket, n)
	step := 0.0
	if n > 1 {
		step = (slowest - fastest).Seconds() / float64(n-1)
	}
	for i := range out {
		out[i].Boundary = fastest.Seconds() + step*float64(i)
	}
	out[n-1].Boundary = slowest.Seconds()

	for _, bar := range c.hist.Distribution() {
		if bar.Count == 0 {
			continue
		}
		v := (time.Duration(bar.From+bar.To) * time.Microsecond / 2).Seconds()
		i := 0
		for i < n-1 && v > out[i].Boundary {
			i++
		}
		out[i].Count += bar.Count
	}
	return out
}
