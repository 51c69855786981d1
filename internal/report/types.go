package report

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Dialect identifies a report encoding.
type Dialect string

const (
	DialectText Dialect = "text"
	DialectJSON Dialect = "json"
)

// Duration converts a timing value of the dialect: text reports carry
// seconds, JSON reports nanoseconds.
func (d Dialect) Duration(v float64) time.Duration {
	if d == DialectJSON {
		return time.Duration(v)
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}

// Metric names one of the summary statistics of a run.
type Metric string

const (
	MetricTotal   Metric = "Total"
	MetricSlowest Metric = "Slowest"
	MetricFastest Metric = "Fastest"
	MetricAverage Metric = "Average"
	MetricStddev  Metric = "Stddev"
)

// SummaryMetrics lists the summary lines of a text report in report order.
var SummaryMetrics = []Metric{MetricTotal, MetricSlowest, MetricFastest, MetricAverage, MetricStddev}

// jsonSummaryMetrics is the subset a JSON report carries; it has no Stddev.
var jsonSummaryMetrics = []Metric{MetricTotal, MetricSlowest, MetricFastest, MetricAverage}

// Percentiles is the percentile set every report must contain exactly once each.
var Percentiles = []float64{10, 25, 50, 75, 90, 95, 99, 99.9}

// DefaultBuckets is the number of histogram lines in a text report.
const DefaultBuckets = 11

// Bucket is one line of the response time histogram.
type Bucket struct {
	Boundary float64 `json:"boundary"`
	Count    int64   `json:"count"`
}

// Record holds the statistics of a single benchmark run.
//
// A Record is produced whole by a decoder and must not be modified by callers.
type Record struct {
	Label             string              `json:"label"`
	Dialect           Dialect             `json:"dialect"`
	Summary           map[Metric]float64  `json:"summary"`
	RequestsPerSecond float64             `json:"requests_per_second"`
	Requests          int64               `json:"requests,omitempty"`
	Histogram         []Bucket            `json:"histogram,omitempty"`
	Latencies         map[float64]float64 `json:"-"`
	// Errors counts failed requests by message; only JSON reports carry it.
	Errors map[string]int64 `json:"errors,omitempty"`
}

// PercentileLatency pairs a percentile with its latency.
type PercentileLatency struct {
	Percentile float64 `json:"percentile"`
	Latency    float64 `json:"latency"`
}

// MarshalJSON encodes the latency distribution as an ordered list, since
// encoding/json cannot key objects by float.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	pairs := make([]PercentileLatency, 0, len(r.Latencies))
	for _, p := range r.SortedPercentiles() {
		pairs = append(pairs, PercentileLatency{Percentile: p, Latency: r.Latencies[p]})
	}
	return json.Marshal(struct {
		plain
		Percentiles []PercentileLatency `json:"percentiles"`
	}{plain(r), pairs})
}

// Latency returns the latency recorded for percentile p.
func (r Record) Latency(p float64) (float64, bool) {
	v, ok := r.Latencies[p]
	return v, ok
}

// LatencySeries returns the latencies ordered like Percentiles.
func (r Record) LatencySeries() []float64 {
	out := make([]float64, len(Percentiles))
	for i, p := range Percentiles {
		out[i] = r.Latencies[p]
	}
	return out
}

// SortedPercentiles returns the recorded percentiles in ascending order.
func (r Record) SortedPercentiles() []float64 {
	keys := make([]float64, 0, len(r.Latencies))
	for p := range r.Latencies {
		keys = append(keys, p)
	}
	sort.Float64s(keys)
	return keys
}

// TotalCount sums the histogram counts.
func (r Record) TotalCount() int64 {
	var total int64
	for _, b := range r.Histogram {
		total += b.Count
	}
	return total
}

// Validate checks the structural invariants of a decoded record.
func (r Record) Validate() error {
	metrics := SummaryMetrics
	buckets := -1
	switch r.Dialect {
	case DialectText:
		buckets = len(r.Histogram)
		if buckets == 0 {
			return fmt.Errorf("histogram is empty")
		}
	case DialectJSON:
		metrics = jsonSummaryMetrics
		buckets = 0
	default:
		return fmt.Errorf("unknown dialect %q", r.Dialect)
	}

	if len(r.Summary) != len(metrics) {
		return fmt.Errorf("summary has %d metrics, want %d", len(r.Summary), len(metrics))
	}
	for _, m := range metrics {
		if _, ok := r.Summary[m]; !ok {
			return fmt.Errorf("summary is missing %s", m)
		}
	}

	if len(r.Histogram) != buckets {
		return fmt.Errorf("histogram has %d buckets, want %d", len(r.Histogram), buckets)
	}
	for i := 1; i < len(r.Histogram); i++ {
		if r.Histogram[i].Boundary < r.Histogram[i-1].Boundary {
			return fmt.Errorf("histogram boundary %d (%g) is below boundary %d (%g)",
				i, r.Histogram[i].Boundary, i-1, r.Histogram[i-1].Boundary)
		}
	}

	if len(r.Latencies) != len(Percentiles) {
		return fmt.Errorf("latency distribution has %d percentiles, want %d", len(r.Latencies), len(Percentiles))
	}
	for _, p := range Percentiles {
		if _, ok := r.Latencies[p]; !ok {
			return fmt.Errorf("latency distribution is missing p%s", FormatPercentile(p))
		}
	}
	return nil
}

// FormatPercentile renders a percentile the way reports print it ("10", "99.9").
func FormatPercentile(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func isPercentile(p float64) bool {
	for _, q := range Percentiles {
		if q == p {
			return true
		}
	}
	return false
}

// builder accumulates extracted values until every schema position matched.
type builder struct {
	summary   map[Metric]float64
	rps       float64
	requests  int64
	histogram []Bucket
	latencies map[float64]float64
	errors    map[string]int64
}

func newBuilder(buckets int) *builder {
	return &builder{
		summary:   make(map[Metric]float64, len(SummaryMetrics)),
		histogram: make([]Bucket, 0, buckets),
		latencies: make(map[float64]float64, len(Percentiles)),
	}
}

func (b *builder) record(label string, dialect Dialect) Record {
	return Record{
		Label:             label,
		Dialect:           dialect,
		Summary:           b.summary,
		RequestsPerSecond: b.rps,
		Requests:          b.requests,
		Histogram:         b.histogram,
		Latencies:         b.latencies,
		Errors:            b.errors,
	}
}
