package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	barChar   = "∎"
	barLength = 40
)

// WriteText writes r in the text report layout.
func WriteText(w io.Writer, r Record) error {
	if r.Dialect != DialectText {
		return fmt.Errorf("cannot write %s record as text report", r.Dialect)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	if err := checkWritable(r); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\nSummary:\n")
	for _, m := range SummaryMetrics {
		fmt.Fprintf(bw, "  %s:\t%4.4f secs.\n", m, r.Summary[m])
	}
	fmt.Fprintf(bw, "  Requests/sec:\t%4.4f\n", r.RequestsPerSecond)

	fmt.Fprintf(bw, "\nResponse time histogram:\n")
	var max int64
	for _, b := range r.Histogram {
		if b.Count > max {
			max = b.Count
		}
	}
	for _, b := range r.Histogram {
		var n int64
		if max > 0 {
			n = (b.Count*barLength + max/2) / max
		}
		fmt.Fprintf(bw, "  %4.3f [%d]\t|%s\n", b.Boundary, b.Count, strings.Repeat(barChar, int(n)))
	}

	fmt.Fprintf(bw, "\nLatency distribution:\n")
	for _, p := range Percentiles {
		fmt.Fprintf(bw, "  %s%% in %4.4f secs.\n", FormatPercentile(p), r.Latencies[p])
	}
	fmt.Fprintln(bw)
	return bw.Flush()
}

type jsonPercentile struct {
	Percentile float64
	Latency    float64
}

type jsonReport struct {
	TotalTime   float64
	Total       int64
	Fastest     float64
	Slowest     float64
	Average     float64
	RPS         float64
	Percentiles []jsonPercentile
	Errors      map[string]int64 `json:",omitempty"`
}

// WriteJSON writes r as a single-line JSON report.
func WriteJSON(w io.Writer, r Record) error {
	for _, m := range jsonSummaryMetrics {
		if _, ok := r.Summary[m]; !ok {
			return fmt.Errorf("record has no %s", m)
		}
	}
	out := jsonReport{
		TotalTime:   r.Summary[MetricTotal],
		Total:       r.Requests,
		Fastest:     r.Summary[MetricFastest],
		Slowest:     r.Summary[MetricSlowest],
		Average:     r.Summary[MetricAverage],
		RPS:         r.RequestsPerSecond,
		Percentiles: make([]jsonPercentile, 0, len(Percentiles)),
		Errors:      r.Errors,
	}
	if out.Total == 0 {
		out.Total = r.TotalCount()
	}
	for _, p := range Percentiles {
		lat, ok := r.Latencies[p]
		if !ok {
			return fmt.Errorf("record has no p%s latency", FormatPercentile(p))
		}
		out.Percentiles = append(out.Percentiles, jsonPercentile{Percentile: p, Latency: lat})
	}
	return json.NewEncoder(w).Encode(out)
}

// checkWritable rejects values the text grammar cannot express.
func checkWritable(r Record) error {
	check := func(what string, v float64) error {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s %v cannot be written as a text report", what, v)
		}
		return nil
	}
	for _, m := range SummaryMetrics {
		if err := check(string(m), r.Summary[m]); err != nil {
			return err
		}
	}
	if err := check("Requests/sec", r.RequestsPerSecond); err != nil {
		return err
	}
	for _, b := range r.Histogram {
		if err := check("bucket", b.Boundary); err != nil {
			return err
		}
		if b.Count < 0 {
			return fmt.Errorf("bucket count %d cannot be written as a text report", b.Count)
		}
	}
	for _, p := range Percentiles {
		if err := check("p"+FormatPercentile(p), r.Latencies[p]); err != nil {
			return err
		}
	}
	return nil
}
