package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
)

// Threshold represents an assertion checked against every decoded run.
type Threshold struct {
	Metric    string  // "latency", "requests" or "errors"
	Aggregate string  // e.g. "p99", "p99.9", "avg", "max", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // milliseconds for latency
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold on one run.
type Result struct {
	Threshold Threshold
	Dir       string
	Label     string
	Run       int // 1-based position of the report in its file
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against decoded reports.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks every threshold against every record, in directory and
// file order.
func (e *Evaluator) Evaluate(dirs []source.Dir) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	var results []Result
	for _, dir := range dirs {
		for _, f := range dir.Files {
			for i, rec := range f.Records {
				for _, t := range e.thresholds {
					result := evaluateOne(t, rec)
					result.Dir = dir.Path
					result.Label = f.Label
					result.Run = i + 1
					results = append(results, result)
				}
			}
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Pass {
			failed = append(failed, r)
		}
	}
	return failed
}

func evaluateOne(t Threshold, rec report.Record) Result {
	actual, err := extractMetricValue(t, rec)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s [%s]: %.2f %s %.2f", status, t.Raw, rec.Label, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z]+):([a-z0-9.]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "latency:p99 < 50"     (latency percentile in ms)
// - "latency:avg < 20"     (average latency in ms)
// - "latency:max < 100"    (slowest request in ms)
// - "requests:rate > 1000" (requests per second)
// - "requests:count > 100" (histogram or request count)
// - "errors:count < 10"    (reported error occurrences)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency:p99 < 50')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	switch metric {
	case "latency", "requests", "errors":
	default:
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, requests, errors)", metric)
	}

	if !isValidAggregate(metric, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s", aggregate, metric)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidAggregate(metric, aggregate string) bool {
	switch metric {
	case "latency":
		switch aggregate {
		case "avg", "mean", "min", "max":
			return true
		}
		_, ok := percentile(aggregate)
		return ok
	case "requests":
		return aggregate == "rate" || aggregate == "count"
	case "errors":
		return aggregate == "count"
	}
	return false
}

// percentile maps "p99.9" to 99.9 when it is one of the reported percentiles.
func percentile(aggregate string) (float64, bool) {
	if !strings.HasPrefix(aggregate, "p") {
		return 0, false
	}
	p, err := strconv.ParseFloat(aggregate[1:], 64)
	if err != nil {
		return 0, false
	}
	for _, known := range report.Percentiles {
		if p == known {
			return p, true
		}
	}
	return 0, false
}

func isValidOperator(operator string) bool {
	valid := []string{"<", "<=", ">", ">=", "=="}
	for _, v := range valid {
		if operator == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, rec report.Record) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractLatencyMetric(t.Aggregate, rec)
	case "requests":
		return extractRequestMetric(t.Aggregate, rec)
	case "errors":
		var n int64
		for _, count := range rec.Errors {
			n += count
		}
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, rec report.Record) (float64, error) {
	var v float64
	switch aggregate {
	case "avg", "mean":
		v = rec.Summary[report.MetricAverage]
	case "min":
		v = rec.Summary[report.MetricFastest]
	case "max":
		v = rec.Summary[report.MetricSlowest]
	default:
		p, ok := percentile(aggregate)
		if !ok {
			return 0, fmt.Errorf("unsupported aggregate %q for latency", aggregate)
		}
		latency, ok := rec.Latency(p)
		if !ok {
			return 0, fmt.Errorf("report has no p%s latency", report.FormatPercentile(p))
		}
		v = latency
	}
	return float64(rec.Dialect.Duration(v)) / float64(time.Millisecond), nil
}

func extractRequestMetric(aggregate string, rec report.Record) (float64, error) {
	switch aggregate {
	case "count":
		if rec.Requests > 0 {
			return float64(rec.Requests), nil
		}
		return float64(rec.TotalCount()), nil
	case "rate":
		return rec.RequestsPerSecond, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for requests (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
