package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/source"
	"github.com/torosent/heystat/internal/threshold"
)

// PrintReport outputs a human-readable summary of every decoded directory.
func PrintReport(w io.Writer, dirs []source.Dir) {
	for _, dir := range dirs {
		records := dir.Records()
		fmt.Fprintf(w, "\n--- %s ---\n", dir.Path)
		fmt.Fprintf(w, "Dialect:           %s\n", dir.Dialect())
		fmt.Fprintf(w, "Files:             %d\n", len(dir.Files))
		fmt.Fprintf(w, "Reports:           %d\n", len(records))

		for _, f := range dir.Files {
			fmt.Fprintf(w, "\n%s (%s):\n", f.Label, f.Path)
			for i, rec := range f.Records {
				fmt.Fprintf(w, "  Run %d:\n", i+1)
				writeRecord(w, rec, "    ")
			}
		}
	}
}

func writeRecord(w io.Writer, rec report.Record, indent string) {
	fmt.Fprintf(w, "%sTotal:           %s\n", indent, Duration(rec.Summary[report.MetricTotal], rec.Dialect))
	if rec.Requests > 0 {
		fmt.Fprintf(w, "%sRequests:        %d\n", indent, rec.Requests)
	}
	fmt.Fprintf(w, "%sRequests/sec:    %.2f\n", indent, rec.RequestsPerSecond)
	fmt.Fprintf(w, "%sLatency:         min=%s mean=%s max=%s",
		indent,
		Duration(rec.Summary[report.MetricFastest], rec.Dialect),
		Duration(rec.Summary[report.MetricAverage], rec.Dialect),
		Duration(rec.Summary[report.MetricSlowest], rec.Dialect),
	)
	if stddev, ok := rec.Summary[report.MetricStddev]; ok {
		fmt.Fprintf(w, " stddev=%s", Duration(stddev, rec.Dialect))
	}
	fmt.Fprintln(w)

	parts := make([]string, 0, len(report.Percentiles))
	for _, p := range report.Percentiles {
		parts = append(parts, fmt.Sprintf("p%s=%s", report.FormatPercentile(p), Duration(rec.Latencies[p], rec.Dialect)))
	}
	fmt.Fprintf(w, "%sPercentiles:     %s\n", indent, strings.Join(parts, " "))

	if len(rec.Errors) > 0 {
		fmt.Fprintf(w, "%sErrors:\n", indent)
		msgs := make([]string, 0, len(rec.Errors))
		for msg := range rec.Errors {
			msgs = append(msgs, msg)
		}
		sort.Strings(msgs)
		for _, msg := range msgs {
			fmt.Fprintf(w, "%s  %s: %d\n", indent, msg, rec.Errors[msg])
		}
	}
}

// PrintThresholdResults lists every threshold check and how many failed.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	failed := len(threshold.Failed(results))
	fmt.Fprintf(w, "\nThresholds: %d/%d passed\n", len(results)-failed, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %s (%s, run %d)\n", r.Message, r.Dir, r.Run)
	}
}

// Duration converts a report value of the given dialect to a time.Duration.
func Duration(v float64, dialect report.Dialect) time.Duration {
	return dialect.Duration(v)
}

type jsonFile struct {
	Path    string          `json:"path"`
	Label   string          `json:"label"`
	Records []report.Record `json:"records"`
}

type jsonDir struct {
	Path    string         `json:"path"`
	Dialect report.Dialect `json:"dialect"`
	Files   []jsonFile     `json:"files"`
}

// PrintJSONReport outputs every decoded record as indented JSON.
func PrintJSONReport(w io.Writer, dirs []source.Dir) error {
	out := make([]jsonDir, 0, len(dirs))
	for _, dir := range dirs {
		jd := jsonDir{Path: dir.Path, Dialect: dir.Dialect(), Files: make([]jsonFile, 0, len(dir.Files))}
		for _, f := range dir.Files {
			jd.Files = append(jd.Files, jsonFile{Path: f.Path, Label: f.Label, Records: f.Records})
		}
		out = append(out, jd)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
