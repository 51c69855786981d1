// Package metrics aggregates request latencies and renders them as report
// records.
//
// # Collector
//
// The central [Collector] type keeps latencies in an HDR histogram
// (1µs to 60s, 3 significant figures):
//
//	collector := metrics.NewCollector()
//	collector.RecordRequest(latency, err)
//
//	stats := collector.Stats(elapsed)
//	rec, err := collector.Record("07 ГБ", report.DialectJSON, elapsed, 0)
//
// Text records are expressed in seconds with an evenly spaced histogram from
// the fastest to the slowest request, the way hey prints them. JSON records
// keep nanoseconds, matching the stats emitted by the benchmark harness.
//
// # Workloads
//
// [Workload] draws log-normally distributed latencies from a seeded source
// and feeds them into a Collector. It backs the heygen fixture generator.
//
// # Thread Safety
//
// A Collector is safe for concurrent use.
package metrics
