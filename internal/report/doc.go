// Package report decodes load-test reports into typed statistics records.
//
// Two dialects are supported. The text dialect is the human-readable report
// printed by hey-style load generators:
//
//	Summary:
//	  Total:	1.2340 secs.
//	  ...
//	Response time histogram:
//	  0.500 [10]	|∎∎∎∎
//	  ...
//	Latency distribution:
//	  10% in 0.0010 secs.
//	  ...
//
// It is described by a [Schema]: an ordered table with one [Entry] per line.
// [TextDecoder] walks the table in lock-step with the input, so line i must
// match entry i. There is no lookahead or reordering; the first mismatch
// aborts the decode with a [*MalformedReportError] naming the position, the
// expected unit and the offending line. Inputs holding several reports back
// to back are split into chunks of [Schema.Len] lines by
// [TextDecoder.DecodeAll].
//
// The JSON dialect holds one object per report with the members TotalTime,
// Total, Fastest, Slowest, Average, RPS and Percentiles. [JSONDecoder]
// checks each member's presence and type and requires Percentiles to hold
// exactly the percentile set {10, 25, 50, 75, 90, 95, 99, 99.9}.
//
// Decoders never return a partially populated [Record]: either every unit
// matched or an error is returned. Values are passed through unconverted.
package report
