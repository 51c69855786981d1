package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the variant of a schema entry.
type Kind int

const (
	KindSeparator Kind = iota
	KindHeader
	KindSummary
	KindRequestRate
	KindBucket
	KindPercentile
)

func (k Kind) String() string {
	switch k {
	case KindSeparator:
		return "separator"
	case KindHeader:
		return "header"
	case KindSummary:
		return "summary"
	case KindRequestRate:
		return "request rate"
	case KindBucket:
		return "histogram bucket"
	case KindPercentile:
		return "percentile"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

const (
	intPattern   = `\d+`
	floatPattern = `\d+\.\d+`
)

// extractFunc stores the captures of a matched unit into the record under
// construction. It must parse every capture before writing anything.
type extractFunc func(b *builder, captures []string) error

// Entry is one position of a schema: a structural matcher paired with the
// extraction bound to the field it writes.
type Entry struct {
	Kind Kind
	// Expect describes the unit in diagnostics.
	Expect string

	re      *regexp.Regexp
	extract extractFunc
}

// Pattern returns the regular expression the entry matches.
func (e Entry) Pattern() string {
	return e.re.String()
}

// Match reports whether unit satisfies the entry and returns its captures.
func (e Entry) Match(unit string) ([]string, bool) {
	m := e.re.FindStringSubmatch(unit)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// Schema is the ordered sequence of units a text report consists of.
// A Schema is immutable once built and may be shared between goroutines.
type Schema struct {
	entries []Entry
	buckets int
}

var textSchema = NewTextSchema(DefaultBuckets)

// TextSchema returns the schema of the standard text report.
func TextSchema() *Schema {
	return textSchema
}

// NewTextSchema builds the text report schema with the given number of
// histogram lines. It panics if buckets is not positive.
func NewTextSchema(buckets int) *Schema {
	if buckets < 1 {
		panic(fmt.Sprintf("report: histogram needs at least one bucket, got %d", buckets))
	}

	entries := []Entry{
		separator(),
		header("Summary:"),
	}
	for _, m := range SummaryMetrics {
		entries = append(entries, summaryLine(m))
	}
	entries = append(entries,
		requestRateLine(),
		separator(),
		header("Response time histogram:"),
	)
	for i := 0; i < buckets; i++ {
		entries = append(entries, bucketLine())
	}
	entries = append(entries,
		separator(),
		header("Latency distribution:"),
	)
	for _, p := range Percentiles {
		entries = append(entries, percentileLine(p))
	}
	entries = append(entries, separator())

	return &Schema{entries: entries, buckets: buckets}
}

// Len returns the number of units in one report.
func (s *Schema) Len() int {
	return len(s.entries)
}

// Buckets returns the number of histogram lines the schema declares.
func (s *Schema) Buckets() int {
	return s.buckets
}

// Entry returns the entry at position i.
func (s *Schema) Entry(i int) Entry {
	return s.entries[i]
}

// Entries returns a copy of the schema entries.
func (s *Schema) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

func compile(body string) *regexp.Regexp {
	return regexp.MustCompile("^" + body + "$")
}

func separator() Entry {
	return Entry{
		Kind:   KindSeparator,
		Expect: "blank line",
		re:     compile(""),
	}
}

func header(text string) Entry {
	return Entry{
		Kind:   KindHeader,
		Expect: strconv.Quote(text),
		re:     compile(regexp.QuoteMeta(text)),
	}
}

func summaryLine(m Metric) Entry {
	return Entry{
		Kind:   KindSummary,
		Expect: strconv.Quote(fmt.Sprintf("  %s:\t<float> secs.", m)),
		re:     compile(fmt.Sprintf(`  %s:\t(%s) secs\.`, regexp.QuoteMeta(string(m)), floatPattern)),
		extract: func(b *builder, captures []string) error {
			v, err := parseFloat(captures[0])
			if err != nil {
				return err
			}
			b.summary[m] = v
			return nil
		},
	}
}

func requestRateLine() Entry {
	return Entry{
		Kind:   KindRequestRate,
		Expect: strconv.Quote("  Requests/sec:\t<float>"),
		re:     compile(fmt.Sprintf(`  Requests/sec:\t(%s)`, floatPattern)),
		extract: func(b *builder, captures []string) error {
			v, err := parseFloat(captures[0])
			if err != nil {
				return err
			}
			b.rps = v
			return nil
		},
	}
}

func bucketLine() Entry {
	return Entry{
		Kind:   KindBucket,
		Expect: strconv.Quote("  <float> [<int>]\t|∎∎∎"),
		re:     compile(fmt.Sprintf(`  (%s) \[(%s)\]\t\|∎*`, floatPattern, intPattern)),
		extract: func(b *builder, captures []string) error {
			boundary, err := parseFloat(captures[0])
			if err != nil {
				return err
			}
			count, err := strconv.ParseInt(captures[1], 10, 64)
			if err != nil {
				return err
			}
			if n := len(b.histogram); n > 0 && boundary < b.histogram[n-1].Boundary {
				return fmt.Errorf("bucket %g is below the previous bucket %g", boundary, b.histogram[n-1].Boundary)
			}
			b.histogram = append(b.histogram, Bucket{Boundary: boundary, Count: count})
			return nil
		},
	}
}

func percentileLine(p float64) Entry {
	label := FormatPercentile(p)
	return Entry{
		Kind:   KindPercentile,
		Expect: strconv.Quote(fmt.Sprintf("  %s%% in <float> secs.", label)),
		re:     compile(fmt.Sprintf(`  %s%% in (%s) secs\.`, regexp.QuoteMeta(label), floatPattern)),
		extract: func(b *builder, captures []string) error {
			v, err := parseFloat(captures[0])
			if err != nil {
				return err
			}
			b.latencies[p] = v
			return nil
		},
	}
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}
