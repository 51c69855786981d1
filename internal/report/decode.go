package report

import (
	"fmt"
	"strings"
)

// BatchMode selects how a multi-report input reacts to a failing report.
type BatchMode int

const (
	// FailFast stops at the first failing report and returns no records.
	FailFast BatchMode = iota
	// CollectAll decodes every report, returning the good records together
	// with a *BatchError describing the bad ones.
	CollectAll
)

func (m BatchMode) String() string {
	switch m {
	case FailFast:
		return "fail-fast"
	case CollectAll:
		return "collect-all"
	default:
		return fmt.Sprintf("BatchMode(%d)", int(m))
	}
}

// ParseBatchMode parses "fail-fast" or "collect-all".
func ParseBatchMode(s string) (BatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast", "failfast", "fail_fast":
		return FailFast, nil
	case "collect-all", "collectall", "collect_all":
		return CollectAll, nil
	default:
		return FailFast, fmt.Errorf("unknown batch mode %q: use \"fail-fast\" or \"collect-all\"", s)
	}
}

// Decoder turns the content of one file into records.
type Decoder interface {
	Dialect() Dialect
	DecodeFile(data []byte, label string, mode BatchMode) ([]Record, error)
}

// TextDecoder decodes text reports against a Schema.
type TextDecoder struct {
	schema *Schema
}

// NewTextDecoder returns a decoder for schema, or for TextSchema when
// schema is nil.
func NewTextDecoder(schema *Schema) *TextDecoder {
	if schema == nil {
		schema = TextSchema()
	}
	return &TextDecoder{schema: schema}
}

func (d *TextDecoder) Dialect() Dialect {
	return DialectText
}

// Schema returns the schema the decoder walks.
func (d *TextDecoder) Schema() *Schema {
	return d.schema
}

// Decode matches units against the schema position by position and
// returns the assembled record. units must hold exactly one report.
func (d *TextDecoder) Decode(units []string, label string) (Record, error) {
	b := newBuilder(d.schema.buckets)
	for i, entry := range d.schema.entries {
		if i >= len(units) {
			return Record{}, d.malformed(i, entry.Expect, endOfInput)
		}
		captures, ok := entry.Match(units[i])
		if !ok {
			return Record{}, d.malformed(i, entry.Expect, units[i])
		}
		if entry.extract == nil {
			continue
		}
		if err := entry.extract(b, captures); err != nil {
			return Record{}, d.malformed(i, fmt.Sprintf("%s (%v)", entry.Expect, err), units[i])
		}
	}
	if n := d.schema.Len(); len(units) > n {
		return Record{}, d.malformed(n, "end of report", units[n])
	}
	return b.record(label, DialectText), nil
}

// DecodeAll splits units into consecutive reports of the schema length and
// decodes each of them in order.
func (d *TextDecoder) DecodeAll(units []string, label string, mode BatchMode) ([]Record, error) {
	size := d.schema.Len()
	full := len(units) / size

	var trailing error
	if len(units)%size != 0 {
		_, err := d.Decode(units[full*size:], label)
		trailing = withReport(err, full)
		if mode == FailFast {
			return nil, trailing
		}
	}

	records := make([]Record, 0, full)
	var errs []error
	for k := 0; k < full; k++ {
		rec, err := d.Decode(units[k*size:(k+1)*size], label)
		if err != nil {
			err = withReport(err, k)
			if mode == FailFast {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	if trailing != nil {
		errs = append(errs, trailing)
	}
	if len(errs) > 0 {
		return records, &BatchError{Errors: errs}
	}
	return records, nil
}

// DecodeFile decodes the raw content of a text report file.
func (d *TextDecoder) DecodeFile(data []byte, label string, mode BatchMode) ([]Record, error) {
	return d.DecodeAll(SplitLines(data), label, mode)
}

func (d *TextDecoder) malformed(pos int, expected, found string) *MalformedReportError {
	return &MalformedReportError{
		Position: pos,
		Size:     d.schema.Len(),
		Expected: expected,
		Found:    found,
	}
}

// SplitLines splits file content into lines without their terminators.
// A final terminator does not start another line.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
