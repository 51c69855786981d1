package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

type jsonKind int

const (
	jsonNumber jsonKind = iota
	jsonInteger
	jsonArray
)

func (k jsonKind) String() string {
	switch k {
	case jsonInteger:
		return "an integer"
	case jsonArray:
		return "an array"
	default:
		return "a number"
	}
}

// jsonField is one required member of a JSON report.
type jsonField struct {
	name    string
	kind    jsonKind
	extract func(b *builder, v gjson.Result) error
}

// jsonSchema lists the members of a JSON report in the order they are checked.
var jsonSchema = []jsonField{
	{name: "TotalTime", kind: jsonNumber, extract: func(b *builder, v gjson.Result) error {
		b.summary[MetricTotal] = v.Float()
		return nil
	}},
	{name: "Total", kind: jsonInteger, extract: func(b *builder, v gjson.Result) error {
		b.requests = v.Int()
		return nil
	}},
	{name: "Fastest", kind: jsonNumber, extract: func(b *builder, v gjson.Result) error {
		b.summary[MetricFastest] = v.Float()
		return nil
	}},
	{name: "Slowest", kind: jsonNumber, extract: func(b *builder, v gjson.Result) error {
		b.summary[MetricSlowest] = v.Float()
		return nil
	}},
	{name: "Average", kind: jsonNumber, extract: func(b *builder, v gjson.Result) error {
		b.summary[MetricAverage] = v.Float()
		return nil
	}},
	{name: "RPS", kind: jsonNumber, extract: func(b *builder, v gjson.Result) error {
		b.rps = v.Float()
		return nil
	}},
	{name: "Percentiles", kind: jsonArray, extract: extractPercentiles},
}

// JSONDecoder decodes JSON reports, one object per report.
type JSONDecoder struct{}

// NewJSONDecoder returns a JSON report decoder.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

func (d *JSONDecoder) Dialect() Dialect {
	return DialectJSON
}

// Decode validates a single JSON document and extracts its record.
func (d *JSONDecoder) Decode(doc []byte, label string) (Record, error) {
	if !gjson.ValidBytes(doc) {
		return Record{}, &MalformedReportError{Expected: "JSON object", Found: snippet(doc)}
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return Record{}, &MalformedReportError{Expected: "JSON object", Found: typeName(root)}
	}

	if err := checkDuplicateMembers(root); err != nil {
		return Record{}, err
	}

	b := newBuilder(0)
	for _, field := range jsonSchema {
		v := root.Get(gjsonKey(field.name))
		if err := checkKind(field.name, field.kind, v); err != nil {
			return Record{}, err
		}
		if err := field.extract(b, v); err != nil {
			return Record{}, err
		}
	}
	if err := extractErrors(b, root.Get("Errors")); err != nil {
		return Record{}, err
	}
	return b.record(label, DialectJSON), nil
}

// DecodeAll decodes each document in order.
func (d *JSONDecoder) DecodeAll(docs [][]byte, label string, mode BatchMode) ([]Record, error) {
	records := make([]Record, 0, len(docs))
	var errs []error
	for k, doc := range docs {
		rec, err := d.Decode(doc, label)
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
	if len(errs) > 0 {
		return records, &BatchError{Errors: errs}
	}
	return records, nil
}

// DecodeFile decodes the raw content of a JSON report file.
func (d *JSONDecoder) DecodeFile(data []byte, label string, mode BatchMode) ([]Record, error) {
	docs, err := SplitDocuments(data)
	if err != nil {
		return nil, err
	}
	return d.DecodeAll(docs, label, mode)
}

// SplitDocuments returns the reports held in data: the whole content when it
// is a single JSON document, otherwise one report per non-blank line.
func SplitDocuments(data []byte) ([][]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &MalformedReportError{Expected: "JSON object", Found: endOfInput}
	}
	if gjson.ValidBytes(trimmed) {
		return [][]byte{trimmed}, nil
	}

	var docs [][]byte
	for i, line := range SplitLines(trimmed) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, &MalformedReportError{
				Report:   len(docs),
				Unit:     fmt.Sprintf("line %d", i+1),
				Expected: "one JSON object per line",
				Found:    snippet([]byte(line)),
			}
		}
		docs = append(docs, []byte(line))
	}
	return docs, nil
}

func extractPercentiles(b *builder, v gjson.Result) error {
	for i, item := range v.Array() {
		name := fmt.Sprintf("Percentiles[%d]", i)
		if !item.IsObject() {
			return &InvalidFieldTypeError{Name: name, Want: "an object", Got: typeName(item)}
		}
		p := item.Get("Percentile")
		if err := checkKind(name+".Percentile", jsonNumber, p); err != nil {
			return err
		}
		lat := item.Get("Latency")
		if err := checkKind(name+".Latency", jsonNumber, lat); err != nil {
			return err
		}

		percentile := p.Float()
		if !isPercentile(percentile) {
			return &MalformedReportError{
				Unit:     name + ".Percentile",
				Expected: "one of " + percentileList(),
				Found:    p.Raw,
			}
		}
		if _, dup := b.latencies[percentile]; dup {
			return &MalformedReportError{
				Unit:     name + ".Percentile",
				Expected: "each percentile once",
				Found:    p.Raw,
			}
		}
		b.latencies[percentile] = lat.Float()
	}

	for _, p := range Percentiles {
		if _, ok := b.latencies[p]; !ok {
			return &MalformedReportError{
				Unit:     "Percentiles",
				Expected: "percentile " + FormatPercentile(p),
				Found:    endOfInput,
			}
		}
	}
	return nil
}

// extractErrors reads the optional Errors object of failure counts.
func extractErrors(b *builder, v gjson.Result) error {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if !v.IsObject() {
		return &InvalidFieldTypeError{Name: "Errors", Want: "an object", Got: typeName(v)}
	}
	var err error
	v.ForEach(func(key, count gjson.Result) bool {
		name := "Errors." + key.String()
		if err = checkKind(name, jsonInteger, count); err != nil {
			return false
		}
		if b.errors == nil {
			b.errors = make(map[string]int64)
		}
		b.errors[key.String()] = count.Int()
		return true
	})
	return err
}

// checkDuplicateMembers rejects a report repeating one of its known members,
// since gjson would silently read the first occurrence.
func checkDuplicateMembers(root gjson.Result) error {
	known := make(map[string]bool, len(jsonSchema)+1)
	for _, field := range jsonSchema {
		known[field.name] = true
	}
	known["Errors"] = true

	seen := make(map[string]bool, len(known))
	var err error
	root.ForEach(func(key, _ gjson.Result) bool {
		name := key.String()
		if !known[name] {
			return true
		}
		if seen[name] {
			err = &MalformedReportError{Unit: name, Expected: "each member once", Found: "duplicate " + name}
			return false
		}
		seen[name] = true
		return true
	})
	return err
}

func checkKind(name string, kind jsonKind, v gjson.Result) error {
	if !v.Exists() {
		return &MissingFieldError{Name: name}
	}
	switch kind {
	case jsonArray:
		if !v.IsArray() {
			return &InvalidFieldTypeError{Name: name, Want: kind.String(), Got: typeName(v)}
		}
	case jsonInteger:
		if v.Type != gjson.Number {
			return &InvalidFieldTypeError{Name: name, Want: kind.String(), Got: typeName(v)}
		}
		// Values beyond int64 would wrap in Int().
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return &InvalidFieldTypeError{Name: name, Want: kind.String(), Got: typeName(v)}
		}
	default:
		if v.Type != gjson.Number {
			return &InvalidFieldTypeError{Name: name, Want: kind.String(), Got: typeName(v)}
		}
	}
	return nil
}

func typeName(v gjson.Result) string {
	switch {
	case v.IsArray():
		return "array"
	case v.IsObject():
		return "object"
	}
	switch v.Type {
	case gjson.Number:
		return "number " + v.Raw
	case gjson.String:
		return "string"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	default:
		return v.Type.String()
	}
}

// gjsonKey escapes the characters gjson treats as path syntax.
func gjsonKey(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func percentileList() string {
	parts := make([]string, len(Percentiles))
	for i, p := range Percentiles {
		parts[i] = FormatPercentile(p)
	}
	return strings.Join(parts, ", ")
}

func snippet(doc []byte) string {
	const max = 60
	s := strings.TrimSpace(string(doc))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
