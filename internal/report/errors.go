package report

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedReport matches every *MalformedReportError.
	ErrMalformedReport = errors.New("malformed report")
	// ErrMissingField matches every *MissingFieldError.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidFieldType matches every *InvalidFieldTypeError.
	ErrInvalidFieldType = errors.New("invalid field type")
)

// endOfInput is reported as the found unit when a report is truncated.
const endOfInput = "<end of input>"

// MalformedReportError reports a unit that does not match the schema entry
// at its position.
type MalformedReportError struct {
	// Report is the 0-based index of the report within its input.
	Report int
	// Position is the 0-based unit index within the report.
	Position int
	// Size is the schema length of one report; zero for the JSON dialect.
	Size int
	// Unit names the JSON field at fault; empty for the text dialect.
	Unit     string
	Expected string
	Found    string
}

// Line returns the 1-based line of the offending unit within the whole
// input. It is only meaningful for the text dialect.
func (e *MalformedReportError) Line() int {
	return e.Report*e.Size + e.Position + 1
}

func (e *MalformedReportError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed report")
	if e.Size > 0 {
		fmt.Fprintf(&sb, " %d at position %d (line %d)", e.Report, e.Position, e.Line())
	} else {
		fmt.Fprintf(&sb, " %d", e.Report)
		if e.Unit != "" {
			fmt.Fprintf(&sb, " at %s", e.Unit)
		}
	}
	fmt.Fprintf(&sb, ": expected %s, found %q", e.Expected, e.Found)
	return sb.String()
}

func (e *MalformedReportError) Is(target error) bool {
	return target == ErrMalformedReport
}

// MissingFieldError reports a required JSON field that is absent.
type MissingFieldError struct {
	Report int
	Name   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("report %d: missing required field %q", e.Report, e.Name)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// InvalidFieldTypeError reports a JSON field whose value has the wrong type.
type InvalidFieldTypeError struct {
	Report int
	Name   string
	Want   string
	Got    string
}

func (e *InvalidFieldTypeError) Error() string {
	return fmt.Sprintf("report %d: field %q must be %s, got %s", e.Report, e.Name, e.Want, e.Got)
}

func (e *InvalidFieldTypeError) Is(target error) bool {
	return target == ErrInvalidFieldType
}

// BatchError collects the failures of a CollectAll decode.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d reports failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// withReport rebases a single-report error onto the report index k.
func withReport(err error, k int) error {
	var malformed *MalformedReportError
	if errors.As(err, &malformed) {
		malformed.Report = k
		return malformed
	}
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		missing.Report = k
		return missing
	}
	var invalid *InvalidFieldTypeError
	if errors.As(err, &invalid) {
		invalid.Report = k
		return invalid
	}
	return err
}
