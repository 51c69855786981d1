// Package label turns report file identifiers into display labels.
package label

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy names a labelling strategy.
type Policy string

const (
	PolicyFixed   Policy = "fixed"
	PolicyNumeric Policy = "numeric"
)

// DefaultFormat is the Numeric format used when none is configured.
const DefaultFormat = "%02d ГБ"

// Resolver maps a file identifier (its name without extension) to a label.
type Resolver interface {
	Resolve(id string) (string, error)
}

// UnknownLabelError is returned by Fixed for an identifier outside its table.
type UnknownLabelError struct {
	ID string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("unknown label %q", e.ID)
}

// InvalidLabelFormatError is returned by Numeric for a non-integer identifier.
type InvalidLabelFormatError struct {
	ID string
}

func (e *InvalidLabelFormatError) Error() string {
	return fmt.Sprintf("label %q is not an integer", e.ID)
}

// Fixed resolves identifiers through a finite table.
type Fixed struct {
	table map[string]string
}

// NewFixed returns a Fixed resolver over a copy of table.
func NewFixed(table map[string]string) *Fixed {
	cp := make(map[string]string, len(table))
	for k, v := range table {
		cp[k] = v
	}
	return &Fixed{table: cp}
}

// DefaultFixed returns the table used for fill-rate runs.
func DefaultFixed() *Fixed {
	return NewFixed(map[string]string{
		"1": "0-4 GB",
		"2": "4-8 GB",
		"3": "8-8.4 GB",
	})
}

// LoadFixed reads a YAML mapping of identifier to label.
func LoadFixed(path string) (*Fixed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return ParseFixed(data)
}

// ParseFixed parses a YAML mapping of identifier to label.
func ParseFixed(data []byte) (*Fixed, error) {
	var table map[string]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse label file: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("label file defines no labels")
	}
	for id, lbl := range table {
		if strings.TrimSpace(lbl) == "" {
			return nil, fmt.Errorf("label for %q is empty", id)
		}
	}
	return NewFixed(table), nil
}

func (f *Fixed) Resolve(id string) (string, error) {
	lbl, ok := f.table[id]
	if !ok {
		return "", &UnknownLabelError{ID: id}
	}
	return lbl, nil
}

// IDs returns the known identifiers in sorted order.
func (f *Fixed) IDs() []string {
	ids := make([]string, 0, len(f.table))
	for id := range f.table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Numeric parses the identifier as an integer and formats it.
type Numeric struct {
	Format string
}

func (n Numeric) Resolve(id string) (string, error) {
	v, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return "", &InvalidLabelFormatError{ID: id}
	}
	format := n.Format
	if format == "" {
		format = DefaultFormat
	}
	return fmt.Sprintf(format, v), nil
}

// New builds the resolver for policy. For the fixed policy tablePath, when
// set, replaces the default table. For the numeric policy format overrides
// DefaultFormat.
func New(policy Policy, format, tablePath string) (Resolver, error) {
	switch Policy(strings.ToLower(string(policy))) {
	case PolicyFixed, "":
		if tablePath == "" {
			return DefaultFixed(), nil
		}
		return LoadFixed(tablePath)
	case PolicyNumeric:
		if format != "" && !strings.Contains(format, "%") {
			return nil, fmt.Errorf("label format %q has no verb", format)
		}
		return Numeric{Format: format}, nil
	default:
		return nil, fmt.Errorf("unknown label policy %q: use %q or %q", policy, PolicyFixed, PolicyNumeric)
	}
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
