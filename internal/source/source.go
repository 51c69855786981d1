// Package source enumerates report directories and decodes their files.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/torosent/heystat/internal/report"
)

// ErrNoReports is returned when a directory holds no report files.
var ErrNoReports = errors.New("no report files found")

var extensions = map[string]report.Dialect{
	".txt":  report.DialectText,
	".json": report.DialectJSON,
}

// File is one decoded report file.
type File struct {
	Path    string
	Label   string
	Dialect report.Dialect
	Records []report.Record
}

// Dir is a decoded directory; Files are ordered by file name.
type Dir struct {
	Path  string
	Files []File
}

// Dialect returns the dialect shared by the directory's files.
func (d Dir) Dialect() report.Dialect {
	if len(d.Files) == 0 {
		return ""
	}
	return d.Files[0].Dialect
}

// Records returns every record of the directory in file order.
func (d Dir) Records() []report.Record {
	var out []report.Record
	for _, f := range d.Files {
		out = append(out, f.Records...)
	}
	return out
}

// Runs groups records by position: run i holds the i-th record of every
// file that has one, in file order.
func (d Dir) Runs() [][]report.Record {
	var runs [][]report.Record
	for _, f := range d.Files {
		for i, rec := range f.Records {
			if i == len(runs) {
				runs = append(runs, nil)
			}
			runs[i] = append(runs[i], rec)
		}
	}
	return runs
}

// FileError attributes a decode failure to the file it came from.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Scan lists the report files of dir sorted by name. An empty dialect
// accepts both extensions but refuses a directory that mixes them.
func Scan(dir string, dialect report.Dialect) ([]File, error) {
	switch dialect {
	case "", report.DialectText, report.DialectJSON:
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []File
	seen := make(map[report.Dialect]bool)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		d, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok || (dialect != "" && d != dialect) {
			continue
		}
		seen[d] = true
		files = append(files, File{
			Path:    filepath.Join(dir, entry.Name()),
			Dialect: d,
		})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoReports)
	}
	if len(seen) > 1 {
		return nil, fmt.Errorf("%s mixes text and JSON reports; pass --dialect to pick one", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
