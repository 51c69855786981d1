package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/heystat/internal/label"
	"github.com/torosent/heystat/internal/report"
	"github.com/torosent/heystat/internal/tracing"
)

// DefaultDecoders returns a decoder per dialect. buckets sizes the text
// schema; zero selects the standard histogram length.
func DefaultDecoders(buckets int) map[report.Dialect]report.Decoder {
	schema := report.TextSchema()
	if buckets > 0 {
		schema = report.NewTextSchema(buckets)
	}
	return map[report.Dialect]report.Decoder{
		report.DialectText: report.NewTextDecoder(schema),
		report.DialectJSON: report.NewJSONDecoder(),
	}
}

// Loader decodes every report file of a directory.
type Loader struct {
	Decoders    map[report.Dialect]report.Decoder
	Resolver    label.Resolver
	Dialect     report.Dialect // empty accepts both dialects
	Mode        report.BatchMode
	Parallelism int
	Logger      *zap.Logger
	Tracer      trace.Tracer
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l *Loader) tracer() trace.Tracer {
	if l.Tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return l.Tracer
}

// LoadDir scans dir and decodes its files concurrently, keeping file order.
//
// With report.FailFast files after a failing one are skipped, no files are
// returned and the error names the failing file that sorts first. With report.CollectAll every file is attempted;
// the returned Dir holds whatever decoded and the error joins one
// *FileError per failing file.
func (l *Loader) LoadDir(ctx context.Context, dir string) (_ Dir, err error) {
	ctx, span := tracing.StartDecodeSpan(ctx, l.tracer(), tracing.ScopeDir, dir)
	var result Dir
	defer func() {
		tracing.EndSpan(span, err,
			tracing.AttrFiles.Int(len(result.Files)),
			tracing.AttrRecords.Int(len(result.Records())),
		)
	}()

	files, err := Scan(dir, l.Dialect)
	if err != nil {
		return Dir{}, err
	}
	log := l.logger().With(zap.String("dir", dir))
	log.Debug("Scanned directory", zap.Int("files", len(files)))

	limit := l.Parallelism
	if limit < 1 {
		limit = 1
	}

	start := time.Now()
	errs := make([]error, len(files))
	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(files)))

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Files past the first failure are skipped in fail-fast mode.
			if l.Mode == report.FailFast && int64(i) > firstFailed.Load() {
				return nil
			}
			if err := l.loadFile(ctx, &files[i]); err != nil {
				errs[i] = err
				lowerTo(&firstFailed, int64(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Debug("Directory decode aborted", zap.Error(err))
		return Dir{}, err
	}
	if l.Mode == report.FailFast {
		if i := firstFailed.Load(); i < int64(len(files)) {
			log.Debug("Directory decode aborted", zap.Error(errs[i]))
			return Dir{}, errs[i]
		}
	}

	result = Dir{Path: dir, Files: make([]File, 0, len(files))}
	for i, f := range files {
		if errs[i] != nil && len(f.Records) == 0 {
			continue
		}
		result.Files = append(result.Files, f)
	}
	log.Debug("Decoded directory",
		zap.Int("files", len(result.Files)),
		zap.Int("records", len(result.Records())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, errors.Join(errs...)
}

// lowerTo stores i in v unless v already holds a smaller index.
func lowerTo(v *atomic.Int64, i int64) {
	for {
		cur := v.Load()
		if i >= cur || v.CompareAndSwap(cur, i) {
			return
		}
	}
}

// loadFile resolves the label of f and decodes its content into f.Records.
func (l *Loader) loadFile(ctx context.Context, f *File) (err error) {
	_, span := tracing.StartDecodeSpan(ctx, l.tracer(), tracing.ScopeFile, f.Path)
	defer func() {
		tracing.EndSpan(span, err,
			tracing.AttrDialect.String(string(f.Dialect)),
			tracing.AttrLabel.String(f.Label),
			tracing.AttrRecords.Int(len(f.Records)),
		)
	}()

	decoder, ok := l.Decoders[f.Dialect]
	if !ok {
		return &FileError{Path: f.Path, Err: fmt.Errorf("no decoder for %s reports", f.Dialect)}
	}
	if l.Resolver == nil {
		return &FileError{Path: f.Path, Err: errors.New("no label resolver configured")}
	}

	f.Label, err = l.Resolver.Resolve(label.Stem(f.Path))
	if err != nil {
		return &FileError{Path: f.Path, Err: err}
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return &FileError{Path: f.Path, Err: err}
	}

	records, err := decoder.DecodeFile(data, f.Label, l.Mode)
	f.Records = records
	if err != nil {
		return &FileError{Path: f.Path, Err: err}
	}
	l.logger().Debug("Decoded file",
		zap.String("path", f.Path),
		zap.String("label", f.Label),
		zap.Int("records", len(records)),
	)
	return nil
}
