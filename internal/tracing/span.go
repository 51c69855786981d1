package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scope names what a decode span covers.
type Scope string

const (
	ScopeDir  Scope = "dir"
	ScopeFile Scope = "file"
)

const (
	AttrPath    = attribute.Key("heystat.path")
	AttrDialect = attribute.Key("heystat.dialect")
	AttrLabel   = attribute.Key("heystat.label")
	AttrRecords = attribute.Key("heystat.records")
	AttrFiles   = attribute.Key("heystat.files")
)

// StartDecodeSpan starts a span for decoding a directory or a single file.
func StartDecodeSpan(ctx context.Context, tracer trace.Tracer, scope Scope, path string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "decode "+string(scope),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(AttrPath.String(path))
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
