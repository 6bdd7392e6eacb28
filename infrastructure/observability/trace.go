package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// Span attribute keys used across the pipeline.
const (
	AttrArtifactName = attribute.Key("artifact.name")
	AttrArtifactKey  = attribute.Key("artifact.key")
	AttrBucket       = attribute.Key("artifact.bucket")
	AttrUploadID     = attribute.Key("artifact.upload_id")
	AttrState        = attribute.Key("artifact.state")
	AttrSize         = attribute.Key("artifact.size")
	AttrEntries      = attribute.Key("artifact.entries")
	AttrErrorKind    = attribute.Key("artifact.error_kind")
	AttrFailureKind  = attribute.Key("artifact.failure_kind")
)

// StartSpan starts an internal span. A nil tracer yields a no-op span.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(AttrErrorKind.String(string(artifact.ClassifyError(err))))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
