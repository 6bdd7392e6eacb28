package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/telemetry"
)

// InstrumentedGateway traces and measures object store calls.
type InstrumentedGateway struct {
	next     artifact.Gateway
	provider string
	tracer   trace.Tracer
	metrics  telemetry.Metrics
}

// Instrument wraps next so that every PutObject produces a client span
// and an upload measurement labelled with provider.
func Instrument(next artifact.Gateway, provider string, tracer trace.Tracer, metrics telemetry.Metrics) *InstrumentedGateway {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = &telemetry.NoopMetricsProvider{}
	}
	return &InstrumentedGateway{
		next:     next,
		provider: provider,
		tracer:   tracer,
		metrics:  metrics,
	}
}

// PutObject implements artifact.Gateway.
func (g *InstrumentedGateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	size, _ := strconv.ParseInt(headers[artifact.HeaderContentLength], 10, 64)

	ctx, span := g.tracer.Start(ctx, "artifact.put_object",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.provider", g.provider),
			AttrBucket.String(bucket),
			AttrArtifactKey.String(key),
			AttrSize.Int64(size),
			AttrUploadID.String(headers[artifact.HeaderUploadID]),
		),
	)

	start := time.Now()
	err := g.next.PutObject(ctx, bucket, key, sourcePath, headers)
	g.metrics.RecordUpload(ctx, g.provider, size, err == nil, time.Since(start))

	if err != nil {
		span.SetAttributes(AttrFailureKind.String(string(artifact.KindOf(err))))
	}
	EndSpan(span, err)
	return err
}

// ObjectURL delegates to the wrapped gateway when it resolves URLs.
func (g *InstrumentedGateway) ObjectURL(bucket, key string) string {
	if r, ok := g.next.(artifact.URLResolver); ok {
		return r.ObjectURL(bucket, key)
	}
	return ""
}

var (
	_ artifact.Gateway     = (*InstrumentedGateway)(nil)
	_ artifact.URLResolver = (*InstrumentedGateway)(nil)
)
