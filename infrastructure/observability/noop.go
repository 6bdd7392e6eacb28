package observability

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewNoopTracer creates a tracer whose spans record nothing.
func NewNoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("")
}
