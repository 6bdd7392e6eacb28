package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/telemetry"
)

// Option configures the pipeline.
type Option func(*Pipeline)

// WithEnvironmentCheck sets a hook run during validation. A non-nil
// error fails the upload as an unsupported environment.
func WithEnvironmentCheck(check func(context.Context) error) Option {
	return func(p *Pipeline) {
		p.envCheck = check
	}
}

// WithTracer sets the tracer for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock sets the time source used for fallback keys and durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithUploadIDGenerator sets the generator of upload correlation IDs.
func WithUploadIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// UploadOption configures a single upload.
type UploadOption func(*uploadOptions)

type uploadOptions struct {
	compressionLevel int
	archiveDir       string
	run              artifact.RunIdentity
}

// WithCompressionLevel overrides the deflate level for one upload.
func WithCompressionLevel(level int) UploadOption {
	return func(o *uploadOptions) {
		o.compressionLevel = level
	}
}

// WithArchiveDir writes the archive to dir instead of the default.
func WithArchiveDir(dir string) UploadOption {
	return func(o *uploadOptions) {
		o.archiveDir = dir
	}
}

// WithRunIdentity keys the upload by run instead of the runtime token.
func WithRunIdentity(run artifact.RunIdentity) UploadOption {
	return func(o *uploadOptions) {
		o.run = run
	}
}
