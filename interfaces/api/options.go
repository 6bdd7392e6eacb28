package api

import (
	"context"

	"github.com/felixgeelhaar/artifact-go/application"
	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/observability"
)

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	gateway      artifact.Gateway
	provider     *observability.Provider
	envCheck     func(context.Context) error
	pipelineOpts []application.Option
}

// WithGateway uses gw instead of the gateway selected by configuration.
func WithGateway(gw Gateway) ClientOption {
	return func(o *clientOptions) {
		o.gateway = gw
	}
}

// WithObservability records spans and metrics through p.
func WithObservability(p *observability.Provider) ClientOption {
	return func(o *clientOptions) {
		if p != nil {
			o.provider = p
		}
	}
}

// WithEnvironmentCheck rejects uploads on hosts the check refuses.
func WithEnvironmentCheck(check func(context.Context) error) ClientOption {
	return func(o *clientOptions) {
		o.envCheck = check
	}
}

// WithPipelineOptions passes options through to the upload pipeline.
func WithPipelineOptions(opts ...application.Option) ClientOption {
	return func(o *clientOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// UploadOption configures a single upload.
type UploadOption = application.UploadOption

// WithCompressionLevel sets the deflate level, 0–9, for one upload.
func WithCompressionLevel(level int) UploadOption {
	return application.WithCompressionLevel(level)
}

// WithArchiveDir writes the archive to dir instead of the upload root.
func WithArchiveDir(dir string) UploadOption {
	return application.WithArchiveDir(dir)
}

// WithRunIdentity keys the upload by run instead of the runtime token.
func WithRunIdentity(run RunIdentity) UploadOption {
	return application.WithRunIdentity(run)
}
