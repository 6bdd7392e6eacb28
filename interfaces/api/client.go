// Package api provides the public API for artifact-go.
//
// artifact-go packages files from a build workspace into a single zip
// archive and stores it in an object store under a key scoped to the
// repository and the CI run that produced it.
//
// # Quick Start
//
//	cfg, err := api.LoadConfig("")
//	if err != nil {
//	    return err
//	}
//
//	client, err := api.NewClient(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	result, err := client.UploadArtifact(ctx, "test-report",
//	    []string{"reports/junit.xml", "reports/coverage.html"}, ".",
//	    api.WithCompressionLevel(9),
//	)
//
// # Errors
//
// Failures are returned unchanged from the pipeline and can be matched
// with errors.Is against the sentinels re-exported here, or with
// errors.As against *UploadError and *FilesNotFoundError:
//
//   - ErrInvalidArtifactName: the name is empty or has forbidden characters
//   - ErrInvalidRootDirectory: the root does not exist or is not a directory
//   - ErrPathEscapesRoot: a requested path lies outside the root
//   - ErrFilesNotFound: nothing requested could be found
//   - ErrArchive: the archive could not be written
//   - ErrUpload: the object store rejected the upload, refined by ErrAuth,
//     ErrNetwork, ErrQuota or ErrServer
//
// # Providers
//
// The object store is selected by Config.Provider: s3 (any S3-compatible
// store), gcs, azure, filesystem or memory.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/artifact-go/application"
	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/domain/config"
	infraconfig "github.com/felixgeelhaar/artifact-go/infrastructure/config"
	"github.com/felixgeelhaar/artifact-go/infrastructure/observability"
	"github.com/felixgeelhaar/artifact-go/infrastructure/resilience"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage"
)

// Client uploads artifacts to the configured object store.
type Client struct {
	config   *config.Config
	store    artifact.Gateway
	guarded  *resilience.GuardedGateway
	pipeline *application.Pipeline
}

// NewClient validates cfg and wires the gateway selected by it through
// instrumentation and the concurrency guard.
func NewClient(ctx context.Context, cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
	}

	o := clientOptions{provider: observability.NewNoopProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.gateway
	if store == nil {
		gw, err := storage.NewGateway(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s gateway: %w", cfg.Provider, err)
		}
		store = gw
	}

	instrumented := observability.Instrument(store, string(cfg.Provider), o.provider.Tracer(), o.provider.Metrics())
	guarded := resilience.Guard(instrumented,
		resilience.WithTimeout(cfg.Upload.Timeout.Duration()),
		resilience.WithMaxConcurrent(cfg.Upload.MaxConcurrent),
	)

	pipelineOpts := []application.Option{
		application.WithTracer(o.provider.Tracer()),
		application.WithMetrics(o.provider.Metrics()),
	}
	if o.envCheck != nil {
		pipelineOpts = append(pipelineOpts, application.WithEnvironmentCheck(o.envCheck))
	}
	pipelineOpts = append(pipelineOpts, o.pipelineOpts...)

	pipeline, err := application.NewPipeline(guarded, application.PipelineConfig{
		Bucket:           cfg.Bucket,
		Repository:       cfg.Repository,
		PublicEndpoint:   cfg.PublicEndpoint,
		RuntimeToken:     cfg.RuntimeToken,
		CompressionLevel: cfg.Upload.CompressionLevel,
		ArchiveDir:       cfg.Upload.ArchiveDir,
		Provider:         string(cfg.Provider),
	}, pipelineOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:   cfg,
		store:    store,
		guarded:  guarded,
		pipeline: pipeline,
	}, nil
}

// UploadArtifact packages files, relative to root, into one archive and
// uploads it as name. The call makes exactly one upload attempt.
func (c *Client) UploadArtifact(ctx context.Context, name string, files []string, root string, opts ...UploadOption) (UploadResult, error) {
	return c.pipeline.Upload(ctx, name, files, root, opts...)
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *config.Config {
	return c.config
}

// BreakerState reports the circuit breaker state of the gateway guard.
func (c *Client) BreakerState() string {
	return c.guarded.BreakerState()
}

// Close releases the underlying store client, if it holds one.
func (c *Client) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// LoadConfig resolves configuration from defaults, the file at path when
// non-empty, and the process environment, in that order.
func LoadConfig(path string) (*config.Config, error) {
	return infraconfig.NewLoader().Resolve(path)
}
