// Package application provides the upload pipeline that packages local
// files into an archive and stores it as a named artifact.
package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/archive"
	"github.com/felixgeelhaar/artifact-go/infrastructure/identity"
	"github.com/felixgeelhaar/artifact-go/infrastructure/logging"
	"github.com/felixgeelhaar/artifact-go/infrastructure/observability"
	"github.com/felixgeelhaar/artifact-go/infrastructure/statemachine"
	"github.com/felixgeelhaar/artifact-go/infrastructure/telemetry"
)

// PipelineConfig contains the destination settings for uploads.
type PipelineConfig struct {
	// Bucket is the destination bucket or container.
	Bucket string

	// Repository scopes storage keys, usually owner/name.
	Repository string

	// PublicEndpoint composes result URLs for gateways that do not
	// resolve their own.
	PublicEndpoint string

	// RuntimeToken carries the run identity. Empty means keys fall back
	// to the upload timestamp.
	RuntimeToken string

	// CompressionLevel is the default deflate level, 0–9.
	CompressionLevel int

	// ArchiveDir is the default archive directory. Empty means the root
	// directory of each upload.
	ArchiveDir string

	// Provider labels metrics and spans.
	Provider string
}

// Pipeline runs uploads through validating, archiving and uploading.
// A Pipeline holds no per-upload state and is safe for concurrent use
// when concurrent uploads target distinct archive paths.
type Pipeline struct {
	gateway  artifact.Gateway
	config   PipelineConfig
	resolver *archive.Resolver
	envCheck func(context.Context) error
	tracer   trace.Tracer
	metrics  telemetry.Metrics
	now      func() time.Time
	newID    func() string
}

// NewPipeline creates a pipeline that stores archives through gateway.
func NewPipeline(gateway artifact.Gateway, config PipelineConfig, opts ...Option) (*Pipeline, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if err := archive.ValidateCompressionLevel(config.CompressionLevel); err != nil {
		return nil, err
	}

	p := &Pipeline{
		gateway:  gateway,
		config:   config,
		resolver: archive.NewResolver(),
		tracer:   observability.NewNoopTracer(),
		metrics:  &telemetry.NoopMetricsProvider{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Upload packages files, interpreted relative to root, into an archive
// and stores it under the key derived from name and the run identity.
// Failures are logged once and returned unchanged.
func (p *Pipeline) Upload(ctx context.Context, name string, files []string, root string, opts ...UploadOption) (artifact.UploadResult, error) {
	return boundary(name, func() (artifact.UploadResult, error) {
		return p.upload(ctx, name, files, root, opts...)
	})
}

// run holds the state of one upload.
type run struct {
	interp   *statemachine.Interpreter
	uploadID string
	key      artifact.Key
	spec     artifact.Specification
	builder  *archive.Builder
	path     string
	summary  archive.Summary
}

func (p *Pipeline) upload(ctx context.Context, name string, files []string, root string, opts ...UploadOption) (result artifact.UploadResult, err error) {
	o := uploadOptions{
		compressionLevel: p.config.CompressionLevel,
		archiveDir:       p.config.ArchiveDir,
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := p.now()
	r := &run{uploadID: p.newID()}

	ctx, span := observability.StartSpan(ctx, p.tracer, "artifact.upload",
		observability.AttrArtifactName.String(name),
		observability.AttrUploadID.String(r.uploadID),
		observability.AttrBucket.String(p.config.Bucket),
	)

	machine, err := statemachine.NewPipelineMachine()
	if err != nil {
		observability.EndSpan(span, err)
		return artifact.UploadResult{}, fmt.Errorf("failed to create state machine: %w", err)
	}

	mctx := statemachine.NewContext()
	mctx.OnTransition = func(t statemachine.Transition) {
		p.metrics.RecordStateTransition(ctx, string(t.From), string(t.To))
		span.AddEvent("transition", trace.WithAttributes(observability.AttrState.String(string(t.To))))
		logging.Debug().
			Add(logging.Artifact(name)).
			Add(logging.UploadID(r.uploadID)).
			Add(logging.FromState(t.From)).
			Add(logging.ToState(t.To)).
			Msg("pipeline transition")
	}

	r.interp = statemachine.NewInterpreter(machine, mctx)
	r.interp.Start()
	p.metrics.IncrementActiveUploads(ctx)

	defer func() {
		final := r.interp.State()
		r.interp.Stop()
		p.metrics.DecrementActiveUploads(ctx)

		var kind string
		if err != nil {
			kind = string(artifact.ClassifyError(err))
		}
		p.metrics.RecordPipeline(ctx, string(final), kind, p.now().Sub(start))
		observability.EndSpan(span, err)
	}()

	if err := p.validate(ctx, r, name, files, root, o); err != nil {
		return artifact.UploadResult{}, p.fail(r, err)
	}
	span.SetAttributes(observability.AttrArtifactKey.String(string(r.key)))

	if err := p.buildArchive(ctx, r); err != nil {
		return artifact.UploadResult{}, p.fail(r, err)
	}

	if err := p.putArchive(ctx, r, name); err != nil {
		return artifact.UploadResult{}, p.fail(r, err)
	}

	if err := r.interp.Advance("upload stored"); err != nil {
		return artifact.UploadResult{}, err
	}

	result = artifact.UploadResult{
		Size:     r.summary.Size,
		URL:      p.objectURL(r.key),
		Key:      r.key,
		Digest:   r.summary.Digest,
		Entries:  r.summary.Entries,
		Skipped:  r.summary.Skipped,
		UploadID: r.uploadID,
	}

	logging.Info().
		Add(logging.Artifact(name)).
		Add(logging.Key(r.key)).
		Add(logging.Size(result.Size)).
		Add(logging.Entries(result.Entries)).
		Add(logging.Duration(p.now().Sub(start))).
		Msg("artifact uploaded")

	return result, nil
}

// validate runs every check that does not need the network and derives
// the key and archive path.
func (p *Pipeline) validate(ctx context.Context, r *run, name string, files []string, root string, o uploadOptions) error {
	if err := r.interp.Advance("upload requested"); err != nil {
		return err
	}

	if err := artifact.ValidateName(name); err != nil {
		return err
	}

	if p.envCheck != nil {
		if err := p.envCheck(ctx); err != nil {
			if errors.Is(err, artifact.ErrUnsupportedEnvironment) {
				return err
			}
			return fmt.Errorf("%w: %w", artifact.ErrUnsupportedEnvironment, err)
		}
	}

	builder, err := archive.NewBuilder(o.compressionLevel)
	if err != nil {
		return err
	}
	r.builder = builder

	spec, err := p.resolver.Resolve(files, root)
	if err != nil {
		return err
	}
	if len(spec) == 0 {
		return &artifact.FilesNotFoundError{Paths: files}
	}
	r.spec = spec

	runID := o.run
	if runID.IsZero() {
		runID = identity.Resolve(p.config.RuntimeToken, p.now())
	}
	key, err := artifact.DeriveKey(p.config.Repository, name, runID)
	if err != nil {
		return err
	}
	r.key = key

	dir := o.archiveDir
	if dir == "" {
		dir = root
	}
	r.path = filepath.Join(dir, key.FileName())

	return nil
}

func (p *Pipeline) buildArchive(ctx context.Context, r *run) error {
	if err := r.interp.Advance("inputs validated"); err != nil {
		return err
	}

	start := p.now()
	summary, err := r.builder.Build(ctx, r.path, r.spec)
	if err != nil {
		return err
	}
	r.summary = summary
	p.metrics.RecordArchive(ctx, summary.Entries, len(summary.Skipped), p.now().Sub(start))

	if len(summary.Skipped) > 0 {
		logging.Warn().
			Add(logging.Key(r.key)).
			Add(logging.Entries(len(summary.Skipped))).
			Msg("some files vanished before they were archived, uploading partial artifact")
	}
	return nil
}

func (p *Pipeline) putArchive(ctx context.Context, r *run, name string) error {
	if err := r.interp.Advance("archive built"); err != nil {
		return err
	}

	headers := map[string]string{
		artifact.HeaderContentLength: strconv.FormatInt(r.summary.Size, 10),
		artifact.HeaderContentType:   artifact.ContentTypeZip,
		artifact.HeaderDigest:        r.summary.Digest,
		artifact.HeaderUploadID:      r.uploadID,
		artifact.HeaderName:          name,
	}

	logging.Debug().
		Add(logging.Bucket(p.config.Bucket)).
		Add(logging.Key(r.key)).
		Add(logging.Path(r.path)).
		Add(logging.Size(r.summary.Size)).
		Msg("uploading archive")

	if err := p.gateway.PutObject(ctx, p.config.Bucket, string(r.key), r.path, headers); err != nil {
		return artifact.NewUploadError(r.key, err)
	}
	return nil
}

// fail moves the machine to failed and returns err.
func (p *Pipeline) fail(r *run, err error) error {
	if !r.interp.IsTerminal() {
		if ferr := r.interp.Fail(err); ferr != nil {
			logging.Error().
				Add(logging.State(r.interp.State())).
				Add(logging.ErrorField(ferr)).
				Msg("failed to record pipeline failure")
		}
	}
	return err
}

// objectURL prefers the gateway's own addressing and falls back to
// https://<bucket>.<publicEndpoint>/<key>.
func (p *Pipeline) objectURL(key artifact.Key) string {
	if r, ok := p.gateway.(artifact.URLResolver); ok {
		if u := r.ObjectURL(p.config.Bucket, string(key)); u != "" {
			return u
		}
	}
	if p.config.PublicEndpoint == "" {
		return ""
	}
	return artifact.ComposeURL(p.config.Bucket, p.config.PublicEndpoint, key)
}
