// Package telemetry provides OpenTelemetry metrics for the upload
// pipeline.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	uploads          metric.Int64Counter
	uploadedBytes    metric.Int64Counter
	archiveEntries   metric.Int64Counter
	archiveSkipped   metric.Int64Counter
	stateTransitions metric.Int64Counter

	// Histograms
	archiveDuration  metric.Float64Histogram
	uploadDuration   metric.Float64Histogram
	pipelineDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	activeUploads metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/artifact-go").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider overrides the global meter provider.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/artifact-go",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		defaults := DefaultMetricsConfig()
		config.MeterName = defaults.MeterName
		config.MeterVersion = defaults.MeterVersion
	}

	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.uploads, err = mp.meter.Int64Counter(
		"artifact.uploads",
		metric.WithDescription("Number of completed upload pipelines"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return err
	}

	mp.uploadedBytes, err = mp.meter.Int64Counter(
		"artifact.upload.bytes",
		metric.WithDescription("Archive bytes sent to the object store"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	mp.archiveEntries, err = mp.meter.Int64Counter(
		"artifact.archive.entries",
		metric.WithDescription("Entries written to archives"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.archiveSkipped, err = mp.meter.Int64Counter(
		"artifact.archive.skipped",
		metric.WithDescription("Entries skipped because their source vanished"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.stateTransitions, err = mp.meter.Int64Counter(
		"artifact.state.transitions",
		metric.WithDescription("Number of pipeline state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	mp.archiveDuration, err = mp.meter.Float64Histogram(
		"artifact.archive.duration",
		metric.WithDescription("Duration of archive builds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.uploadDuration, err = mp.meter.Float64Histogram(
		"artifact.upload.duration",
		metric.WithDescription("Duration of object store uploads"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.pipelineDuration, err = mp.meter.Float64Histogram(
		"artifact.pipeline.duration",
		metric.WithDescription("Duration of whole upload pipelines"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.activeUploads, err = mp.meter.Int64UpDownCounter(
		"artifact.uploads.active",
		metric.WithDescription("Number of upload pipelines in progress"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordArchive records a finished archive build.
func (mp *MetricsProvider) RecordArchive(ctx context.Context, entries, skipped int, duration time.Duration) {
	mp.archiveEntries.Add(ctx, int64(entries))
	mp.archiveSkipped.Add(ctx, int64(skipped))
	mp.archiveDuration.Record(ctx, float64(duration.Milliseconds()))
}

// RecordUpload records one object store call.
func (mp *MetricsProvider) RecordUpload(ctx context.Context, provider string, size int64, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("storage.provider", provider),
		attribute.Bool("success", success),
	}

	mp.uploadDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if success {
		mp.uploadedBytes.Add(ctx, size, metric.WithAttributes(attribute.String("storage.provider", provider)))
	}
}

// RecordStateTransition records a pipeline state transition.
func (mp *MetricsProvider) RecordStateTransition(ctx context.Context, fromState, toState string) {
	attrs := []attribute.KeyValue{
		attribute.String("state.from", fromState),
		attribute.String("state.to", toState),
	}

	mp.stateTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPipeline records a finished pipeline. errorKind is empty on
// success.
func (mp *MetricsProvider) RecordPipeline(ctx context.Context, finalState, errorKind string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("state.final", finalState),
		attribute.Bool("success", errorKind == ""),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error.kind", errorKind))
	}

	mp.uploads.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.pipelineDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// IncrementActiveUploads increments the active uploads counter.
func (mp *MetricsProvider) IncrementActiveUploads(ctx context.Context) {
	mp.activeUploads.Add(ctx, 1)
}

// DecrementActiveUploads decrements the active uploads counter.
func (mp *MetricsProvider) DecrementActiveUploads(ctx context.Context) {
	mp.activeUploads.Add(ctx, -1)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordArchive is a no-op.
func (n *NoopMetricsProvider) RecordArchive(ctx context.Context, entries, skipped int, duration time.Duration) {}

// RecordUpload is a no-op.
func (n *NoopMetricsProvider) RecordUpload(ctx context.Context, provider string, size int64, success bool, duration time.Duration) {
}

// RecordStateTransition is a no-op.
func (n *NoopMetricsProvider) RecordStateTransition(ctx context.Context, fromState, toState string) {}

// RecordPipeline is a no-op.
func (n *NoopMetricsProvider) RecordPipeline(ctx context.Context, finalState, errorKind string, duration time.Duration) {
}

// IncrementActiveUploads is a no-op.
func (n *NoopMetricsProvider) IncrementActiveUploads(ctx context.Context) {}

// DecrementActiveUploads is a no-op.
func (n *NoopMetricsProvider) DecrementActiveUploads(ctx context.Context) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordArchive(ctx context.Context, entries, skipped int, duration time.Duration)
	RecordUpload(ctx context.Context, provider string, size int64, success bool, duration time.Duration)
	RecordStateTransition(ctx context.Context, fromState, toState string)
	RecordPipeline(ctx context.Context, finalState, errorKind string, duration time.Duration)
	IncrementActiveUploads(ctx context.Context)
	DecrementActiveUploads(ctx context.Context)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
