package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/telemetry"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.ServiceName != "artifact-go" {
		t.Errorf("expected default service name, got: %s", cfg.ServiceName)
	}
	if cfg.Tracing.Enabled {
		t.Error("expected tracing disabled by default")
	}
	if cfg.Tracing.Exporter != ExporterNone {
		t.Errorf("expected none exporter, got: %s", cfg.Tracing.Exporter)
	}
	if cfg.Metrics {
		t.Error("expected metrics disabled by default")
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []Option
		verify func(*testing.T, Config)
	}{
		{
			name: "WithServiceName",
			opts: []Option{WithServiceName("uploader")},
			verify: func(t *testing.T, c Config) {
				if c.ServiceName != "uploader" {
					t.Errorf("ServiceName = %s", c.ServiceName)
				}
			},
		},
		{
			name: "WithServiceVersion and WithEnvironment",
			opts: []Option{WithServiceVersion("2.0.0"), WithEnvironment("local")},
			verify: func(t *testing.T, c Config) {
				if c.ServiceVersion != "2.0.0" || c.Environment != "local" {
					t.Errorf("got version %s env %s", c.ServiceVersion, c.Environment)
				}
			},
		},
		{
			name: "WithTracing otlp",
			opts: []Option{WithTracing(ExporterOTLP, "localhost:4317"), WithTracingInsecure(), WithSampleRate(0.5)},
			verify: func(t *testing.T, c Config) {
				if !c.Tracing.Enabled || c.Tracing.Exporter != ExporterOTLP {
					t.Errorf("tracing = %+v", c.Tracing)
				}
				if c.Tracing.Endpoint != "localhost:4317" || !c.Tracing.Insecure || c.Tracing.SampleRate != 0.5 {
					t.Errorf("tracing = %+v", c.Tracing)
				}
			},
		},
		{
			name: "WithTracing none stays disabled",
			opts: []Option{WithTracing(ExporterNone, "")},
			verify: func(t *testing.T, c Config) {
				if c.Tracing.Enabled {
					t.Error("none exporter should not enable tracing")
				}
			},
		},
		{
			name: "WithMetrics",
			opts: []Option{WithMetrics()},
			verify: func(t *testing.T, c Config) {
				if !c.Metrics {
					t.Error("metrics should be enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			for _, opt := range tt.opts {
				opt(&cfg)
			}
			tt.verify(t, cfg)
		})
	}
}

func TestNoopProvider(t *testing.T) {
	t.Parallel()

	provider := NewNoopProvider()
	if provider.Tracer() == nil {
		t.Error("expected non-nil tracer")
	}
	if provider.Metrics() == nil {
		t.Error("expected non-nil metrics")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestProviderDisabled(t *testing.T) {
	t.Parallel()

	provider, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer().Start(context.Background(), "noop")
	if span.IsRecording() {
		t.Error("disabled tracing should not record")
	}
	span.End()
}

// Tests below install a global tracer provider and do not run in parallel.

func TestProviderWithStdoutTracing(t *testing.T) {
	buf := &bytes.Buffer{}
	provider, err := New(WithStdoutTracing(buf), WithServiceName("test-service"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := StartSpan(context.Background(), provider.Tracer(), "artifact.upload", AttrArtifactName.String("demo"))
	if !SpanFromContext(ctx).SpanContext().IsValid() {
		t.Error("expected a valid span in context")
	}
	EndSpan(span, nil)

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("artifact.upload")) {
		t.Errorf("expected exported span in output: %s", buf.String())
	}
}

func TestProviderTracingSamplers(t *testing.T) {
	for _, rate := range []float64{0, 0.5, 1} {
		provider, err := New(WithStdoutTracing(&bytes.Buffer{}), WithSampleRate(rate))
		if err != nil {
			t.Fatalf("New(rate=%v) error = %v", rate, err)
		}
		_ = provider.Shutdown(context.Background())
	}
}

func TestProviderUnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(WithTracing("zipkin", ""))
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("New() error = %v, want ErrUnknownExporter", err)
	}
}

func TestProviderShutdownErrors(t *testing.T) {
	t.Parallel()

	provider := &Provider{
		shutdownFuncs: []func(context.Context) error{
			func(context.Context) error { return errors.New("error 1") },
			func(context.Context) error { return nil },
			func(context.Context) error { return errors.New("error 2") },
		},
	}

	err := provider.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected shutdown error")
	}
	if got := err.Error(); got != "error 1\nerror 2" {
		t.Errorf("Shutdown() error = %q", got)
	}
}

type stubGateway struct {
	err error
}

func (s *stubGateway) PutObject(context.Context, string, string, string, map[string]string) error {
	return s.err
}

func (s *stubGateway) ObjectURL(bucket, key string) string {
	return "mem://" + bucket + "/" + key
}

func TestInstrumentedGateway(t *testing.T) {
	t.Parallel()

	headers := map[string]string{
		artifact.HeaderContentLength: "42",
		artifact.HeaderUploadID:      "u-1",
	}

	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "success", wantCode: codes.Ok},
		{
			name:     "failure",
			err:      artifact.NewGatewayError(artifact.FailureAuth, "put", errors.New("denied")),
			wantCode: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

			gw := Instrument(&stubGateway{err: tt.err}, "memory", tp.Tracer("test"), &telemetry.NoopMetricsProvider{})
			err := gw.PutObject(context.Background(), "bucket", "artifacts/o/r/demo-1-2.zip", "/tmp/demo.zip", headers)
			if !errors.Is(err, tt.err) {
				t.Fatalf("PutObject() error = %v, want %v", err, tt.err)
			}

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(spans))
			}
			if spans[0].Name() != "artifact.put_object" {
				t.Errorf("span name = %s", spans[0].Name())
			}
			if spans[0].Status().Code != tt.wantCode {
				t.Errorf("status = %v, want %v", spans[0].Status().Code, tt.wantCode)
			}

			var size int64
			for _, kv := range spans[0].Attributes() {
				if kv.Key == AttrSize {
					size = kv.Value.AsInt64()
				}
			}
			if size != 42 {
				t.Errorf("size attribute = %d, want 42", size)
			}
		})
	}

	t.Run("delegates ObjectURL", func(t *testing.T) {
		t.Parallel()

		gw := Instrument(&stubGateway{}, "memory", nil, nil)
		if got := gw.ObjectURL("b", "k"); got != "mem://b/k" {
			t.Errorf("ObjectURL() = %s", got)
		}
	})
}
