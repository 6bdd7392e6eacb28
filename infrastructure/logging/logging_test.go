package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}
}

func TestProductionConfig(t *testing.T) {
	t.Parallel()

	config := ProductionConfig()

	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"artifact", Artifact("demo"), `"artifact":"demo"`},
		{"key", Key("artifacts/o/r/demo-1-2.zip"), `"key":"artifacts/o/r/demo-1-2.zip"`},
		{"bucket", Bucket("builds"), `"bucket":"builds"`},
		{"upload id", UploadID("u-1"), `"upload_id":"u-1"`},
		{"state", State(artifact.StateArchiving), `"state":"archiving"`},
		{"from state", FromState(artifact.StateIdle), `"from_state":"idle"`},
		{"to state", ToState(artifact.StateValidating), `"to_state":"validating"`},
		{"path", Path("/work/a.txt"), `"path":"/work/a.txt"`},
		{"size", Size(2048), `"size":2048`},
		{"entries", Entries(3), `"entries":3`},
		{"duration", Duration(1500 * time.Millisecond), `"duration_ms":1500`},
		{"error kind", ErrorKind(artifact.KindUpload), `"error_kind":"UploadError"`},
		{"failure kind", FailureKind(artifact.FailureQuota), `"failure_kind":"quota"`},
		{"component", Component("archive"), `"component":"archive"`},
		{"operation", Operation("put"), `"operation":"put"`},
		{"custom", Str("custom_key", "custom_value"), `"custom_key":"custom_value"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("with error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(errors.New("test error"))(logger.Info()).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte(`"error":"test error"`)) {
			t.Errorf("expected error field in output: %s", buf.String())
		}
	})

	t.Run("with nil error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(nil)(logger.Info()).Msg("test")

		if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
			t.Errorf("unexpected error field in output: %s", buf.String())
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := New(Config{Level: "warn", Format: "json", Output: buf})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("info message should be filtered at warn level: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("warn message missing: %s", buf.String())
	}
}

func TestLogEvent(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()

	t.Run("Add chains fields", func(t *testing.T) {
		buf.Reset()
		event := NewEvent(logger.Info())
		event.Add(Artifact("demo")).Add(State(artifact.StateUploading)).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte(`"artifact":"demo"`)) {
			t.Errorf("expected artifact field in output: %s", buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"state":"uploading"`)) {
			t.Errorf("expected state field in output: %s", buf.String())
		}
	})

	t.Run("Send without message", func(t *testing.T) {
		buf.Reset()
		NewEvent(logger.Info()).Add(Artifact("other")).Send()

		if !bytes.Contains(buf.Bytes(), []byte(`"artifact":"other"`)) {
			t.Errorf("expected artifact field in output: %s", buf.String())
		}
	})
}

// Tests below share the package default logger and do not run in parallel.

func TestInitAndGet(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Config{Level: "debug", Format: "json", Output: buf})
	t.Cleanup(func() { Init(Config{Level: "error", Format: "json", Output: &bytes.Buffer{}}) })

	if Get() == nil {
		t.Fatal("Get() returned nil")
	}

	Debug().Add(Artifact("demo")).Msg("debug line")
	Info().Msg("info line")
	Warn().Msg("warn line")
	Error().Msg("error line")

	for _, want := range []string{"debug line", "info line", "warn line", "error line"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %q in output: %s", want, buf.String())
		}
	}

	buf.Reset()
	SetLevel("error")
	Info().Msg("suppressed")
	if bytes.Contains(buf.Bytes(), []byte("suppressed")) {
		t.Errorf("info should be suppressed after SetLevel(error): %s", buf.String())
	}
}
