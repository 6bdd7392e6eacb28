package application

import (
	stdzip "archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/storage/memory"
)

var testRun = artifact.NewRunIdentity("1234", "5678")

func testConfig() PipelineConfig {
	return PipelineConfig{
		Bucket:           "builds",
		Repository:       "octo/repo",
		PublicEndpoint:   "tos-cn-beijing.volces.com",
		CompressionLevel: 6,
		Provider:         "memory",
	}
}

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *memory.Gateway) {
	t.Helper()

	gw := memory.New()
	opts = append([]Option{WithUploadIDGenerator(func() string { return "upload-1" })}, opts...)
	p, err := NewPipeline(gw, testConfig(), opts...)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return p, gw
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()

	zr, err := stdzip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestNewPipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		gateway artifact.Gateway
		mutate  func(*PipelineConfig)
		wantErr bool
	}{
		{name: "valid", gateway: memory.New(), wantErr: false},
		{name: "nil gateway", gateway: nil, wantErr: true},
		{name: "missing bucket", gateway: memory.New(), mutate: func(c *PipelineConfig) { c.Bucket = "" }, wantErr: true},
		{name: "bad level", gateway: memory.New(), mutate: func(c *PipelineConfig) { c.CompressionLevel = 12 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			_, err := NewPipeline(tt.gateway, cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPipeline() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPipeline_Upload(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "bravo",
	})
	p, gw := newTestPipeline(t)

	result, err := p.Upload(context.Background(), "demo", []string{"a.txt", "sub/b.txt"}, root,
		WithRunIdentity(testRun))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	wantKey := artifact.Key("artifacts/octo/repo/demo-1234-5678.zip")
	if result.Key != wantKey {
		t.Errorf("Key = %s, want %s", result.Key, wantKey)
	}
	if result.URL != "https://builds.tos-cn-beijing.volces.com/"+string(wantKey) {
		t.Errorf("URL = %s", result.URL)
	}
	if result.UploadID != "upload-1" || result.Entries != 2 || result.Partial() {
		t.Errorf("result = %+v", result)
	}

	archivePath := filepath.Join(root, wantKey.FileName())
	info, err := os.Stat(archivePath)
	if err != nil {
		t.Fatalf("archive should be left on disk: %v", err)
	}
	if result.Size != info.Size() {
		t.Errorf("Size = %d, archive is %d bytes", result.Size, info.Size())
	}

	calls := gw.Calls()
	if len(calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(calls))
	}
	call := calls[0]
	if call.Bucket != "builds" || call.Key != string(wantKey) || call.SourcePath != archivePath {
		t.Errorf("call = %+v", call)
	}
	if call.Headers[artifact.HeaderContentLength] != strconv.FormatInt(info.Size(), 10) {
		t.Errorf("content-length = %s, want %d", call.Headers[artifact.HeaderContentLength], info.Size())
	}
	if call.Headers[artifact.HeaderContentType] != artifact.ContentTypeZip {
		t.Errorf("content-type = %s", call.Headers[artifact.HeaderContentType])
	}
	if call.Headers[artifact.HeaderDigest] != result.Digest || call.Headers[artifact.HeaderUploadID] != "upload-1" {
		t.Errorf("metadata headers = %v", call.Headers)
	}

	obj, _ := gw.Object("builds", string(wantKey))
	if int64(len(obj.Data)) != result.Size {
		t.Errorf("stored %d bytes, result says %d", len(obj.Data), result.Size)
	}

	content := readArchive(t, archivePath)
	if content["a.txt"] != "alpha" || content["sub/b.txt"] != "bravo" || len(content) != 2 {
		t.Errorf("archive content = %v", content)
	}
}

func TestPipeline_UploadDirectory(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"out/x.bin": "x"})
	if err := os.MkdirAll(filepath.Join(root, "out", "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	p, _ := newTestPipeline(t)

	result, err := p.Upload(context.Background(), "dirs",
		[]string{"out/x.bin", "out/empty"}, root, WithRunIdentity(testRun))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	content := readArchive(t, filepath.Join(root, result.Key.FileName()))
	names := make([]string, 0, len(content))
	for name := range content {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "out/empty/" || names[1] != "out/x.bin" {
		t.Errorf("archive entries = %v", names)
	}
}

func TestPipeline_ValidationFailures(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})
	outside := writeTree(t, map[string]string{"secret.txt": "s"})

	tests := []struct {
		name  string
		art   string
		files []string
		root  string
		opts  []UploadOption
		want  error
	}{
		{
			name:  "invalid name checked before filesystem",
			art:   "bad/name",
			files: []string{"a.txt"},
			root:  filepath.Join(root, "does-not-exist"),
			want:  artifact.ErrInvalidArtifactName,
		},
		{
			name:  "name not valid utf-8",
			art:   "demo\xff",
			files: []string{"a.txt"},
			root:  root,
			want:  artifact.ErrInvalidArtifactName,
		},
		{
			name:  "missing root",
			art:   "demo",
			files: []string{"a.txt"},
			root:  filepath.Join(root, "does-not-exist"),
			want:  artifact.ErrInvalidRootDirectory,
		},
		{
			name:  "escape",
			art:   "demo",
			files: []string{filepath.Join(outside, "secret.txt")},
			root:  root,
			want:  artifact.ErrPathEscapesRoot,
		},
		{
			name:  "nothing found",
			art:   "demo",
			files: []string{"missing.txt"},
			root:  root,
			want:  artifact.ErrFilesNotFound,
		},
		{
			name:  "empty input",
			art:   "demo",
			files: nil,
			root:  root,
			want:  artifact.ErrFilesNotFound,
		},
		{
			name:  "compression level out of range",
			art:   "demo",
			files: []string{"a.txt"},
			root:  root,
			opts:  []UploadOption{WithCompressionLevel(10)},
			want:  artifact.ErrArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, gw := newTestPipeline(t)
			opts := append([]UploadOption{WithRunIdentity(testRun)}, tt.opts...)
			_, err := p.Upload(context.Background(), tt.art, tt.files, tt.root, opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Upload() error = %v, want %v", err, tt.want)
			}
			if len(gw.Calls()) != 0 {
				t.Error("validation failures must not reach the gateway")
			}
		})
	}
}

func TestPipeline_FilesNotFoundCarriesPaths(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})
	p, _ := newTestPipeline(t)

	_, err := p.Upload(context.Background(), "demo", []string{"x.txt", "y.txt"}, root, WithRunIdentity(testRun))
	var notFound *artifact.FilesNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Upload() error = %v, want *FilesNotFoundError", err)
	}
	if len(notFound.Paths) != 2 || notFound.Paths[0] != "x.txt" || notFound.Paths[1] != "y.txt" {
		t.Errorf("Paths = %v", notFound.Paths)
	}
}

func TestPipeline_UnsupportedEnvironment(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})
	check := func(context.Context) error { return errors.New("legacy server") }
	p, gw := newTestPipeline(t, WithEnvironmentCheck(check))

	_, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithRunIdentity(testRun))
	if !errors.Is(err, artifact.ErrUnsupportedEnvironment) {
		t.Errorf("Upload() error = %v, want ErrUnsupportedEnvironment", err)
	}
	if len(gw.Calls()) != 0 {
		t.Error("gateway must not be called")
	}
}

func TestPipeline_UploadFailure(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})
	p, gw := newTestPipeline(t)
	cause := artifact.NewGatewayError(artifact.FailureNetwork, "put", errors.New("connection reset"))
	gw.FailWith(cause)

	_, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithRunIdentity(testRun))

	var uploadErr *artifact.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Upload() error = %v, want *UploadError", err)
	}
	if uploadErr.Key != "artifacts/octo/repo/demo-1234-5678.zip" {
		t.Errorf("Key = %s", uploadErr.Key)
	}
	if uploadErr.Kind != artifact.FailureNetwork || !errors.Is(err, artifact.ErrNetwork) {
		t.Errorf("Kind = %s", uploadErr.Kind)
	}
	var gwErr *artifact.GatewayError
	if !errors.As(err, &gwErr) || gwErr != cause {
		t.Error("gateway error should be surfaced unchanged")
	}
	if len(gw.Calls()) != 1 {
		t.Errorf("gateway calls = %d, want exactly one attempt", len(gw.Calls()))
	}
	if _, err := os.Stat(filepath.Join(root, "demo-1234-5678.zip")); err != nil {
		t.Errorf("archive should remain on disk after a failed upload: %v", err)
	}
}

type resolvingGateway struct {
	*memory.Gateway
}

func (resolvingGateway) ObjectURL(bucket, key string) string {
	return "mem://" + bucket + "/" + key
}

func TestPipeline_URLResolution(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})

	t.Run("gateway resolver wins", func(t *testing.T) {
		t.Parallel()

		p, err := NewPipeline(resolvingGateway{memory.New()}, testConfig())
		if err != nil {
			t.Fatal(err)
		}
		result, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root,
			WithRunIdentity(testRun), WithArchiveDir(t.TempDir()))
		if err != nil {
			t.Fatal(err)
		}
		if result.URL != "mem://builds/artifacts/octo/repo/demo-1234-5678.zip" {
			t.Errorf("URL = %s", result.URL)
		}
	})

	t.Run("no endpoint leaves URL empty", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.PublicEndpoint = ""
		p, err := NewPipeline(memory.New(), cfg)
		if err != nil {
			t.Fatal(err)
		}
		result, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root,
			WithRunIdentity(testRun), WithArchiveDir(t.TempDir()))
		if err != nil {
			t.Fatal(err)
		}
		if result.URL != "" {
			t.Errorf("URL = %s, want empty", result.URL)
		}
	})
}

func TestPipeline_RunIdentitySources(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})

	t.Run("runtime token", func(t *testing.T) {
		t.Parallel()

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"scp": "Actions.GenericRead:1 Actions.Results:run-9:job-7",
		}).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatal(err)
		}

		cfg := testConfig()
		cfg.RuntimeToken = token
		p, err := NewPipeline(memory.New(), cfg)
		if err != nil {
			t.Fatal(err)
		}
		result, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithArchiveDir(t.TempDir()))
		if err != nil {
			t.Fatal(err)
		}
		if result.Key != "artifacts/octo/repo/demo-run-9-job-7.zip" {
			t.Errorf("Key = %s", result.Key)
		}
	})

	t.Run("timestamp fallback", func(t *testing.T) {
		t.Parallel()

		clock := func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
		p, err := NewPipeline(memory.New(), testConfig(), WithClock(clock))
		if err != nil {
			t.Fatal(err)
		}
		result, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithArchiveDir(t.TempDir()))
		if err != nil {
			t.Fatal(err)
		}
		if result.Key != "artifacts/octo/repo/demo-20260304T050607Z.zip" {
			t.Errorf("Key = %s", result.Key)
		}
	})
}

func TestPipeline_Deterministic(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha", "b/c.txt": "charlie"})
	p, _ := newTestPipeline(t)
	files := []string{"b/c.txt", "a.txt"}

	first, err := p.Upload(context.Background(), "demo", files, root, WithRunIdentity(testRun), WithArchiveDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Upload(context.Background(), "demo", files, root, WithRunIdentity(testRun), WithArchiveDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	if first.Key != second.Key || first.Digest != second.Digest || first.Size != second.Size {
		t.Errorf("uploads differ: %+v vs %+v", first, second)
	}
}

func TestPipeline_RetryListingPreviousArchive(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})
	p, _ := newTestPipeline(t)

	first, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithRunIdentity(testRun))
	if err != nil {
		t.Fatal(err)
	}

	// The archive of the first attempt sits in root under the same name.
	retry, err := p.Upload(context.Background(), "demo", []string{"a.txt", first.Key.FileName()}, root,
		WithRunIdentity(testRun))
	if err != nil {
		t.Fatalf("Upload() retry error = %v", err)
	}
	if retry.Digest != first.Digest || retry.Entries != 1 || retry.Partial() {
		t.Errorf("retry = %+v, first = %+v", retry, first)
	}

	content := readArchive(t, filepath.Join(root, first.Key.FileName()))
	if len(content) != 1 || content["a.txt"] != "alpha" {
		t.Errorf("archive content = %v", content)
	}
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []string
	finals      []string
	kinds       []string
	active      int
}

func (m *recordingMetrics) RecordArchive(context.Context, int, int, time.Duration)           {}
func (m *recordingMetrics) RecordUpload(context.Context, string, int64, bool, time.Duration) {}

func (m *recordingMetrics) RecordStateTransition(_ context.Context, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *recordingMetrics) RecordPipeline(_ context.Context, final, kind string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finals = append(m.finals, final)
	m.kinds = append(m.kinds, kind)
}

func (m *recordingMetrics) IncrementActiveUploads(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active++
}

func (m *recordingMetrics) DecrementActiveUploads(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
}

func TestPipeline_StateTransitions(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "alpha"})
	metrics := &recordingMetrics{}
	p, gw := newTestPipeline(t, WithMetrics(metrics))

	if _, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithRunIdentity(testRun)); err != nil {
		t.Fatal(err)
	}
	want := []string{"idle->validating", "validating->archiving", "archiving->uploading", "uploading->done"}
	if len(metrics.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", metrics.transitions, want)
	}
	for i := range want {
		if metrics.transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, metrics.transitions[i], want[i])
		}
	}

	gw.FailWith(artifact.NewGatewayError(artifact.FailureAuth, "put", errors.New("denied")))
	if _, err := p.Upload(context.Background(), "demo", []string{"a.txt"}, root, WithRunIdentity(testRun)); err == nil {
		t.Fatal("expected upload failure")
	}
	if last := metrics.transitions[len(metrics.transitions)-1]; last != "uploading->failed" {
		t.Errorf("last transition = %s, want uploading->failed", last)
	}

	if len(metrics.finals) != 2 || metrics.finals[0] != "done" || metrics.finals[1] != "failed" {
		t.Errorf("final states = %v", metrics.finals)
	}
	if metrics.kinds[0] != "" || metrics.kinds[1] != string(artifact.KindUpload) {
		t.Errorf("error kinds = %v", metrics.kinds)
	}
	if metrics.active != 0 {
		t.Errorf("active uploads = %d, want 0", metrics.active)
	}
}
