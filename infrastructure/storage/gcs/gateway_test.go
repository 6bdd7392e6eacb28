package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// mockClient records uploads in memory.
type mockClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	attrs   map[string]ObjectAttrs
	err     error
}

func newMockClient() *mockClient {
	return &mockClient{
		objects: make(map[string][]byte),
		attrs:   make(map[string]ObjectAttrs),
	}
}

func (c *mockClient) Upload(_ context.Context, bucket, object string, content io.Reader, attrs ObjectAttrs) error {
	if c.err != nil {
		return c.err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[bucket+"/"+object] = data
	c.attrs[bucket+"/"+object] = attrs
	return nil
}

func TestNewWithClient(t *testing.T) {
	t.Parallel()

	if _, err := NewWithClient(nil); err == nil {
		t.Error("NewWithClient(nil) should fail")
	}
	gw, err := NewWithClient(newMockClient())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestGateway_PutObject(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "demo.zip")
	if err := os.WriteFile(path, []byte("zip-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	client := newMockClient()
	gw, _ := NewWithClient(client)

	headers := map[string]string{
		artifact.HeaderContentLength: "9",
		artifact.HeaderDigest:        "blake3:abc",
	}
	if err := gw.PutObject(context.Background(), "bucket", "artifacts/o/r/demo-1-2.zip", path, headers); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	stored := client.objects["bucket/artifacts/o/r/demo-1-2.zip"]
	if !bytes.Equal(stored, []byte("zip-bytes")) {
		t.Errorf("stored = %q", stored)
	}
	attrs := client.attrs["bucket/artifacts/o/r/demo-1-2.zip"]
	if attrs.ContentType != artifact.ContentTypeZip {
		t.Errorf("ContentType = %s, want default zip", attrs.ContentType)
	}
	if attrs.Metadata["digest"] != "blake3:abc" {
		t.Errorf("Metadata = %v", attrs.Metadata)
	}
}

func TestGateway_PutObjectFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "demo.zip")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	client := newMockClient()
	client.err = &googleapi.Error{Code: 403, Message: "forbidden"}
	gw, _ := NewWithClient(client)

	err := gw.PutObject(context.Background(), "bucket", "k", path, nil)
	if !errors.Is(err, artifact.ErrAuth) {
		t.Errorf("PutObject() error = %v, want ErrAuth", err)
	}
}

func TestGateway_ObjectURL(t *testing.T) {
	t.Parallel()

	gw, _ := NewWithClient(newMockClient())
	want := "https://storage.googleapis.com/bucket/artifacts/o/r/demo-1-2.zip"
	if got := gw.ObjectURL("bucket", "artifacts/o/r/demo-1-2.zip"); got != want {
		t.Errorf("ObjectURL() = %s, want %s", got, want)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want artifact.FailureKind
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, artifact.FailureAuth},
		{"forbidden", &googleapi.Error{Code: 403}, artifact.FailureAuth},
		{"rate limited", &googleapi.Error{Code: 429}, artifact.FailureQuota},
		{"unavailable", &googleapi.Error{Code: 503}, artifact.FailureServer},
		{"not found", &googleapi.Error{Code: 404}, artifact.FailureServer},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, artifact.FailureNetwork},
		{"canceled", context.Canceled, artifact.FailureNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}
