// Package filesystem provides a local-directory object store.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"syscall"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// MetadataSuffix names the sidecar file holding an object's headers.
const MetadataSuffix = ".meta.json"

// Gateway implements artifact.Gateway by copying archives under a base
// directory laid out as <base>/<bucket>/<key>.
type Gateway struct {
	basePath string
}

// New creates a filesystem gateway rooted at basePath.
func New(basePath string) (*Gateway, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store directory: %w", err)
	}
	// Ensure base path exists with restrictive permissions (G301 fix)
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &Gateway{basePath: abs}, nil
}

// PutObject implements artifact.Gateway. The object is written to a
// temporary file and renamed into place.
func (g *Gateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	dest, err := g.objectPath(bucket, key)
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "resolve", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return artifact.NewGatewayError(classify(err), "mkdir", err)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "open", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return artifact.NewGatewayError(classify(err), "create", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src}); err != nil {
		tmp.Close()        // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return artifact.NewGatewayError(classify(err), "write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return artifact.NewGatewayError(classify(err), "close", err)
	}

	meta, err := json.Marshal(headers)
	if err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return artifact.NewGatewayError(artifact.FailureServer, "metadata", err)
	}
	if err := os.WriteFile(dest+MetadataSuffix, meta, 0600); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return artifact.NewGatewayError(classify(err), "metadata", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return artifact.NewGatewayError(classify(err), "rename", err)
	}
	return nil
}

// ObjectURL implements artifact.URLResolver with a file URL.
func (g *Gateway) ObjectURL(bucket, key string) string {
	dest, err := g.objectPath(bucket, key)
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}).String()
}

// Path returns where bucket/key is stored.
func (g *Gateway) Path(bucket, key string) (string, error) {
	return g.objectPath(bucket, key)
}

// objectPath joins bucket and key under the base path and rejects
// anything that would land outside it.
func (g *Gateway) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("bucket and key are required")
	}
	dest := filepath.Join(g.basePath, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(filepath.Join(g.basePath, bucket), dest)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("key %q escapes bucket %q", key, bucket)
	}
	return dest, nil
}

func classify(err error) artifact.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return artifact.FailureNetwork
	case errors.Is(err, fs.ErrPermission):
		return artifact.FailureAuth
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return artifact.FailureQuota
	default:
		return artifact.FailureServer
	}
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var (
	_ artifact.Gateway     = (*Gateway)(nil)
	_ artifact.URLResolver = (*Gateway)(nil)
)
