// Package gcs uploads artifacts to Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// PublicHost addresses objects in URLs returned to callers.
const PublicHost = "https://storage.googleapis.com"

// Client defines the interface for GCS client operations.
// This allows for mock implementations in testing.
type Client interface {
	// Upload streams content to bucket/object with the given attributes.
	Upload(ctx context.Context, bucket, object string, content io.Reader, attrs ObjectAttrs) error
}

// ObjectAttrs are the attributes written with an object.
type ObjectAttrs struct {
	ContentType string
	Metadata    map[string]string
}

// Config holds configuration for the GCS gateway.
type Config struct {
	ProjectID       string // informational; uploads do not need it
	CredentialsFile string // Optional: path to service account JSON file
	CredentialsJSON []byte // Optional: service account JSON content
	Endpoint        string // Optional: API endpoint override for emulators
}

// Gateway implements artifact.Gateway using Google Cloud Storage.
type Gateway struct {
	client Client
	closer io.Closer
}

// New creates a gateway backed by a real GCS client. Without explicit
// credentials Application Default Credentials are used.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if len(cfg.CredentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &Gateway{client: &storageClient{client: client}, closer: client}, nil
}

// NewWithClient creates a gateway around an existing client.
func NewWithClient(client Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("gcs client is required")
	}
	return &Gateway{client: client}, nil
}

// PutObject implements artifact.Gateway.
func (g *Gateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "open", err)
	}
	defer f.Close()

	attrs := ObjectAttrs{
		ContentType: headers[artifact.HeaderContentType],
		Metadata:    artifact.Metadata(headers),
	}
	if attrs.ContentType == "" {
		attrs.ContentType = artifact.ContentTypeZip
	}

	if err := g.client.Upload(ctx, bucket, key, f, attrs); err != nil {
		return artifact.NewGatewayError(Classify(err), "upload object", err)
	}
	return nil
}

// ObjectURL implements artifact.URLResolver.
func (g *Gateway) ObjectURL(bucket, key string) string {
	return PublicHost + "/" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// Close releases the underlying client, if the gateway owns one.
func (g *Gateway) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}

// Classify maps a GCS client error to a failure kind.
func Classify(err error) artifact.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return artifact.FailureNetwork
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return artifact.FailureAuth
		case apiErr.Code == 429:
			return artifact.FailureQuota
		case apiErr.Code >= 500:
			return artifact.FailureServer
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return artifact.FailureNetwork
	}

	return artifact.FailureServer
}

// storageClient adapts *storage.Client to Client.
type storageClient struct {
	client *gcs.Client
}

func (c *storageClient) Upload(ctx context.Context, bucket, object string, content io.Reader, attrs ObjectAttrs) error {
	writer := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = attrs.ContentType
	if len(attrs.Metadata) > 0 {
		writer.Metadata = attrs.Metadata
	}

	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

var (
	_ artifact.Gateway     = (*Gateway)(nil)
	_ artifact.URLResolver = (*Gateway)(nil)
	_ Client               = (*storageClient)(nil)
)
