// Package azure uploads artifacts to Azure Blob Storage. Buckets map to
// containers.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// API is the subset of *azblob.Client used by the gateway.
type API interface {
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	URL() string
}

// Config configures the Azure Blob Storage gateway.
type Config struct {
	AccountName      string // Azure Storage account name
	AccountKey       string // Optional: storage account key
	ConnectionString string // Optional: full connection string
	ServiceURL       string // Optional: overrides https://<account>.blob.core.windows.net/
	// If neither AccountKey nor ConnectionString is provided, uses DefaultAzureCredential
}

// Gateway implements artifact.Gateway using block blob uploads.
type Gateway struct {
	client API
}

// New creates a gateway backed by a real blob client.
func New(cfg Config) (*Gateway, error) {
	if cfg.AccountName == "" && cfg.ConnectionString == "" {
		return nil, errors.New("account name or connection string is required")
	}

	serviceURL := cfg.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	}

	var client *azblob.Client
	var err error

	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client from connection string: %w", err)
		}
	case cfg.AccountKey != "":
		cred, credErr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client with shared key: %w", err)
		}
	default:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create default credential: %w", credErr)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client with default credential: %w", err)
		}
	}

	return NewWithClient(client), nil
}

// NewWithClient creates a gateway around an existing client.
func NewWithClient(client API) *Gateway {
	return &Gateway{client: client}
}

// PutObject implements artifact.Gateway.
func (g *Gateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "open", err)
	}
	defer f.Close()

	contentType := headers[artifact.HeaderContentType]
	if contentType == "" {
		contentType = artifact.ContentTypeZip
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	}
	if md := artifact.Metadata(headers); len(md) > 0 {
		opts.Metadata = make(map[string]*string, len(md))
		for k, v := range md {
			val := v
			opts.Metadata[metadataName(k)] = &val
		}
	}

	if _, err := g.client.UploadStream(ctx, bucket, key, f, opts); err != nil {
		return artifact.NewGatewayError(Classify(err), "upload blob", err)
	}
	return nil
}

// ObjectURL implements artifact.URLResolver.
func (g *Gateway) ObjectURL(bucket, key string) string {
	return strings.TrimSuffix(g.client.URL(), "/") + "/" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// metadataName converts a header-style name to a valid blob metadata
// name, which must be a C# identifier.
func metadataName(k string) string {
	return strings.ReplaceAll(k, "-", "_")
}

// Classify maps a blob client error to a failure kind.
func Classify(err error) artifact.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return artifact.FailureNetwork
	}

	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return artifact.FailureAuth
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == 401 || respErr.StatusCode == 403,
			respErr.ErrorCode == "AuthenticationFailed",
			respErr.ErrorCode == "AuthorizationFailure":
			return artifact.FailureAuth
		case respErr.StatusCode == 429,
			respErr.ErrorCode == "ServerBusy",
			respErr.ErrorCode == "AccountIsDisabled":
			return artifact.FailureQuota
		case respErr.StatusCode >= 500:
			return artifact.FailureServer
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return artifact.FailureNetwork
	}

	return artifact.FailureServer
}

var (
	_ artifact.Gateway     = (*Gateway)(nil)
	_ artifact.URLResolver = (*Gateway)(nil)
	_ API                  = (*azblob.Client)(nil)
)
