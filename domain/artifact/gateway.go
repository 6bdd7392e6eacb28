package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Gateway stores a local file at a key in a bucket of a remote object
// store. Implementations live in infrastructure/storage.
type Gateway interface {
	// PutObject uploads the file at sourcePath. Headers carry
	// content-length, content-type and user metadata; implementations
	// may recompute content-length.
	PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error
}

// URLResolver is implemented by gateways that know how their objects are
// addressed. Gateways without it, or returning "", get
// https://<bucket>.<endpoint>/<key>.
type URLResolver interface {
	ObjectURL(bucket, key string) string
}

// Well-known upload headers.
const (
	HeaderContentLength = "content-length"
	HeaderContentType   = "content-type"

	// MetadataPrefix marks headers that gateways store as object metadata.
	MetadataPrefix = "x-artifact-"

	HeaderDigest   = MetadataPrefix + "digest"
	HeaderUploadID = MetadataPrefix + "upload-id"
	HeaderName     = MetadataPrefix + "name"

	// ContentTypeZip is the content type of artifact archives.
	ContentTypeZip = "application/zip"
)

// Metadata returns the user metadata carried in headers, keyed without
// MetadataPrefix.
func Metadata(headers map[string]string) map[string]string {
	md := make(map[string]string)
	for k, v := range headers {
		if name, ok := strings.CutPrefix(k, MetadataPrefix); ok && name != "" {
			md[name] = v
		}
	}
	return md
}

// FailureKind classifies gateway failures.
type FailureKind string

const (
	FailureAuth    FailureKind = "auth"
	FailureNetwork FailureKind = "network"
	FailureQuota   FailureKind = "quota"
	FailureServer  FailureKind = "server"
)

// Gateway failure sentinels, one per FailureKind.
var (
	ErrAuth    = errors.New("object store authentication failed")
	ErrNetwork = errors.New("object store unreachable")
	ErrQuota   = errors.New("object store quota exceeded")
	ErrServer  = errors.New("object store server error")
)

func (k FailureKind) sentinel() error {
	switch k {
	case FailureAuth:
		return ErrAuth
	case FailureNetwork:
		return ErrNetwork
	case FailureQuota:
		return ErrQuota
	case FailureServer:
		return ErrServer
	default:
		return nil
	}
}

// GatewayError is returned by gateways for a classified failure.
type GatewayError struct {
	Kind FailureKind
	Op   string
	Err  error
}

// NewGatewayError creates a classified gateway error.
func NewGatewayError(kind FailureKind, op string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failure kind.
func (e *GatewayError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the failure kind of err. Unclassified errors count as
// server failures, except context deadlines which count as network.
func KindOf(err error) FailureKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	switch {
	case errors.Is(err, ErrAuth):
		return FailureAuth
	case errors.Is(err, ErrQuota):
		return FailureQuota
	case errors.Is(err, ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return FailureNetwork
	default:
		return FailureServer
	}
}
