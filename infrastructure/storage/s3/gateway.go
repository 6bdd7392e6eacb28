// Package s3 uploads artifacts to S3-compatible object stores (AWS S3,
// Volcengine TOS, MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// API is the subset of the S3 client used by the gateway.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config configures the S3 gateway.
type Config struct {
	Region          string // signing region (default: us-east-1)
	AccessKeyID     string // Optional: uses the default credential chain if empty
	SecretAccessKey string
	SessionToken    string
	Endpoint        string // Optional: custom endpoint for S3-compatible storage
	Insecure        bool   // reach Endpoint over plain HTTP
	UsePathStyle    bool
}

// Gateway implements artifact.Gateway with a single PutObject call.
type Gateway struct {
	client API
}

// New creates a gateway backed by a real S3 client.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		// Uploads are attempted once.
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := ResolveEndpoint(cfg.Endpoint, cfg.Insecure)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithClient(client), nil
}

// NewWithClient creates a gateway around an existing client.
func NewWithClient(client API) *Gateway {
	return &Gateway{client: client}
}

// ResolveEndpoint adds a scheme to endpoint: http when insecure, https
// otherwise. An explicit scheme is kept.
func ResolveEndpoint(endpoint string, insecure bool) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if insecure {
		return "http://" + endpoint
	}
	return "https://" + endpoint
}

// PutObject implements artifact.Gateway.
func (g *Gateway) PutObject(ctx context.Context, bucket, key, sourcePath string, headers map[string]string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return artifact.NewGatewayError(artifact.FailureServer, "stat", err)
	}

	contentType := headers[artifact.HeaderContentType]
	if contentType == "" {
		contentType = artifact.ContentTypeZip
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	}
	if md := artifact.Metadata(headers); len(md) > 0 {
		input.Metadata = md
	}

	if _, err := g.client.PutObject(ctx, input); err != nil {
		return artifact.NewGatewayError(Classify(err), "put object", err)
	}
	return nil
}

var (
	authCodes = map[string]bool{
		"AccessDenied":          true,
		"AccountProblem":        true,
		"ExpiredToken":          true,
		"InvalidAccessKeyId":    true,
		"InvalidToken":          true,
		"SignatureDoesNotMatch": true,
		"Unauthorized":          true,
	}
	quotaCodes = map[string]bool{
		"QuotaExceeded":        true,
		"RequestLimitExceeded": true,
		"ServiceQuotaExceeded": true,
		"SlowDown":             true,
		"Throttling":           true,
		"TooManyRequests":      true,
	}
)

// Classify maps an S3 client error to a failure kind.
func Classify(err error) artifact.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return artifact.FailureNetwork
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); {
		case authCodes[code]:
			return artifact.FailureAuth
		case quotaCodes[code]:
			return artifact.FailureQuota
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.HTTPStatusCode(); {
		case status == 401 || status == 403:
			return artifact.FailureAuth
		case status == 429 || status == 507:
			return artifact.FailureQuota
		case status >= 500:
			return artifact.FailureServer
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return artifact.FailureNetwork
	}

	return artifact.FailureServer
}

var _ artifact.Gateway = (*Gateway)(nil)
