package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	domainconfig "github.com/felixgeelhaar/artifact-go/domain/config"
)

// Environment variables read by FromEnv and ApplyEnv.
const (
	EnvBucket           = "BUCKET_NAME"
	EnvRepository       = "GITHUB_REPOSITORY"
	EnvPublicEndpoint   = "PUBLIC_ENDPOINT"
	EnvEndpoint         = "ENDPOINT"
	EnvAccessKey        = "ACCESS_KEY"
	EnvSecretKey        = "SECRET_KEY"
	EnvRegion           = "REGION"
	EnvRuntimeToken     = "ACTIONS_RUNTIME_TOKEN"
	EnvProvider         = "ARTIFACT_PROVIDER"
	EnvCompressionLevel = "ARTIFACT_COMPRESSION_LEVEL"
	EnvUploadTimeout    = "ARTIFACT_UPLOAD_TIMEOUT"
	EnvMaxConcurrent    = "ARTIFACT_MAX_CONCURRENT_UPLOADS"
	EnvArchiveDir       = "ARTIFACT_ARCHIVE_DIR"
	EnvLogLevel         = "ARTIFACT_LOG_LEVEL"
	EnvLogFormat        = "ARTIFACT_LOG_FORMAT"
	EnvTraceExporter    = "ARTIFACT_TRACE_EXPORTER"
	EnvOTLPEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvGCSCredentials   = "GCS_CREDENTIALS_FILE"
	EnvGCSProject       = "GCS_PROJECT_ID"
	EnvAzureAccount     = "AZURE_ACCOUNT_NAME"
	EnvAzureKey         = "AZURE_ACCOUNT_KEY"
	EnvAzureConnection  = "AZURE_CONNECTION_STRING"
	EnvFilesystemDir    = "ARTIFACT_STORE_DIR"
)

// FromEnv builds a configuration from defaults overlaid with the
// environment. A nil lookup reads the process environment.
func FromEnv(lookup LookupFunc) (*domainconfig.Config, error) {
	cfg := domainconfig.Default()
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays variables that are set onto cfg. A custom ENDPOINT
// switches the S3 client to plain HTTP, matching self-hosted stores.
func ApplyEnv(cfg *domainconfig.Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var provider string
	str(EnvProvider, &provider)
	if provider != "" {
		cfg.Provider = domainconfig.Provider(provider)
	}

	str(EnvBucket, &cfg.Bucket)
	str(EnvRepository, &cfg.Repository)
	str(EnvPublicEndpoint, &cfg.PublicEndpoint)
	str(EnvRuntimeToken, &cfg.RuntimeToken)

	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		cfg.S3.Endpoint = v
		cfg.S3.Insecure = true
		cfg.S3.UsePathStyle = true
	}
	str(EnvAccessKey, &cfg.S3.AccessKey)
	str(EnvSecretKey, &cfg.S3.SecretKey)
	str(EnvRegion, &cfg.S3.Region)

	str(EnvGCSCredentials, &cfg.GCS.CredentialsFile)
	str(EnvGCSProject, &cfg.GCS.ProjectID)

	str(EnvAzureAccount, &cfg.Azure.AccountName)
	str(EnvAzureKey, &cfg.Azure.AccountKey)
	str(EnvAzureConnection, &cfg.Azure.ConnectionString)

	str(EnvFilesystemDir, &cfg.Filesystem.Dir)

	str(EnvArchiveDir, &cfg.Upload.ArchiveDir)
	str(EnvLogLevel, &cfg.Logging.Level)
	str(EnvLogFormat, &cfg.Logging.Format)
	str(EnvTraceExporter, &cfg.Tracing.Exporter)
	str(EnvOTLPEndpoint, &cfg.Tracing.Endpoint)

	var errs []error
	if v, ok := lookup(EnvCompressionLevel); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", domainconfig.ErrInvalidEnvValue, EnvCompressionLevel, v))
		} else {
			cfg.Upload.CompressionLevel = n
		}
	}
	if v, ok := lookup(EnvMaxConcurrent); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", domainconfig.ErrInvalidEnvValue, EnvMaxConcurrent, v))
		} else {
			cfg.Upload.MaxConcurrent = n
		}
	}
	if v, ok := lookup(EnvUploadTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", domainconfig.ErrInvalidEnvValue, EnvUploadTimeout, v))
		} else {
			cfg.Upload.Timeout = domainconfig.Duration(d)
		}
	}

	return errors.Join(errs...)
}
