// Package config provides the configuration model for artifact uploads.
package config

import "time"

// Provider names an object store backend.
type Provider string

// Supported providers.
const (
	ProviderS3         Provider = "s3"
	ProviderGCS        Provider = "gcs"
	ProviderAzure      Provider = "azure"
	ProviderFilesystem Provider = "filesystem"
	ProviderMemory     Provider = "memory"
)

// IsValid reports whether p is a supported provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderS3, ProviderGCS, ProviderAzure, ProviderFilesystem, ProviderMemory:
		return true
	default:
		return false
	}
}

// Config is the complete upload configuration. It is loaded once at
// startup and passed explicitly to the components that need it.
type Config struct {
	// Provider selects the object store backend.
	Provider Provider `json:"provider" yaml:"provider"`
	// Bucket is the destination bucket or container.
	Bucket string `json:"bucket" yaml:"bucket"`
	// Repository scopes keys, usually owner/name.
	Repository string `json:"repository" yaml:"repository"`
	// PublicEndpoint is the host used to compose result URLs.
	PublicEndpoint string `json:"public_endpoint,omitempty" yaml:"public_endpoint,omitempty"`
	// RuntimeToken carries the run identity in its scp claim.
	RuntimeToken string `json:"runtime_token,omitempty" yaml:"runtime_token,omitempty"`

	S3         S3Config         `json:"s3,omitempty" yaml:"s3,omitempty"`
	GCS        GCSConfig        `json:"gcs,omitempty" yaml:"gcs,omitempty"`
	Azure      AzureConfig      `json:"azure,omitempty" yaml:"azure,omitempty"`
	Filesystem FilesystemConfig `json:"filesystem,omitempty" yaml:"filesystem,omitempty"`
	Upload     UploadConfig     `json:"upload,omitempty" yaml:"upload,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
	Tracing    TracingConfig    `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// S3Config configures an S3-compatible store.
type S3Config struct {
	// Endpoint overrides the service endpoint. When Insecure is set the
	// endpoint is reached over plain HTTP.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Region is the signing region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// AccessKey and SecretKey are static credentials. Both empty means
	// the default AWS credential chain.
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	// Insecure disables TLS for a custom endpoint.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// UsePathStyle addresses buckets by path instead of virtual host.
	UsePathStyle bool `json:"use_path_style,omitempty" yaml:"use_path_style,omitempty"`
}

// GCSConfig configures Google Cloud Storage.
type GCSConfig struct {
	ProjectID       string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
	// Endpoint overrides the API endpoint, for emulators.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// AzureConfig configures Azure Blob Storage. Either a connection string
// or an account name is required; without an account key the default
// Azure credential is used.
type AzureConfig struct {
	AccountName      string `json:"account_name,omitempty" yaml:"account_name,omitempty"`
	AccountKey       string `json:"account_key,omitempty" yaml:"account_key,omitempty"`
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
	// ServiceURL overrides https://<account>.blob.core.windows.net/.
	ServiceURL string `json:"service_url,omitempty" yaml:"service_url,omitempty"`
}

// FilesystemConfig configures the local directory store.
type FilesystemConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// UploadConfig tunes archive creation and the upload call.
type UploadConfig struct {
	// CompressionLevel is the deflate level, 0–9.
	CompressionLevel int `json:"compression_level" yaml:"compression_level"`
	// Timeout bounds one upload attempt. Zero disables the deadline.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// MaxConcurrent bounds concurrent uploads through one gateway.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// ArchiveDir is where archives are written. Empty means the root
	// directory of each upload.
	ArchiveDir string `json:"archive_dir,omitempty" yaml:"archive_dir,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is none, stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC collector address.
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ServiceName string  `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	SampleRate  float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderS3,
		Upload: UploadConfig{
			CompressionLevel: 6,
			Timeout:          Duration(10 * time.Minute),
			MaxConcurrent:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "artifact-go",
			SampleRate:  1.0,
		},
	}
}

const redactedValue = "****"

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redactedValue
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	c.RuntimeToken = redact(c.RuntimeToken)
	c.S3.AccessKey = redact(c.S3.AccessKey)
	c.S3.SecretKey = redact(c.S3.SecretKey)
	c.Azure.AccountKey = redact(c.Azure.AccountKey)
	c.Azure.ConnectionString = redact(c.Azure.ConnectionString)
	return c
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
