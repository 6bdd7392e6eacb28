package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates upload configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateProvider(config)
	v.validateUpload(config)
	v.validateLogging(config)
	v.validateTracing(config)

	return v.errors
}

// Validate is a convenience wrapper around NewValidator().Validate.
func (c *Config) Validate() ValidationErrors {
	return NewValidator().Validate(c)
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *Config) {
	if strings.TrimSpace(config.Bucket) == "" {
		v.addError("bucket", "bucket is required")
	}
	if strings.Trim(config.Repository, "/ ") == "" {
		v.addError("repository", "repository is required")
	}
}

func (v *Validator) validateProvider(config *Config) {
	if !config.Provider.IsValid() {
		v.addError("provider", fmt.Sprintf("unsupported provider: %q", config.Provider))
		return
	}

	switch config.Provider {
	case ProviderS3:
		if config.PublicEndpoint == "" {
			v.addError("public_endpoint", "public_endpoint is required for the s3 provider")
		}
		if (config.S3.AccessKey == "") != (config.S3.SecretKey == "") {
			v.addError("s3", "access_key and secret_key must be set together")
		}
		if config.S3.Insecure && config.S3.Endpoint == "" {
			v.addError("s3.insecure", "insecure requires a custom endpoint")
		}
	case ProviderAzure:
		if config.Azure.ConnectionString == "" && config.Azure.AccountName == "" {
			v.addError("azure", "account_name or connection_string is required")
		}
	case ProviderFilesystem:
		if config.Filesystem.Dir == "" {
			v.addError("filesystem.dir", "dir is required for the filesystem provider")
		}
	}
}

func (v *Validator) validateUpload(config *Config) {
	if config.Upload.CompressionLevel < 0 || config.Upload.CompressionLevel > 9 {
		v.addError("upload.compression_level", "compression_level must be between 0 and 9")
	}
	if config.Upload.Timeout < 0 {
		v.addError("upload.timeout", "timeout must be non-negative")
	}
	if config.Upload.MaxConcurrent < 0 {
		v.addError("upload.max_concurrent", "max_concurrent must be non-negative")
	}
}

func (v *Validator) validateLogging(config *Config) {
	switch config.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "console", "json":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateTracing(config *Config) {
	switch config.Tracing.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if config.Tracing.Endpoint == "" {
			v.addError("tracing.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("tracing.exporter", fmt.Sprintf("invalid exporter: %s", config.Tracing.Exporter))
	}
	if config.Tracing.SampleRate < 0 || config.Tracing.SampleRate > 1 {
		v.addError("tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}
