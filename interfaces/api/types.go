package api

import (
	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/domain/config"
)

// Re-export domain types.
type (
	// UploadResult describes a stored artifact.
	UploadResult = artifact.UploadResult
	// Key is a storage key.
	Key = artifact.Key
	// RunIdentity scopes an artifact to a workflow run and job run.
	RunIdentity = artifact.RunIdentity
	// Gateway stores archives in an object store.
	Gateway = artifact.Gateway
	// UploadError wraps a gateway failure with the attempted key.
	UploadError = artifact.UploadError
	// GatewayError is a classified object store failure.
	GatewayError = artifact.GatewayError
	// FilesNotFoundError lists requested paths when none resolved.
	FilesNotFoundError = artifact.FilesNotFoundError
	// FailureKind classifies object store failures.
	FailureKind = artifact.FailureKind
	// Config is the complete upload configuration.
	Config = config.Config
)

// Re-export errors.
var (
	ErrInvalidArtifactName    = artifact.ErrInvalidArtifactName
	ErrInvalidRootDirectory   = artifact.ErrInvalidRootDirectory
	ErrPathEscapesRoot        = artifact.ErrPathEscapesRoot
	ErrDuplicatePath          = artifact.ErrDuplicatePath
	ErrFilesNotFound          = artifact.ErrFilesNotFound
	ErrArchive                = artifact.ErrArchive
	ErrUpload                 = artifact.ErrUpload
	ErrUnsupportedEnvironment = artifact.ErrUnsupportedEnvironment
	ErrAuth                   = artifact.ErrAuth
	ErrNetwork                = artifact.ErrNetwork
	ErrQuota                  = artifact.ErrQuota
	ErrServer                 = artifact.ErrServer
)

// NewRunIdentity creates a run identity from backend identifiers.
func NewRunIdentity(workflowRunID, jobRunID string) RunIdentity {
	return artifact.NewRunIdentity(workflowRunID, jobRunID)
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *Config {
	return config.Default()
}
