package artifact

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for artifact packaging and upload.
var (
	// ErrInvalidArtifactName indicates the artifact name is empty or
	// contains forbidden characters.
	ErrInvalidArtifactName = errors.New("invalid artifact name")

	// ErrInvalidRootDirectory indicates the root directory does not exist
	// or is not a directory.
	ErrInvalidRootDirectory = errors.New("invalid root directory")

	// ErrPathEscapesRoot indicates a requested path lies outside the root
	// directory.
	ErrPathEscapesRoot = errors.New("path escapes root directory")

	// ErrDuplicatePath indicates two entries share a destination path.
	ErrDuplicatePath = errors.New("duplicate destination path")

	// ErrFilesNotFound indicates no requested path resolved to an entry.
	ErrFilesNotFound = errors.New("no files found for artifact")

	// ErrArchive indicates a fatal I/O failure while building the archive.
	ErrArchive = errors.New("archive creation failed")

	// ErrUpload indicates the object store rejected or failed the upload.
	ErrUpload = errors.New("artifact upload failed")

	// ErrUnsupportedEnvironment indicates the host is not supported by
	// this pipeline.
	ErrUnsupportedEnvironment = errors.New("unsupported environment")

	// ErrInvalidRepository indicates the target repository is empty.
	ErrInvalidRepository = errors.New("invalid repository")
)

// FilesNotFoundError reports the requested paths when none of them could
// be resolved.
type FilesNotFoundError struct {
	Paths []string
}

// Error implements the error interface.
func (e *FilesNotFoundError) Error() string {
	if len(e.Paths) == 0 {
		return ErrFilesNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrFilesNotFound, strings.Join(e.Paths, ", "))
}

// Is matches ErrFilesNotFound.
func (e *FilesNotFoundError) Is(target error) bool {
	return target == ErrFilesNotFound
}

// UploadError wraps a gateway failure together with the key that was
// attempted. The gateway error is kept unchanged.
type UploadError struct {
	Key  Key
	Kind FailureKind
	Err  error
}

// NewUploadError classifies err and wraps it for key.
func NewUploadError(key Key, err error) *UploadError {
	return &UploadError{Key: key, Kind: KindOf(err), Err: err}
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("%s (%s) for key %s: %v", ErrUpload, e.Kind, e.Key, e.Err)
}

// Unwrap exposes the upload sentinel, the failure kind sentinel and the
// underlying gateway error.
func (e *UploadError) Unwrap() []error {
	errs := []error{ErrUpload}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
