package artifact

import "errors"

// State is a stage of the upload pipeline.
type State string

// Pipeline states. The flow is linear; failed is reachable from any
// non-terminal state.
const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateArchiving  State = "archiving"
	StateUploading  State = "uploading"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// IsTerminal returns true for done and failed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// IsValid returns true if the state is a known pipeline state.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateValidating, StateArchiving, StateUploading, StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Next returns the successor of s on the success path, or "" for
// terminal states.
func (s State) Next() State {
	switch s {
	case StateIdle:
		return StateValidating
	case StateValidating:
		return StateArchiving
	case StateArchiving:
		return StateUploading
	case StateUploading:
		return StateDone
	default:
		return ""
	}
}

// ErrorKind names the taxonomy kind a pipeline failed with.
type ErrorKind string

const (
	KindInvalidArtifactName    ErrorKind = "InvalidArtifactName"
	KindInvalidRootDirectory   ErrorKind = "InvalidRootDirectory"
	KindPathEscapesRoot        ErrorKind = "PathEscapesRoot"
	KindDuplicatePath          ErrorKind = "DuplicatePath"
	KindFilesNotFound          ErrorKind = "FilesNotFoundError"
	KindArchive                ErrorKind = "ArchiveError"
	KindUpload                 ErrorKind = "UploadError"
	KindUnsupportedEnvironment ErrorKind = "UnsupportedEnvironmentError"
	KindInvalidRepository      ErrorKind = "InvalidRepository"
	KindUnknown                ErrorKind = "Unknown"
)

// ClassifyError maps err to its taxonomy kind.
func ClassifyError(err error) ErrorKind {
	for _, c := range []struct {
		target error
		kind   ErrorKind
	}{
		{ErrInvalidArtifactName, KindInvalidArtifactName},
		{ErrInvalidRootDirectory, KindInvalidRootDirectory},
		{ErrPathEscapesRoot, KindPathEscapesRoot},
		{ErrDuplicatePath, KindDuplicatePath},
		{ErrFilesNotFound, KindFilesNotFound},
		{ErrArchive, KindArchive},
		{ErrUpload, KindUpload},
		{ErrUnsupportedEnvironment, KindUnsupportedEnvironment},
		{ErrInvalidRepository, KindInvalidRepository},
	} {
		if errors.Is(err, c.target) {
			return c.kind
		}
	}
	return KindUnknown
}
