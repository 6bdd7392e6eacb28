package artifact

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

// KeyFormatVersion identifies the storage key layout. Changing the layout
// breaks discovery of previously uploaded artifacts and must bump it.
const KeyFormatVersion = 1

// KeyPrefix is the top-level prefix of every artifact key.
const KeyPrefix = "artifacts"

// timestampLayout formats the upload time when no run identity exists.
const timestampLayout = "20060102T150405Z"

// forbiddenNameChars are rejected in artifact names. They are either
// path separators or reserved on common filesystems.
var forbiddenNameChars = map[rune]string{
	'"':  `Double quote "`,
	':':  "Colon :",
	'<':  "Less than <",
	'>':  "Greater than >",
	'|':  "Vertical bar |",
	'*':  "Asterisk *",
	'?':  "Question mark ?",
	'\r': "Carriage return \\r",
	'\n': "Line feed \\n",
	'\\': "Backslash \\",
	'/':  "Forward slash /",
}

// ValidateName checks the artifact name invariants. Names are compared
// case-sensitively.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidArtifactName)
	}
	// Keys and object headers must be valid UTF-8.
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidArtifactName, name)
	}
	for _, r := range name {
		if desc, bad := forbiddenNameChars[r]; bad {
			return fmt.Errorf("%w: %q contains %s", ErrInvalidArtifactName, name, desc)
		}
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidArtifactName, name)
		}
	}
	return nil
}

// RunIdentity scopes an artifact to one workflow run and job run. The
// identifiers are opaque.
type RunIdentity struct {
	WorkflowRunID string `json:"workflow_run_id,omitempty"`
	JobRunID      string `json:"job_run_id,omitempty"`

	// UploadedAt substitutes for the identifiers when they are unknown.
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// NewRunIdentity creates a run identity from backend identifiers.
func NewRunIdentity(workflowRunID, jobRunID string) RunIdentity {
	return RunIdentity{WorkflowRunID: workflowRunID, JobRunID: jobRunID}
}

// TimestampIdentity creates a run identity from the upload time.
func TimestampIdentity(t time.Time) RunIdentity {
	return RunIdentity{UploadedAt: t.UTC().Truncate(time.Second)}
}

// HasIDs reports whether both backend identifiers are known.
func (r RunIdentity) HasIDs() bool {
	return r.WorkflowRunID != "" && r.JobRunID != ""
}

// IsZero reports whether the identity carries neither IDs nor a timestamp.
func (r RunIdentity) IsZero() bool {
	return !r.HasIDs() && r.UploadedAt.IsZero()
}

// suffix is the run-specific part of the archive file name.
func (r RunIdentity) suffix() (string, error) {
	if r.HasIDs() {
		for _, id := range []string{r.WorkflowRunID, r.JobRunID} {
			if strings.ContainsAny(id, "/\\") {
				return "", fmt.Errorf("run identifier %q contains a path separator", id)
			}
		}
		return r.WorkflowRunID + "-" + r.JobRunID, nil
	}
	if !r.UploadedAt.IsZero() {
		return r.UploadedAt.UTC().Format(timestampLayout), nil
	}
	return "", fmt.Errorf("run identity is empty")
}

// Key is a storage key in the object store.
type Key string

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// FileName returns the last path segment of the key.
func (k Key) FileName() string {
	return path.Base(string(k))
}

// DeriveKey composes artifacts/<repository>/<name>-<runId>-<jobId>.zip.
// It is pure: identical inputs always yield the identical key.
func DeriveKey(repository, name string, run RunIdentity) (Key, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	repository = strings.Trim(repository, "/")
	if repository == "" {
		return "", fmt.Errorf("%w: repository is empty", ErrInvalidRepository)
	}
	for _, seg := range strings.Split(repository, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidRepository, repository)
		}
	}
	suffix, err := run.suffix()
	if err != nil {
		return "", err
	}
	return Key(KeyPrefix + "/" + repository + "/" + name + "-" + suffix + ".zip"), nil
}
