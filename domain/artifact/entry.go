// Package artifact provides the domain model for packaging and uploading
// CI job artifacts.
package artifact

import (
	"fmt"
	"path"
	"strings"
)

// EntryKind distinguishes archive entries that carry file content from
// placeholder records for empty directories.
type EntryKind string

const (
	// EntryFile is an entry whose bytes come from a source file.
	EntryFile EntryKind = "file"

	// EntryEmptyDirectory is a zero-length directory record.
	EntryEmptyDirectory EntryKind = "empty_directory"
)

// String returns the string representation of the kind.
func (k EntryKind) String() string {
	return string(k)
}

// Entry is a single record of an upload specification.
type Entry struct {
	// Kind is the entry kind.
	Kind EntryKind `json:"kind"`

	// SourcePath is the absolute local path. Set only for EntryFile.
	SourcePath string `json:"source_path,omitempty"`

	// DestinationPath is the slash-separated path inside the archive,
	// relative to the artifact root.
	DestinationPath string `json:"destination_path"`

	// IsSymlink reports that SourcePath is a symbolic link whose target
	// is resolved when the archive is built.
	IsSymlink bool `json:"is_symlink,omitempty"`
}

// NewFileEntry creates a file entry.
func NewFileEntry(source, destination string, symlink bool) Entry {
	return Entry{
		Kind:            EntryFile,
		SourcePath:      source,
		DestinationPath: destination,
		IsSymlink:       symlink,
	}
}

// NewDirectoryEntry creates an empty directory entry.
func NewDirectoryEntry(destination string) Entry {
	return Entry{
		Kind:            EntryEmptyDirectory,
		DestinationPath: destination,
	}
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	switch e.Kind {
	case EntryFile:
		if e.SourcePath == "" {
			return fmt.Errorf("file entry %q has no source path", e.DestinationPath)
		}
	case EntryEmptyDirectory:
		if e.SourcePath != "" {
			return fmt.Errorf("directory entry %q must not have a source path", e.DestinationPath)
		}
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return ValidateDestination(e.DestinationPath)
}

// ValidateDestination checks that p is a clean, non-empty, root-relative,
// slash-separated archive path.
func ValidateDestination(p string) error {
	if p == "" || p == "." {
		return fmt.Errorf("destination path is empty")
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("destination path %q must use forward slashes", p)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("destination path %q must be relative", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("destination path %q contains '..'", p)
		}
	}
	if path.Clean(p) != p {
		return fmt.Errorf("destination path %q is not clean", p)
	}
	return nil
}

// Specification is the ordered list of entries that make up one archive.
// Order follows the order in which paths were requested.
type Specification []Entry

// Files returns the number of file entries.
func (s Specification) Files() int {
	n := 0
	for _, e := range s {
		if e.Kind == EntryFile {
			n++
		}
	}
	return n
}

// SourcePaths returns the source paths of all file entries.
func (s Specification) SourcePaths() []string {
	paths := make([]string, 0, len(s))
	for _, e := range s {
		if e.SourcePath != "" {
			paths = append(paths, e.SourcePath)
		}
	}
	return paths
}

// Validate checks every entry and rejects duplicate destination paths.
func (s Specification) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, e := range s {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.DestinationPath]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, e.DestinationPath)
		}
		seen[e.DestinationPath] = struct{}{}
	}
	return nil
}
