// Package archive turns requested paths into an upload specification and
// streams that specification into a zip archive.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/logging"
)

// Resolver classifies requested paths into archive entries.
type Resolver struct{}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve produces the ordered specification for requested, whose
// relative paths are interpreted against root. Paths that do not exist
// are skipped with a warning; an empty result is not an error.
func (r *Resolver) Resolve(requested []string, root string) (artifact.Specification, error) {
	rootAbs, realRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		entry artifact.Entry
		dir   bool
	}
	candidates := make([]candidate, 0, len(requested))

	for _, p := range requested {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(rootAbs, abs)
		}
		abs = filepath.Clean(abs)

		rel, ok := relativeTo(abs, rootAbs, realRoot)
		if !ok {
			return nil, fmt.Errorf("%w: %s", artifact.ErrPathEscapesRoot, p)
		}
		if rel == "." {
			logging.Debug().
				Add(logging.Component("resolver")).
				Add(logging.Path(p)).
				Msg("root directory requested, no entry emitted")
			continue
		}

		info, err := os.Lstat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				warnMissing(p, "path does not exist")
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		// Only the directory portion must stay inside the root. The leaf
		// may be a symlink pointing anywhere.
		realDir, err := filepath.EvalSymlinks(filepath.Dir(abs))
		if err != nil {
			return nil, fmt.Errorf("resolve parent of %s: %w", p, err)
		}
		if !within(realDir, realRoot) {
			return nil, fmt.Errorf("%w: %s", artifact.ErrPathEscapesRoot, p)
		}

		dest := filepath.ToSlash(rel)
		switch mode := info.Mode(); {
		case mode&fs.ModeSymlink != 0:
			target, err := os.Stat(abs)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					warnMissing(p, "dangling symlink")
					continue
				}
				return nil, fmt.Errorf("stat symlink target of %s: %w", p, err)
			}
			if target.IsDir() {
				candidates = append(candidates, candidate{entry: artifact.NewDirectoryEntry(dest), dir: true})
				continue
			}
			candidates = append(candidates, candidate{entry: artifact.NewFileEntry(abs, dest, true)})
		case mode.IsDir():
			candidates = append(candidates, candidate{entry: artifact.NewDirectoryEntry(dest), dir: true})
		case mode.IsRegular():
			candidates = append(candidates, candidate{entry: artifact.NewFileEntry(abs, dest, false)})
		default:
			logging.Warn().
				Add(logging.Component("resolver")).
				Add(logging.Path(p)).
				Add(logging.Str("mode", mode.String())).
				Msg("skipping path that is not a regular file, directory or symlink")
		}
	}

	files := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !c.dir {
			files = append(files, c.entry.DestinationPath)
		}
	}

	spec := make(artifact.Specification, 0, len(candidates))
	for _, c := range candidates {
		if c.dir && containsAny(c.entry.DestinationPath, files) {
			continue
		}
		spec = append(spec, c.entry)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// resolveRoot returns the absolute root and its symlink-free form.
func resolveRoot(root string) (string, string, error) {
	if root == "" {
		return "", "", fmt.Errorf("%w: root directory is empty", artifact.ErrInvalidRootDirectory)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", artifact.ErrInvalidRootDirectory, root, err)
	}
	info, err := os.Stat(rootAbs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", artifact.ErrInvalidRootDirectory, root, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", artifact.ErrInvalidRootDirectory, root)
	}
	realRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", artifact.ErrInvalidRootDirectory, root, err)
	}
	return rootAbs, realRoot, nil
}

// relativeTo returns abs relative to the root, accepting paths spelled
// through either the given or the symlink-free root.
func relativeTo(abs, rootAbs, realRoot string) (string, bool) {
	for _, base := range []string{rootAbs, realRoot} {
		rel, err := filepath.Rel(base, abs)
		if err == nil && !escapes(rel) {
			return rel, true
		}
	}
	return "", false
}

func within(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && !escapes(rel)
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}

func containsAny(dir string, files []string) bool {
	prefix := dir + "/"
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

func warnMissing(p, reason string) {
	logging.Warn().
		Add(logging.Component("resolver")).
		Add(logging.Path(p)).
		Add(logging.Str("reason", reason)).
		Msg("requested path skipped")
}
