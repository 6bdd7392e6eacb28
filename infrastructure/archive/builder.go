package archive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/logging"
)

// DefaultCompressionLevel is the deflate level used when none is set.
const DefaultCompressionLevel = 6

// DigestPrefix prefixes archive digests.
const DigestPrefix = "blake3:"

// ErrInvalidCompressionLevel indicates a level outside 0–9.
var ErrInvalidCompressionLevel = fmt.Errorf("%w: compression level must be between 0 and 9", artifact.ErrArchive)

// Summary describes a written archive.
type Summary struct {
	// Size is the on-disk size of the closed archive.
	Size int64

	// Digest is the blake3 digest of the archive bytes, prefixed with
	// DigestPrefix.
	Digest string

	// Entries is the number of records written.
	Entries int

	// Skipped lists sources that vanished before they could be read.
	Skipped []string
}

// Builder streams a specification into a zip archive.
type Builder struct {
	level int
}

// ValidateCompressionLevel checks that level is in 0–9.
func ValidateCompressionLevel(level int) error {
	if level < 0 || level > 9 {
		return fmt.Errorf("%w: got %d", ErrInvalidCompressionLevel, level)
	}
	return nil
}

// NewBuilder creates a builder with the given deflate level. Level 0
// stores entries uncompressed.
func NewBuilder(level int) (*Builder, error) {
	if err := ValidateCompressionLevel(level); err != nil {
		return nil, err
	}
	return &Builder{level: level}, nil
}

// Level returns the compression level.
func (b *Builder) Level() int {
	return b.level
}

// Build writes spec to destination. The output file is closed on every
// path and removed when the build fails.
func (b *Builder) Build(ctx context.Context, destination string, spec artifact.Specification) (summary Summary, err error) {
	if err := os.MkdirAll(filepath.Dir(destination), 0o750); err != nil {
		return Summary{}, fmt.Errorf("%w: %w", artifact.ErrArchive, err)
	}

	out, err := os.Create(destination) // #nosec G304 -- destination is derived from the storage key
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", artifact.ErrArchive, err)
	}

	hasher := blake3.New()
	zw := zip.NewWriter(io.MultiWriter(out, hasher))
	method := zip.Store
	if b.level > 0 {
		method = zip.Deflate
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, b.level)
		})
	}

	closed := false
	defer func() {
		if !closed {
			_ = zw.Close()
			_ = out.Close()
		}
		if err != nil {
			if rmErr := os.Remove(destination); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				logging.Warn().
					Add(logging.Component("archive")).
					Add(logging.Path(destination)).
					Add(logging.ErrorField(rmErr)).
					Msg("failed to remove partial archive")
			}
		}
	}()

	self, err := out.Stat()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", artifact.ErrArchive, err)
	}

	logging.Debug().
		Add(logging.Component("archive")).
		Add(logging.Path(destination)).
		Add(logging.Str("compression_level", fmt.Sprint(b.level))).
		Add(logging.Entries(len(spec))).
		Msg("building archive")

	for _, entry := range spec {
		if err := ctx.Err(); err != nil {
			return Summary{}, fmt.Errorf("%w: %w", artifact.ErrArchive, err)
		}

		switch entry.Kind {
		case artifact.EntryEmptyDirectory:
			hdr := &zip.FileHeader{Name: entry.DestinationPath + "/", Method: zip.Store}
			hdr.SetMode(fs.ModeDir | 0o755)
			if _, err := zw.CreateHeader(hdr); err != nil {
				return Summary{}, fmt.Errorf("%w: %s: %w", artifact.ErrArchive, entry.DestinationPath, err)
			}
			summary.Entries++

		case artifact.EntryFile:
			if isArchiveItself(entry, self) {
				logging.Warn().
					Add(logging.Component("archive")).
					Add(logging.Path(entry.SourcePath)).
					Add(logging.Str("destination", entry.DestinationPath)).
					Msg("source is the archive being written, entry skipped")
				continue
			}
			written, err := b.writeFile(ctx, zw, entry, method)
			if err != nil {
				return Summary{}, fmt.Errorf("%w: %s: %w", artifact.ErrArchive, entry.DestinationPath, err)
			}
			if !written {
				summary.Skipped = append(summary.Skipped, entry.SourcePath)
				continue
			}
			summary.Entries++

		default:
			return Summary{}, fmt.Errorf("%w: unknown entry kind %q", artifact.ErrArchive, entry.Kind)
		}
	}

	closed = true
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return Summary{}, fmt.Errorf("%w: finalize: %w", artifact.ErrArchive, err)
	}
	if err := out.Close(); err != nil {
		return Summary{}, fmt.Errorf("%w: close: %w", artifact.ErrArchive, err)
	}

	info, err := os.Stat(destination)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: stat: %w", artifact.ErrArchive, err)
	}
	summary.Size = info.Size()
	summary.Digest = DigestPrefix + hex.EncodeToString(hasher.Sum(nil))

	logging.Debug().
		Add(logging.Component("archive")).
		Add(logging.Path(destination)).
		Add(logging.Size(summary.Size)).
		Msg("archive stream closed")

	return summary, nil
}

// writeFile streams one file entry. It returns false when the source
// vanished and the entry was skipped.
func (b *Builder) writeFile(ctx context.Context, zw *zip.Writer, entry artifact.Entry, method uint16) (bool, error) {
	source := entry.SourcePath
	if entry.IsSymlink {
		target, err := filepath.EvalSymlinks(source)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				warnVanished(entry)
				return false, nil
			}
			return false, err
		}
		source = target
	}

	in, err := os.Open(source) // #nosec G304 -- source comes from the resolved specification
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			warnVanished(entry)
			return false, nil
		}
		return false, err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", source)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, err
	}
	hdr.Name = entry.DestinationPath
	hdr.Method = method

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(w, &contextReader{ctx: ctx, r: in}); err != nil {
		return false, err
	}
	return true, nil
}

// isArchiveItself reports whether entry reads the file being written.
// A retry that lists the previous archive among its inputs would
// otherwise archive a truncated copy of it.
func isArchiveItself(entry artifact.Entry, self fs.FileInfo) bool {
	info, err := os.Stat(entry.SourcePath)
	return err == nil && os.SameFile(info, self)
}

func warnVanished(entry artifact.Entry) {
	logging.Warn().
		Add(logging.Component("archive")).
		Add(logging.Path(entry.SourcePath)).
		Add(logging.Str("destination", entry.DestinationPath)).
		Msg("source vanished before archiving, entry skipped")
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
