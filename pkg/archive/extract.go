// Package archive unpacks uploaded ZIP archives into sandboxed directories
// and finds the demo entry document inside an extracted tree.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raids-lab/folio/pkg/sandbox"
)

var (
	// ErrInvalidArchive means the bytes are not a readable ZIP container.
	// Nothing has been written when it is returned.
	ErrInvalidArchive = errors.New("invalid zip archive")
	// ErrExtraction means writing an entry failed midway; the destination
	// must be treated as unavailable.
	ErrExtraction = errors.New("archive extraction failed")
	// ErrArchiveTooLarge means the archive or its decompressed content exceeds the configured ceiling.
	ErrArchiveTooLarge = errors.New("archive exceeds size limit")
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Archive is an opened ZIP container.
type Archive struct {
	reader       *zip.Reader
	closer       io.Closer
	maxExtracted int64
}

type Option func(*Archive)

// WithMaxExtractedBytes bounds the total decompressed size. Zero disables the check.
func WithMaxExtractedBytes(n int64) Option {
	return func(a *Archive) { a.maxExtracted = n }
}

// Stats summarizes one extraction.
type Stats struct {
	Files int
	Dirs  int
	Bytes int64
}

// Open opens the ZIP file at path.
func Open(path string, opts ...Option) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	a := &Archive{reader: &rc.Reader, closer: rc}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewReader reads a ZIP container from an in-memory or seekable source.
func NewReader(r io.ReaderAt, size int64, opts ...Option) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	a := &Archive{reader: zr}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Entries returns the normalized entry names in archive order.
func (a *Archive) Entries() []string {
	names := make([]string, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		names = append(names, entryName(f))
	}
	return names
}

// Validate checks every entry against a sandbox rooted at dest and the
// decompressed size ceiling, without touching the filesystem. A single bad
// entry fails the whole archive.
func (a *Archive) Validate(dest string) error {
	guard, err := sandbox.New(dest)
	if err != nil {
		return err
	}
	_, err = a.plan(guard)
	return err
}

// ExtractTo writes every entry below dest, creating dest and intermediate
// directories and truncating existing files. All entries are validated
// before the first write.
func (a *Archive) ExtractTo(dest string) (Stats, error) {
	var stats Stats
	if err := os.MkdirAll(dest, dirPerm); err != nil {
		return stats, fmt.Errorf("%w: create destination %q: %w", ErrExtraction, dest, err)
	}
	guard, err := sandbox.New(dest)
	if err != nil {
		return stats, err
	}
	targets, err := a.plan(guard)
	if err != nil {
		return stats, err
	}

	// remaining decompressed bytes, -1 when unlimited
	budget := int64(-1)
	if a.maxExtracted > 0 {
		budget = a.maxExtracted
	}
	for i, f := range a.reader.File {
		target := targets[i]
		if target == "" {
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return stats, fmt.Errorf("%w: create directory %q: %w", ErrExtraction, entryName(f), err)
			}
			stats.Dirs++
			continue
		}
		n, err := writeEntry(f, target, budget)
		stats.Bytes += n
		if err != nil {
			return stats, err
		}
		if budget >= 0 {
			budget -= n
		}
		stats.Files++
	}
	return stats, nil
}

// plan resolves the target path of every entry. Entries that name the
// destination root itself (such as "./") map to "".
func (a *Archive) plan(guard sandbox.Guard) ([]string, error) {
	targets := make([]string, len(a.reader.File))
	var declared uint64
	for i, f := range a.reader.File {
		name := entryName(f)
		if f.FileInfo().IsDir() {
			p, err := guard.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", f.Name, err)
			}
			if p != guard.Root() {
				targets[i] = p
			}
			continue
		}
		p, err := guard.ResolveFile(name)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", f.Name, err)
		}
		targets[i] = p
		declared += f.UncompressedSize64
	}
	if a.maxExtracted > 0 && declared > uint64(a.maxExtracted) {
		return nil, fmt.Errorf("%w: %d bytes declared, limit %d", ErrArchiveTooLarge, declared, a.maxExtracted)
	}
	return targets, nil
}

// writeEntry copies one file entry, refusing more than budget bytes unless
// budget is negative. Symlink entries are stored as regular
// files holding the link text so extraction never creates links.
func writeEntry(f *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return 0, fmt.Errorf("%w: create parent of %q: %w", ErrExtraction, entryName(f), err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open entry %q: %w", ErrExtraction, entryName(f), err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("%w: create %q: %w", ErrExtraction, entryName(f), err)
	}

	var src io.Reader = rc
	if budget >= 0 {
		// one extra byte tells an overrun apart from an exact fit
		src = io.LimitReader(rc, budget+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("%w: write %q: %w", ErrExtraction, entryName(f), err)
	}
	if budget >= 0 && n > budget {
		return n, fmt.Errorf("%w: decompressed content exceeds limit", ErrArchiveTooLarge)
	}
	return n, nil
}

func entryName(f *zip.File) string {
	return strings.ReplaceAll(f.Name, `\`, "/")
}
