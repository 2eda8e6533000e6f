// Package codelisting enumerates and reads files of an extracted code archive.
package codelisting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/raids-lab/folio/pkg/sandbox"
)

var (
	// ErrNotFound covers a missing code root, a missing file, or a path that is not a regular file.
	ErrNotFound = errors.New("not found")
	// ErrFileTooLarge is returned by ReadFile for files above the read ceiling.
	ErrFileTooLarge = errors.New("file too large to preview")
)

// List returns every regular file below root as forward-slash relative paths.
//
// The walk is depth-first and visits each directory's entries in lexical
// order (the order os.ReadDir returns), so a directory's files and
// subdirectories interleave by name. Callers needing another order must sort.
// Symlinks are skipped.
func List(root string) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("code root %q: %w", root, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("code root %q is not a directory: %w", root, ErrNotFound)
	}

	files := []string{}
	if err := walk(root, ".", &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walk(root, dir string, files *[]string) error {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
	if err != nil {
		return fmt.Errorf("read %q: %w", dir, err)
	}
	for _, e := range entries {
		rel := path.Join(dir, e.Name())
		switch {
		case e.Type()&os.ModeSymlink != 0:
			continue
		case e.IsDir():
			if err := walk(root, rel, files); err != nil {
				return err
			}
		case e.Type().IsRegular():
			*files = append(*files, rel)
		}
	}
	return nil
}

// Reader serves single files out of code roots.
type Reader struct {
	maxBytes int64
}

// NewReader returns a Reader refusing files above maxBytes; zero means unlimited.
func NewReader(maxBytes int64) *Reader {
	return &Reader{maxBytes: maxBytes}
}

// ReadFile returns the bytes at rel under codeRoot. rel is checked by the
// sandbox before any filesystem access. A file removed by a concurrent
// replace surfaces as ErrNotFound.
func (r *Reader) ReadFile(projectID, codeRoot, rel string) ([]byte, error) {
	guard, err := sandbox.New(codeRoot)
	if err != nil {
		return nil, err
	}
	target, err := guard.ResolveFile(rel)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}

	info, err := os.Lstat(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("project %s file %q: %w", projectID, rel, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("project %s file %q is not a regular file: %w", projectID, rel, ErrNotFound)
	}
	// Lstat only looks at the last component, a linked parent directory could still lead outside
	if _, err := guard.Confine(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project %s file %q: %w", projectID, rel, ErrNotFound)
		}
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	if r.maxBytes > 0 && info.Size() > r.maxBytes {
		return nil, fmt.Errorf("project %s file %q (%d bytes): %w", projectID, rel, info.Size(), ErrFileTooLarge)
	}

	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("project %s file %q: %w", projectID, rel, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
