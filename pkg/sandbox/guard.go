// Package sandbox confines caller-supplied paths to a root directory.
//
// Every filesystem path built from user input (zip entry names, raw code
// reads, demo and thumbnail requests) goes through a Guard.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal reports a path that resolves outside its sandbox root.
var ErrPathTraversal = errors.New("path escapes sandbox root")

// Guard validates relative paths against a canonical absolute root.
type Guard struct {
	root string
}

// New canonicalizes root. Symlinks in the root itself are resolved when it
// already exists, so later prefix checks compare like with like.
func New(root string) (Guard, error) {
	if strings.TrimSpace(root) == "" {
		return Guard{}, fmt.Errorf("sandbox root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Guard{}, fmt.Errorf("resolve sandbox root %q: %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else if !errors.Is(err, os.ErrNotExist) {
		return Guard{}, fmt.Errorf("resolve sandbox root %q: %w", root, err)
	}
	return Guard{root: filepath.Clean(abs)}, nil
}

func (g Guard) Root() string { return g.root }

// Resolve joins rel to the root and returns the absolute path when it stays
// inside the root. The root itself is accepted.
func (g Guard) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q contains NUL", ErrPathTraversal, rel)
	}

	native := filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	var candidate string
	if filepath.IsAbs(native) {
		candidate = filepath.Clean(native)
	} else {
		candidate = filepath.Join(g.root, native)
	}

	if !g.contains(candidate) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}
	return candidate, nil
}

// ResolveFile is Resolve for callers that need a concrete entry below the
// root: the root itself is rejected.
func (g Guard) ResolveFile(rel string) (string, error) {
	p, err := g.Resolve(rel)
	if err != nil {
		return "", err
	}
	if p == g.root {
		return "", fmt.Errorf("%w: %q names the sandbox root", ErrPathTraversal, rel)
	}
	return p, nil
}

// Rel converts an absolute path inside the root to a forward-slash relative path.
func (g Guard) Rel(abs string) (string, error) {
	if !g.contains(filepath.Clean(abs)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, abs)
	}
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathTraversal, err)
	}
	return filepath.ToSlash(rel), nil
}

// Confine follows every symlink in abs and returns the real path, or
// ErrPathTraversal when that path lies outside the root. A missing path
// returns the os.ErrNotExist error of the lookup.
func (g Guard) Confine(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if !g.contains(resolved) {
		return "", fmt.Errorf("%w: %q resolves to %q", ErrPathTraversal, abs, resolved)
	}
	return resolved, nil
}

func (g Guard) contains(p string) bool {
	if p == g.root {
		return true
	}
	prefix := g.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}
