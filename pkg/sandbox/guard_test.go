package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T) Guard {
	t.Helper()
	g, err := New(t.TempDir())
	require.NoError(t, err)
	return g
}

func TestResolveAccepts(t *testing.T) {
	g := newGuard(t)

	cases := map[string]string{
		"index.html":           "index.html",
		"site/index.html":      filepath.Join("site", "index.html"),
		"./site/./style.css":   filepath.Join("site", "style.css"),
		"a/b/../c.txt":         filepath.Join("a", "c.txt"),
		`win\style\theme.css`:  filepath.Join("win", "style", "theme.css"),
		"deep/nested/dir/x.js": filepath.Join("deep", "nested", "dir", "x.js"),
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := g.Resolve(in)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(g.Root(), want), got)
		})
	}
}

func TestResolveRejects(t *testing.T) {
	g := newGuard(t)

	cases := []string{
		"",
		"../outside.txt",
		"../../etc/passwd",
		"site/../../escape",
		`..\..\windows\system32`,
		"/etc/passwd",
		"bad\x00name",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := g.Resolve(in)
			require.ErrorIs(t, err, ErrPathTraversal)
		})
	}
}

func TestResolveAbsoluteInsideRoot(t *testing.T) {
	g := newGuard(t)

	inside := filepath.Join(g.Root(), "site", "index.html")
	got, err := g.Resolve(inside)
	require.NoError(t, err)
	assert.Equal(t, inside, got)
}

func TestResolveSiblingPrefix(t *testing.T) {
	parent := t.TempDir()
	g, err := New(filepath.Join(parent, "p1"))
	require.NoError(t, err)

	// "p10" shares the "p1" string prefix but is a different directory.
	_, err = g.Resolve(filepath.Join(parent, "p10", "x"))
	require.ErrorIs(t, err, ErrPathTraversal)
	_, err = g.Resolve("../p10/x")
	require.ErrorIs(t, err, ErrPathTraversal)
}

func TestResolveFileRejectsRoot(t *testing.T) {
	g := newGuard(t)

	_, err := g.ResolveFile(".")
	require.ErrorIs(t, err, ErrPathTraversal)

	root, err := g.Resolve(".")
	require.NoError(t, err)
	assert.Equal(t, g.Root(), root)
}

func TestNewResolvesSymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(target, link))

	g, err := New(link)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, g.Root())
}

func TestRel(t *testing.T) {
	g := newGuard(t)

	rel, err := g.Rel(filepath.Join(g.Root(), "src", "lib", "util.js"))
	require.NoError(t, err)
	assert.Equal(t, "src/lib/util.js", rel)

	_, err = g.Rel(filepath.Dir(g.Root()))
	require.ErrorIs(t, err, ErrPathTraversal)
}

func TestNewEmptyRoot(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

func TestConfine(t *testing.T) {
	g := newGuard(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "x.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(g.Root(), "site"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(g.Root(), "site", "index.html"), []byte("hi"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(g.Root(), "out")))

	resolved, err := g.Confine(filepath.Join(g.Root(), "site", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.Root(), "site", "index.html"), resolved)

	_, err = g.Confine(filepath.Join(g.Root(), "out", "x.txt"))
	require.ErrorIs(t, err, ErrPathTraversal)

	_, err = g.Confine(filepath.Join(g.Root(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
