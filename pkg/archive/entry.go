package archive

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// EntryPointName is the demo entry document, matched case-insensitively.
const EntryPointName = "index.html"

var ErrEntryPointNotFound = errors.New("no entry document found")

// LocateEntryPoint searches root breadth-first for EntryPointName and returns
// its forward-slash path relative to root.
//
// Order is fixed so results never depend on the host filesystem: a shallower
// match always wins; within one directory the files are checked in lexical
// name order before any subdirectory is queued, and subdirectories are
// visited in lexical order. The first match wins even if the archive holds
// several entry documents. Symlinks are never followed.
func LocateEntryPoint(root string) (string, error) {
	queue := []string{"."}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
		if err != nil {
			return "", fmt.Errorf("read %q: %w", dir, err)
		}

		var subdirs []string
		for _, e := range entries {
			switch {
			case e.Type()&os.ModeSymlink != 0:
				continue
			case e.IsDir():
				subdirs = append(subdirs, path.Join(dir, e.Name()))
			case e.Type().IsRegular() && strings.EqualFold(e.Name(), EntryPointName):
				return path.Join(dir, e.Name()), nil
			}
		}
		queue = append(queue, subdirs...)
	}
	return "", ErrEntryPointNotFound
}
