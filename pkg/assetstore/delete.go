package assetstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samber/lo"

	"github.com/raids-lab/folio/pkg/logutils"
	"github.com/raids-lab/folio/pkg/metrics"
	"github.com/raids-lab/folio/pkg/sandbox"
)

const cleanupParallelism = 4

var thumbnailName = regexp.MustCompile(`^(.+)-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]+)?$`)

type cleanupTarget struct {
	kind string
	path string
}

// DeleteProject removes everything stored for id: demo root, code root,
// retained archives, the recorded thumbnail and any other <id>-* thumbnail.
//
// Removal is best effort. Every step runs regardless of the others; each
// failure is logged and counted and the joined error is returned for the
// caller to log. Absent paths are not failures.
func (s *Store) DeleteProject(id, thumbnailPath string) error {
	if err := validateID(id); err != nil {
		return err
	}
	log := logutils.ForProject(id)

	var (
		mu   sync.Mutex
		errs []error
	)
	targets := []cleanupTarget{}
	for _, dir := range []struct {
		kind string
		base sandbox.Guard
	}{
		{roleDemo, s.demos},
		{roleCode, s.code},
		{"archive", s.archives},
	} {
		p, err := s.projectDir(dir.base, id)
		if err != nil {
			return err
		}
		targets = append(targets, cleanupTarget{kind: dir.kind, path: p})
	}

	if thumbnailPath != "" {
		abs, err := s.storedThumbnail(thumbnailPath)
		if err != nil {
			log.WithError(err).Warnf("refusing to remove recorded thumbnail %q", thumbnailPath)
			metrics.CleanupFailuresTotal.WithLabelValues(roleThumbnail).Inc()
			errs = append(errs, err)
		} else {
			targets = append(targets, cleanupTarget{kind: roleThumbnail, path: abs})
		}
	}
	owned, err := s.thumbnailsOf(id)
	if err != nil {
		log.WithError(err).Warn("scan thumbnails")
		errs = append(errs, err)
	}
	for _, p := range owned {
		targets = append(targets, cleanupTarget{kind: roleThumbnail, path: p})
	}
	targets = lo.UniqBy(targets, func(t cleanupTarget) string { return t.path })

	g := new(errgroup.Group)
	g.SetLimit(cleanupParallelism)
	for _, t := range targets {
		g.Go(func() error {
			if rerr := s.removeAll(t.path); rerr != nil {
				log.WithError(rerr).Warnf("remove %s %s", t.kind, t.path)
				metrics.CleanupFailuresTotal.WithLabelValues(t.kind).Inc()
				mu.Lock()
				errs = append(errs, fmt.Errorf("remove %s: %w", t.kind, rerr))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Infof("removed stored artifacts")
	return nil
}

// storedThumbnail resolves a recorded thumbnail path and makes sure it lies
// inside the thumbnail base.
func (s *Store) storedThumbnail(rel string) (string, error) {
	abs, err := s.root.ResolveFile(rel)
	if err != nil {
		return "", err
	}
	if _, err := s.thumbnails.Rel(abs); err != nil {
		return "", err
	}
	if abs == s.thumbnails.Root() {
		return "", fmt.Errorf("thumbnail path %q names the thumbnail base", rel)
	}
	return abs, nil
}

func (s *Store) thumbnailsOf(id string) ([]string, error) {
	entries, err := os.ReadDir(s.thumbnails.Root())
	if err != nil {
		return nil, fmt.Errorf("read thumbnail base: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), id+"-") {
			continue
		}
		if owner, ok := thumbnailOwner(e.Name()); ok && owner == id {
			paths = append(paths, filepath.Join(s.thumbnails.Root(), e.Name()))
		}
	}
	return paths, nil
}

// thumbnailOwner extracts <id> from <id>-<uuid><ext>.
func thumbnailOwner(name string) (string, bool) {
	m := thumbnailName.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StoredProjectIDs returns every project id that owns something on disk,
// sorted. Used by the orphan sweeper.
func (s *Store) StoredProjectIDs() ([]string, error) {
	ids := map[string]struct{}{}
	for _, base := range []string{s.demos.Root(), s.code.Root(), s.archives.Root()} {
		entries, err := os.ReadDir(base)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", base, err)
		}
		for _, e := range entries {
			if e.IsDir() && validateID(e.Name()) == nil {
				ids[e.Name()] = struct{}{}
			}
		}
	}
	entries, err := os.ReadDir(s.thumbnails.Root())
	if err != nil {
		return nil, fmt.Errorf("read thumbnail base: %w", err)
	}
	for _, e := range entries {
		if owner, ok := thumbnailOwner(e.Name()); ok && !e.IsDir() && validateID(owner) == nil {
			ids[owner] = struct{}{}
		}
	}

	out := lo.Keys(ids)
	sort.Strings(out)
	return out, nil
}
