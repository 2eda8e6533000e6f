// Package assetstore owns the on-disk layout of project artifacts.
//
// Every project id maps to exactly one directory below each role base:
//
//	<root>/<demos>/<id>/        extracted demo archive
//	<root>/<code>/<id>/         extracted code archive
//	<root>/<archives>/<id>/     retained original uploads
//	<root>/<thumbnails>/<id>-*  thumbnails, flat
//
// Role directories are only ever created, replaced or removed whole.
// Writers for one id are serialized through Run; readers never lock.
package assetstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raids-lab/folio/pkg/archive"
	"github.com/raids-lab/folio/pkg/codelisting"
	"github.com/raids-lab/folio/pkg/config"
	"github.com/raids-lab/folio/pkg/logutils"
	"github.com/raids-lab/folio/pkg/metrics"
	"github.com/raids-lab/folio/pkg/sandbox"
)

var (
	ErrMissingEntryPoint = errors.New("demo archive contains no index.html")
	ErrTimeout           = errors.New("project operation timed out")
	ErrNotFound          = codelisting.ErrNotFound

	ErrThumbnailTooLarge    = errors.New("thumbnail exceeds size limit")
	ErrUnsupportedThumbnail = errors.New("thumbnail is not an image")
	// ErrInvalidProjectID wraps sandbox.ErrPathTraversal: a bad id is a bad path segment.
	ErrInvalidProjectID = fmt.Errorf("%w: invalid project id", sandbox.ErrPathTraversal)
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	roleDemo      = "demo"
	roleCode      = "code"
	roleThumbnail = "thumbnail"

	sniffLen = 512
)

var (
	unsafeNameChars     = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)
	thumbnailExtPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// Options configures a Store. Base names are relative to Root.
type Options struct {
	Root           string
	DemosBase      string
	CodeBase       string
	ThumbnailsBase string
	ArchivesBase   string

	MaxArchiveBytes   int64
	MaxExtractedBytes int64
	MaxThumbnailBytes int64

	// Timeout bounds how long Run waits for a unit of work.
	Timeout time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:              cfg.Storage.Root,
		DemosBase:         cfg.Storage.Prefix.Demos,
		CodeBase:          cfg.Storage.Prefix.Code,
		ThumbnailsBase:    cfg.Storage.Prefix.Thumbnails,
		ArchivesBase:      cfg.Storage.Prefix.Archives,
		MaxArchiveBytes:   cfg.MaxArchiveBytes(),
		MaxExtractedBytes: cfg.MaxExtractedBytes(),
		MaxThumbnailBytes: cfg.MaxThumbnailBytes(),
		Timeout:           cfg.PipelineTimeout(),
	}
}

// DemoResult carries the demo fields to persist on the project record.
type DemoResult struct {
	RootPath    string
	EntryPath   string
	ArchivePath string
}

// CodeResult carries the code fields to persist on the project record.
type CodeResult struct {
	RootPath    string
	Files       []string
	ArchivePath string
}

type Store struct {
	opts Options

	root       sandbox.Guard
	demos      sandbox.Guard
	code       sandbox.Guard
	thumbnails sandbox.Guard
	archives   sandbox.Guard

	locks *keyLock

	removeAll func(string) error
	listCode  func(string) ([]string, error)
	now       func() time.Time
}

// New creates the storage root and the four role bases.
func New(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("storage root is empty")
	}
	if err := os.MkdirAll(opts.Root, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	root, err := sandbox.New(opts.Root)
	if err != nil {
		return nil, err
	}

	s := &Store{
		opts:      opts,
		root:      root,
		locks:     newKeyLock(),
		removeAll: os.RemoveAll,
		listCode:  codelisting.List,
		now:       time.Now,
	}
	bases := []struct {
		name  *string
		def   string
		guard *sandbox.Guard
	}{
		{&s.opts.DemosBase, "demos", &s.demos},
		{&s.opts.CodeBase, "code", &s.code},
		{&s.opts.ThumbnailsBase, "thumbnails", &s.thumbnails},
		{&s.opts.ArchivesBase, "archives", &s.archives},
	}
	for _, b := range bases {
		if *b.name == "" {
			*b.name = b.def
		}
		abs, err := root.ResolveFile(*b.name)
		if err != nil {
			return nil, fmt.Errorf("storage base %q: %w", *b.name, err)
		}
		if err := os.MkdirAll(abs, dirPerm); err != nil {
			return nil, fmt.Errorf("create storage base %q: %w", *b.name, err)
		}
		if *b.guard, err = sandbox.New(abs); err != nil {
			return nil, err
		}
		*b.name = path.Clean(filepath.ToSlash(*b.name))
	}
	return s, nil
}

func (s *Store) Root() string { return s.root.Root() }

func (s *Store) DemosBase() string      { return s.opts.DemosBase }
func (s *Store) CodeBase() string       { return s.opts.CodeBase }
func (s *Store) ThumbnailsBase() string { return s.opts.ThumbnailsBase }

// DemoGuard returns the sandbox of one project's demo root.
func (s *Store) DemoGuard(id string) (sandbox.Guard, error) {
	dir, err := s.projectDir(s.demos, id)
	if err != nil {
		return sandbox.Guard{}, err
	}
	return sandbox.New(dir)
}

func (s *Store) ThumbnailGuard() sandbox.Guard { return s.thumbnails }

// CodeRoot returns the absolute code root of a project, whether or not it exists.
func (s *Store) CodeRoot(id string) (string, error) {
	return s.projectDir(s.code, id)
}

// HasDemo reports whether an extracted demo currently exists for id.
func (s *Store) HasDemo(id string) bool { return s.dirExists(s.demos, id) }

// HasCode reports whether an extracted code tree currently exists for id.
func (s *Store) HasCode(id string) bool { return s.dirExists(s.code, id) }

// PutThumbnail stores an image as <thumbnails>/<id>-<uuid><ext> and returns
// its path relative to the storage root. Older thumbnails are left in place.
func (s *Store) PutThumbnail(id string, src io.Reader, filename string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read thumbnail: %w", err)
	}
	head = head[:n]
	if ct := http.DetectContentType(head); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrUnsupportedThumbnail, ct)
	}

	name := fmt.Sprintf("%s-%s%s", id, uuid.NewString(), thumbnailExt(filename))
	target, err := s.thumbnails.ResolveFile(name)
	if err != nil {
		return "", err
	}
	body := io.MultiReader(bytes.NewReader(head), src)
	if err := copyLimited(target, body, s.opts.MaxThumbnailBytes, ErrThumbnailTooLarge); err != nil {
		metrics.ExtractionsTotal.WithLabelValues(roleThumbnail, metrics.ResultFailure).Inc()
		return "", err
	}
	metrics.ExtractionsTotal.WithLabelValues(roleThumbnail, metrics.ResultSuccess).Inc()
	logutils.ForProject(id).Debugf("stored thumbnail %s", name)
	return path.Join(s.opts.ThumbnailsBase, name), nil
}

// PutDemoArchive replaces the demo of id with the content of a ZIP upload.
//
// The upload is retained first and validated as a whole; an unreadable
// archive or one with an escaping entry leaves the current demo untouched.
// After that the demo root is cleared and re-extracted. An archive without
// an index.html is rejected and leaves no demo directory behind.
func (s *Store) PutDemoArchive(id string, src io.Reader, filename string) (res DemoResult, err error) {
	defer s.observe(roleDemo, time.Now(), &err)
	if err := validateID(id); err != nil {
		return res, err
	}

	a, archiveRel, err := s.retainAndOpen(id, src, filename)
	if err != nil {
		return res, err
	}
	defer a.Close()

	demoRoot, _ := s.projectDir(s.demos, id)
	if err := s.replaceTree(a, demoRoot); err != nil {
		s.discardArchive(id, archiveRel)
		return res, err
	}

	entry, err := archive.LocateEntryPoint(demoRoot)
	if err != nil {
		s.discardTree(id, demoRoot)
		s.discardArchive(id, archiveRel)
		if errors.Is(err, archive.ErrEntryPointNotFound) {
			return res, fmt.Errorf("project %s: %w", id, ErrMissingEntryPoint)
		}
		return res, err
	}

	logutils.ForProject(id).Infof("demo extracted, entry %s", entry)
	return DemoResult{
		RootPath:    path.Join(s.opts.DemosBase, id),
		EntryPath:   entry,
		ArchivePath: archiveRel,
	}, nil
}

// PutCodeArchive replaces the code tree of id and returns a fresh listing.
func (s *Store) PutCodeArchive(id string, src io.Reader, filename string) (res CodeResult, err error) {
	defer s.observe(roleCode, time.Now(), &err)
	if err := validateID(id); err != nil {
		return res, err
	}

	a, archiveRel, err := s.retainAndOpen(id, src, filename)
	if err != nil {
		return res, err
	}
	defer a.Close()

	codeRoot, _ := s.projectDir(s.code, id)
	if err := s.replaceTree(a, codeRoot); err != nil {
		s.discardArchive(id, archiveRel)
		return res, err
	}

	files, err := s.listCode(codeRoot)
	if err != nil {
		s.discardTree(id, codeRoot)
		s.discardArchive(id, archiveRel)
		return res, fmt.Errorf("list code of project %s: %w", id, err)
	}

	logutils.ForProject(id).Infof("code extracted, %d files", len(files))
	return CodeResult{
		RootPath:    path.Join(s.opts.CodeBase, id),
		Files:       files,
		ArchivePath: archiveRel,
	}, nil
}

// retainAndOpen copies the upload below <archives>/<id>/ and opens it. On
// failure the retained copy is gone again.
func (s *Store) retainAndOpen(id string, src io.Reader, filename string) (*archive.Archive, string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		return nil, "", fmt.Errorf("%w: %q is not a .zip file", archive.ErrInvalidArchive, filename)
	}
	dir, err := s.projectDir(s.archives, id)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, "", fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixNano(), SanitizeFilename(filename))
	target := filepath.Join(dir, name)
	rel := path.Join(s.opts.ArchivesBase, id, name)
	if err := copyLimited(target, src, s.opts.MaxArchiveBytes, archive.ErrArchiveTooLarge); err != nil {
		return nil, "", err
	}

	a, err := archive.Open(target, archive.WithMaxExtractedBytes(s.opts.MaxExtractedBytes))
	if err != nil {
		s.discardArchive(id, rel)
		return nil, "", err
	}
	return a, rel, nil
}

// replaceTree validates a against dest, then clears dest and extracts.
// Validation failures happen before the clear and leave dest as it was.
func (s *Store) replaceTree(a *archive.Archive, dest string) error {
	if err := a.Validate(dest); err != nil {
		return err
	}
	if err := s.removeAll(dest); err != nil {
		return fmt.Errorf("%w: clear %q: %w", archive.ErrExtraction, dest, err)
	}
	if _, err := a.ExtractTo(dest); err != nil {
		// a half written tree is never served
		_ = s.removeAll(dest)
		return err
	}
	return nil
}

func (s *Store) discardArchive(id, rel string) {
	abs, err := s.root.ResolveFile(rel)
	if err == nil {
		err = os.Remove(abs)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logutils.ForProject(id).WithError(err).Warnf("discard retained archive %s", rel)
	}
}

func (s *Store) discardTree(id, dir string) {
	if err := s.removeAll(dir); err != nil {
		logutils.ForProject(id).WithError(err).Warnf("discard %s", dir)
	}
}

func (s *Store) observe(role string, start time.Time, err *error) {
	metrics.ExtractionDuration.WithLabelValues(role).Observe(time.Since(start).Seconds())
	metrics.ExtractionsTotal.WithLabelValues(role, metrics.Result(*err)).Inc()
}

func (s *Store) projectDir(base sandbox.Guard, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return base.ResolveFile(id)
}

func (s *Store) dirExists(base sandbox.Guard, id string) bool {
	dir, err := s.projectDir(base, id)
	if err != nil {
		return false
	}
	info, err := os.Lstat(dir)
	return err == nil && info.IsDir()
}

// validateID accepts a single, non-special path segment.
func validateID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidProjectID, id)
	case strings.ContainsAny(id, `/\`), strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: %q", ErrInvalidProjectID, id)
	}
	return nil
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		name = "upload"
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}

func thumbnailExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !thumbnailExtPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// copyLimited writes src to target, failing with tooLarge once more than
// limit bytes arrive. A failed copy leaves no file behind.
func copyLimited(target string, src io.Reader, limit int64, tooLarge error) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("create %q: %w", target, err)
	}
	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit > 0 && n > limit {
		err = fmt.Errorf("%w: more than %d bytes", tooLarge, limit)
	}
	if err != nil {
		_ = os.Remove(target)
		return err
	}
	return nil
}
