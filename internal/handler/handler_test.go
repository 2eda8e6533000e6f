package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/folio/dao/migrate"
	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/internal/resputil"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/config"
	"github.com/raids-lab/folio/pkg/constants"
)

const testHost = "http://folio.test"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	r        *gin.Engine
	store    *assetstore.Store
	projects *query.ProjectDAO
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.Host = testHost
	cfg.Database.Driver = query.DriverSQLite
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Storage.Root = filepath.Join(t.TempDir(), "uploads")

	db, err := query.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, migrate.Run(db))
	store, err := assetstore.New(assetstore.OptionsFromConfig(cfg))
	require.NoError(t, err)

	conf := &RegisterConfig{DB: db, Store: store, Config: cfg}
	r := gin.New()
	api := r.Group(constants.APIPrefix)
	root := r.Group("")
	for _, register := range Registers {
		mgr := register(conf)
		mgr.RegisterPublic(api.Group(mgr.GetName()))
		mgr.RegisterProtected(api.Group(mgr.GetName()))
		mgr.RegisterRoot(root)
	}
	return &testEnv{r: r, store: store, projects: query.NewProjectDAO(db)}
}

type filePart struct {
	field, filename string
	body            []byte
}

func zipBytes(t *testing.T, pairs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i+1 < len(pairs); i += 2 {
		w, err := zw.Create(pairs[i])
		require.NoError(t, err)
		_, err = w.Write([]byte(pairs[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (e *testEnv) multipart(t *testing.T, method, target string, fields map[string]string, files ...filePart) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.r.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.r.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) resputil.Response[T] {
	t.Helper()
	var resp resputil.Response[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func (e *testEnv) createFull(t *testing.T) ProjectResp {
	t.Helper()
	rec := e.multipart(t, http.MethodPost, "/api/v1/projects",
		map[string]string{
			"title":      "Portfolio",
			"skills":     "go, sql,go,",
			"githubLink": "https://github.com/raids-lab/folio",
		},
		filePart{"thumbnail", "Shot.PNG", pngHeader},
		filePart{"assets", "site.zip", zipBytes(t, "site/index.html", "<h1>v1</h1>", "site/app.js", "ok()")},
		filePart{"codeZip", "code.zip", zipBytes(t, "main.go", "package main", "pkg/util.go", "package pkg")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ProjectResp](t, rec).Data
}

func TestCreateProjectServesEverything(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)

	assert.Equal(t, "Portfolio", p.Title)
	assert.Equal(t, []string{"go", "sql"}, []string(p.Skills))
	require.NotNil(t, p.DemoEntryPath)
	assert.Equal(t, "site/index.html", *p.DemoEntryPath)
	assert.Equal(t, testHost+"/demos/"+p.ID+"/site/index.html", p.DemoURL)
	assert.Equal(t, testHost+"/code/"+p.ID, p.CodeURL)
	assert.ElementsMatch(t, []string{"main.go", "pkg/util.go"}, []string(p.CodeFiles))
	assert.Len(t, p.SourceArchivePaths, 2)

	demo := e.do(http.MethodGet, strings.TrimPrefix(p.DemoURL, testHost))
	require.Equal(t, http.StatusOK, demo.Code)
	assert.Equal(t, "<h1>v1</h1>", demo.Body.String())

	dir := e.do(http.MethodGet, "/demos/"+p.ID+"/site/")
	require.Equal(t, http.StatusOK, dir.Code)
	assert.Equal(t, "<h1>v1</h1>", dir.Body.String())

	thumb := e.do(http.MethodGet, strings.TrimPrefix(p.ThumbnailURL, testHost))
	require.Equal(t, http.StatusOK, thumb.Code)
	assert.Equal(t, "image/png", thumb.Header().Get("Content-Type"))

	files := e.do(http.MethodGet, "/api/v1/projects/"+p.ID+"/code/files")
	require.Equal(t, http.StatusOK, files.Code)
	listing := decode[CodeFilesResp](t, files).Data
	assert.Equal(t, "code/"+p.ID, listing.Root)
	assert.ElementsMatch(t, []string{"main.go", "pkg/util.go"}, listing.Files)

	raw := e.do(http.MethodGet, "/api/v1/projects/"+p.ID+"/code/raw?path=pkg/util.go")
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, "package pkg", raw.Body.String())
	assert.Equal(t, "nosniff", raw.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(raw.Header().Get("Content-Type"), "text/plain"))

	list := e.do(http.MethodGet, "/api/v1/projects")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Len(t, decode[[]ProjectResp](t, list).Data, 1)
}

func TestCreateProjectRejectsBadForms(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name   string
		fields map[string]string
		files  []filePart
		status int
		code   resputil.ErrorCode
	}{
		{"missing title", map[string]string{"description": "x"}, nil, http.StatusBadRequest, resputil.InvalidRequest},
		{"foreign repo link", map[string]string{"title": "x", "githubLink": "https://gitlab.com/a/b"}, nil,
			http.StatusBadRequest, resputil.InvalidRequest},
		{"demo without index", map[string]string{"title": "x"},
			[]filePart{{"assets", "site.zip", zipBytes(t, "main.js", "x")}}, http.StatusBadRequest, resputil.MissingEntryPoint},
		{"traversal entry", map[string]string{"title": "x"},
			[]filePart{{"assets", "site.zip", zipBytes(t, "index.html", "x", "../../escape.txt", "x")}},
			http.StatusForbidden, resputil.PathTraversal},
		{"not a zip", map[string]string{"title": "x"},
			[]filePart{{"codeZip", "code.zip", []byte("plain text")}}, http.StatusBadRequest, resputil.InvalidArchive},
		{"wrong extension", map[string]string{"title": "x"},
			[]filePart{{"assets", "site.tar", zipBytes(t, "index.html", "x")}}, http.StatusBadRequest, resputil.InvalidArchive},
		{"thumbnail not an image", map[string]string{"title": "x"},
			[]filePart{{"thumbnail", "a.png", []byte("hello")}}, http.StatusBadRequest, resputil.UnsupportedThumbnail},
		{"two demo archives", map[string]string{"title": "x"},
			[]filePart{
				{"assets", "a.zip", zipBytes(t, "index.html", "a")},
				{"demoZip", "b.zip", zipBytes(t, "index.html", "b")},
			}, http.StatusBadRequest, resputil.InvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.multipart(t, http.MethodPost, "/api/v1/projects", tc.fields, tc.files...)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decode[any](t, rec).Code)
		})
	}

	list, err := e.projects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	ids, err := e.store.StoredProjectIDs()
	require.NoError(t, err)
	assert.Empty(t, ids, "failed creates leave nothing on disk")
}

func TestCreateProjectAcceptsLegacyDemoField(t *testing.T) {
	e := newTestEnv(t)
	rec := e.multipart(t, http.MethodPost, "/api/v1/projects", map[string]string{"title": "legacy"},
		filePart{"demoZip", "demo.zip", zipBytes(t, "index.html", "legacy")})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[ProjectResp](t, rec).Data
	assert.Equal(t, testHost+"/demos/"+p.ID+"/index.html", p.DemoURL)
}

func TestUpdateProjectReplacesDemo(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)

	rec := e.multipart(t, http.MethodPut, "/api/v1/projects/"+p.ID,
		map[string]string{"description": "second"},
		filePart{"assets", "v2.zip", zipBytes(t, "index.html", "<h1>v2</h1>")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[ProjectResp](t, rec).Data

	assert.Equal(t, "Portfolio", updated.Title, "omitted fields stay")
	assert.Equal(t, "second", updated.Description)
	assert.Equal(t, testHost+"/demos/"+p.ID+"/index.html", updated.DemoURL)
	assert.Len(t, updated.SourceArchivePaths, 3)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/demos/"+p.ID+"/site/index.html").Code,
		"files of the previous archive are gone")
	demo := e.do(http.MethodGet, "/demos/"+p.ID+"/")
	require.Equal(t, http.StatusOK, demo.Code)
	assert.Equal(t, "<h1>v2</h1>", demo.Body.String())
}

func TestUpdateProjectFailedDemoClearsRecord(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)

	rec := e.multipart(t, http.MethodPut, "/api/v1/projects/"+p.ID,
		map[string]string{"title": "renamed"},
		filePart{"assets", "broken.zip", zipBytes(t, "readme.md", "no entry")})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, resputil.MissingEntryPoint, decode[any](t, rec).Code)

	got := decode[ProjectResp](t, e.do(http.MethodGet, "/api/v1/projects/"+p.ID)).Data
	assert.Equal(t, "Portfolio", got.Title, "a failed update keeps the old fields")
	assert.Empty(t, got.DemoURL)
	assert.Nil(t, got.DemoEntryPath)
	assert.Equal(t, testHost+"/code/"+p.ID, got.CodeURL, "other roles are untouched")
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/demos/"+p.ID+"/site/index.html").Code)
}

func TestUpdateProjectKeepsRolesReplacedBeforeFailure(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)

	rec := e.multipart(t, http.MethodPut, "/api/v1/projects/"+p.ID,
		map[string]string{"title": "renamed"},
		filePart{"assets", "site-v2.zip", zipBytes(t, "index.html", "<h1>v2</h1>")},
		filePart{"codeZip", "code.zip", []byte("not a zip")},
	)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, resputil.InvalidArchive, decode[any](t, rec).Code)

	got := decode[ProjectResp](t, e.do(http.MethodGet, "/api/v1/projects/"+p.ID)).Data
	assert.Equal(t, "Portfolio", got.Title)
	require.NotNil(t, got.DemoEntryPath)
	assert.Equal(t, "index.html", *got.DemoEntryPath)
	assert.Len(t, got.SourceArchivePaths, len(p.SourceArchivePaths)+1)
	assert.Equal(t, p.CodeFiles, got.CodeFiles)

	demo := e.do(http.MethodGet, strings.TrimPrefix(got.DemoURL, testHost))
	require.Equal(t, http.StatusOK, demo.Code)
	assert.Equal(t, "<h1>v2</h1>", demo.Body.String())
	for _, archive := range got.SourceArchivePaths {
		_, err := os.Stat(filepath.Join(e.store.Root(), filepath.FromSlash(archive)))
		assert.NoError(t, err, archive)
	}
}

func TestUpdateProjectTraversalKeepsDemo(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)

	rec := e.multipart(t, http.MethodPut, "/api/v1/projects/"+p.ID, nil,
		filePart{"assets", "evil.zip", zipBytes(t, "index.html", "x", "../../../evil.sh", "x")})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	demo := e.do(http.MethodGet, "/demos/"+p.ID+"/site/index.html")
	require.Equal(t, http.StatusOK, demo.Code)
	assert.Equal(t, "<h1>v1</h1>", demo.Body.String())
}

func TestUpdateUnknownProject(t *testing.T) {
	e := newTestEnv(t)
	rec := e.multipart(t, http.MethodPut, "/api/v1/projects/missing", map[string]string{"title": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, resputil.ProjectNotFound, decode[any](t, rec).Code)
}

func TestDeleteProject(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)

	rec := e.do(http.MethodDelete, "/api/v1/projects/"+p.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/v1/projects/"+p.ID).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, strings.TrimPrefix(p.DemoURL, testHost)).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, strings.TrimPrefix(p.ThumbnailURL, testHost)).Code)
	ids, err := e.store.StoredProjectIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/v1/projects/"+p.ID).Code)
}

func TestReadCodeFileErrors(t *testing.T) {
	e := newTestEnv(t)
	p := e.createFull(t)
	base := "/api/v1/projects/" + p.ID + "/code/raw"

	cases := []struct {
		query  string
		status int
		code   resputil.ErrorCode
	}{
		{"", http.StatusBadRequest, resputil.InvalidRequest},
		{"?path=../../../etc/passwd", http.StatusForbidden, resputil.PathTraversal},
		{"?path=/etc/passwd", http.StatusForbidden, resputil.PathTraversal},
		{"?path=missing.go", http.StatusNotFound, resputil.FileNotFound},
		{"?path=pkg", http.StatusNotFound, resputil.FileNotFound},
	}
	for _, tc := range cases {
		rec := e.do(http.MethodGet, base+tc.query)
		require.Equal(t, tc.status, rec.Code, "query %q: %s", tc.query, rec.Body.String())
		assert.Equal(t, tc.code, decode[any](t, rec).Code, tc.query)
	}
}

func TestHostingStaysInsideSandbox(t *testing.T) {
	e := newTestEnv(t)
	first := e.createFull(t)
	second := e.createFull(t)

	cases := []struct {
		target string
		status int
	}{
		{"/demos/" + first.ID + "/../" + second.ID + "/site/index.html", http.StatusForbidden},
		{"/demos/" + first.ID + "/../../code/" + first.ID + "/main.go", http.StatusForbidden},
		{"/thumbnails/../demos/" + first.ID + "/site/index.html", http.StatusForbidden},
		{"/demos/" + first.ID + "/nope.html", http.StatusNotFound},
		{"/demos/unknown/index.html", http.StatusNotFound},
		{"/thumbnails/", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := e.do(http.MethodGet, tc.target)
		assert.Equal(t, tc.status, rec.Code, tc.target)
	}

	// a linked directory inside the demo must not lead into the code tree
	root := e.store.Root()
	require.NoError(t, os.Symlink(filepath.Join(root, "code", first.ID), filepath.Join(root, "demos", first.ID, "linked")))
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/demos/"+first.ID+"/linked/main.go").Code)
}

func TestListSweeperRecords(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/api/v1/sweeper/records")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[[]map[string]any](t, rec).Data)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/v1/sweeper/records?limit=500").Code)
}
