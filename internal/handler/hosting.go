package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/folio/internal/resputil"
	"github.com/raids-lab/folio/pkg/archive"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/sandbox"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewHostingMgr)
}

// HostingMgr serves extracted demos and thumbnails straight from the
// storage root. Every request path goes through the matching sandbox.
type HostingMgr struct {
	name  string
	store *assetstore.Store
}

func NewHostingMgr(conf *RegisterConfig) Manager {
	return &HostingMgr{
		name:  "hosting",
		store: conf.Store,
	}
}

func (mgr *HostingMgr) GetName() string { return mgr.name }

func (mgr *HostingMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *HostingMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *HostingMgr) RegisterRoot(g *gin.RouterGroup) {
	demos := "/" + mgr.store.DemosBase() + "/:id/*filepath"
	g.GET(demos, mgr.ServeDemo)
	g.HEAD(demos, mgr.ServeDemo)

	thumbnails := "/" + mgr.store.ThumbnailsBase() + "/*filepath"
	g.GET(thumbnails, mgr.ServeThumbnail)
	g.HEAD(thumbnails, mgr.ServeThumbnail)
}

// ServeDemo godoc
// @Summary 演示托管
// @Description Serve a file of an extracted demo. Directories answer with their index.html.
// @Tags Hosting
// @Param id path string true "项目ID"
// @Param filepath path string true "相对演示根目录的路径"
// @Success 200 {file} file "文件内容"
// @Failure 403 {object} resputil.Response[any] "路径越界"
// @Failure 404 {object} resputil.Response[any] "文件不存在"
// @Router /demos/{id}/{filepath} [get]
func (mgr *HostingMgr) ServeDemo(c *gin.Context) {
	guard, err := mgr.store.DemoGuard(c.Param("id"))
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	serveGuarded(c, guard, c.Param("filepath"))
}

// ServeThumbnail godoc
// @Summary 缩略图托管
// @Tags Hosting
// @Param filepath path string true "缩略图文件名"
// @Success 200 {file} file "图片内容"
// @Failure 403 {object} resputil.Response[any] "路径越界"
// @Failure 404 {object} resputil.Response[any] "文件不存在"
// @Router /thumbnails/{filepath} [get]
func (mgr *HostingMgr) ServeThumbnail(c *gin.Context) {
	serveGuarded(c, mgr.store.ThumbnailGuard(), c.Param("filepath"))
}

// serveGuarded writes the regular file at requested below guard's root.
// A symlinked file is never served and a linked parent must stay inside the root.
func serveGuarded(c *gin.Context, guard sandbox.Guard, requested string) {
	rel := strings.TrimPrefix(requested, "/")
	if rel == "" {
		rel = "."
	}
	target, err := guard.Resolve(rel)
	if err != nil {
		resputil.FromError(c, err)
		return
	}

	info, err := os.Lstat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, archive.EntryPointName)
		info, err = os.Lstat(target)
	}
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		resputil.FromError(c, fmt.Errorf("%s: %w", requested, assetstore.ErrNotFound))
		return
	}
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	if _, err := guard.Confine(target); err != nil {
		resputil.FromError(c, err)
		return
	}

	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		// replaced between Lstat and Open
		resputil.FromError(c, fmt.Errorf("%s: %w", requested, assetstore.ErrNotFound))
		return
	}
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	defer f.Close()

	c.Header("X-Content-Type-Options", "nosniff")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
