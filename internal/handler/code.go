package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/internal/resputil"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/codelisting"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewCodeMgr)
}

type CodeMgr struct {
	name     string
	projects *query.ProjectDAO
	store    *assetstore.Store
	reader   *codelisting.Reader
}

func NewCodeMgr(conf *RegisterConfig) Manager {
	return &CodeMgr{
		name:     "projects",
		projects: query.NewProjectDAO(conf.DB),
		store:    conf.Store,
		reader:   codelisting.NewReader(conf.Config.MaxReadBytes()),
	}
}

func (mgr *CodeMgr) GetName() string { return mgr.name }

func (mgr *CodeMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/:id/code/files", mgr.ListCodeFiles)
	g.GET("/:id/code/raw", mgr.ReadCodeFile)
}

func (mgr *CodeMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *CodeMgr) RegisterRoot(_ *gin.RouterGroup) {}

type (
	CodeFileReq struct {
		Path string `form:"path" binding:"required"`
	}

	CodeFilesResp struct {
		Root  string   `json:"root"`
		Files []string `json:"files"`
	}
)

// ListCodeFiles godoc
// @Summary 代码文件列表
// @Description List every regular file below the project's code root, as forward-slash relative paths
// @Tags Code
// @Produce json
// @Param id path string true "项目ID"
// @Success 200 {object} resputil.Response[CodeFilesResp] "成功返回"
// @Failure 404 {object} resputil.Response[any] "项目或代码不存在"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/projects/{id}/code/files [get]
func (mgr *CodeMgr) ListCodeFiles(c *gin.Context) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	project, err := mgr.projects.Get(c, req.ID)
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	root, err := mgr.store.CodeRoot(project.ID)
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	files, err := codelisting.List(root)
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	resputil.Success(c, CodeFilesResp{
		Root:  path.Join(mgr.store.CodeBase(), project.ID),
		Files: files,
	})
}

// ReadCodeFile godoc
// @Summary 读取代码文件
// @Description Return the raw bytes of one file below the project's code root
// @Tags Code
// @Produce plain
// @Param id path string true "项目ID"
// @Param path query string true "相对代码根目录的文件路径"
// @Success 200 {string} string "文件内容"
// @Failure 400 {object} resputil.Response[any] "缺少 path"
// @Failure 403 {object} resputil.Response[any] "路径越界"
// @Failure 404 {object} resputil.Response[any] "文件不存在"
// @Failure 413 {object} resputil.Response[any] "文件过大"
// @Router /api/v1/projects/{id}/code/raw [get]
func (mgr *CodeMgr) ReadCodeFile(c *gin.Context) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var fileReq CodeFileReq
	if err := c.ShouldBindQuery(&fileReq); err != nil {
		resputil.BadRequestError(c, "query parameter path is required")
		return
	}
	root, err := mgr.store.CodeRoot(req.ID)
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	data, err := mgr.reader.ReadFile(req.ID, root, fileReq.Path)
	if err != nil {
		resputil.FromError(c, err)
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, codeContentType(data), data)
}

// codeContentType serves anything that sniffs as text as plain text, so
// uploaded html or svg never renders in the browser.
func codeContentType(data []byte) string {
	if strings.HasPrefix(http.DetectContentType(data), "text/") {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
