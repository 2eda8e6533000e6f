package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/raids-lab/folio/dao/model"
	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/internal/resputil"
	"github.com/raids-lab/folio/pkg/archive"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/config"
	"github.com/raids-lab/folio/pkg/constants"
	"github.com/raids-lab/folio/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewProjectMgr)
}

type ProjectMgr struct {
	name     string
	projects *query.ProjectDAO
	store    *assetstore.Store
	config   *config.Config
}

func NewProjectMgr(conf *RegisterConfig) Manager {
	return &ProjectMgr{
		name:     "projects",
		projects: query.NewProjectDAO(conf.DB),
		store:    conf.Store,
		config:   conf.Config,
	}
}

func (mgr *ProjectMgr) GetName() string { return mgr.name }

func (mgr *ProjectMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("", mgr.ListProjects)
	g.GET("/:id", mgr.GetProject)
}

func (mgr *ProjectMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("", mgr.CreateProject)
	g.PUT("/:id", mgr.UpdateProject)
	g.DELETE("/:id", mgr.DeleteProject)
}

func (mgr *ProjectMgr) RegisterRoot(_ *gin.RouterGroup) {}

var githubLinkPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/.+$`)

type (
	ProjectIDReq struct {
		ID string `uri:"id" binding:"required"`
	}

	// ProjectForm holds the text fields of a multipart create or update.
	// Nil fields are left unchanged on update.
	ProjectForm struct {
		Title       *string `form:"title"`
		Description *string `form:"description"`
		Skills      *string `form:"skills"` // comma separated
		Tags        *string `form:"tags"`   // comma separated
		DemoLink    *string `form:"demoLink"`
		GithubLink  *string `form:"githubLink"`
	}

	ProjectResp struct {
		model.Project
		DemoURL      string `json:"demoUrl"`
		CodeURL      string `json:"codeUrl"`
		ThumbnailURL string `json:"thumbnailUrl"`
	}
)

// upload is one opened multipart part. The file stays readable after the
// request finished, so detached pipeline work can still consume it.
type upload struct {
	filename string
	file     multipart.File
}

type uploads map[string]*upload

func (u uploads) Close() {
	for _, up := range u {
		_ = up.file.Close()
	}
}

var errWriteAbandoned = errors.New("request ended before the write started")

// handOff passes the uploads to exactly one owner: the serialized write when
// it starts, or the request when Run returned without starting it.
type handOff struct {
	taken atomic.Bool
}

func (h *handOff) take() bool { return h.taken.CompareAndSwap(false, true) }

// ListProjects godoc
// @Summary 项目列表
// @Description List every project, newest first, with resolved demo, code and thumbnail URLs
// @Tags Project
// @Produce json
// @Success 200 {object} resputil.Response[[]ProjectResp] "成功返回"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/projects [get]
func (mgr *ProjectMgr) ListProjects(c *gin.Context) {
	projects, err := mgr.projects.List(c)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to list projects: %v", err), resputil.ServiceError)
		return
	}
	resputil.Success(c, lo.Map(projects, func(p *model.Project, _ int) ProjectResp {
		return mgr.toResp(p)
	}))
}

// GetProject godoc
// @Summary 项目详情
// @Description Get one project
// @Tags Project
// @Produce json
// @Param id path string true "项目ID"
// @Success 200 {object} resputil.Response[ProjectResp] "成功返回"
// @Failure 404 {object} resputil.Response[any] "项目不存在"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/projects/{id} [get]
func (mgr *ProjectMgr) GetProject(c *gin.Context) {
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
	resputil.Success(c, mgr.toResp(project))
}

// CreateProject godoc
// @Summary 创建项目
// @Description Create a project from form fields and optional thumbnail, demo (assets) and code (codeZip) uploads.
// @Description A demo archive must contain an index.html somewhere in its tree.
// @Tags Project
// @Accept mpfd
// @Produce json
// @Param title formData string true "标题"
// @Param description formData string false "描述"
// @Param skills formData string false "技能, 逗号分隔"
// @Param tags formData string false "标签, 逗号分隔"
// @Param demoLink formData string false "外部演示地址"
// @Param githubLink formData string false "GitHub 地址"
// @Param thumbnail formData file false "缩略图"
// @Param assets formData file false "演示压缩包 (.zip)"
// @Param codeZip formData file false "代码压缩包 (.zip)"
// @Success 201 {object} resputil.Response[ProjectResp] "创建成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 403 {object} resputil.Response[any] "压缩包路径越界"
// @Failure 413 {object} resputil.Response[any] "文件过大"
// @Failure 504 {object} resputil.Response[any] "处理超时"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/projects [post]
func (mgr *ProjectMgr) CreateProject(c *gin.Context) {
	form, ok := mgr.bindForm(c)
	if !ok {
		return
	}
	if form.Title == nil || strings.TrimSpace(*form.Title) == "" {
		resputil.BadRequestError(c, "title is required")
		return
	}
	files, ok := mgr.openUploads(c)
	if !ok {
		return
	}

	project := &model.Project{
		ID:                 uuid.NewString(),
		Skills:             datatypes.JSONSlice[string]{},
		Tags:               datatypes.JSONSlice[string]{},
		CodeFiles:          datatypes.JSONSlice[string]{},
		SourceArchivePaths: datatypes.JSONSlice[string]{},
	}
	applyForm(project, form)

	ctx := context.WithoutCancel(c.Request.Context())
	var owner handOff
	err := mgr.store.Run(c.Request.Context(), project.ID, func() error {
		if !owner.take() {
			return errWriteAbandoned
		}
		defer files.Close()
		if err := mgr.applyUploads(project, files); err != nil {
			mgr.discard(project.ID)
			return err
		}
		if err := mgr.projects.Create(ctx, project); err != nil {
			mgr.discard(project.ID)
			return err
		}
		return nil
	})
	if err != nil {
		if owner.take() {
			files.Close()
		}
		resputil.FromError(c, err)
		return
	}
	logutils.ForProject(project.ID).Infof("project %q created", project.Title)
	resputil.Created(c, mgr.toResp(project))
}

// UpdateProject godoc
// @Summary 更新项目
// @Description Update form fields and replace any uploaded role. A new archive replaces the previous tree completely.
// @Tags Project
// @Accept mpfd
// @Produce json
// @Param id path string true "项目ID"
// @Param title formData string false "标题"
// @Param description formData string false "描述"
// @Param skills formData string false "技能, 逗号分隔"
// @Param tags formData string false "标签, 逗号分隔"
// @Param demoLink formData string false "外部演示地址"
// @Param githubLink formData string false "GitHub 地址"
// @Param thumbnail formData file false "缩略图"
// @Param assets formData file false "演示压缩包 (.zip)"
// @Param codeZip formData file false "代码压缩包 (.zip)"
// @Success 200 {object} resputil.Response[ProjectResp] "更新成功"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 403 {object} resputil.Response[any] "压缩包路径越界"
// @Failure 404 {object} resputil.Response[any] "项目不存在"
// @Failure 413 {object} resputil.Response[any] "文件过大"
// @Failure 504 {object} resputil.Response[any] "处理超时"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/projects/{id} [put]
func (mgr *ProjectMgr) UpdateProject(c *gin.Context) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if _, err := mgr.projects.Get(c, req.ID); err != nil {
		resputil.FromError(c, err)
		return
	}
	form, ok := mgr.bindForm(c)
	if !ok {
		return
	}
	if form.Title != nil && strings.TrimSpace(*form.Title) == "" {
		resputil.BadRequestError(c, "title must not be empty")
		return
	}
	files, ok := mgr.openUploads(c)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	var (
		updated *model.Project
		owner   handOff
	)
	err := mgr.store.Run(c.Request.Context(), req.ID, func() error {
		if !owner.take() {
			return errWriteAbandoned
		}
		defer files.Close()
		// re-read under the writer lock, an earlier writer may have changed it
		project, err := mgr.projects.Get(ctx, req.ID)
		if err != nil {
			return err
		}
		before := *project

		applyForm(project, form)
		if err := mgr.applyUploads(project, files); err != nil {
			mgr.reconcile(ctx, &before, project)
			return err
		}
		if err := mgr.projects.Save(ctx, project); err != nil {
			return err
		}
		updated = project
		return nil
	})
	if err != nil {
		if owner.take() {
			files.Close()
		}
		resputil.FromError(c, err)
		return
	}
	resputil.Success(c, mgr.toResp(updated))
}

// DeleteProject godoc
// @Summary 删除项目
// @Description Delete the record, then remove demo, code, retained archives and thumbnails on a best-effort basis
// @Tags Project
// @Produce json
// @Param id path string true "项目ID"
// @Success 200 {object} resputil.Response[string] "删除成功"
// @Failure 404 {object} resputil.Response[any] "项目不存在"
// @Failure 504 {object} resputil.Response[any] "处理超时"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/projects/{id} [delete]
func (mgr *ProjectMgr) DeleteProject(c *gin.Context) {
	var req ProjectIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	err := mgr.store.Run(c.Request.Context(), req.ID, func() error {
		project, err := mgr.projects.Get(ctx, req.ID)
		if err != nil {
			return err
		}
		if err := mgr.projects.Delete(ctx, req.ID); err != nil {
			return err
		}
		if err := mgr.store.DeleteProject(project.ID, project.ThumbnailPath); err != nil {
			// leftovers are picked up by the orphan sweeper
			logutils.ForProject(project.ID).WithError(err).Warn("project deleted with incomplete cleanup")
		}
		return nil
	})
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	resputil.Success(c, "project and files deleted")
}

func (mgr *ProjectMgr) bindForm(c *gin.Context) (*ProjectForm, bool) {
	var form ProjectForm
	if err := c.ShouldBind(&form); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			resputil.HTTPError(c, http.StatusRequestEntityTooLarge, err.Error(), resputil.PayloadTooLarge)
			return nil, false
		}
		resputil.BadRequestError(c, err.Error())
		return nil, false
	}
	if form.GithubLink != nil && *form.GithubLink != "" && !githubLinkPattern.MatchString(*form.GithubLink) {
		resputil.BadRequestError(c, "only GitHub URLs are accepted (e.g. https://github.com/user/repo)")
		return nil, false
	}
	return &form, true
}

// openUploads opens at most one part per role after checking the declared size.
func (mgr *ProjectMgr) openUploads(c *gin.Context) (uploads, bool) {
	files := uploads{}
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return files, true
	}
	if err != nil {
		resputil.BadRequestError(c, err.Error())
		return nil, false
	}

	roles := []struct {
		role    string
		aliases []string
		limit   int64
		tooBig  error
	}{
		{constants.RoleThumbnail, nil, mgr.config.MaxThumbnailBytes(), assetstore.ErrThumbnailTooLarge},
		{constants.RoleAssets, []string{constants.LegacyRoleDemoZip}, mgr.config.MaxArchiveBytes(), archive.ErrArchiveTooLarge},
		{constants.RoleCodeZip, nil, mgr.config.MaxArchiveBytes(), archive.ErrArchiveTooLarge},
	}
	for _, r := range roles {
		var headers []*multipart.FileHeader
		for _, field := range append([]string{r.role}, r.aliases...) {
			headers = append(headers, form.File[field]...)
		}
		if len(headers) == 0 {
			continue
		}
		if len(headers) > 1 {
			files.Close()
			resputil.BadRequestError(c, fmt.Sprintf("at most one %s file is accepted", r.role))
			return nil, false
		}
		fh := headers[0]
		if r.limit > 0 && fh.Size > r.limit {
			files.Close()
			resputil.FromError(c, fmt.Errorf("%w: %s is %d bytes, limit %d", r.tooBig, fh.Filename, fh.Size, r.limit))
			return nil, false
		}
		f, err := fh.Open()
		if err != nil {
			files.Close()
			resputil.Error(c, fmt.Sprintf("failed to open upload %s: %v", fh.Filename, err), resputil.ServiceError)
			return nil, false
		}
		files[r.role] = &upload{filename: fh.Filename, file: f}
	}
	return files, true
}

// applyUploads runs the store operation of every present role and copies
// the returned paths onto project.
func (mgr *ProjectMgr) applyUploads(project *model.Project, files uploads) error {
	if up, ok := files[constants.RoleThumbnail]; ok {
		thumbnail, err := mgr.store.PutThumbnail(project.ID, up.file, up.filename)
		if err != nil {
			return err
		}
		project.ThumbnailPath = thumbnail
	}
	if up, ok := files[constants.RoleAssets]; ok {
		demo, err := mgr.store.PutDemoArchive(project.ID, up.file, up.filename)
		if err != nil {
			return err
		}
		project.DemoRootPath = demo.RootPath
		project.DemoEntryPath = lo.ToPtr(demo.EntryPath)
		project.SourceArchivePaths = append(project.SourceArchivePaths, demo.ArchivePath)
	}
	if up, ok := files[constants.RoleCodeZip]; ok {
		code, err := mgr.store.PutCodeArchive(project.ID, up.file, up.filename)
		if err != nil {
			return err
		}
		project.CodeRootPath = code.RootPath
		project.CodeFiles = code.Files
		project.SourceArchivePaths = append(project.SourceArchivePaths, code.ArchivePath)
	}
	return nil
}

// reconcile stores the outcome of a partly failed update: the form changes
// are dropped, the roles that were replaced before the failure are kept, and
// fields of trees the failure removed are cleared. applied carries the
// results of the roles that succeeded.
func (mgr *ProjectMgr) reconcile(ctx context.Context, before, applied *model.Project) {
	project := *before
	project.ThumbnailPath = applied.ThumbnailPath
	project.DemoRootPath = applied.DemoRootPath
	project.DemoEntryPath = applied.DemoEntryPath
	project.CodeRootPath = applied.CodeRootPath
	project.CodeFiles = applied.CodeFiles
	project.SourceArchivePaths = applied.SourceArchivePaths

	if project.DemoRootPath != "" && !mgr.store.HasDemo(project.ID) {
		project.ClearDemo()
	}
	if project.CodeRootPath != "" && !mgr.store.HasCode(project.ID) {
		project.ClearCode()
	}
	if err := mgr.projects.Save(ctx, &project); err != nil {
		logutils.ForProject(project.ID).WithError(err).Error("failed to record partial update")
		return
	}
	logutils.ForProject(project.ID).Warn("update failed part way, record matches the stored artifacts")
}

func (mgr *ProjectMgr) discard(id string) {
	if err := mgr.store.DeleteProject(id, ""); err != nil {
		logutils.ForProject(id).WithError(err).Warn("discard artifacts of failed create")
	}
}

func applyForm(project *model.Project, form *ProjectForm) {
	if form.Title != nil {
		project.Title = strings.TrimSpace(*form.Title)
	}
	if form.Description != nil {
		project.Description = *form.Description
	}
	if form.DemoLink != nil {
		project.DemoLink = *form.DemoLink
	}
	if form.GithubLink != nil {
		project.GithubLink = *form.GithubLink
	}
	if form.Skills != nil {
		project.Skills = splitList(*form.Skills)
	}
	if form.Tags != nil {
		project.Tags = splitList(*form.Tags)
	}
}

func splitList(s string) datatypes.JSONSlice[string] {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Uniq(lo.Compact(parts))
}

func (mgr *ProjectMgr) toResp(p *model.Project) ProjectResp {
	resp := ProjectResp{Project: *p}
	if p.HasDemo() {
		resp.DemoURL = mgr.publicURL(p.DemoRootPath + "/" + *p.DemoEntryPath)
	}
	if p.HasCode() {
		resp.CodeURL = mgr.publicURL(p.CodeRootPath)
	}
	if p.ThumbnailPath != "" {
		resp.ThumbnailURL = mgr.publicURL(p.ThumbnailPath)
	}
	return resp
}

func (mgr *ProjectMgr) publicURL(rel string) string {
	escaped := (&url.URL{Path: "/" + rel}).EscapedPath()
	return strings.TrimSuffix(mgr.config.Host, "/") + escaped
}
