package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/folio/dao/model"
	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/internal/resputil"
	"github.com/raids-lab/folio/pkg/cronjob"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewSweeperMgr)
}

type SweeperMgr struct {
	name    string
	records *query.CronJobRecordDAO
}

func NewSweeperMgr(conf *RegisterConfig) Manager {
	return &SweeperMgr{
		name:    "sweeper",
		records: query.NewCronJobRecordDAO(conf.DB),
	}
}

func (mgr *SweeperMgr) GetName() string { return mgr.name }

func (mgr *SweeperMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("/records", mgr.ListRecords)
}

func (mgr *SweeperMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *SweeperMgr) RegisterRoot(_ *gin.RouterGroup) {}

type SweeperRecordsReq struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// ListRecords godoc
// @Summary 孤儿文件清理记录
// @Description Recent runs of the orphan sweeper, newest first
// @Tags Sweeper
// @Produce json
// @Param limit query int false "返回条数, 默认 20"
// @Success 200 {object} resputil.Response[[]model.CronJobRecord] "成功返回"
// @Failure 400 {object} resputil.Response[any] "请求参数错误"
// @Failure 500 {object} resputil.Response[any] "其他错误"
// @Router /api/v1/sweeper/records [get]
func (mgr *SweeperMgr) ListRecords(c *gin.Context) {
	var req SweeperRecordsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	records, err := mgr.records.ListRecent(c, cronjob.OrphanSweepJobName, req.Limit)
	if err != nil {
		resputil.FromError(c, err)
		return
	}
	if records == nil {
		records = []*model.CronJobRecord{}
	}
	resputil.Success(c, records)
}
