package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/folio/pkg/constants"
	"github.com/raids-lab/folio/pkg/metrics"
)

type MetricsMgr struct {
	name string
}

func NewMetricsMgr(_ *RegisterConfig) Manager {
	return &MetricsMgr{
		name: "metrics",
	}
}

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMetricsMgr)
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

func (mgr *MetricsMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *MetricsMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *MetricsMgr) RegisterRoot(root *gin.RouterGroup) {
	root.GET(constants.MetricsPath, mgr.GetMetrics)
}

// GetMetrics godoc
// @Summary Prometheus metrics
// @Description Archive ingestion, cleanup and sweeper metrics in the Prometheus text format
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "metrics"
// @Router /metrics [get]
func (mgr *MetricsMgr) GetMetrics(c *gin.Context) {
	metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
