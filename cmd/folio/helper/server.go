package helper

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/internal"
	"github.com/raids-lab/folio/internal/handler"
	"github.com/raids-lab/folio/pkg/config"
	"github.com/raids-lab/folio/pkg/cronjob"
)

// ServerRunner 封装服务器运行逻辑
type ServerRunner struct {
	backendConfig *config.Config
	cronManager   *cronjob.CronJobManager
}

// NewServerRunner 创建新的ServerRunner实例
func NewServerRunner(backendConfig *config.Config) *ServerRunner {
	return &ServerRunner{
		backendConfig: backendConfig,
	}
}

// StartSweeper 按配置启动孤儿文件清理任务
func (sr *ServerRunner) StartSweeper(registerConfig *handler.RegisterConfig) error {
	if !sr.backendConfig.Sweeper.Enable {
		klog.Info("orphan sweeper disabled")
		return nil
	}
	sweeper := cronjob.NewOrphanSweeper(registerConfig.Store, query.NewProjectDAO(registerConfig.DB))
	cm := cronjob.NewCronJobManager(sweeper, query.NewCronJobRecordDAO(registerConfig.DB))
	if _, err := cm.AddCronJob(cronjob.OrphanSweepJobName, sr.backendConfig.Sweeper.Spec, cronjob.CronJobTypeOrphanSweep); err != nil {
		return err
	}
	cm.StartCron()
	sr.cronManager = cm
	klog.Infof("orphan sweeper scheduled: %s", sr.backendConfig.Sweeper.Spec)
	return nil
}

var (
	readHeaderTimeout = 10 * time.Second // 设置读取头部的超时时间
	cancelTimeout     = 10 * time.Second // 设置取消操作的超时时间
)

// StartServer 启动HTTP服务器, 收到退出信号后优雅关闭
func (sr *ServerRunner) StartServer(registerConfig *handler.RegisterConfig) {
	klog.Info("starting server")
	backend := internal.Register(registerConfig)

	// reference: https://gin-gonic.com/en/docs/examples/graceful-restart-or-stop
	srv := &http.Server{
		Addr:              sr.backendConfig.ServerAddr,
		Handler:           backend.R,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	klog.Info("Shutdown Gin Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		klog.Info("Gin Server Shutdown:", err)
	}
	if sr.cronManager != nil {
		sr.cronManager.StopCron(ctx)
	}
	klog.Info("Gin Server exiting")
}
