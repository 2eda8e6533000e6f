package helper

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/raids-lab/folio/dao/migrate"
	"github.com/raids-lab/folio/dao/query"
	"github.com/raids-lab/folio/internal/handler"
	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/config"
)

// ConfigInitializer 封装配置初始化逻辑
type ConfigInitializer struct {
	backendConfig *config.Config
}

// NewConfigInitializer 创建新的ConfigInitializer实例
func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

// GetBackendConfig 获取后端配置
func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment 加载调试环境变量, 仅在 debug 模式下生效
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	if err := godotenv.Load(".debug.env"); err != nil {
		return err
	}

	be := os.Getenv("FOLIO_BE_PORT")
	if be == "" {
		return fmt.Errorf("FOLIO_BE_PORT is not set")
	}
	ci.backendConfig.ServerAddr = ":" + be
	if ci.backendConfig.Host == "" {
		ci.backendConfig.Host = "http://localhost:" + be
	}
	return nil
}

// InitializeRegisterConfig 初始化数据库、存储目录, 生成注册配置
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, error) {
	db := query.GetDB()
	if err := migrate.Run(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	store, err := assetstore.New(assetstore.OptionsFromConfig(ci.backendConfig))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	klog.Infof("storage root: %s", store.Root())

	return &handler.RegisterConfig{
		DB:     db,
		Store:  store,
		Config: ci.backendConfig,
	}, nil
}
