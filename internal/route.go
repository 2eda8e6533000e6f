package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"k8s.io/klog/v2"

	docs "github.com/raids-lab/folio/docs"
	"github.com/raids-lab/folio/internal/handler"
	"github.com/raids-lab/folio/internal/middleware"
	"github.com/raids-lab/folio/pkg/constants"
	"github.com/raids-lab/folio/pkg/logutils"
)

// multipart boundaries and text fields on top of the file parts
const formOverheadBytes = 1 << 20

type Backend struct {
	R *gin.Engine
}

func Register(conf *handler.RegisterConfig) *Backend {
	s := new(Backend)
	s.R = gin.New()
	s.R.Use(logutils.GinLogger(), gin.Recovery())

	// Enable CORS for http://localhost:XXXX in debug mode
	if gin.Mode() == gin.DebugMode {
		fe := os.Getenv("FOLIO_FE_PORT")
		if fe != "" {
			url := "http://localhost:" + fe
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{url}
			s.R.Use(cors.New(corsConf))
		}
	}

	// Kubernetes health check
	s.R.GET(constants.HealthzPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	s.RegisterService(conf)

	docs.SwaggerInfo.BasePath = "/"
	s.R.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return s
}

// RegisterService mounts every registered manager.
// Reads are public; writes go through the body limit.
func (b *Backend) RegisterService(conf *handler.RegisterConfig) {
	bodyLimit := 2*conf.Config.MaxArchiveBytes() + conf.Config.MaxThumbnailBytes() + formOverheadBytes

	publicRouter := b.R.Group(constants.APIPrefix)

	protectedRouter := b.R.Group(constants.APIPrefix)
	protectedRouter.Use(middleware.BodyLimit(bodyLimit))

	rootRouter := b.R.Group("")

	for _, mgr := range registerManagers(conf) {
		mgr.RegisterPublic(publicRouter.Group(mgr.GetName()))
		mgr.RegisterProtected(protectedRouter.Group(mgr.GetName()))
		mgr.RegisterRoot(rootRouter)
	}
}

func registerManagers(conf *handler.RegisterConfig) []handler.Manager {
	managers := make([]handler.Manager, 0, len(handler.Registers))
	for _, register := range handler.Registers {
		manager := register(conf)
		managers = append(managers, manager)
		klog.Infof("Registered manager: %s", manager.GetName())
	}
	return managers
}
