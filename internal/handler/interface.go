package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raids-lab/folio/pkg/assetstore"
	"github.com/raids-lab/folio/pkg/config"
)

type Manager interface {
	GetName() string
	// RegisterPublic mounts read routes below the API prefix.
	RegisterPublic(group *gin.RouterGroup)
	// RegisterProtected mounts write routes below the API prefix.
	RegisterProtected(group *gin.RouterGroup)
	// RegisterRoot mounts routes outside the API prefix.
	RegisterRoot(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies of every manager.
type RegisterConfig struct {
	DB     *gorm.DB
	Store  *assetstore.Store
	Config *config.Config
}

// Registers is filled by the init functions of the handler files.
var Registers []func(*RegisterConfig) Manager
