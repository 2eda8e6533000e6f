package config

import (
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

const (
	megabyte = 1024 * 1024

	defaultMaxArchiveMB   = 50
	defaultMaxExtractedMB = 512
	defaultMaxThumbnailMB = 5
	defaultMaxReadMB      = 5
	defaultTimeoutSeconds = 60
)

type Config struct {
	// Port Settings
	Host       string `json:"host"`       // The public base URL of the server, used in responses.
	ServerAddr string `json:"serverAddr"` // The address the server endpoint binds to.

	Database struct {
		Driver string `json:"driver"` // postgres or sqlite
		SQLite struct {
			Path string `json:"path"`
		} `json:"sqlite"`
	} `json:"database"`

	Postgres struct {
		Host     string `json:"host"`
		Port     string `json:"port"`
		DBName   string `json:"dbname"`
		User     string `json:"user"`
		Password string `json:"password"`
		SSLMode  string `json:"sslmode"`
		TimeZone string `json:"TimeZone"`
	} `json:"postgres"`

	Storage struct {
		Root   string `json:"root"` // Directory that holds every role base directory.
		Prefix struct {
			Demos      string `json:"demos"`      // Demo roots, also the public URL prefix for demos.
			Code       string `json:"code"`       // Code roots, also the public URL prefix for code.
			Thumbnails string `json:"thumbnails"` // Flat thumbnail area.
			Archives   string `json:"archives"`   // Retained original uploads.
		} `json:"prefix"`
		MaxArchiveMB   int64 `json:"maxArchiveMB"`
		MaxExtractedMB int64 `json:"maxExtractedMB"`
		MaxThumbnailMB int64 `json:"maxThumbnailMB"`
		MaxReadMB      int64 `json:"maxReadMB"`
	} `json:"storage"`

	Pipeline struct {
		TimeoutSeconds int `json:"timeoutSeconds"`
	} `json:"pipeline"`

	Sweeper struct {
		Enable bool   `json:"enable"`
		Spec   string `json:"spec"` // cron expression
	} `json:"sweeper"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads the configuration file.
// FOLIO_CONFIG_PATH always wins; otherwise debug mode reads ./etc/debug-config.yaml
// and release mode reads the mounted /etc/folio/config.yaml.
func initConfig() *Config {
	var configPath string
	switch {
	case os.Getenv("FOLIO_CONFIG_PATH") != "":
		configPath = os.Getenv("FOLIO_CONFIG_PATH")
	case IsDebugMode():
		configPath = "./etc/debug-config.yaml"
	default:
		configPath = "/etc/folio/config.yaml"
	}
	klog.Info("config path: ", configPath)

	cfg, err := Load(configPath)
	if err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	return cfg
}

// Load reads a YAML config file and fills unset fields with defaults.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

// Defaults returns a config with every default applied, used by tests and local runs.
func Defaults() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

func (c *Config) SetDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8088"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "folio.db"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "uploads"
	}
	if c.Storage.Prefix.Demos == "" {
		c.Storage.Prefix.Demos = "demos"
	}
	if c.Storage.Prefix.Code == "" {
		c.Storage.Prefix.Code = "code"
	}
	if c.Storage.Prefix.Thumbnails == "" {
		c.Storage.Prefix.Thumbnails = "thumbnails"
	}
	if c.Storage.Prefix.Archives == "" {
		c.Storage.Prefix.Archives = "archives"
	}
	if c.Storage.MaxArchiveMB <= 0 {
		c.Storage.MaxArchiveMB = defaultMaxArchiveMB
	}
	if c.Storage.MaxExtractedMB <= 0 {
		c.Storage.MaxExtractedMB = defaultMaxExtractedMB
	}
	if c.Storage.MaxThumbnailMB <= 0 {
		c.Storage.MaxThumbnailMB = defaultMaxThumbnailMB
	}
	if c.Storage.MaxReadMB <= 0 {
		c.Storage.MaxReadMB = defaultMaxReadMB
	}
	if c.Pipeline.TimeoutSeconds <= 0 {
		c.Pipeline.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Sweeper.Spec == "" {
		c.Sweeper.Spec = "@every 6h"
	}
}

func (c *Config) MaxArchiveBytes() int64   { return c.Storage.MaxArchiveMB * megabyte }
func (c *Config) MaxExtractedBytes() int64 { return c.Storage.MaxExtractedMB * megabyte }
func (c *Config) MaxThumbnailBytes() int64 { return c.Storage.MaxThumbnailMB * megabyte }
func (c *Config) MaxReadBytes() int64      { return c.Storage.MaxReadMB * megabyte }

func (c *Config) PipelineTimeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutSeconds) * time.Second
}
