package model

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a showcased project and the locations of its stored artifacts.
// Path fields are relative to the storage root, use forward slashes and are
// only ever written with values returned by the asset store.
type Project struct {
	ID          string `gorm:"primaryKey;type:varchar(64);comment:项目ID(uuid)" json:"id"`
	Title       string `gorm:"type:varchar(256);not null;comment:项目标题" json:"title"`
	Description string `gorm:"type:text;comment:项目描述" json:"description"`
	GithubLink  string `gorm:"type:varchar(512);comment:GitHub 仓库地址" json:"githubLink"`
	DemoLink    string `gorm:"type:varchar(512);comment:外部演示地址" json:"demoLink"`

	Skills datatypes.JSONSlice[string] `gorm:"comment:技能标签" json:"skills"`
	Tags   datatypes.JSONSlice[string] `gorm:"comment:分类标签" json:"tags"`

	ThumbnailPath string  `gorm:"type:varchar(512);comment:缩略图路径" json:"thumbnailPath"`
	DemoRootPath  string  `gorm:"type:varchar(512);comment:演示解压目录" json:"demoRootPath"`
	DemoEntryPath *string `gorm:"type:varchar(1024);comment:演示入口文件(相对演示目录)" json:"demoEntryPath"`
	CodeRootPath  string  `gorm:"type:varchar(512);comment:代码解压目录" json:"codeRootPath"`

	CodeFiles          datatypes.JSONSlice[string] `gorm:"comment:代码文件列表" json:"codeFiles"`
	SourceArchivePaths datatypes.JSONSlice[string] `gorm:"comment:保留的原始上传文件" json:"sourceArchivePaths"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// HasDemo reports whether the record points at an extracted demo.
func (p *Project) HasDemo() bool {
	return p.DemoRootPath != "" && p.DemoEntryPath != nil && *p.DemoEntryPath != ""
}

func (p *Project) HasCode() bool {
	return p.CodeRootPath != ""
}

// ClearDemo forgets the demo fields, used when the demo tree is gone.
func (p *Project) ClearDemo() {
	p.DemoRootPath = ""
	p.DemoEntryPath = nil
}

func (p *Project) ClearCode() {
	p.CodeRootPath = ""
	p.CodeFiles = datatypes.JSONSlice[string]{}
}
