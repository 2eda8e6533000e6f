// Package migrate versions the database schema with gormigrate.
package migrate

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/raids-lab/folio/dao/model"
	"github.com/raids-lab/folio/pkg/logutils"
)

// Migrations are applied in order; never edit one that has shipped.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202510190001_create_projects",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Project{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("projects")
			},
		},
		{
			ID: "202510190002_index_projects_created_at",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&model.Project{}, "CreatedAt") {
					return nil
				}
				return tx.Migrator().CreateIndex(&model.Project{}, "CreatedAt")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropIndex(&model.Project{}, "CreatedAt")
			},
		},
		{
			ID: "202510200001_create_cron_job_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.CronJobRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("cron_job_records")
			},
		},
	}
}

// Run brings the schema up to date. A fresh database gets the current models
// in one step and every migration marked as applied.
func Run(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(&model.Project{}, &model.CronJobRecord{})
	})
	if err := m.Migrate(); err != nil {
		return err
	}
	logutils.Log.Info("database migration finished")
	return nil
}
