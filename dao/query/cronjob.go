package query

import (
	"context"

	"gorm.io/gorm"

	"github.com/raids-lab/folio/dao/model"
)

const defaultRecordLimit = 20

type CronJobRecordDAO struct {
	db *gorm.DB
}

func NewCronJobRecordDAO(db *gorm.DB) *CronJobRecordDAO {
	return &CronJobRecordDAO{db: db}
}

func (d *CronJobRecordDAO) Create(ctx context.Context, record *model.CronJobRecord) error {
	return d.db.WithContext(ctx).Create(record).Error
}

// ListRecent returns the latest records of one job, newest first.
func (d *CronJobRecordDAO) ListRecent(ctx context.Context, name string, limit int) ([]*model.CronJobRecord, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	var records []*model.CronJobRecord
	err := d.db.WithContext(ctx).
		Where("name = ?", name).
		Order("execute_time DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
