package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/raids-lab/folio/dao/model"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectDAO reads and writes project records.
type ProjectDAO struct {
	db *gorm.DB
}

func NewProjectDAO(db *gorm.DB) *ProjectDAO {
	return &ProjectDAO{db: db}
}

// List returns every project, newest first.
func (d *ProjectDAO) List(ctx context.Context) ([]*model.Project, error) {
	var projects []*model.Project
	if err := d.db.WithContext(ctx).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (d *ProjectDAO) Get(ctx context.Context, id string) (*model.Project, error) {
	project := &model.Project{}
	err := d.db.WithContext(ctx).Where("id = ?", id).First(project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (d *ProjectDAO) Create(ctx context.Context, project *model.Project) error {
	return d.db.WithContext(ctx).Create(project).Error
}

// Save writes every column of an existing record.
func (d *ProjectDAO) Save(ctx context.Context, project *model.Project) error {
	return d.db.WithContext(ctx).Save(project).Error
}

func (d *ProjectDAO) Delete(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Project{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return nil
}

// Exists reports whether a record with id is stored.
func (d *ProjectDAO) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&model.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistingIDs returns the subset of ids that have a record.
func (d *ProjectDAO) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	var found []string
	for _, chunk := range lo.Chunk(ids, 500) {
		var part []string
		err := d.db.WithContext(ctx).
			Model(&model.Project{}).
			Where("id IN ?", chunk).
			Pluck("id", &part).Error
		if err != nil {
			return nil, err
		}
		found = append(found, part...)
	}
	return found, nil
}
