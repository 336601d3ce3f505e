package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormBackfillRepository implements syncstate.BackfillRepository using GORM
type GormBackfillRepository struct {
	db *gorm.DB
}

// NewGormBackfillRepository creates a new GormBackfillRepository
func NewGormBackfillRepository(db *gorm.DB) *GormBackfillRepository {
	return &GormBackfillRepository{db: db}
}

// GetOrCreate returns the progress row for the job type, creating an
// unstarted row when absent.
func (r *GormBackfillRepository) GetOrCreate(ctx context.Context, jobType syncstate.JobType) (*syncstate.BackfillProgress, error) {
	progress, err := r.find(ctx, jobType)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, syncstate.ErrNotFound) {
		return nil, err
	}

	fresh := syncstate.NewBackfillProgress(jobType)
	var model models.BackfillProgressModel
	model.FromDomain(fresh)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.find(ctx, jobType)
		}
		return nil, err
	}
	return fresh, nil
}

// Save rewrites a progress row
func (r *GormBackfillRepository) Save(ctx context.Context, progress *syncstate.BackfillProgress) error {
	var model models.BackfillProgressModel
	model.FromDomain(progress)
	return r.db.WithContext(ctx).Save(&model).Error
}

func (r *GormBackfillRepository) find(ctx context.Context, jobType syncstate.JobType) (*syncstate.BackfillProgress, error) {
	var model models.BackfillProgressModel
	if err := r.db.WithContext(ctx).
		Where("job_type = ?", string(jobType)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncstate.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormBackfillRepository implements BackfillRepository
var _ syncstate.BackfillRepository = (*GormBackfillRepository)(nil)
