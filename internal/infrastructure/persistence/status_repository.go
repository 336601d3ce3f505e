package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormStatusRepository implements syncstate.StatusRepository using GORM
type GormStatusRepository struct {
	db *gorm.DB
}

// NewGormStatusRepository creates a new GormStatusRepository
func NewGormStatusRepository(db *gorm.DB) *GormStatusRepository {
	return &GormStatusRepository{db: db}
}

// GetOrCreate returns the status row for the entity type, creating an idle
// row when absent. Two racing callers both land on the same row: the loser
// of the insert re-reads the winner's row.
func (r *GormStatusRepository) GetOrCreate(ctx context.Context, entityType string, defaultLookbackMinutes int) (*syncstate.SyncStatus, error) {
	status, err := r.find(ctx, entityType)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, syncstate.ErrNotFound) {
		return nil, err
	}

	fresh := syncstate.NewSyncStatus(entityType, defaultLookbackMinutes)
	var model models.SyncStatusModel
	model.FromDomain(fresh)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.find(ctx, entityType)
		}
		return nil, err
	}
	return fresh, nil
}

// Save rewrites a status row
func (r *GormStatusRepository) Save(ctx context.Context, status *syncstate.SyncStatus) error {
	var model models.SyncStatusModel
	model.FromDomain(status)
	return r.db.WithContext(ctx).Save(&model).Error
}

// List returns all status rows
func (r *GormStatusRepository) List(ctx context.Context) ([]syncstate.SyncStatus, error) {
	var rows []models.SyncStatusModel
	if err := r.db.WithContext(ctx).
		Order("entity_type ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	statuses := make([]syncstate.SyncStatus, len(rows))
	for i := range rows {
		statuses[i] = *rows[i].ToDomain()
	}
	return statuses, nil
}

func (r *GormStatusRepository) find(ctx context.Context, entityType string) (*syncstate.SyncStatus, error) {
	var model models.SyncStatusModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncstate.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormStatusRepository implements StatusRepository
var _ syncstate.StatusRepository = (*GormStatusRepository)(nil)
