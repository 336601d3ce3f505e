package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormCredentialRepository implements syncstate.CredentialRepository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// FindActive returns the active credential set
func (r *GormCredentialRepository) FindActive(ctx context.Context) (*syncstate.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncstate.ErrNoActiveCredential
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID returns a credential set by id
func (r *GormCredentialRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncstate.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncstate.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a credential set
func (r *GormCredentialRepository) Save(ctx context.Context, credential *syncstate.Credential) error {
	var model models.CredentialModel
	model.FromDomain(credential)
	return r.db.WithContext(ctx).Save(&model).Error
}

// List returns all credential sets, active first
func (r *GormCredentialRepository) List(ctx context.Context) ([]syncstate.Credential, error) {
	var rows []models.CredentialModel
	if err := r.db.WithContext(ctx).
		Order("is_active DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	credentials := make([]syncstate.Credential, len(rows))
	for i := range rows {
		credentials[i] = *rows[i].ToDomain()
	}
	return credentials, nil
}

// Ensure GormCredentialRepository implements CredentialRepository
var _ syncstate.CredentialRepository = (*GormCredentialRepository)(nil)
