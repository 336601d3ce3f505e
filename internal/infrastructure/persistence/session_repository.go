package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements syncstate.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindUsable returns the most recent valid, unexpired session for the
// credential set.
func (r *GormSessionRepository) FindUsable(ctx context.Context, credentialID uuid.UUID) (*syncstate.Session, error) {
	var model models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("credential_id = ? AND is_valid = ? AND expires_at > ?", credentialID, true, time.Now().UTC()).
		Order("expires_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncstate.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListValid returns every session still marked valid for the credential set,
// expired ones included, so forced renewal can log each of them out upstream.
func (r *GormSessionRepository) ListValid(ctx context.Context, credentialID uuid.UUID) ([]syncstate.Session, error) {
	var rows []models.SessionModel
	if err := r.db.WithContext(ctx).
		Where("credential_id = ? AND is_valid = ?", credentialID, true).
		Order("expires_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	sessions := make([]syncstate.Session, len(rows))
	for i := range rows {
		sessions[i] = *rows[i].ToDomain()
	}
	return sessions, nil
}

// Save creates or updates a session row
func (r *GormSessionRepository) Save(ctx context.Context, session *syncstate.Session) error {
	var model models.SessionModel
	model.FromDomain(session)
	return r.db.WithContext(ctx).Save(&model).Error
}

// InvalidateAll marks every session of the credential set invalid
func (r *GormSessionRepository) InvalidateAll(ctx context.Context, credentialID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("credential_id = ? AND is_valid = ?", credentialID, true).
		Updates(map[string]any{
			"is_valid":   false,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Ensure GormSessionRepository implements SessionRepository
var _ syncstate.SessionRepository = (*GormSessionRepository)(nil)
