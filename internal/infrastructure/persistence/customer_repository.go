package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/infrastructure/persistence/models"
)

// GormCustomerRepository implements receivable.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByCustomerID finds a customer by its Acumatica customer ID
func (r *GormCustomerRepository) FindByCustomerID(ctx context.Context, customerID string) (*receivable.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, receivable.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new customer row
func (r *GormCustomerRepository) Create(ctx context.Context, customer *receivable.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return receivable.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Update rewrites an existing customer row
func (r *GormCustomerRepository) Update(ctx context.Context, customer *receivable.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)
	return r.db.WithContext(ctx).Save(&model).Error
}

// Count returns the number of customer rows
func (r *GormCustomerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CustomerModel{}).Count(&count).Error
	return count, err
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ receivable.CustomerRepository = (*GormCustomerRepository)(nil)
