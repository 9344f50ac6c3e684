package tracking

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/pkg/db/models"
)

// Repository defines persistence operations for tracking codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListCodes(ctx context.Context) ([]models.TrackingCode, error)
	ListActiveCodes(ctx context.Context) ([]models.TrackingCode, error)
	FindCodeByID(ctx context.Context, id uuid.UUID) (*models.TrackingCode, error)
	CreateCode(ctx context.Context, code *models.TrackingCode) error
	DeactivateCodes(ctx context.Context) error
	ActivateCode(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteCode(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tracking repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListCodes(ctx context.Context) ([]models.TrackingCode, error) {
	var codes []models.TrackingCode
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *repository) ListActiveCodes(ctx context.Context) ([]models.TrackingCode, error) {
	var codes []models.TrackingCode
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *repository) FindCodeByID(ctx context.Context, id uuid.UUID) (*models.TrackingCode, error) {
	var code models.TrackingCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) CreateCode(ctx context.Context, code *models.TrackingCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) DeactivateCodes(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.TrackingCode{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *repository) ActivateCode(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TrackingCode{}).
		Where("id = ?", id).
		Update("is_active", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteCode(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TrackingCode{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
