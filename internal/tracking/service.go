package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/pkg/db"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the Meta pixel ids injected into the storefront. At most
// one code is active at a time.
type Service interface {
	ListCodes(ctx context.Context) ([]models.TrackingCode, error)
	ListActiveCodes(ctx context.Context) ([]models.TrackingCode, error)
	CreateCode(ctx context.Context, pixelID string, activate bool) (*models.TrackingCode, error)
	ActivateCode(ctx context.Context, id uuid.UUID) (*models.TrackingCode, error)
	DeleteCode(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds the tracking service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tracking: repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tracking: tx runner is required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ListCodes(ctx context.Context) ([]models.TrackingCode, error) {
	codes, err := s.repo.ListCodes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list tracking codes")
	}
	return codes, nil
}

func (s *service) ListActiveCodes(ctx context.Context) ([]models.TrackingCode, error) {
	codes, err := s.repo.ListActiveCodes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list tracking codes")
	}
	return codes, nil
}

func (s *service) CreateCode(ctx context.Context, pixelID string, activate bool) (*models.TrackingCode, error) {
	pixelID = strings.TrimSpace(pixelID)
	if pixelID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pixel id is required")
	}

	code := &models.TrackingCode{ID: uuid.New(), PixelID: pixelID, IsActive: false}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateCode(ctx, code); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "pixel id already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create tracking code")
		}
		if !activate {
			return nil
		}
		if err := txRepo.DeactivateCodes(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to deactivate tracking codes")
		}
		if _, err := txRepo.ActivateCode(ctx, code.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to activate tracking code")
		}
		code.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return code, nil
}

func (s *service) ActivateCode(ctx context.Context, id uuid.UUID) (*models.TrackingCode, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeactivateCodes(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to deactivate tracking codes")
		}
		activated, err := txRepo.ActivateCode(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to activate tracking code")
		}
		if !activated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tracking code not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	code, err := s.repo.FindCodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracking code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload tracking code")
	}
	return code, nil
}

func (s *service) DeleteCode(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteCode(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete tracking code")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tracking code not found")
	}
	return nil
}
