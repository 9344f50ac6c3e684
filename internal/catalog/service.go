package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/pkg/db"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog operations for the storefront and admin panel.
type Service interface {
	ListProducts(ctx context.Context, filters ProductFilters) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListBestSelling(ctx context.Context) ([]models.BestSelling, error)
	SetBestSelling(ctx context.Context, productID uuid.UUID, position int) (*models.BestSelling, error)
	RemoveBestSelling(ctx context.Context, productID uuid.UUID) error

	ActiveNotification(ctx context.Context) (*models.Notification, error)
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	CreateNotification(ctx context.Context, message string, activate bool) (*models.Notification, error)
	ActivateNotification(ctx context.Context, id uuid.UUID) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// CreateProductInput captures the fields accepted when creating a product.
type CreateProductInput struct {
	Name         string
	Description  string
	Category     enums.ProductCategory
	RegularPrice decimal.Decimal
	OfferPrice   *decimal.Decimal
	ImageURL     *string
	Sizes        []string
	Stock        int
	IsActive     *bool
}

// UpdateProductInput carries sparse product updates; nil fields are left untouched.
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Category     *enums.ProductCategory
	RegularPrice *decimal.Decimal
	OfferPrice   *decimal.Decimal
	ClearOffer   bool
	ImageURL     *string
	Sizes        []string
	Stock        *int
	IsActive     *bool
}

func (s *service) ListProducts(ctx context.Context, filters ProductFilters) ([]models.Product, error) {
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", *filters.Category))
	}
	products, err := s.repo.ListProducts(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", input.Category))
	}
	if input.RegularPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "regular price must be positive")
	}
	if input.OfferPrice != nil && input.OfferPrice.GreaterThanOrEqual(input.RegularPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer price must be below the regular price")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Category:     input.Category,
		RegularPrice: input.RegularPrice,
		OfferPrice:   input.OfferPrice,
		ImageURL:     input.ImageURL,
		Sizes:        pq.StringArray(input.Sizes),
		Stock:        input.Stock,
		IsActive:     active,
	}
	if product.Sizes == nil {
		product.Sizes = pq.StringArray{}
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	updates := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", *input.Category))
		}
		updates["category"] = *input.Category
	}
	if input.RegularPrice != nil {
		if input.RegularPrice.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "regular price must be positive")
		}
		updates["regular_price"] = *input.RegularPrice
	}
	if input.ClearOffer {
		updates["offer_price"] = nil
	} else if input.OfferPrice != nil {
		updates["offer_price"] = *input.OfferPrice
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.Sizes != nil {
		updates["sizes"] = pq.StringArray(input.Sizes)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *input.Stock
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return s.GetProduct(ctx, id)
	}

	if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}

	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading product")
	}
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteProduct(ctx, id)
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if db.IsForeignKeyViolation(err) {
		return pkgerrors.New(pkgerrors.CodeConflict, "product has order history; deactivate it instead")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
}

func (s *service) ListBestSelling(ctx context.Context) ([]models.BestSelling, error) {
	entries, err := s.repo.ListBestSelling(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing best selling products")
	}
	return entries, nil
}

func (s *service) SetBestSelling(ctx context.Context, productID uuid.UUID, position int) (*models.BestSelling, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	entry := &models.BestSelling{
		ID:        uuid.New(),
		ProductID: productID,
		Position:  position,
	}
	if err := s.repo.AddBestSelling(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is already on the best selling shelf")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding best selling product")
	}
	return entry, nil
}

func (s *service) RemoveBestSelling(ctx context.Context, productID uuid.UUID) error {
	removed, err := s.repo.RemoveBestSelling(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing best selling product")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not on the best selling shelf")
	}
	return nil
}

func (s *service) ActiveNotification(ctx context.Context) (*models.Notification, error) {
	notification, err := s.repo.FindActiveNotification(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active notification")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading active notification")
	}
	return notification, nil
}

func (s *service) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	notifications, err := s.repo.ListNotifications(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing notifications")
	}
	return notifications, nil
}

func (s *service) CreateNotification(ctx context.Context, message string, activate bool) (*models.Notification, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification message is required")
	}

	notification := &models.Notification{
		ID:       uuid.New(),
		Message:  trimmed,
		IsActive: activate,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if activate {
			if err := repo.DeactivateNotifications(ctx); err != nil {
				return err
			}
		}
		return repo.CreateNotification(ctx, notification)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating notification")
	}
	return notification, nil
}

// ActivateNotification makes the given banner the single active one.
func (s *service) ActivateNotification(ctx context.Context, id uuid.UUID) error {
	var found bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivateNotifications(ctx); err != nil {
			return err
		}
		var err error
		found, err = repo.ActivateNotification(ctx, id)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activating notification")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteNotification(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
