package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/pkg/db/models"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
)

// productReader is the slice of the catalog repository the cart needs.
type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service manages session-scoped shopping carts.
type Service interface {
	GetCart(ctx context.Context, sessionKey string) (*models.Cart, error)
	AddItem(ctx context.Context, sessionKey string, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, sessionKey string, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, sessionKey string, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, sessionKey string) error
}

// AddItemInput carries a request to add a product to a cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      *string
}

type service struct {
	repo     Repository
	products productReader
}

// NewService builds the cart service.
func NewService(repo Repository, products productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart: repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("cart: product reader is required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	return s.getOrCreateCart(ctx, sessionKey)
}

func (s *service) AddItem(ctx context.Context, sessionKey string, input AddItemInput) (*models.Cart, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.products.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	cart, err := s.getOrCreateCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItemByProduct(ctx, cart.ID, product.ID)
	if err != nil && !isNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart item")
	}

	currentQty := 0
	if existing != nil {
		currentQty = existing.Quantity
	}
	if currentQty+input.Quantity > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s: %d available", product.Name, product.Stock)).
			WithDetails(map[string]any{
				"product_id": product.ID.String(),
				"available":  product.Stock,
				"requested":  currentQty + input.Quantity,
			})
	}

	if existing != nil {
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, currentQty+input.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart item")
		}
	} else {
		item := &models.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  input.Quantity,
			Size:      input.Size,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create cart item")
		}
	}

	return s.reload(ctx, sessionKey)
}

func (s *service) UpdateItemQuantity(ctx context.Context, sessionKey string, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.getOrCreateCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItemByID(ctx, cart.ID, itemID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart item")
	}

	product, err := s.products.FindProductByID(ctx, item.ProductID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	if quantity > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s: %d available", product.Name, product.Stock)).
			WithDetails(map[string]any{
				"product_id": product.ID.String(),
				"available":  product.Stock,
				"requested":  quantity,
			})
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart item")
	}
	return s.reload(ctx, sessionKey)
}

// RemoveItem is idempotent. Removing an item that is already gone
// returns the current cart without an error.
func (s *service) RemoveItem(ctx context.Context, sessionKey string, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getOrCreateCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove cart item")
	}
	return s.reload(ctx, sessionKey)
}

func (s *service) Clear(ctx context.Context, sessionKey string) error {
	cart, err := s.repo.FindCartBySessionKey(ctx, sessionKey)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear cart")
	}
	return nil
}

func (s *service) getOrCreateCart(ctx context.Context, sessionKey string) (*models.Cart, error) {
	if sessionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session key is required")
	}

	cart, err := s.repo.FindCartBySessionKey(ctx, sessionKey)
	if err == nil {
		return cart, nil
	}
	if !isNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}

	fresh := &models.Cart{ID: uuid.New(), SessionKey: sessionKey}
	if err := s.repo.CreateCart(ctx, fresh); err != nil {
		// Another request for the same session may have created the
		// cart in the meantime. Re-read before giving up.
		cart, readErr := s.repo.FindCartBySessionKey(ctx, sessionKey)
		if readErr == nil {
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create cart")
	}
	return fresh, nil
}

func (s *service) reload(ctx context.Context, sessionKey string) (*models.Cart, error) {
	cart, err := s.repo.FindCartBySessionKey(ctx, sessionKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload cart")
	}
	return cart, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
