package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/internal/cart"
	"github.com/deshikart/deshikart-backend/pkg/db"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/metrics"
	"github.com/deshikart/deshikart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order transaction manager: the one place where a purchase
// is validated and committed.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*ListOrdersResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	carts   cart.Repository
	tx      txRunner
	metrics *metrics.OrderMetrics
	logger  zerolog.Logger
}

// NewService builds the order service. Metrics may be a noop instance but
// must not be nil.
func NewService(repo Repository, carts cart.Repository, tx txRunner, m *metrics.OrderMetrics, logger zerolog.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders: repository is required")
	}
	if carts == nil {
		return nil, fmt.Errorf("orders: cart repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("orders: tx runner is required")
	}
	if m == nil {
		return nil, fmt.Errorf("orders: metrics are required")
	}
	return &service{repo: repo, carts: carts, tx: tx, metrics: m, logger: logger}, nil
}

// orderNumberRetries bounds how many times a checkout is replayed when two
// concurrent transactions allocate the same order number and the unique
// index rejects one of them.
const orderNumberRetries = 3

var errOrderNumberTaken = errors.New("order number already taken")

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	started := time.Now()

	if err := validatePlaceOrder(input); err != nil {
		s.metrics.IncPlaced("rejected")
		return nil, err
	}

	var orderID uuid.UUID
	var err error
	for attempt := 0; ; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			id, txErr := s.placeOrderTx(ctx, tx, input)
			if txErr != nil {
				return txErr
			}
			orderID = id
			return nil
		})
		if err == nil || attempt >= orderNumberRetries || !errors.Is(err, errOrderNumberTaken) {
			break
		}
		s.logger.Warn().Int("attempt", attempt+1).Msg("order number collision, retrying checkout")
	}
	s.metrics.ObserveCheckout(time.Since(started))
	if err != nil {
		if errors.Is(err, errOrderNumberTaken) {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to allocate order number")
		}
		s.metrics.IncPlaced("failed")
		return nil, err
	}
	s.metrics.IncPlaced("placed")

	order, loadErr := s.repo.FindOrderByID(ctx, orderID)
	if loadErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, loadErr, "failed to reload order")
	}
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("order_number", order.Number).
		Str("total", order.Total.String()).
		Msg("order placed")
	return order, nil
}

// placeOrderTx runs one checkout attempt inside tx and returns the id of the
// committed order. When the caller supplies no lines they are built from the
// session's cart, so the payload cannot drift from what the shopper sees.
func (s *service) placeOrderTx(ctx context.Context, tx *gorm.DB, input PlaceOrderInput) (uuid.UUID, error) {
	txRepo := s.repo.WithTx(tx)

	lines := input.Items
	if len(lines) == 0 {
		var err error
		lines, err = s.cartLines(ctx, tx, input.SessionKey)
		if err != nil {
			return uuid.Nil, err
		}
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := txRepo.FindProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
		}
		if !product.IsActive {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		ok, err := txRepo.DecrementStock(ctx, product.ID, line.Quantity)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to decrement stock")
		}
		if !ok {
			s.metrics.IncInsufficientStock()
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s: %d available", product.Name, product.Stock)).
				WithDetails(map[string]any{
					"product_id": product.ID.String(),
					"available":  product.Stock,
					"requested":  line.Quantity,
				})
		}

		unitPrice := product.CurrentPrice()
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: unitPrice,
			Quantity:  line.Quantity,
			Size:      line.Size,
			ImageURL:  product.ImageURL,
		})
		total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if input.Total != nil {
		total = *input.Total
	}

	number, err := txRepo.NextOrderNumber(ctx)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to allocate order number")
	}

	order := &models.Order{
		ID:            uuid.New(),
		Number:        number,
		SessionKey:    input.SessionKey,
		Status:        enums.OrderStatusPending,
		Total:         total,
		CustomerName:  input.Customer.Name,
		CustomerPhone: input.Customer.Phone,
		CustomerEmail: input.Customer.Email,
		Address:       input.Customer.Address,
		City:          input.Customer.City,
		Notes:         input.Customer.Notes,
		DeliveryType:  input.DeliveryType,
	}
	if err := txRepo.CreateOrder(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "order_number") {
			return uuid.Nil, fmt.Errorf("%w: %d", errOrderNumberTaken, number)
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create order")
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := txRepo.CreateOrderItems(ctx, items); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create order items")
	}

	if input.SessionKey != "" {
		if err := s.deleteCart(ctx, tx, input.SessionKey); err != nil {
			return uuid.Nil, err
		}
	}

	return order.ID, nil
}

// cartLines turns the session's cart into order lines. Prices are left nil
// so each line snapshots the product's current price at commit time.
func (s *service) cartLines(ctx context.Context, tx *gorm.DB, sessionKey string) ([]OrderLineInput, error) {
	if sessionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	existing, err := s.carts.WithTx(tx).FindCartBySessionKey(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	if len(existing.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]OrderLineInput, 0, len(existing.Items))
	for _, item := range existing.Items {
		lines = append(lines, OrderLineInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
		})
	}
	return lines, nil
}

func (s *service) deleteCart(ctx context.Context, tx *gorm.DB, sessionKey string) error {
	txCarts := s.carts.WithTx(tx)
	existing, err := txCarts.FindCartBySessionKey(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	if err := txCarts.DeleteCart(ctx, existing.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete cart")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*ListOrdersResult, error) {
	cursor, err := pagination.ParseCursor(input.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Page.Limit)
	rows, err := s.repo.ListOrders(ctx, OrderFilters{Status: input.Status}, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}

	result := &ListOrdersResult{Orders: rows}
	if len(rows) > limit {
		result.Orders = rows[:limit]
		last := result.Orders[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if target == enums.OrderStatusSent {
		// Only a successful courier dispatch writes sent, together with
		// the consignment fields. Accepting it here would forge a
		// dispatch that never happened.
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sent is set by courier dispatch")
	}
	if target == enums.OrderStatusCancelled {
		return s.CancelOrder(ctx, id)
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update order status")
	}
	order.Status = target
	return order, nil
}

// CancelOrder cancels a pending order. Orders already handed to the
// courier keep their state; cancelling them here would strand a live
// consignment.
func (s *service) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Cancellable() {
		if order.Dispatched() {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already with the courier")
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("cannot cancel an order in status %s", order.Status))
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, enums.OrderStatusCancelled); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to cancel order")
	}
	order.Status = enums.OrderStatusCancelled
	return order, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	var problems []string
	// No explicit lines means checkout-from-cart, which needs a session.
	if len(input.Items) == 0 && strings.TrimSpace(input.SessionKey) == "" {
		problems = append(problems, "at least one item is required")
	}
	for i, line := range input.Items {
		if line.ProductID == uuid.Nil {
			problems = append(problems, fmt.Sprintf("items[%d]: product id is required", i))
		}
		if line.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			problems = append(problems, fmt.Sprintf("items[%d]: unit price cannot be negative", i))
		}
	}
	if strings.TrimSpace(input.Customer.Name) == "" {
		problems = append(problems, "customer name is required")
	}
	if strings.TrimSpace(input.Customer.Phone) == "" {
		problems = append(problems, "customer phone is required")
	}
	if strings.TrimSpace(input.Customer.Address) == "" {
		problems = append(problems, "address is required")
	}
	if input.Total != nil && input.Total.IsNegative() {
		problems = append(problems, "total cannot be negative")
	}
	if !input.DeliveryType.IsValid() {
		problems = append(problems, "unknown delivery type")
	}

	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, strings.Join(problems, "; "))
	}
	return nil
}
