package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/internal/orders"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/metrics"
	"github.com/deshikart/deshikart-backend/pkg/steadfast"
)

// courierClient is the slice of the Steadfast client the dispatcher needs.
type courierClient interface {
	Enabled() bool
	CreateConsignment(ctx context.Context, req steadfast.CreateConsignmentRequest) (*steadfast.Consignment, error)
	StatusByConsignmentID(ctx context.Context, consignmentID int64) (*steadfast.DeliveryStatus, error)
	GetBalance(ctx context.Context) (*steadfast.Balance, error)
}

// Service hands committed orders to the courier and records the outcome.
// Dispatch is idempotent by refusal: an order that already carries a
// consignment id is never sent again.
type Service interface {
	Dispatch(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	RefreshStatus(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Balance(ctx context.Context) (*steadfast.Balance, error)
}

type service struct {
	repo    orders.Repository
	courier courierClient
	metrics *metrics.OrderMetrics
	logger  zerolog.Logger
}

// NewService builds the fulfillment dispatcher.
func NewService(repo orders.Repository, courier courierClient, m *metrics.OrderMetrics, logger zerolog.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fulfillment: orders repository is required")
	}
	if courier == nil {
		return nil, fmt.Errorf("fulfillment: courier client is required")
	}
	if m == nil {
		return nil, fmt.Errorf("fulfillment: metrics are required")
	}
	return &service{repo: repo, courier: courier, metrics: m, logger: logger}, nil
}

func (s *service) Dispatch(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Dispatched() {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyDispatched,
			fmt.Sprintf("order %s already has consignment %d", order.Invoice(), *order.ConsignmentID))
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cannot dispatch a cancelled order")
	}

	req := buildConsignmentRequest(order)

	started := time.Now()
	consignment, err := s.courier.CreateConsignment(ctx, req)
	s.metrics.ObserveCourierRequest(time.Since(started))
	if err != nil {
		s.metrics.IncDispatch("failed")
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("invoice", order.Invoice()).
			Msg("courier dispatch failed")
		// The order stays committed and untouched. The operator retries
		// dispatch explicitly.
		return nil, err
	}
	s.metrics.IncDispatch("sent")

	// Writing fulfillment back is a separate transaction from checkout.
	// If it fails the consignment exists anyway, so surface the error
	// but never unwind the order.
	err = s.repo.UpdateFulfillment(ctx, order.ID, orders.FulfillmentUpdate{
		ConsignmentID: consignment.ConsignmentID,
		TrackingCode:  consignment.TrackingCode,
		CourierStatus: consignment.Status,
		Status:        enums.OrderStatusSent,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err,
			fmt.Sprintf("consignment %d created but fulfillment write failed", consignment.ConsignmentID))
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("invoice", order.Invoice()).
		Int64("consignment_id", consignment.ConsignmentID).
		Str("tracking_code", consignment.TrackingCode).
		Msg("order dispatched")

	return s.loadOrder(ctx, order.ID)
}

func (s *service) RefreshStatus(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Dispatched() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order has not been dispatched yet")
	}

	started := time.Now()
	status, err := s.courier.StatusByConsignmentID(ctx, *order.ConsignmentID)
	s.metrics.ObserveCourierRequest(time.Since(started))
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCourierStatus(ctx, order.ID, status.Status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record courier status")
	}
	order.CourierStatus = &status.Status
	return order, nil
}

func (s *service) Balance(ctx context.Context) (*steadfast.Balance, error) {
	return s.courier.GetBalance(ctx)
}

func (s *service) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func buildConsignmentRequest(order *models.Order) steadfast.CreateConsignmentRequest {
	req := steadfast.CreateConsignmentRequest{
		Invoice:          order.Invoice(),
		RecipientName:    order.CustomerName,
		RecipientPhone:   order.CustomerPhone,
		RecipientAddress: recipientAddress(order),
		CODAmount:        order.Total,
		ItemDescription:  itemDescription(order.Items),
		TotalLot:         totalLot(order.Items),
		DeliveryType:     int(order.DeliveryType),
	}
	if order.CustomerEmail != nil {
		req.RecipientEmail = *order.CustomerEmail
	}
	if order.Notes != nil {
		req.Note = *order.Notes
	}
	return req
}

func recipientAddress(order *models.Order) string {
	if order.City != nil && *order.City != "" {
		return order.Address + ", " + *order.City
	}
	return order.Address
}

// itemDescription renders "2x Panjabi (Size: XL); 1x Cap" for the courier
// slip.
func itemDescription(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for i := range items {
		part := fmt.Sprintf("%dx %s", items[i].Quantity, items[i].Name)
		if items[i].Size != nil && *items[i].Size != "" {
			part += fmt.Sprintf(" (Size: %s)", *items[i].Size)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

func totalLot(items []models.OrderItem) int {
	total := 0
	for i := range items {
		total += items[i].Quantity
	}
	return total
}
