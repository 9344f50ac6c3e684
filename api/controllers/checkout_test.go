package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/api/middleware"
	"github.com/deshikart/deshikart-backend/internal/orders"
	"github.com/deshikart/deshikart-backend/pkg/config"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/steadfast"
)

type testOrderService struct {
	placeFn  func(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	listFn   func(ctx context.Context, input orders.ListOrdersInput) (*orders.ListOrdersResult, error)
	updateFn func(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error)
	cancelFn func(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

func (s *testOrderService) PlaceOrder(ctx context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *testOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &models.Order{}, nil
}

func (s *testOrderService) ListOrders(ctx context.Context, input orders.ListOrdersInput) (*orders.ListOrdersResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return &orders.ListOrdersResult{}, nil
}

func (s *testOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, target)
	}
	return &models.Order{}, nil
}

func (s *testOrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, id)
	}
	return &models.Order{}, nil
}

type testFulfillmentService struct {
	dispatchFn func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	refreshFn  func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	balanceFn  func(ctx context.Context) (*steadfast.Balance, error)
}

func (s *testFulfillmentService) Dispatch(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.dispatchFn != nil {
		return s.dispatchFn(ctx, orderID)
	}
	return &models.Order{}, nil
}

func (s *testFulfillmentService) RefreshStatus(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, orderID)
	}
	return &models.Order{}, nil
}

func (s *testFulfillmentService) Balance(ctx context.Context) (*steadfast.Balance, error) {
	if s.balanceFn != nil {
		return s.balanceFn(ctx)
	}
	return &steadfast.Balance{}, nil
}

func checkoutBody(productID uuid.UUID) string {
	return `{
		"customer_name": "Rahim Uddin",
		"customer_phone": "01712345678",
		"address": "House 12, Road 5, Dhanmondi, Dhaka",
		"delivery_type": 0,
		"total": "1320.00",
		"items": [{"product_id": "` + productID.String() + `", "quantity": 2, "size": "XL"}]
	}`
}

func TestCheckoutPlacesOrder(t *testing.T) {
	productID := uuid.New()
	var gotInput orders.PlaceOrderInput
	svc := &testOrderService{
		placeFn: func(_ context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
			gotInput = input
			return &models.Order{ID: uuid.New(), Number: 7, Status: enums.OrderStatusPending}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody(productID)))
	req = req.WithContext(middleware.WithSessionKey(req.Context(), "session-xyz"))
	resp := httptest.NewRecorder()
	Checkout(CheckoutDeps{Orders: svc}, testLogger())(resp, req)

	requireStatus(t, resp.Code, http.StatusCreated)
	if gotInput.SessionKey != "session-xyz" {
		t.Fatalf("unexpected session key %q", gotInput.SessionKey)
	}
	if gotInput.Customer.Name != "Rahim Uddin" || gotInput.Customer.Phone != "01712345678" {
		t.Fatalf("unexpected customer %+v", gotInput.Customer)
	}
	if len(gotInput.Items) != 1 || gotInput.Items[0].ProductID != productID || gotInput.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", gotInput.Items)
	}
	if gotInput.Total == nil || !gotInput.Total.Equal(decimal.RequireFromString("1320.00")) {
		t.Fatalf("trusted total not forwarded: %+v", gotInput.Total)
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Number != 7 {
		t.Fatalf("unexpected order number %d", envelope.Data.Number)
	}
}

func TestCheckoutWithoutItemsUsesCart(t *testing.T) {
	var gotInput orders.PlaceOrderInput
	svc := &testOrderService{
		placeFn: func(_ context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
			gotInput = input
			return &models.Order{ID: uuid.New(), Number: 3, Status: enums.OrderStatusPending}, nil
		},
	}

	// No items in the payload: the order service builds lines from the
	// session's cart.
	body := `{
		"customer_name": "Rahim Uddin",
		"customer_phone": "01712345678",
		"address": "House 12, Road 5, Dhanmondi, Dhaka"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	req = req.WithContext(middleware.WithSessionKey(req.Context(), "session-cart"))
	resp := httptest.NewRecorder()
	Checkout(CheckoutDeps{Orders: svc}, testLogger())(resp, req)

	requireStatus(t, resp.Code, http.StatusCreated)
	if gotInput.SessionKey != "session-cart" {
		t.Fatalf("unexpected session key %q", gotInput.SessionKey)
	}
	if len(gotInput.Items) != 0 {
		t.Fatalf("expected no explicit items, got %+v", gotInput.Items)
	}
}

func TestCheckoutValidation(t *testing.T) {
	cases := map[string]string{
		"missing name":  `{"customer_phone":"01712345678","address":"House 12, Road 5","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`,
		"bad total":     `{"customer_name":"A B","customer_phone":"01712345678","address":"House 12, Road 5","total":"abc","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`,
		"bad delivery":  `{"customer_name":"A B","customer_phone":"01712345678","address":"House 12, Road 5","delivery_type":3,"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`,
		"bad unit cost": `{"customer_name":"A B","customer_phone":"01712345678","address":"House 12, Road 5","items":[{"product_id":"` + uuid.NewString() + `","quantity":1,"unit_price":"xx"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
			req = req.WithContext(middleware.WithSessionKey(req.Context(), "s"))
			resp := httptest.NewRecorder()
			Checkout(CheckoutDeps{Orders: &testOrderService{}}, testLogger())(resp, req)
			requireStatus(t, resp.Code, http.StatusBadRequest)
		})
	}
}

func TestCheckoutInsufficientStockPassesThrough(t *testing.T) {
	svc := &testOrderService{
		placeFn: func(_ context.Context, _ orders.PlaceOrderInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody(uuid.New())))
	req = req.WithContext(middleware.WithSessionKey(req.Context(), "s"))
	resp := httptest.NewRecorder()
	Checkout(CheckoutDeps{Orders: svc}, testLogger())(resp, req)

	requireStatus(t, resp.Code, http.StatusConflict)
}

func TestCheckoutDispatchOnCreate(t *testing.T) {
	orderID := uuid.New()
	consignment := int64(445566)
	placed := &models.Order{ID: orderID, Number: 3, Status: enums.OrderStatusPending}
	dispatched := &models.Order{ID: orderID, Number: 3, Status: enums.OrderStatusSent, ConsignmentID: &consignment}

	svc := &testOrderService{
		placeFn: func(_ context.Context, _ orders.PlaceOrderInput) (*models.Order, error) {
			return placed, nil
		},
	}
	courier := &testFulfillmentService{
		dispatchFn: func(_ context.Context, id uuid.UUID) (*models.Order, error) {
			if id != orderID {
				t.Fatalf("dispatch got wrong order %s", id)
			}
			return dispatched, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody(uuid.New())))
	req = req.WithContext(middleware.WithSessionKey(req.Context(), "s"))
	resp := httptest.NewRecorder()
	deps := CheckoutDeps{Orders: svc, Dispatcher: courier, Flags: config.FeatureFlagsConfig{DispatchOnCreate: true}}
	Checkout(deps, testLogger())(resp, req)

	requireStatus(t, resp.Code, http.StatusCreated)
	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ConsignmentID == nil || *envelope.Data.ConsignmentID != consignment {
		t.Fatalf("expected dispatched order in response, got %+v", envelope.Data)
	}
}

func TestCheckoutDispatchFailureDoesNotFailRequest(t *testing.T) {
	svc := &testOrderService{
		placeFn: func(_ context.Context, _ orders.PlaceOrderInput) (*models.Order, error) {
			return &models.Order{ID: uuid.New(), Number: 9, Status: enums.OrderStatusPending}, nil
		},
	}
	courier := &testFulfillmentService{
		dispatchFn: func(_ context.Context, _ uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeCourierError, "courier down")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody(uuid.New())))
	req = req.WithContext(middleware.WithSessionKey(req.Context(), "s"))
	resp := httptest.NewRecorder()
	deps := CheckoutDeps{Orders: svc, Dispatcher: courier, Flags: config.FeatureFlagsConfig{DispatchOnCreate: true}}
	Checkout(deps, testLogger())(resp, req)

	requireStatus(t, resp.Code, http.StatusCreated)
	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusPending {
		t.Fatalf("order should stay pending, got %s", envelope.Data.Status)
	}
}
