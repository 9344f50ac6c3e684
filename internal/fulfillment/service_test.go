package fulfillment

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/internal/orders"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
	"github.com/deshikart/deshikart-backend/pkg/metrics"
	"github.com/deshikart/deshikart-backend/pkg/steadfast"
)

type stubCourier struct {
	createCalls   int
	lastRequest   steadfast.CreateConsignmentRequest
	consignment   *steadfast.Consignment
	createErr     error
	status        *steadfast.DeliveryStatus
	statusErr     error
	balance       *steadfast.Balance
	balanceErr    error
	statusCalls   int
	lastStatusCID int64
}

func (s *stubCourier) Enabled() bool { return true }

func (s *stubCourier) CreateConsignment(_ context.Context, req steadfast.CreateConsignmentRequest) (*steadfast.Consignment, error) {
	s.createCalls++
	s.lastRequest = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.consignment, nil
}

func (s *stubCourier) StatusByConsignmentID(_ context.Context, consignmentID int64) (*steadfast.DeliveryStatus, error) {
	s.statusCalls++
	s.lastStatusCID = consignmentID
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.status, nil
}

func (s *stubCourier) GetBalance(context.Context) (*steadfast.Balance, error) {
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	return s.balance, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:fulfillment_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec("PRAGMA foreign_keys = ON").Error)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  regular_price NUMERIC NOT NULL,
  offer_price NUMERIC,
  image_url TEXT,
  sizes TEXT,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  session_key TEXT NOT NULL,
  status TEXT NOT NULL,
  total NUMERIC NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  customer_email TEXT,
  address TEXT NOT NULL,
  city TEXT,
  notes TEXT,
  delivery_type INTEGER NOT NULL DEFAULT 0,
  consignment_id INTEGER,
  tracking_code TEXT,
  courier_status TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  size TEXT,
  image_url TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newTestService(t *testing.T, courier *stubCourier) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	svc, err := NewService(orders.NewRepository(conn), courier, metrics.NewOrderMetrics(nil), zerolog.Nop())
	require.NoError(t, err)
	return svc, conn
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func seedOrder(t *testing.T, conn *gorm.DB, number int64) *models.Order {
	t.Helper()

	product := &models.Product{
		ID:           uuid.New(),
		Name:         "Panjabi",
		Category:     enums.ProductCategoryShirts,
		RegularPrice: decimal.RequireFromString("1500.00"),
		Stock:        10,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(product).Error)

	email := "rahim@example.com"
	notes := "Call before delivery"
	city := "Dhaka"
	size := "XL"
	order := &models.Order{
		ID:            uuid.New(),
		Number:        number,
		SessionKey:    "sess-1",
		Status:        enums.OrderStatusPending,
		Total:         decimal.RequireFromString("3100.00"),
		CustomerName:  "Rahim Uddin",
		CustomerPhone: "01712345678",
		CustomerEmail: &email,
		Address:       "House 12, Road 5, Dhanmondi",
		City:          &city,
		Notes:         &notes,
		DeliveryType:  enums.DeliveryTypeHome,
	}
	require.NoError(t, conn.Omit("Items").Create(order).Error)

	items := []models.OrderItem{
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Name:      "Panjabi",
			UnitPrice: decimal.RequireFromString("1500.00"),
			Quantity:  2,
			Size:      &size,
		},
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Name:      "Cap",
			UnitPrice: decimal.RequireFromString("100.00"),
			Quantity:  1,
		},
	}
	require.NoError(t, conn.Create(&items).Error)
	return order
}

func TestDispatchSuccess(t *testing.T) {
	courier := &stubCourier{
		consignment: &steadfast.Consignment{
			ConsignmentID: 991100,
			TrackingCode:  "TRK123ABC",
			Status:        "in_review",
		},
	}
	svc, conn := newTestService(t, courier)
	order := seedOrder(t, conn, 1042)

	dispatched, err := svc.Dispatch(context.Background(), order.ID)
	require.NoError(t, err)

	require.NotNil(t, dispatched.ConsignmentID)
	assert.Equal(t, int64(991100), *dispatched.ConsignmentID)
	require.NotNil(t, dispatched.TrackingCode)
	assert.Equal(t, "TRK123ABC", *dispatched.TrackingCode)
	require.NotNil(t, dispatched.CourierStatus)
	assert.Equal(t, "in_review", *dispatched.CourierStatus)
	assert.Equal(t, enums.OrderStatusSent, dispatched.Status)

	req := courier.lastRequest
	assert.Equal(t, "ORD-1042", req.Invoice)
	assert.Equal(t, "Rahim Uddin", req.RecipientName)
	assert.Equal(t, "01712345678", req.RecipientPhone)
	assert.Equal(t, "House 12, Road 5, Dhanmondi, Dhaka", req.RecipientAddress)
	assert.True(t, decimal.RequireFromString("3100.00").Equal(req.CODAmount))
	assert.Equal(t, "rahim@example.com", req.RecipientEmail)
	assert.Equal(t, "Call before delivery", req.Note)
	assert.Equal(t, "2x Panjabi (Size: XL); 1x Cap", req.ItemDescription)
	assert.Equal(t, 3, req.TotalLot)
	assert.Equal(t, steadfast.DeliveryTypeHome, req.DeliveryType)
}

func TestDispatchRefusesSecondAttempt(t *testing.T) {
	courier := &stubCourier{
		consignment: &steadfast.Consignment{ConsignmentID: 1, TrackingCode: "TRK", Status: "in_review"},
	}
	svc, conn := newTestService(t, courier)
	order := seedOrder(t, conn, 1)

	_, err := svc.Dispatch(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = svc.Dispatch(context.Background(), order.ID)
	requireCode(t, err, pkgerrors.CodeAlreadyDispatched)
	// The refusal happens before any courier traffic.
	assert.Equal(t, 1, courier.createCalls)
}

func TestDispatchCourierFailureLeavesOrderUntouched(t *testing.T) {
	courier := &stubCourier{
		createErr: pkgerrors.New(pkgerrors.CodeCourierError, "invalid phone number"),
	}
	svc, conn := newTestService(t, courier)
	order := seedOrder(t, conn, 1)

	_, err := svc.Dispatch(context.Background(), order.ID)
	requireCode(t, err, pkgerrors.CodeCourierError)

	var fresh models.Order
	require.NoError(t, conn.First(&fresh, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, fresh.Status)
	assert.Nil(t, fresh.ConsignmentID)
	assert.Nil(t, fresh.TrackingCode)
	assert.Nil(t, fresh.CourierStatus)

	// A failed dispatch may be retried.
	courier.createErr = nil
	courier.consignment = &steadfast.Consignment{ConsignmentID: 7, TrackingCode: "TRK7", Status: "in_review"}
	dispatched, err := svc.Dispatch(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusSent, dispatched.Status)
	assert.Equal(t, 2, courier.createCalls)
}

func TestDispatchDisabledCourier(t *testing.T) {
	courier := &stubCourier{
		createErr: pkgerrors.New(pkgerrors.CodeCourierDisabled, "courier credentials not configured"),
	}
	svc, conn := newTestService(t, courier)
	order := seedOrder(t, conn, 1)

	_, err := svc.Dispatch(context.Background(), order.ID)
	requireCode(t, err, pkgerrors.CodeCourierDisabled)
}

func TestDispatchCancelledOrder(t *testing.T) {
	courier := &stubCourier{}
	svc, conn := newTestService(t, courier)
	order := seedOrder(t, conn, 1)
	require.NoError(t, conn.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusCancelled).Error)

	_, err := svc.Dispatch(context.Background(), order.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Zero(t, courier.createCalls)
}

func TestDispatchUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t, &stubCourier{})

	_, err := svc.Dispatch(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRefreshStatus(t *testing.T) {
	courier := &stubCourier{
		consignment: &steadfast.Consignment{ConsignmentID: 991100, TrackingCode: "TRK", Status: "in_review"},
		status:      &steadfast.DeliveryStatus{Status: "delivered"},
	}
	svc, conn := newTestService(t, courier)
	order := seedOrder(t, conn, 1)

	// Not dispatched yet: nothing to refresh.
	_, err := svc.RefreshStatus(context.Background(), order.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.Dispatch(context.Background(), order.ID)
	require.NoError(t, err)

	refreshed, err := svc.RefreshStatus(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.CourierStatus)
	assert.Equal(t, "delivered", *refreshed.CourierStatus)
	assert.Equal(t, int64(991100), courier.lastStatusCID)

	var fresh models.Order
	require.NoError(t, conn.First(&fresh, "id = ?", order.ID).Error)
	require.NotNil(t, fresh.CourierStatus)
	assert.Equal(t, "delivered", *fresh.CourierStatus)
}

func TestBalancePassthrough(t *testing.T) {
	courier := &stubCourier{
		balance: &steadfast.Balance{CurrentBalance: decimal.RequireFromString("2512.50")},
	}
	svc, _ := newTestService(t, courier)

	balance, err := svc.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2512.50").Equal(balance.CurrentBalance))
}
