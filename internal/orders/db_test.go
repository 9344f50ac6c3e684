package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/internal/cart"
	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	"github.com/deshikart/deshikart-backend/pkg/metrics"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
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
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  session_key TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  quantity INTEGER NOT NULL,
  size TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
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

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	svc, err := NewService(
		NewRepository(conn),
		cart.NewRepository(conn),
		testTxRunner{db: conn},
		metrics.NewOrderMetrics(nil),
		zerolog.Nop(),
	)
	require.NoError(t, err)
	return svc, conn
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	parsed, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return parsed
}

func ptrDecimal(t *testing.T, value string) *decimal.Decimal {
	t.Helper()

	parsed := mustDecimal(t, value)
	return &parsed
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:           uuid.New(),
		Name:         name,
		Category:     enums.ProductCategoryShirts,
		RegularPrice: mustDecimal(t, price),
		Stock:        stock,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func testCustomer() CustomerInfo {
	return CustomerInfo{
		Name:    "Rahim Uddin",
		Phone:   "01712345678",
		Address: "House 12, Road 5, Dhanmondi, Dhaka",
	}
}
