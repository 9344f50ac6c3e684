package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/deshikart/deshikart-backend/internal/catalog"
	pkgerrors "github.com/deshikart/deshikart-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
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

func TestGetCartCreatesLazily(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, first.Items)

	second, err := svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.GetCart(ctx, "sess-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGetCartRequiresSessionKey(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetCart(context.Background(), "")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestAddItemStockLimit(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Panjabi", "1500.00", 5)

	cart, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	// 3 in the cart plus 3 more exceeds the 5 in stock.
	_, err = svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 3})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	cart, err = svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Shirt", "999.00", 10)

	_, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(ctx, "sess-1", AddItemInput{Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: uuid.New(), Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddItemInactiveProduct(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Retired", "500.00", 10)
	require.NoError(t, conn.Model(product).Update("is_active", false).Error)

	_, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddItemKeepsSize(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Polo", "1200.00", 10)
	size := "XL"

	cart, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 2, Size: &size})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.Items[0].Size)
	assert.Equal(t, "XL", *cart.Items[0].Size)
	assert.Equal(t, "2400", cart.Total().String())
}

func TestUpdateItemQuantity(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Hoodie", "2000.00", 4)

	cart, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItemQuantity(ctx, "sess-1", itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = svc.UpdateItemQuantity(ctx, "sess-1", itemID, 5)
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	_, err = svc.UpdateItemQuantity(ctx, "sess-1", itemID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateItemQuantity(ctx, "sess-1", uuid.New(), 1)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateItemQuantityScopedToSession(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Kurti", "800.00", 10)

	cart, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	// Another session cannot touch sess-1's item.
	_, err = svc.UpdateItemQuantity(ctx, "sess-2", cart.Items[0].ID, 2)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveItemIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, conn, "Cap", "300.00", 10)

	cart, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.RemoveItem(ctx, "sess-1", itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Second removal of the same item is a no-op, not an error.
	cart, err = svc.RemoveItem(ctx, "sess-1", itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClear(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	first := mustCreateProduct(t, conn, "Tee", "450.00", 10)
	second := mustCreateProduct(t, conn, "Jeans", "1800.00", 10)

	_, err := svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: first.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "sess-1", AddItemInput{ProductID: second.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "sess-1"))

	cart, err := svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Clearing a session that never had a cart is fine.
	require.NoError(t, svc.Clear(ctx, "sess-none"))
}
