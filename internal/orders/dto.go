package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/pkg/db/models"
	"github.com/deshikart/deshikart-backend/pkg/enums"
	"github.com/deshikart/deshikart-backend/pkg/pagination"
)

// OrderLineInput is one candidate purchase line. UnitPrice is optional;
// when nil the product's current price at validation time is frozen into
// the order item.
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
	Size      *string
}

// CustomerInfo carries the shipping details captured at checkout.
type CustomerInfo struct {
	Name    string
	Phone   string
	Email   *string
	Address string
	City    *string
	Notes   *string
}

// PlaceOrderInput is the full checkout request. SessionKey, when set,
// identifies a cart to delete inside the checkout transaction. Total, when
// set, is stored verbatim (trusted pre-computed total, e.g. with a delivery
// charge); lines are still validated either way.
type PlaceOrderInput struct {
	SessionKey   string
	Customer     CustomerInfo
	Items        []OrderLineInput
	Total        *decimal.Decimal
	DeliveryType enums.DeliveryType
}

// ListOrdersInput filters and paginates the admin order listing.
type ListOrdersInput struct {
	Status *enums.OrderStatus
	Page   pagination.Params
}

// ListOrdersResult is one page of orders, newest first.
type ListOrdersResult struct {
	Orders     []models.Order
	NextCursor string
}
