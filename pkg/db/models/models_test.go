package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/deshikart/deshikart-backend/pkg/enums"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestProductCurrentPrice(t *testing.T) {
	offer := dec("799.00")
	high := dec("1200.00")

	cases := []struct {
		name    string
		product Product
		want    string
	}{
		{"no offer", Product{RegularPrice: dec("999.00")}, "999"},
		{"offer below regular", Product{RegularPrice: dec("999.00"), OfferPrice: &offer}, "799"},
		{"offer above regular ignored", Product{RegularPrice: dec("999.00"), OfferPrice: &high}, "999"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.product.CurrentPrice().String())
		})
	}
}

func TestCartTotal(t *testing.T) {
	offer := dec("450.00")
	cart := Cart{
		Items: []CartItem{
			{Quantity: 2, Product: &Product{RegularPrice: dec("500.00"), OfferPrice: &offer}},
			{Quantity: 1, Product: &Product{RegularPrice: dec("1200.00")}},
			{Quantity: 3}, // product not preloaded
		},
	}

	assert.Equal(t, "2100", cart.Total().String())
	assert.Equal(t, 6, cart.ItemCount())
}

func TestOrderInvoice(t *testing.T) {
	o := Order{Number: 1042}
	assert.Equal(t, "ORD-1042", o.Invoice())
}

func TestOrderCancellable(t *testing.T) {
	cid := int64(991212)

	assert.True(t, (&Order{Status: enums.OrderStatusPending}).Cancellable())
	assert.False(t, (&Order{Status: enums.OrderStatusPending, ConsignmentID: &cid}).Cancellable())
	assert.False(t, (&Order{Status: enums.OrderStatusSent}).Cancellable())
	assert.False(t, (&Order{Status: enums.OrderStatusCancelled}).Cancellable())
}

func TestOrderItemSubtotal(t *testing.T) {
	oi := OrderItem{ID: uuid.New(), UnitPrice: dec("799.00"), Quantity: 3}
	assert.Equal(t, "2397", oi.Subtotal().String())
}
