package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/pkg/enums"
)

// Order is a committed cash-on-delivery order. Number is a monotonically
// assigned per-store sequence used to derive the courier invoice.
//
// ConsignmentID, TrackingCode and CourierStatus are written together on a
// successful dispatch and are all nil before it.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number     int64             `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	SessionKey string            `gorm:"column:session_key;not null;index" json:"-"`
	Status     enums.OrderStatus `gorm:"column:status;not null;index" json:"status"`
	Total      decimal.Decimal   `gorm:"column:total;type:numeric(10,2);not null" json:"total"`

	CustomerName  string             `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerPhone string             `gorm:"column:customer_phone;not null" json:"customer_phone"`
	CustomerEmail *string            `gorm:"column:customer_email" json:"customer_email,omitempty"`
	Address       string             `gorm:"column:address;not null" json:"address"`
	City          *string            `gorm:"column:city" json:"city,omitempty"`
	Notes         *string            `gorm:"column:notes" json:"notes,omitempty"`
	DeliveryType  enums.DeliveryType `gorm:"column:delivery_type;not null;default:0" json:"delivery_type"`

	ConsignmentID *int64  `gorm:"column:consignment_id" json:"consignment_id,omitempty"`
	TrackingCode  *string `gorm:"column:tracking_code" json:"tracking_code,omitempty"`
	CourierStatus *string `gorm:"column:courier_status" json:"courier_status,omitempty"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// Invoice is the courier-facing reference for the order. It is derived,
// never stored, so it can always be recomputed from the row.
func (o *Order) Invoice() string {
	return fmt.Sprintf("ORD-%d", o.Number)
}

// Dispatched reports whether the order already has a courier consignment.
func (o *Order) Dispatched() bool {
	return o.ConsignmentID != nil
}

// Cancellable reports whether the order may still be cancelled: only
// pending orders that have not been handed to the courier.
func (o *Order) Cancellable() bool {
	return o.Status == enums.OrderStatusPending && !o.Dispatched()
}
