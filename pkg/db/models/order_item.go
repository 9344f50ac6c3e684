package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots a product line at checkout time. UnitPrice, Name and
// ImageURL are copied from the product so later catalog edits do not
// rewrite order history. The product FK is RESTRICT so products with sold
// units cannot be deleted, only deactivated.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"-"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	Size      *string         `gorm:"column:size" json:"size,omitempty"`
	ImageURL  *string         `gorm:"column:image_url" json:"image_url,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (oi *OrderItem) Subtotal() decimal.Decimal {
	return oi.UnitPrice.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}
