package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart-backend/pkg/enums"
)

// Product is a catalog entry. Stock is the single source of truth for
// availability and is only ever decremented with a guarded relative update.
type Product struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string                `gorm:"column:name;not null" json:"name"`
	Description  string                `gorm:"column:description" json:"description"`
	Category     enums.ProductCategory `gorm:"column:category;not null;index" json:"category"`
	RegularPrice decimal.Decimal       `gorm:"column:regular_price;type:numeric(10,2);not null" json:"regular_price"`
	OfferPrice   *decimal.Decimal      `gorm:"column:offer_price;type:numeric(10,2)" json:"offer_price,omitempty"`
	ImageURL     *string               `gorm:"column:image_url" json:"image_url,omitempty"`
	Sizes        pq.StringArray        `gorm:"column:sizes;type:text[]" json:"sizes"`
	Stock        int                   `gorm:"column:stock;not null;default:0" json:"stock"`
	IsActive     bool                  `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time             `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time             `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// CurrentPrice returns the offer price when one is set below the regular
// price, otherwise the regular price.
func (p *Product) CurrentPrice() decimal.Decimal {
	if p.OfferPrice != nil && p.OfferPrice.LessThan(p.RegularPrice) {
		return *p.OfferPrice
	}
	return p.RegularPrice
}

func (p *Product) HasOffer() bool {
	return p.OfferPrice != nil && p.OfferPrice.LessThan(p.RegularPrice)
}

func (p *Product) InStock(qty int) bool {
	return p.Stock >= qty
}
