package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackingCode holds a Meta pixel id served to the storefront. Inactive
// codes are kept for history but never returned to clients.
type TrackingCode struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PixelID   string    `gorm:"column:pixel_id;not null;uniqueIndex" json:"pixel_id"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (TrackingCode) TableName() string { return "tracking_codes" }
