package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the storefront banner. At most one row is active at a
// time; activation deactivates the rest in the same transaction.
type Notification struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Message   string    `gorm:"column:message;not null" json:"message"`
	IsActive  bool      `gorm:"column:is_active;not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }
