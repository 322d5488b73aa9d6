package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a best-effort user-facing message. Delivery failure never
// rolls back the settlement or grant it describes.
type Notification struct {
	Base
	UserID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User    User       `gorm:"foreignKey:UserID" json:"-"`
	Type    string     `gorm:"type:varchar(50);not null" json:"type"`
	Title   string     `gorm:"type:varchar(255);not null" json:"title"`
	Message string     `gorm:"type:text" json:"message"`
	Data    JSON       `gorm:"type:jsonb" json:"data,omitempty"`
	ReadAt  *time.Time `json:"read_at,omitempty"`
}
