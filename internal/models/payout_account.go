package models

import (
	"github.com/google/uuid"
)

// PayoutAccountStatus represents whether an account can receive or fund
// transfers
type PayoutAccountStatus string

const (
	PayoutAccountActive   PayoutAccountStatus = "active"
	PayoutAccountDisabled PayoutAccountStatus = "disabled"
)

// PayoutAccount is a connected external payment account. For marketers it is
// the destination of commission transfers; for creators it is the funding
// account that must exist before commissions become payable.
type PayoutAccount struct {
	Base
	UserID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	User       User                `gorm:"foreignKey:UserID" json:"-"`
	Provider   string              `gorm:"type:varchar(50);not null" json:"provider"`
	AccountRef string              `gorm:"type:varchar(100);not null" json:"account_ref"`
	Status     PayoutAccountStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}
