package models

import (
	"time"

	"github.com/google/uuid"
)

// TransferStatus represents the status of one payout attempt
type TransferStatus string

const (
	TransferStatusPending TransferStatus = "PENDING"
	TransferStatusPaid    TransferStatus = "PAID"
	TransferStatusFailed  TransferStatus = "FAILED"
)

// Transfer is one payout attempt to one destination account in one currency.
// The row is created PENDING before the external call is attempted so a crash
// mid-call leaves a traceable record; it is never re-issued automatically.
type Transfer struct {
	Base
	CreatorID        uuid.UUID `gorm:"type:uuid;not null;index" json:"creator_id"`
	MarketerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"marketer_id"`
	PayoutAccountID  uuid.UUID `gorm:"type:uuid;not null" json:"payout_account_id"`
	PayoutAccountRef string    `gorm:"type:varchar(100);not null" json:"payout_account_ref"`

	Amount   int64          `gorm:"not null" json:"amount"`
	Currency string         `gorm:"type:varchar(3);not null" json:"currency"`
	Status   TransferStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	Reference     string     `gorm:"type:varchar(100);uniqueIndex" json:"reference"`
	ExternalID    string     `gorm:"type:varchar(100)" json:"external_id,omitempty"`
	FailureReason string     `gorm:"type:text" json:"failure_reason,omitempty"`
	PurchaseCount int        `gorm:"default:0" json:"purchase_count"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}
