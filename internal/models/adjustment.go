package models

import (
	"time"

	"github.com/google/uuid"
)

// AdjustmentStatus represents the lifecycle of a manual adjustment
type AdjustmentStatus string

const (
	AdjustmentStatusPending AdjustmentStatus = "PENDING"
	AdjustmentStatusApplied AdjustmentStatus = "APPLIED"
)

// CommissionAdjustment is a manual credit or debit against a marketer's owed
// balance, scoped to (creator, marketer, currency). It is netted into the
// next payout for that scope and applied exactly once, atomically with it.
type CommissionAdjustment struct {
	Base
	CreatorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"creator_id"`
	Creator    User      `gorm:"foreignKey:CreatorID" json:"-"`
	MarketerID uuid.UUID `gorm:"type:uuid;not null;index" json:"marketer_id"`
	Marketer   User      `gorm:"foreignKey:MarketerID" json:"-"`

	// Amount is signed minor units: positive credits the marketer, negative
	// debits them
	Amount   int64            `gorm:"not null" json:"amount"`
	Currency string           `gorm:"type:varchar(3);not null" json:"currency"`
	Reason   string           `gorm:"type:text" json:"reason"`
	Status   AdjustmentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	TransferRecordID *uuid.UUID `gorm:"type:uuid" json:"transfer_record_id,omitempty"`
	AppliedAt        *time.Time `json:"applied_at,omitempty"`
}
