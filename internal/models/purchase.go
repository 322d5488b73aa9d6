package models

import (
	"time"

	"github.com/google/uuid"
)

// CommissionStatus is the lifecycle state of a purchase's commission
type CommissionStatus string

const (
	CommissionAwaitingRefundWindow  CommissionStatus = "AWAITING_REFUND_WINDOW"
	CommissionPendingCreatorPayment CommissionStatus = "PENDING_CREATOR_PAYMENT"
	CommissionReadyForPayout        CommissionStatus = "READY_FOR_PAYOUT"
	CommissionPaid                  CommissionStatus = "PAID"
	CommissionRefunded              CommissionStatus = "REFUNDED"
	CommissionChargeback            CommissionStatus = "CHARGEBACK"
)

// Terminal reports whether the status admits no further transitions
func (s CommissionStatus) Terminal() bool {
	switch s {
	case CommissionPaid, CommissionRefunded, CommissionChargeback:
		return true
	case CommissionAwaitingRefundWindow, CommissionPendingCreatorPayment, CommissionReadyForPayout:
		return false
	}
	return false
}

// CanTransition enforces the commission state machine. Refund and chargeback
// are reachable from any non-terminal state; everything else moves forward
// only.
func (s CommissionStatus) CanTransition(to CommissionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case CommissionRefunded, CommissionChargeback:
		return true
	case CommissionPendingCreatorPayment:
		return s == CommissionAwaitingRefundWindow
	case CommissionReadyForPayout:
		return s == CommissionAwaitingRefundWindow || s == CommissionPendingCreatorPayment
	case CommissionPaid:
		return s == CommissionReadyForPayout
	case CommissionAwaitingRefundWindow:
		return false
	}
	return false
}

// PaymentStatus tracks settlement attempts independently of the commission
// lifecycle so failed transfers stay retryable
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// SaleAttribution classifies how a sale was referred
type SaleAttribution string

const (
	AttributionAffiliate SaleAttribution = "affiliate"
	AttributionDirect    SaleAttribution = "direct"
)

// Purchase is one referred or direct sale. Amounts are integer minor units
// (cents).
type Purchase struct {
	Base
	ProjectID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	Project    Project    `gorm:"foreignKey:ProjectID" json:"-"`
	MarketerID *uuid.UUID `gorm:"type:uuid;index" json:"marketer_id,omitempty"`
	Marketer   *User      `gorm:"foreignKey:MarketerID" json:"-"`
	CouponID   *uuid.UUID `gorm:"type:uuid" json:"coupon_id,omitempty"`

	GrossAmount    int64           `gorm:"not null" json:"gross_amount"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	Attribution    SaleAttribution `gorm:"type:varchar(20);not null;default:'direct'" json:"attribution"`
	OccurredAt     time.Time       `gorm:"not null" json:"occurred_at"`
	RefundedAmount int64           `gorm:"default:0" json:"refunded_amount"`

	// CommissionAmount is mutable until settlement; OriginalCommissionAmount
	// is the immutable snapshot taken at ingestion for audit.
	CommissionAmount         int64   `gorm:"not null" json:"commission_amount"`
	OriginalCommissionAmount int64   `gorm:"not null" json:"original_commission_amount"`
	CommissionPercent        float64 `gorm:"type:decimal(10,6);not null" json:"commission_percent"`

	CommissionStatus CommissionStatus `gorm:"type:varchar(30);not null;index" json:"commission_status"`
	PaymentStatus    PaymentStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`

	RefundWindowDays int        `gorm:"not null" json:"refund_window_days"`
	RefundEligibleAt *time.Time `gorm:"index" json:"refund_eligible_at,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
	RefundReason     string     `gorm:"type:text" json:"refund_reason,omitempty"`

	// Settlement linkage, set once the purchase is grouped into a payout
	// attempt
	TransferRecordID   *uuid.UUID `gorm:"type:uuid;index" json:"transfer_record_id,omitempty"`
	ExternalTransferID string     `gorm:"type:varchar(100)" json:"external_transfer_id,omitempty"`

	// Dedup keys for at-most-once ingestion of external sale notifications
	ExternalEventID       string `gorm:"type:varchar(100);index:idx_purchase_event,where:external_event_id <> ''" json:"external_event_id"`
	ExternalTransactionID string `gorm:"type:varchar(100);index:idx_purchase_txn,where:external_transaction_id <> ''" json:"external_transaction_id"`

	Metadata JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}
