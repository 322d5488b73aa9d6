package models

import (
	"github.com/google/uuid"
)

// AuditEventType represents the type of a domain audit event
type AuditEventType string

const (
	AuditEventPurchaseCreated    AuditEventType = "PURCHASE_CREATED"
	AuditEventPurchaseRefunded   AuditEventType = "PURCHASE_REFUNDED"
	AuditEventPurchaseChargeback AuditEventType = "PURCHASE_CHARGEBACK"
	AuditEventCommissionReady    AuditEventType = "COMMISSION_READY"
	AuditEventRewardGranted      AuditEventType = "REWARD_GRANTED"
	AuditEventTransferIssued     AuditEventType = "TRANSFER_ISSUED"
	AuditEventTransferFailed     AuditEventType = "TRANSFER_FAILED"
	AuditEventAdjustmentApplied  AuditEventType = "ADJUSTMENT_APPLIED"
)

// AuditEvent is an append-only record of a money-moving action. Writing one
// must never block or fail the action it describes.
type AuditEvent struct {
	Base
	Type        AuditEventType `gorm:"type:varchar(50);not null;index" json:"type"`
	ActorID     *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	ProjectID   *uuid.UUID     `gorm:"type:uuid;index" json:"project_id,omitempty"`
	SubjectType string         `gorm:"type:varchar(50);not null" json:"subject_type"`
	SubjectID   string         `gorm:"type:varchar(100);not null;index" json:"subject_id"`
	Data        JSON           `gorm:"type:jsonb" json:"data,omitempty"`
}
