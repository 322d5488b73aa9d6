package models

import (
	"github.com/google/uuid"
)

// ContractStatus represents the approval state of a contract
type ContractStatus string

const (
	ContractStatusPending  ContractStatus = "PENDING"
	ContractStatusApproved ContractStatus = "APPROVED"
	ContractStatusRejected ContractStatus = "REJECTED"
)

// Contract overrides a project's default commission terms for one marketer.
// Only APPROVED contracts participate in commission computation.
type Contract struct {
	Base
	ProjectID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_contract_project_marketer" json:"project_id"`
	Project    Project        `gorm:"foreignKey:ProjectID" json:"-"`
	MarketerID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_contract_project_marketer" json:"marketer_id"`
	Marketer   User           `gorm:"foreignKey:MarketerID" json:"-"`
	Status     ContractStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`

	// CommissionPercent is a fraction in [0,1], normalized on write
	CommissionPercent float64 `gorm:"type:decimal(10,6);not null" json:"commission_percent"`
	// RefundWindowDays overrides the project default when non-nil
	RefundWindowDays *int `json:"refund_window_days,omitempty"`
}
