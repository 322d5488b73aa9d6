package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MilestoneType is the cumulative metric a reward threshold applies to
type MilestoneType string

const (
	MilestoneNetRevenue     MilestoneType = "NET_REVENUE"
	MilestoneCompletedSales MilestoneType = "COMPLETED_SALES"
	MilestoneClicks         MilestoneType = "CLICKS"
	MilestoneInstalls       MilestoneType = "INSTALLS"
)

// RewardType distinguishes cash rewards from in-kind ones
type RewardType string

const (
	RewardTypeCash   RewardType = "CASH"
	RewardTypeCustom RewardType = "CUSTOM"
)

// EarnLimit caps how many times one marketer can earn a reward
type EarnLimit string

const (
	EarnOncePerMarketer EarnLimit = "ONCE_PER_MARKETER"
	EarnMultiple        EarnLimit = "MULTIPLE"
)

// Availability caps how many distinct marketers can earn a reward
type Availability string

const (
	AvailabilityUnlimited Availability = "UNLIMITED"
	AvailabilityFirstN    Availability = "FIRST_N"
)

// RewardStatus is the lifecycle state of a reward definition
type RewardStatus string

const (
	RewardStatusDraft    RewardStatus = "DRAFT"
	RewardStatusActive   RewardStatus = "ACTIVE"
	RewardStatusPaused   RewardStatus = "PAUSED"
	RewardStatusArchived RewardStatus = "ARCHIVED"
)

// Reward is a milestone bonus definition owned by a project
type Reward struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   Project   `gorm:"foreignKey:ProjectID" json:"-"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex" json:"slug"`

	MilestoneType  MilestoneType `gorm:"type:varchar(30);not null" json:"milestone_type"`
	MilestoneValue int64         `gorm:"not null" json:"milestone_value"`

	RewardType RewardType `gorm:"type:varchar(20);not null;default:'CASH'" json:"reward_type"`
	// Amount/Currency apply to cash rewards and are snapshotted onto each
	// grant
	Amount      int64  `gorm:"default:0" json:"amount"`
	Currency    string `gorm:"type:varchar(3)" json:"currency"`
	Description string `gorm:"type:text" json:"description"`

	EarnLimit       EarnLimit    `gorm:"type:varchar(30);not null;default:'ONCE_PER_MARKETER'" json:"earn_limit"`
	Availability    Availability `gorm:"type:varchar(20);not null;default:'UNLIMITED'" json:"availability"`
	AvailabilityCap int          `gorm:"default:0" json:"availability_cap"`

	// AllowedMarketers restricts eligibility to the listed marketer ids when
	// non-empty
	AllowedMarketers JSON `gorm:"type:jsonb" json:"allowed_marketers,omitempty"`

	Status   RewardStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	StartsAt time.Time    `gorm:"not null" json:"starts_at"`
}

// BeforeCreate derives the slug from the reward name when not supplied
func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if err := r.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if r.Slug == "" {
		r.Slug = slug.Make(r.Name) + "-" + r.ID.String()[:8]
	}
	return nil
}

// AllowsMarketer reports whether the marketer passes the reward's allow-list
func (r *Reward) AllowsMarketer(marketerID uuid.UUID) bool {
	raw, ok := r.AllowedMarketers["marketer_ids"]
	if !ok {
		return true
	}
	ids, ok := raw.([]interface{})
	if !ok || len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if s, ok := id.(string); ok && s == marketerID.String() {
			return true
		}
	}
	return false
}

// RewardEarnedStatus is the lifecycle state of one grant
type RewardEarnedStatus string

const (
	RewardEarnedUnlocked RewardEarnedStatus = "UNLOCKED"
	RewardEarnedClaimed  RewardEarnedStatus = "CLAIMED"
	RewardEarnedPaid     RewardEarnedStatus = "PAID"
)

// RewardEarned is one grant of a reward to one marketer. Rows are immutable
// once created; claiming and paying only advance the status.
type RewardEarned struct {
	Base
	RewardID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reward_earned_seq" json:"reward_id"`
	Reward     Reward    `gorm:"foreignKey:RewardID" json:"-"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	MarketerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reward_earned_seq" json:"marketer_id"`
	Marketer   User      `gorm:"foreignKey:MarketerID" json:"-"`

	// Sequence is which repetition this grant is, starting at 1
	Sequence int `gorm:"not null;uniqueIndex:idx_reward_earned_seq" json:"sequence"`

	Status RewardEarnedStatus `gorm:"type:varchar(20);not null;default:'UNLOCKED'" json:"status"`
	// Snapshot of the reward's cash value at grant time
	Amount   int64  `gorm:"default:0" json:"amount"`
	Currency string `gorm:"type:varchar(3)" json:"currency"`

	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}
