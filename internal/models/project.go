package models

import (
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Project is a revenue source owned by a creator. Its defaults apply to any
// marketer without an approved contract override.
type Project struct {
	Base
	CreatorID uuid.UUID `gorm:"type:uuid;not null;index" json:"creator_id"`
	Creator   User      `gorm:"foreignKey:CreatorID" json:"-"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex" json:"slug"`

	// DefaultCommissionPercent is a fraction in [0,1]. Legacy percent values
	// (>1) are normalized on write, never on read.
	DefaultCommissionPercent float64 `gorm:"type:decimal(10,6);default:0" json:"default_commission_percent"`
	DefaultRefundWindowDays  int     `gorm:"default:0" json:"default_refund_window_days"`
}

// BeforeCreate derives the slug from the project name when not supplied
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if err := p.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name) + "-" + p.ID.String()[:8]
	}
	return nil
}

// Coupon attributes a sale to a marketer when the event carries no marketer id
type Coupon struct {
	Base
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_coupon_project_code" json:"project_id"`
	Project    Project   `gorm:"foreignKey:ProjectID" json:"-"`
	MarketerID uuid.UUID `gorm:"type:uuid;not null;index" json:"marketer_id"`
	Marketer   User      `gorm:"foreignKey:MarketerID" json:"-"`
	Code       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_coupon_project_code" json:"code"`
}
