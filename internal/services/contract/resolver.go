package contract

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// Terms are the effective commission terms for one (project, marketer) pair
type Terms struct {
	CommissionPercent float64
	RefundWindowDays  int
}

// Resolver resolves effective commission terms. Resolution order: approved
// contract override, then project defaults, then the configured fallback
// refund window.
type Resolver struct {
	db                 *gorm.DB
	fallbackWindowDays int
}

// NewResolver creates a new contract resolver
func NewResolver(db *gorm.DB, fallbackWindowDays int) *Resolver {
	if fallbackWindowDays <= 0 {
		fallbackWindowDays = 30
	}
	return &Resolver{db: db, fallbackWindowDays: fallbackWindowDays}
}

// NormalizePercent converts a commission percent to a fraction in [0,1].
// Legacy callers supply percentages in 0-100; anything above 1 is divided by
// 100. This runs once at the write boundary and nowhere else.
func NormalizePercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		p = p / 100
	}
	if p > 1 {
		return 1
	}
	return p
}

// ResolveTerms returns the effective commission percent and refund window for
// a sale on the given project attributed to the given marketer. A nil
// marketer yields zero commission with the project's refund window.
func (r *Resolver) ResolveTerms(projectID uuid.UUID, marketerID *uuid.UUID) (*Terms, error) {
	var project models.Project
	if err := r.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown project %s", projectID)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	terms := &Terms{
		CommissionPercent: NormalizePercent(project.DefaultCommissionPercent),
		RefundWindowDays:  project.DefaultRefundWindowDays,
	}
	if terms.RefundWindowDays <= 0 {
		terms.RefundWindowDays = r.fallbackWindowDays
	}

	if marketerID == nil {
		terms.CommissionPercent = 0
		return terms, nil
	}

	var c models.Contract
	err := r.db.
		Where("project_id = ? AND marketer_id = ? AND status = ?", projectID, *marketerID, models.ContractStatusApproved).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return terms, nil
		}
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}

	terms.CommissionPercent = NormalizePercent(c.CommissionPercent)
	if c.RefundWindowDays != nil && *c.RefundWindowDays > 0 {
		terms.RefundWindowDays = *c.RefundWindowDays
	}
	return terms, nil
}
