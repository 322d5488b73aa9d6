package account

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// Resolver looks up connected external payment accounts. Marketers need one
// as a transfer destination; creators need one before their commissions
// become payable at all.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a new account resolver
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// DestinationFor returns the marketer's active payout account, or nil when
// none is connected
func (r *Resolver) DestinationFor(marketerID uuid.UUID) (*models.PayoutAccount, error) {
	var acct models.PayoutAccount
	err := r.db.
		Where("user_id = ? AND status = ?", marketerID, models.PayoutAccountActive).
		Order("created_at").
		First(&acct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve payout account: %w", err)
	}
	return &acct, nil
}

// HasUsableAccount reports whether the user has any active payment account
func (r *Resolver) HasUsableAccount(userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.PayoutAccount{}).
		Where("user_id = ? AND status = ?", userID, models.PayoutAccountActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count payout accounts: %w", err)
	}
	return count > 0, nil
}
