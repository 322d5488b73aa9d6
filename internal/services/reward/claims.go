package reward

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// Claim moves a grant from UNLOCKED to CLAIMED for its owning marketer
func (e *Evaluator) Claim(rewardEarnedID, marketerID uuid.UUID) (*models.RewardEarned, error) {
	return e.advanceGrant(rewardEarnedID, marketerID, models.RewardEarnedUnlocked, models.RewardEarnedClaimed)
}

// MarkPaid moves a grant from CLAIMED to PAID
func (e *Evaluator) MarkPaid(rewardEarnedID, marketerID uuid.UUID) (*models.RewardEarned, error) {
	return e.advanceGrant(rewardEarnedID, marketerID, models.RewardEarnedClaimed, models.RewardEarnedPaid)
}

// advanceGrant performs a conditional status update so a concurrent claim of
// the same grant affects zero rows instead of double-advancing
func (e *Evaluator) advanceGrant(rewardEarnedID, marketerID uuid.UUID, from, to models.RewardEarnedStatus) (*models.RewardEarned, error) {
	var earned models.RewardEarned
	err := e.db.First(&earned, "id = ? AND marketer_id = ?", rewardEarnedID, marketerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reward grant not found")
		}
		return nil, fmt.Errorf("failed to load reward grant: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case models.RewardEarnedClaimed:
		updates["claimed_at"] = now
	case models.RewardEarnedPaid:
		updates["paid_at"] = now
	}

	res := e.db.Model(&models.RewardEarned{}).
		Where("id = ? AND status = ?", rewardEarnedID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update reward grant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("reward grant is not %s", from)
	}

	if err := e.db.First(&earned, "id = ?", rewardEarnedID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload reward grant: %w", err)
	}
	return &earned, nil
}
