package commission

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// ReevaluateRefundWindow advances purchases whose refund window has elapsed
// for one creator. Purchases move to READY_FOR_PAYOUT when the creator has a
// usable payment account, otherwise they are held in PENDING_CREATOR_PAYMENT
// until one is configured. The operation is idempotent and safe to run
// concurrently: each transition is a conditional update keyed on the current
// status, so a racing run simply affects zero rows.
func (s *Service) ReevaluateRefundWindow(ctx context.Context, creatorID uuid.UUID) (int, error) {
	hasAccount, err := s.accounts.HasUsableAccount(creatorID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	advanced := 0

	if hasAccount {
		// Window elapsed and creator can pay: both waiting and held purchases
		// become payable
		res := s.creatorScope(creatorID).
			Where("commission_status IN ?", []models.CommissionStatus{
				models.CommissionAwaitingRefundWindow,
				models.CommissionPendingCreatorPayment,
			}).
			Where("refund_eligible_at IS NOT NULL AND refund_eligible_at <= ?", now).
			Updates(map[string]interface{}{
				"commission_status": models.CommissionReadyForPayout,
				"updated_at":        now,
			})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to advance purchases to ready: %w", res.Error)
		}
		advanced = int(res.RowsAffected)
	} else {
		res := s.creatorScope(creatorID).
			Where("commission_status = ?", models.CommissionAwaitingRefundWindow).
			Where("refund_eligible_at IS NOT NULL AND refund_eligible_at <= ?", now).
			Updates(map[string]interface{}{
				"commission_status": models.CommissionPendingCreatorPayment,
				"updated_at":        now,
			})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to hold purchases pending creator payment: %w", res.Error)
		}
		advanced = int(res.RowsAffected)
	}

	if advanced > 0 {
		log.Printf("Refund window re-evaluation advanced %d purchases for creator %s", advanced, creatorID)
	}
	return advanced, nil
}

// ReevaluateAll runs the refund-window re-evaluation across every creator
// with purchases still awaiting their window or held for payment
func (s *Service) ReevaluateAll(ctx context.Context) (int, error) {
	var creatorIDs []uuid.UUID
	err := s.db.Model(&models.Purchase{}).
		Distinct("projects.creator_id").
		Joins("JOIN projects ON projects.id = purchases.project_id").
		Where("purchases.commission_status IN ?", []models.CommissionStatus{
			models.CommissionAwaitingRefundWindow,
			models.CommissionPendingCreatorPayment,
		}).
		Pluck("projects.creator_id", &creatorIDs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list creators with gated purchases: %w", err)
	}

	total := 0
	for _, creatorID := range creatorIDs {
		n, err := s.ReevaluateRefundWindow(ctx, creatorID)
		if err != nil {
			// One creator's failure must not block the rest
			log.Printf("Refund window re-evaluation failed for creator %s: %v", creatorID, err)
			continue
		}
		total += n
	}
	return total, nil
}

func (s *Service) creatorScope(creatorID uuid.UUID) *gorm.DB {
	return s.db.Model(&models.Purchase{}).
		Where("project_id IN (?)", s.db.Model(&models.Project{}).Select("id").Where("creator_id = ?", creatorID))
}
