package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// RecordRefund applies an external refund or chargeback to a purchase. The
// transition is terminal; a purchase already in a terminal state is left
// unchanged and returned as-is, which makes duplicate refund notifications
// no-ops.
func (s *Service) RecordRefund(ctx context.Context, ev RefundEvent) (*models.Purchase, error) {
	purchase, err := s.findRefundTarget(ev)
	if err != nil {
		return nil, err
	}

	if purchase.CommissionStatus.Terminal() {
		return purchase, nil
	}

	target := models.CommissionRefunded
	auditType := models.AuditEventPurchaseRefunded
	if ev.Chargeback {
		target = models.CommissionChargeback
		auditType = models.AuditEventPurchaseChargeback
	}
	if !purchase.CommissionStatus.CanTransition(target) {
		return nil, fmt.Errorf("invalid transition from %s to %s for purchase %s", purchase.CommissionStatus, target, purchase.ID)
	}

	refundedAmount := purchase.GrossAmount
	if ev.Amount != nil && *ev.Amount > 0 {
		refundedAmount = *ev.Amount
	}

	now := time.Now()
	res := s.db.Model(&models.Purchase{}).
		Where("id = ? AND commission_status = ?", purchase.ID, purchase.CommissionStatus).
		Updates(map[string]interface{}{
			"commission_status": target,
			"refunded_amount":   refundedAmount,
			"refunded_at":       now,
			"refund_reason":     ev.Reason,
			"updated_at":        now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record refund: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent transition won; reload and report the persisted state
		var current models.Purchase
		if err := s.db.First(&current, "id = ?", purchase.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to reload purchase after refund race: %w", err)
		}
		return &current, nil
	}

	purchase.CommissionStatus = target
	purchase.RefundedAmount = refundedAmount
	purchase.RefundedAt = &now
	purchase.RefundReason = ev.Reason

	s.audit.Record(auditType, nil, &purchase.ProjectID, "purchase", purchase.ID.String(), map[string]interface{}{
		"refunded_amount": refundedAmount,
		"reason":          ev.Reason,
		"chargeback":      ev.Chargeback,
	})

	return purchase, nil
}

func (s *Service) findRefundTarget(ev RefundEvent) (*models.Purchase, error) {
	var purchase models.Purchase
	var err error

	switch {
	case ev.PurchaseID != nil:
		err = s.db.First(&purchase, "id = ?", *ev.PurchaseID).Error
	case ev.TransactionID != "":
		err = s.db.
			Where("project_id = ? AND external_transaction_id = ?", ev.ProjectID, ev.TransactionID).
			First(&purchase).Error
	default:
		return nil, fmt.Errorf("purchase id or transaction id is required")
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("purchase not found for refund event")
		}
		return nil, fmt.Errorf("failed to find purchase: %w", err)
	}
	return &purchase, nil
}
