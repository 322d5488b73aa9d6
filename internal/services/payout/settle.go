package payout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/notify"
	"github.com/partnerpay/backend/internal/utils"
	"gorm.io/gorm"
)

// settleGroup settles one payout group end to end. Any failure is converted
// into the group's result entry; it never propagates to sibling groups.
func (b *Batcher) settleGroup(ctx context.Context, creatorID uuid.UUID, key GroupKey, group *payoutGroup) GroupResult {
	result := GroupResult{
		MarketerID:    group.marketerID,
		Currency:      key.Currency,
		PurchaseCount: len(group.purchases),
	}

	// Step 5: a non-positive net amount issues no transfer. Adjustments stay
	// pending until future commissions accrue.
	net := group.total + group.adjTotal
	result.Amount = net
	if net <= 0 {
		result.Outcome = OutcomeSkipped
		result.Reason = fmt.Sprintf("net amount %d is not positive after adjustments", net)
		return result
	}

	// Step 6: durable PENDING transfer first, so a crash mid-call leaves a
	// traceable record
	transfer := models.Transfer{
		CreatorID:        creatorID,
		MarketerID:       group.marketerID,
		PayoutAccountID:  group.account.ID,
		PayoutAccountRef: group.account.AccountRef,
		Amount:           net,
		Currency:         key.Currency,
		Status:           models.TransferStatusPending,
		Reference:        utils.GenerateReference("TRF"),
		PurchaseCount:    len(group.purchases),
	}
	if err := b.db.Create(&transfer).Error; err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = fmt.Sprintf("failed to create transfer record: %v", err)
		return result
	}
	result.TransferID = transfer.ID.String()

	claimed, err := b.claimPurchases(&transfer, group)
	if err != nil {
		b.resolveTransferFailed(&transfer, err.Error())
		result.Outcome = OutcomeFailed
		result.Reason = err.Error()
		return result
	}
	if claimed == 0 {
		// A concurrent run for the same creator claimed every purchase first
		b.resolveTransferFailed(&transfer, "purchases already claimed by a concurrent run")
		result.Outcome = OutcomeSkipped
		result.Reason = "purchases already claimed by a concurrent run"
		return result
	}

	externalID, err := b.client.IssueTransfer(ctx, group.account.AccountRef, net, key.Currency, transfer.ID.String(), map[string]string{
		"creator_id":  creatorID.String(),
		"marketer_id": group.marketerID.String(),
		"reference":   transfer.Reference,
	})
	if err != nil {
		b.markGroupFailed(&transfer, group, err)
		result.Outcome = OutcomeFailed
		result.Reason = err.Error()
		return result
	}

	if err := b.applySuccess(&transfer, group, externalID); err != nil {
		// The external transfer went through; surface the bookkeeping failure
		// loudly but keep the money trail on the transfer row
		log.Printf("Transfer %s succeeded externally but settlement bookkeeping failed: %v", transfer.ID, err)
		result.Outcome = OutcomeFailed
		result.Reason = fmt.Sprintf("transfer issued (external id %s) but settlement update failed: %v", externalID, err)
		result.ExternalID = externalID
		return result
	}

	result.Outcome = OutcomePaid
	result.ExternalID = externalID
	return result
}

// claimPurchases links the group's purchases to the transfer record with a
// conditional update, so a concurrent run for the same creator cannot claim
// the same rows
func (b *Batcher) claimPurchases(transfer *models.Transfer, group *payoutGroup) (int, error) {
	ids := make([]uuid.UUID, len(group.purchases))
	for i := range group.purchases {
		ids[i] = group.purchases[i].ID
	}

	res := b.db.Model(&models.Purchase{}).
		Where("id IN ?", ids).
		Where("commission_status = ?", models.CommissionReadyForPayout).
		Where("payment_status IN ?", []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Where("transfer_record_id IS NULL OR payment_status = ?", models.PaymentStatusFailed).
		Updates(map[string]interface{}{
			"transfer_record_id": transfer.ID,
			"payment_status":     models.PaymentStatusPending,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to claim purchases for transfer: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// applySuccess marks the transfer, its purchases, and the netted adjustments
// settled in one transaction
func (b *Batcher) applySuccess(transfer *models.Transfer, group *payoutGroup, externalID string) error {
	now := time.Now()

	err := b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(transfer).Updates(map[string]interface{}{
			"status":      models.TransferStatusPaid,
			"external_id": externalID,
			"resolved_at": now,
			"updated_at":  now,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark transfer paid: %w", err)
		}

		if err := tx.Model(&models.Purchase{}).
			Where("transfer_record_id = ?", transfer.ID).
			Updates(map[string]interface{}{
				"commission_status":    models.CommissionPaid,
				"payment_status":       models.PaymentStatusPaid,
				"external_transfer_id": externalID,
				"updated_at":           now,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark purchases paid: %w", err)
		}

		if len(group.adjustments) > 0 {
			adjIDs := make([]uuid.UUID, len(group.adjustments))
			for i := range group.adjustments {
				adjIDs[i] = group.adjustments[i].ID
			}
			res := tx.Model(&models.CommissionAdjustment{}).
				Where("id IN ? AND status = ?", adjIDs, models.AdjustmentStatusPending).
				Updates(map[string]interface{}{
					"status":             models.AdjustmentStatusApplied,
					"transfer_record_id": transfer.ID,
					"applied_at":         now,
					"updated_at":         now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to apply adjustments: %w", res.Error)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.audit.Record(models.AuditEventTransferIssued, nil, nil, "transfer", transfer.ID.String(), map[string]interface{}{
		"amount":         transfer.Amount,
		"currency":       transfer.Currency,
		"external_id":    externalID,
		"purchase_count": transfer.PurchaseCount,
		"marketer_id":    transfer.MarketerID.String(),
	})
	for i := range group.adjustments {
		b.audit.Record(models.AuditEventAdjustmentApplied, nil, nil, "commission_adjustment", group.adjustments[i].ID.String(), map[string]interface{}{
			"amount":      group.adjustments[i].Amount,
			"transfer_id": transfer.ID.String(),
		})
	}

	b.notifier.Notify(transfer.CreatorID, notify.TypePayoutSent,
		"Payout sent",
		fmt.Sprintf("A payout of %d %s was sent for %d purchases", transfer.Amount, transfer.Currency, transfer.PurchaseCount),
		map[string]interface{}{"transfer_id": transfer.ID.String()})
	b.notifier.Notify(transfer.MarketerID, notify.TypePayoutReceived,
		"Payout on its way",
		fmt.Sprintf("Your commission payout of %d %s has been issued", transfer.Amount, transfer.Currency),
		map[string]interface{}{"transfer_id": transfer.ID.String()})

	return nil
}

// markGroupFailed records a failed external call: the transfer is FAILED with
// the reason, the purchases' payment status is FAILED so they reappear as
// candidates next run, and their commission status stays untouched
func (b *Batcher) markGroupFailed(transfer *models.Transfer, group *payoutGroup, cause error) {
	b.resolveTransferFailed(transfer, cause.Error())

	now := time.Now()
	if err := b.db.Model(&models.Purchase{}).
		Where("transfer_record_id = ?", transfer.ID).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusFailed,
			"updated_at":     now,
		}).Error; err != nil {
		log.Printf("Failed to mark purchases failed for transfer %s: %v", transfer.ID, err)
	}

	b.audit.Record(models.AuditEventTransferFailed, nil, nil, "transfer", transfer.ID.String(), map[string]interface{}{
		"amount":   transfer.Amount,
		"currency": transfer.Currency,
		"reason":   cause.Error(),
	})
}

func (b *Batcher) resolveTransferFailed(transfer *models.Transfer, reason string) {
	now := time.Now()
	if err := b.db.Model(transfer).Updates(map[string]interface{}{
		"status":         models.TransferStatusFailed,
		"failure_reason": reason,
		"resolved_at":    now,
		"updated_at":     now,
	}).Error; err != nil {
		log.Printf("Failed to mark transfer %s failed: %v", transfer.ID, err)
	}
}

// ListStuckTransfers returns transfers still PENDING after the given age.
// These mark a crash between record creation and call resolution and need
// manual reconciliation; they are never re-issued automatically.
func (b *Batcher) ListStuckTransfers(ctx context.Context, olderThan time.Duration) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := b.db.
		Where("status = ? AND created_at < ?", models.TransferStatusPending, time.Now().Add(-olderThan)).
		Order("created_at").
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck transfers: %w", err)
	}
	return transfers, nil
}
