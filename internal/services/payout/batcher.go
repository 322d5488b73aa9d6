package payout

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/account"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/commission"
	"github.com/partnerpay/backend/internal/services/notify"
	"gorm.io/gorm"
)

// TransferClient issues transfers against the external payment processor.
// The idempotency key is always the transfer-record id, so a retried call for
// the same record cannot double-pay.
type TransferClient interface {
	IssueTransfer(ctx context.Context, destination string, amount int64, currency string, idempotencyKey string, metadata map[string]string) (string, error)
}

// GroupKey identifies one payout group: one destination account in one
// currency
type GroupKey struct {
	AccountID uuid.UUID
	Currency  string
}

// Group outcomes reported per settlement group
const (
	OutcomePaid    = "PAID"
	OutcomeFailed  = "FAILED"
	OutcomeSkipped = "SKIPPED"
)

// GroupResult is the per-group settlement report entry returned to the caller
type GroupResult struct {
	MarketerID    uuid.UUID `json:"marketer_id"`
	Currency      string    `json:"currency"`
	PurchaseCount int       `json:"purchase_count"`
	Amount        int64     `json:"amount"`
	Outcome       string    `json:"outcome"`
	TransferID    string    `json:"transfer_id,omitempty"`
	ExternalID    string    `json:"external_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// Batcher settles accumulated commissions for one creator into batched
// transfers. Groups are processed independently: one group's failure never
// aborts or rolls back another.
type Batcher struct {
	db         *gorm.DB
	commission *commission.Service
	accounts   *account.Resolver
	client     TransferClient
	audit      *audit.Logger
	notifier   *notify.Service
}

// NewBatcher creates a new payout batcher
func NewBatcher(db *gorm.DB, commissionSvc *commission.Service, accounts *account.Resolver, client TransferClient, auditLogger *audit.Logger, notifier *notify.Service) *Batcher {
	return &Batcher{
		db:         db,
		commission: commissionSvc,
		accounts:   accounts,
		client:     client,
		audit:      auditLogger,
		notifier:   notifier,
	}
}

type payoutGroup struct {
	account     *models.PayoutAccount
	marketerID  uuid.UUID
	purchases   []models.Purchase
	total       int64
	adjustments []models.CommissionAdjustment
	adjTotal    int64
}

// Run executes one settlement pass for a creator and returns the per-group
// report
func (b *Batcher) Run(ctx context.Context, creatorID uuid.UUID) ([]GroupResult, error) {
	// Step 1: catch up any purchases whose refund window elapsed since the
	// last pass
	if _, err := b.commission.ReevaluateRefundWindow(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("failed refund window catch-up: %w", err)
	}

	candidates, err := b.selectCandidates(creatorID)
	if err != nil {
		return nil, err
	}

	groups, skipped, err := b.buildGroups(creatorID, candidates)
	if err != nil {
		return nil, err
	}

	results := make([]GroupResult, 0, len(groups)+len(skipped))
	results = append(results, skipped...)

	for key, group := range groups {
		results = append(results, b.settleGroup(ctx, creatorID, key, group))
	}

	log.Printf("Payout run for creator %s settled %d groups", creatorID, len(results))
	return results, nil
}

// selectCandidates returns payout-eligible purchases: ready for payout, not
// yet paid (failed attempts are retried), owing a positive commission, and
// not linked to an in-flight transfer
func (b *Batcher) selectCandidates(creatorID uuid.UUID) ([]models.Purchase, error) {
	var candidates []models.Purchase
	err := b.db.
		Joins("JOIN projects ON projects.id = purchases.project_id").
		Where("projects.creator_id = ?", creatorID).
		Where("purchases.commission_status = ?", models.CommissionReadyForPayout).
		Where("purchases.payment_status IN ?", []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Where("purchases.commission_amount > 0").
		Where("purchases.marketer_id IS NOT NULL").
		Where("purchases.transfer_record_id IS NULL OR purchases.payment_status = ?", models.PaymentStatusFailed).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select payout candidates: %w", err)
	}
	return candidates, nil
}

// buildGroups groups candidates by (destination account, currency) and nets
// in pending adjustments for the same key. Candidates without a resolvable
// destination are reported as skipped.
func (b *Batcher) buildGroups(creatorID uuid.UUID, candidates []models.Purchase) (map[GroupKey]*payoutGroup, []GroupResult, error) {
	groups := make(map[GroupKey]*payoutGroup)
	destinations := make(map[uuid.UUID]*models.PayoutAccount)
	var skipped []GroupResult
	noAccount := make(map[uuid.UUID]int)

	for i := range candidates {
		p := candidates[i]
		marketerID := *p.MarketerID

		acct, ok := destinations[marketerID]
		if !ok {
			var err error
			acct, err = b.accounts.DestinationFor(marketerID)
			if err != nil {
				return nil, nil, err
			}
			destinations[marketerID] = acct
		}
		if acct == nil {
			noAccount[marketerID]++
			continue
		}

		key := GroupKey{AccountID: acct.ID, Currency: p.Currency}
		group, ok := groups[key]
		if !ok {
			group = &payoutGroup{account: acct, marketerID: marketerID}
			groups[key] = group
		}
		group.purchases = append(group.purchases, p)
		group.total += p.CommissionAmount
	}

	for marketerID, count := range noAccount {
		skipped = append(skipped, GroupResult{
			MarketerID:    marketerID,
			PurchaseCount: count,
			Outcome:       OutcomeSkipped,
			Reason:        "no destination payout account connected",
		})
	}

	var adjustments []models.CommissionAdjustment
	err := b.db.
		Where("creator_id = ? AND status = ?", creatorID, models.AdjustmentStatusPending).
		Find(&adjustments).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select pending adjustments: %w", err)
	}

	for i := range adjustments {
		adj := adjustments[i]
		acct, ok := destinations[adj.MarketerID]
		if !ok {
			acct, err = b.accounts.DestinationFor(adj.MarketerID)
			if err != nil {
				return nil, nil, err
			}
			destinations[adj.MarketerID] = acct
		}
		if acct == nil {
			continue
		}
		key := GroupKey{AccountID: acct.ID, Currency: adj.Currency}
		group, ok := groups[key]
		if !ok {
			// Adjustments net against owed commission; with no candidate
			// purchases for this key there is nothing to net into
			continue
		}
		group.adjustments = append(group.adjustments, adj)
		group.adjTotal += adj.Amount
	}

	return groups, skipped, nil
}
