package commission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/cache"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/account"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/contract"
	"gorm.io/gorm"
)

const dedupTTL = 48 * time.Hour

// Service owns the commission lifecycle of purchases: ingestion, refund
// window gating, and refund/chargeback handling
type Service struct {
	db       *gorm.DB
	cache    *cache.Client
	resolver *contract.Resolver
	accounts *account.Resolver
	audit    *audit.Logger
}

// NewService creates a new commission service
func NewService(db *gorm.DB, c *cache.Client, resolver *contract.Resolver, accounts *account.Resolver, auditLogger *audit.Logger) *Service {
	return &Service{
		db:       db,
		cache:    c,
		resolver: resolver,
		accounts: accounts,
		audit:    auditLogger,
	}
}

// SaleEvent is an inbound sale notification from the external billing source
type SaleEvent struct {
	EventID       string     `json:"event_id"`
	TransactionID string     `json:"transaction_id"`
	ProjectID     uuid.UUID  `json:"project_id"`
	MarketerID    *uuid.UUID `json:"marketer_id,omitempty"`
	CouponCode    string     `json:"coupon_code,omitempty"`
	GrossAmount   int64      `json:"gross_amount"`
	Currency      string     `json:"currency"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// RefundEvent is an inbound refund or chargeback notification
type RefundEvent struct {
	PurchaseID    *uuid.UUID `json:"purchase_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ProjectID     uuid.UUID  `json:"project_id"`
	Amount        *int64     `json:"amount,omitempty"`
	Reason        string     `json:"reason"`
	Chargeback    bool       `json:"chargeback"`
}

// IngestSale creates a Purchase from an inbound sale event. Ingestion is
// at-most-once: a duplicate event or transaction id within the project
// returns the existing purchase unchanged.
func (s *Service) IngestSale(ctx context.Context, ev SaleEvent) (*models.Purchase, bool, error) {
	if ev.GrossAmount < 0 {
		return nil, false, fmt.Errorf("gross amount must not be negative")
	}
	if ev.Currency == "" {
		return nil, false, fmt.Errorf("currency is required")
	}
	if ev.EventID == "" && ev.TransactionID == "" {
		return nil, false, fmt.Errorf("event id or transaction id is required")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	// Redis fast path; the database lookup below stays authoritative
	dedupKey := fmt.Sprintf("sale:%s:%s:%s", ev.ProjectID, ev.EventID, ev.TransactionID)
	cacheHit := s.cache.SeenEvent(ctx, dedupKey, dedupTTL)

	if existing, err := s.findExisting(ev); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}
	if cacheHit {
		log.Printf("Dedup cache hit without matching purchase for event %s, continuing with database state", ev.EventID)
	}

	marketerID, couponID, err := s.resolveMarketer(ev)
	if err != nil {
		return nil, false, err
	}

	terms, err := s.resolver.ResolveTerms(ev.ProjectID, marketerID)
	if err != nil {
		return nil, false, err
	}

	commissionAmount, attribution := contract.ComputeCommission(ev.GrossAmount, terms, marketerID != nil)
	refundEligibleAt := ev.OccurredAt.AddDate(0, 0, terms.RefundWindowDays)

	purchase := models.Purchase{
		ProjectID:                ev.ProjectID,
		MarketerID:               marketerID,
		CouponID:                 couponID,
		GrossAmount:              ev.GrossAmount,
		Currency:                 ev.Currency,
		Attribution:              attribution,
		OccurredAt:               ev.OccurredAt,
		CommissionAmount:         commissionAmount,
		OriginalCommissionAmount: commissionAmount,
		CommissionPercent:        terms.CommissionPercent,
		CommissionStatus:         initialStatus(commissionAmount, refundEligibleAt),
		PaymentStatus:            models.PaymentStatusPending,
		RefundWindowDays:         terms.RefundWindowDays,
		RefundEligibleAt:         &refundEligibleAt,
		ExternalEventID:          ev.EventID,
		ExternalTransactionID:    ev.TransactionID,
	}

	if err := s.db.Create(&purchase).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create purchase: %w", err)
	}

	s.audit.Record(models.AuditEventPurchaseCreated, nil, &purchase.ProjectID, "purchase", purchase.ID.String(), map[string]interface{}{
		"gross_amount":      purchase.GrossAmount,
		"commission_amount": purchase.CommissionAmount,
		"currency":          purchase.Currency,
		"commission_status": string(purchase.CommissionStatus),
		"attribution":       string(purchase.Attribution),
	})

	return &purchase, true, nil
}

// initialStatus decides where a fresh purchase enters the state machine
func initialStatus(commissionAmount int64, refundEligibleAt time.Time) models.CommissionStatus {
	if commissionAmount <= 0 {
		// Nothing owed
		return models.CommissionPaid
	}
	if !time.Now().Before(refundEligibleAt) {
		return models.CommissionPendingCreatorPayment
	}
	return models.CommissionAwaitingRefundWindow
}

func (s *Service) findExisting(ev SaleEvent) (*models.Purchase, error) {
	query := s.db.Where("project_id = ?", ev.ProjectID)
	switch {
	case ev.EventID != "" && ev.TransactionID != "":
		query = query.Where("external_event_id = ? OR external_transaction_id = ?", ev.EventID, ev.TransactionID)
	case ev.EventID != "":
		query = query.Where("external_event_id = ?", ev.EventID)
	default:
		query = query.Where("external_transaction_id = ?", ev.TransactionID)
	}

	var existing models.Purchase
	err := query.First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to check for existing purchase: %w", err)
}

func (s *Service) resolveMarketer(ev SaleEvent) (*uuid.UUID, *uuid.UUID, error) {
	if ev.MarketerID != nil {
		return ev.MarketerID, nil, nil
	}
	if ev.CouponCode == "" {
		return nil, nil, nil
	}

	var coupon models.Coupon
	err := s.db.Where("project_id = ? AND code = ?", ev.ProjectID, ev.CouponCode).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown coupon: the sale still counts, unattributed
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to look up coupon: %w", err)
	}
	return &coupon.MarketerID, &coupon.ID, nil
}

// IngestAttribution stores a raw click or install event for the milestone
// evaluator. Duplicate external ids within a project are no-ops.
func (s *Service) IngestAttribution(ctx context.Context, projectID, marketerID uuid.UUID, kind models.AttributionKind, externalEventID string, occurredAt time.Time) (*models.AttributionEvent, bool, error) {
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	if externalEventID != "" {
		var existing models.AttributionEvent
		err := s.db.Where("project_id = ? AND external_event_id = ?", projectID, externalEventID).First(&existing).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to check for existing attribution event: %w", err)
		}
	}

	event := models.AttributionEvent{
		ProjectID:       projectID,
		MarketerID:      marketerID,
		Kind:            kind,
		ExternalEventID: externalEventID,
		OccurredAt:      occurredAt,
	}
	if err := s.db.Create(&event).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create attribution event: %w", err)
	}
	return &event, true, nil
}
