package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/commission"
)

// WebhookHandler ingests sale, refund, and attribution events from the
// external billing and tracking sources
type WebhookHandler struct {
	commissionSvc *commission.Service
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(commissionSvc *commission.Service) *WebhookHandler {
	return &WebhookHandler{commissionSvc: commissionSvc}
}

// SaleWebhookRequest is the inbound sale event payload
type SaleWebhookRequest struct {
	EventID       string     `json:"event_id"`
	TransactionID string     `json:"transaction_id"`
	ProjectID     uuid.UUID  `json:"project_id" binding:"required"`
	MarketerID    *uuid.UUID `json:"marketer_id"`
	CouponCode    string     `json:"coupon_code"`
	GrossAmount   int64      `json:"gross_amount" binding:"required,gte=0"`
	Currency      string     `json:"currency" binding:"required"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// SaleWebhook ingests one sale event. Duplicate deliveries return the
// existing purchase with created=false.
func (h *WebhookHandler) SaleWebhook(c *gin.Context) {
	var req SaleWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, created, err := h.commissionSvc.IngestSale(c.Request.Context(), commission.SaleEvent{
		EventID:       req.EventID,
		TransactionID: req.TransactionID,
		ProjectID:     req.ProjectID,
		MarketerID:    req.MarketerID,
		CouponCode:    req.CouponCode,
		GrossAmount:   req.GrossAmount,
		Currency:      req.Currency,
		OccurredAt:    req.OccurredAt,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"purchase": purchase, "created": created})
}

// RefundWebhookRequest is the inbound refund/chargeback payload
type RefundWebhookRequest struct {
	PurchaseID    *uuid.UUID `json:"purchase_id"`
	TransactionID string     `json:"transaction_id"`
	ProjectID     uuid.UUID  `json:"project_id"`
	Amount        *int64     `json:"amount"`
	Reason        string     `json:"reason"`
	Chargeback    bool       `json:"chargeback"`
}

// RefundWebhook applies a refund or chargeback to a purchase
func (h *WebhookHandler) RefundWebhook(c *gin.Context) {
	var req RefundWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, err := h.commissionSvc.RecordRefund(c.Request.Context(), commission.RefundEvent{
		PurchaseID:    req.PurchaseID,
		TransactionID: req.TransactionID,
		ProjectID:     req.ProjectID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		Chargeback:    req.Chargeback,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase": purchase})
}

// AttributionWebhookRequest is the inbound click/install payload
type AttributionWebhookRequest struct {
	ProjectID  uuid.UUID              `json:"project_id" binding:"required"`
	MarketerID uuid.UUID              `json:"marketer_id" binding:"required"`
	Kind       models.AttributionKind `json:"kind" binding:"required"`
	EventID    string                 `json:"event_id"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// AttributionWebhook ingests one click or install event
func (h *WebhookHandler) AttributionWebhook(c *gin.Context) {
	var req AttributionWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Kind != models.AttributionClick && req.Kind != models.AttributionInstall {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be click or install"})
		return
	}

	event, created, err := h.commissionSvc.IngestAttribution(c.Request.Context(), req.ProjectID, req.MarketerID, req.Kind, req.EventID, req.OccurredAt)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"event": event, "created": created})
}
