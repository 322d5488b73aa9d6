package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// AdjustmentHandler manages manual commission adjustments
type AdjustmentHandler struct {
	db *gorm.DB
}

// NewAdjustmentHandler creates a new adjustment handler
func NewAdjustmentHandler(db *gorm.DB) *AdjustmentHandler {
	return &AdjustmentHandler{db: db}
}

// CreateAdjustmentRequest is a manual credit or debit against a marketer's
// owed balance
type CreateAdjustmentRequest struct {
	MarketerID uuid.UUID `json:"marketer_id" binding:"required"`
	Amount     int64     `json:"amount" binding:"required"`
	Currency   string    `json:"currency" binding:"required"`
	Reason     string    `json:"reason"`
}

// CreateAdjustment records a pending adjustment for the authenticated creator
func (h *AdjustmentHandler) CreateAdjustment(c *gin.Context) {
	creatorID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adjustment := models.CommissionAdjustment{
		CreatorID:  creatorID,
		MarketerID: req.MarketerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reason:     req.Reason,
		Status:     models.AdjustmentStatusPending,
	}
	if err := h.db.Create(&adjustment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"adjustment": adjustment})
}

// ListAdjustments returns the authenticated creator's adjustments
func (h *AdjustmentHandler) ListAdjustments(c *gin.Context) {
	creatorID, ok := authedUserID(c)
	if !ok {
		return
	}

	var adjustments []models.CommissionAdjustment
	query := h.db.Where("creator_id = ?", creatorID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Find(&adjustments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"adjustments": adjustments})
}
