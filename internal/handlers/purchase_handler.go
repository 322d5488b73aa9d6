package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// PurchaseHandler exposes read access to purchases and commission stats
type PurchaseHandler struct {
	db *gorm.DB
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(db *gorm.DB) *PurchaseHandler {
	return &PurchaseHandler{db: db}
}

// ListProjectPurchases returns a project's purchases, optionally filtered by
// commission status
func (h *PurchaseHandler) ListProjectPurchases(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	query := h.db.Where("project_id = ?", projectID)
	if status := c.Query("status"); status != "" {
		query = query.Where("commission_status = ?", status)
	}
	if marketer := c.Query("marketer_id"); marketer != "" {
		query = query.Where("marketer_id = ?", marketer)
	}

	var purchases []models.Purchase
	if err := query.Order("occurred_at DESC").Limit(200).Find(&purchases).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

// commissionStats aggregates owed and settled commission per status
type commissionStats struct {
	CommissionStatus models.CommissionStatus `json:"commission_status"`
	Count            int64                   `json:"count"`
	Total            int64                   `json:"total"`
}

// ProjectCommissionStats returns per-status commission totals for a project
func (h *PurchaseHandler) ProjectCommissionStats(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var stats []commissionStats
	err = h.db.Model(&models.Purchase{}).
		Select("commission_status, COUNT(*) AS count, SUM(commission_amount) AS total").
		Where("project_id = ?", projectID).
		Group("commission_status").
		Scan(&stats).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
