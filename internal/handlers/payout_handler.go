package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/services/payout"
)

// PayoutHandler exposes payout runs and transfer inspection
type PayoutHandler struct {
	batcher            *payout.Batcher
	stuckTransferHours int
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(batcher *payout.Batcher, stuckTransferHours int) *PayoutHandler {
	if stuckTransferHours <= 0 {
		stuckTransferHours = 24
	}
	return &PayoutHandler{batcher: batcher, stuckTransferHours: stuckTransferHours}
}

// RunPayout triggers a settlement run for one creator and returns the
// per-group report
func (h *PayoutHandler) RunPayout(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("creatorID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator id"})
		return
	}

	results, err := h.batcher.Run(c.Request.Context(), creatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ListStuckTransfers returns transfers left PENDING beyond the reconciliation
// threshold
func (h *PayoutHandler) ListStuckTransfers(c *gin.Context) {
	transfers, err := h.batcher.ListStuckTransfers(c.Request.Context(), time.Duration(h.stuckTransferHours)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfers": transfers})
}
