package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/reward"
	"gorm.io/gorm"
)

// RewardHandler exposes reward definitions and grant transitions
type RewardHandler struct {
	db        *gorm.DB
	evaluator *reward.Evaluator
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(db *gorm.DB, evaluator *reward.Evaluator) *RewardHandler {
	return &RewardHandler{db: db, evaluator: evaluator}
}

// ListProjectRewards returns a project's reward definitions
func (h *RewardHandler) ListProjectRewards(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("projectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var rewards []models.Reward
	if err := h.db.Where("project_id = ?", projectID).Order("created_at").Find(&rewards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// ListEarnedRewards returns the authenticated marketer's grants
func (h *RewardHandler) ListEarnedRewards(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var earned []models.RewardEarned
	if err := h.db.Where("marketer_id = ?", userID).Order("created_at DESC").Find(&earned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards_earned": earned})
}

// ClaimReward moves one of the marketer's grants from UNLOCKED to CLAIMED
func (h *RewardHandler) ClaimReward(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	earnedID, err := uuid.Parse(c.Param("earnedID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reward grant id"})
		return
	}

	earned, err := h.evaluator.Claim(earnedID, userID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reward_earned": earned})
}

// authedUserID pulls the authenticated user id set by the auth middleware
func authedUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user in context"})
		return uuid.Nil, false
	}
	return userID, true
}
