package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/partnerpay/backend/internal/handlers"
	"github.com/partnerpay/backend/internal/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Webhook    *handlers.WebhookHandler
	Payout     *handlers.PayoutHandler
	Reward     *handlers.RewardHandler
	Adjustment *handlers.AdjustmentHandler
	Purchase   *handlers.PurchaseHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, h Handlers, webhookLimiter *middleware.RateLimiter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	SetupWebhookRoutes(router, h.Webhook, webhookLimiter)

	// Everything under /api requires a valid token
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		payouts := api.Group("/payouts")
		{
			payouts.POST("/run/:creatorID", h.Payout.RunPayout)
			payouts.GET("/transfers/stuck", h.Payout.ListStuckTransfers)
		}

		rewards := api.Group("/rewards")
		{
			rewards.GET("/projects/:projectID", h.Reward.ListProjectRewards)
			rewards.GET("/earned", h.Reward.ListEarnedRewards)
			rewards.POST("/earned/:earnedID/claim", h.Reward.ClaimReward)
		}

		adjustments := api.Group("/adjustments")
		{
			adjustments.POST("", h.Adjustment.CreateAdjustment)
			adjustments.GET("", h.Adjustment.ListAdjustments)
		}

		purchases := api.Group("/purchases")
		{
			purchases.GET("/projects/:projectID", h.Purchase.ListProjectPurchases)
			purchases.GET("/projects/:projectID/stats", h.Purchase.ProjectCommissionStats)
		}
	}
}
