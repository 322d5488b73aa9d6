package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/partnerpay/backend/internal/handlers"
	"github.com/partnerpay/backend/internal/middleware"
)

// SetupWebhookRoutes mounts the inbound event endpoints. Webhooks are
// unauthenticated but rate limited, providers retry on 429.
func SetupWebhookRoutes(router *gin.Engine, h *handlers.WebhookHandler, limiter *middleware.RateLimiter) {
	webhooks := router.Group("/webhooks")
	if limiter != nil {
		webhooks.Use(limiter.Middleware())
	}
	{
		webhooks.POST("/sales", h.SaleWebhook)
		webhooks.POST("/refunds", h.RefundWebhook)
		webhooks.POST("/attribution", h.AttributionWebhook)
	}
}
