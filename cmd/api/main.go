package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/partnerpay/backend/internal/cache"
	"github.com/partnerpay/backend/internal/config"
	"github.com/partnerpay/backend/internal/database"
	"github.com/partnerpay/backend/internal/database/migrations"
	"github.com/partnerpay/backend/internal/handlers"
	"github.com/partnerpay/backend/internal/middleware"
	"github.com/partnerpay/backend/internal/routes"
	"github.com/partnerpay/backend/internal/services/account"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/commission"
	"github.com/partnerpay/backend/internal/services/contract"
	"github.com/partnerpay/backend/internal/services/notify"
	"github.com/partnerpay/backend/internal/services/payment/providers/streampay"
	"github.com/partnerpay/backend/internal/services/payout"
	"github.com/partnerpay/backend/internal/services/reward"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		log.Printf("Warning: redis unavailable, dedup fast path disabled: %v", err)
		redisClient = nil
	}

	auditLogger := audit.NewLogger(db)
	notifier := notify.NewService(db)
	accounts := account.NewResolver(db)
	resolver := contract.NewResolver(db, cfg.Engine.FallbackRefundWindowDays)
	commissionSvc := commission.NewService(db, redisClient, resolver, accounts, auditLogger)
	evaluator := reward.NewEvaluator(db, auditLogger, notifier)
	provider := streampay.NewProvider(cfg.StreamPay)
	batcher := payout.NewBatcher(db, commissionSvc, accounts, provider, auditLogger, notifier)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	webhookLimiter := middleware.NewRateLimiter(10, 30)
	defer webhookLimiter.Stop()

	routes.SetupRoutes(router, routes.Handlers{
		Webhook:    handlers.NewWebhookHandler(commissionSvc),
		Payout:     handlers.NewPayoutHandler(batcher, cfg.Engine.StuckTransferHours),
		Reward:     handlers.NewRewardHandler(db, evaluator),
		Adjustment: handlers.NewAdjustmentHandler(db),
		Purchase:   handlers.NewPurchaseHandler(db),
	}, webhookLimiter)

	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
