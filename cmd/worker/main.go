package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/partnerpay/backend/internal/cache"
	"github.com/partnerpay/backend/internal/config"
	"github.com/partnerpay/backend/internal/database"
	"github.com/partnerpay/backend/internal/jobs"
	"github.com/partnerpay/backend/internal/queue"
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

	q := queue.NewQueue(db)
	jobs.RegisterAllJobHandlers(q, db, commissionSvc, evaluator, batcher)

	worker := queue.NewWorker(q)
	if err := jobs.ScheduleRecurringJobs(worker, cfg.Scheduler); err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}

	go worker.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down worker")
	worker.Stop()
}
