package jobs

import (
	"github.com/partnerpay/backend/internal/config"
	"github.com/partnerpay/backend/internal/queue"
	"github.com/partnerpay/backend/internal/services/commission"
	"github.com/partnerpay/backend/internal/services/payout"
	"github.com/partnerpay/backend/internal/services/reward"
	"gorm.io/gorm"
)

// RegisterAllJobHandlers registers all job handlers with the queue
func RegisterAllJobHandlers(
	q queue.QueueInterface,
	db *gorm.DB,
	commissionSvc *commission.Service,
	evaluator *reward.Evaluator,
	batcher *payout.Batcher,
) {
	RegisterRefundWindowJobHandlers(q, commissionSvc)
	RegisterRewardJobHandlers(q, evaluator)
	RegisterPayoutJobHandlers(q, db, batcher)
}

// ScheduleRecurringJobs schedules the recurring batch jobs on the worker
func ScheduleRecurringJobs(w *queue.Worker, cfg config.SchedulerConfig) error {
	if err := w.ScheduleRecurring(RefundWindowCatchupJobType, cfg.RefundWindowMinutes); err != nil {
		return err
	}
	if err := w.ScheduleRecurring(RewardEvaluationJobType, cfg.RewardMinutes); err != nil {
		return err
	}
	return w.ScheduleRecurring(PayoutSweepJobType, cfg.PayoutSweepMinutes)
}
