package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/queue"
	"github.com/partnerpay/backend/internal/services/payout"
	"gorm.io/gorm"
)

const (
	// PayoutSweepJobType finds creators with payable commissions and fans out
	// one payout run per creator
	PayoutSweepJobType queue.JobType = "payout_sweep"

	// RunPayoutJobType settles one creator's payable commissions
	RunPayoutJobType queue.JobType = "run_payout"
)

// RunPayoutPayload is the payload for a single-creator payout run
type RunPayoutPayload struct {
	CreatorID uuid.UUID `json:"creator_id"`
}

// PayoutJob drives payout batch runs
type PayoutJob struct {
	db      *gorm.DB
	queue   queue.QueueInterface
	batcher *payout.Batcher
}

// NewPayoutJob creates a new payout job handler
func NewPayoutJob(db *gorm.DB, q queue.QueueInterface, batcher *payout.Batcher) *PayoutJob {
	return &PayoutJob{db: db, queue: q, batcher: batcher}
}

// RegisterPayoutJobHandlers registers the payout job handlers
func RegisterPayoutJobHandlers(q queue.QueueInterface, db *gorm.DB, batcher *payout.Batcher) {
	handler := NewPayoutJob(db, q, batcher)
	q.RegisterHandler(PayoutSweepJobType, handler.Sweep)
	q.RegisterHandler(RunPayoutJobType, handler.RunForCreator)
}

// EnqueuePayoutRun enqueues a payout run for one creator
func (j *PayoutJob) EnqueuePayoutRun(creatorID uuid.UUID) (string, error) {
	return j.queue.EnqueueJob(RunPayoutJobType, RunPayoutPayload{CreatorID: creatorID})
}

// Sweep finds every creator with purchases ready (or gated) for payout and
// enqueues one payout run per creator, so concurrent runs never share a
// creator
func (j *PayoutJob) Sweep(ctx context.Context, job queue.Job) (interface{}, error) {
	var creatorIDs []uuid.UUID
	err := j.db.Model(&models.Purchase{}).
		Distinct("projects.creator_id").
		Joins("JOIN projects ON projects.id = purchases.project_id").
		Where("purchases.commission_status IN ?", []models.CommissionStatus{
			models.CommissionAwaitingRefundWindow,
			models.CommissionPendingCreatorPayment,
			models.CommissionReadyForPayout,
		}).
		Pluck("projects.creator_id", &creatorIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list creators for payout sweep: %w", err)
	}

	enqueued := 0
	for _, creatorID := range creatorIDs {
		if _, err := j.EnqueuePayoutRun(creatorID); err != nil {
			log.Printf("Failed to enqueue payout run for creator %s: %v", creatorID, err)
			continue
		}
		enqueued++
	}

	return map[string]interface{}{"enqueued": enqueued}, nil
}

// RunForCreator settles one creator's payable commissions and stores the
// per-group report as the job result
func (j *PayoutJob) RunForCreator(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload RunPayoutPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payout job payload: %w", err)
	}
	if payload.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("payout job payload missing creator id")
	}

	results, err := j.batcher.Run(ctx, payload.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("payout run failed for creator %s: %w", payload.CreatorID, err)
	}
	return results, nil
}
