package jobs

import (
	"context"
	"log"
	"time"

	"github.com/partnerpay/backend/internal/queue"
	"github.com/partnerpay/backend/internal/services/commission"
)

const (
	// RefundWindowCatchupJobType re-evaluates purchases whose refund window
	// may have elapsed
	RefundWindowCatchupJobType queue.JobType = "refund_window_catchup"
)

// RefundWindowJob advances purchases out of the refund window on schedule
type RefundWindowJob struct {
	commissionSvc *commission.Service
}

// NewRefundWindowJob creates a new refund window job handler
func NewRefundWindowJob(commissionSvc *commission.Service) *RefundWindowJob {
	return &RefundWindowJob{commissionSvc: commissionSvc}
}

// RegisterRefundWindowJobHandlers registers the refund window job handlers
func RegisterRefundWindowJobHandlers(q queue.QueueInterface, commissionSvc *commission.Service) {
	handler := NewRefundWindowJob(commissionSvc)
	q.RegisterHandler(RefundWindowCatchupJobType, handler.Run)
}

// Run re-evaluates the refund window across all creators
func (j *RefundWindowJob) Run(ctx context.Context, job queue.Job) (interface{}, error) {
	advanced, err := j.commissionSvc.ReevaluateAll(ctx)
	if err != nil {
		return nil, err
	}

	log.Printf("Refund window catch-up advanced %d purchases", advanced)
	return map[string]interface{}{
		"advanced":   advanced,
		"checked_at": time.Now(),
	}, nil
}
