package jobs

import (
	"context"
	"log"

	"github.com/partnerpay/backend/internal/queue"
	"github.com/partnerpay/backend/internal/services/reward"
)

const (
	// RewardEvaluationJobType recomputes milestone progress and grants newly
	// crossed rewards
	RewardEvaluationJobType queue.JobType = "evaluate_rewards"
)

// RewardJob runs the milestone reward evaluator on schedule
type RewardJob struct {
	evaluator *reward.Evaluator
}

// NewRewardJob creates a new reward evaluation job handler
func NewRewardJob(evaluator *reward.Evaluator) *RewardJob {
	return &RewardJob{evaluator: evaluator}
}

// RegisterRewardJobHandlers registers the reward evaluation job handlers
func RegisterRewardJobHandlers(q queue.QueueInterface, evaluator *reward.Evaluator) {
	handler := NewRewardJob(evaluator)
	q.RegisterHandler(RewardEvaluationJobType, handler.Run)
}

// Run evaluates all active rewards
func (j *RewardJob) Run(ctx context.Context, job queue.Job) (interface{}, error) {
	summary, err := j.evaluator.Run(ctx)
	if err != nil {
		return nil, err
	}

	log.Printf("Reward evaluation granted %d rewards across %d definitions", summary.GrantsCreated, summary.RewardsEvaluated)
	return summary, nil
}
