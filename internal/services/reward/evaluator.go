package reward

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/notify"
	"gorm.io/gorm"
)

// Evaluator grants milestone rewards. Each run recomputes cumulative referred
// performance per (reward, marketer) and appends grants for newly crossed
// thresholds. Runs are additive only: existing grants are never mutated or
// deleted, so re-running with no new activity changes nothing.
type Evaluator struct {
	db       *gorm.DB
	audit    *audit.Logger
	notifier *notify.Service
}

// NewEvaluator creates a new reward evaluator
func NewEvaluator(db *gorm.DB, auditLogger *audit.Logger, notifier *notify.Service) *Evaluator {
	return &Evaluator{db: db, audit: auditLogger, notifier: notifier}
}

// RunSummary reports what one evaluation pass did
type RunSummary struct {
	RewardsEvaluated int `json:"rewards_evaluated"`
	GrantsCreated    int `json:"grants_created"`
}

// Run evaluates every ACTIVE reward. A failure on one reward is logged and
// does not block the others.
func (e *Evaluator) Run(ctx context.Context) (*RunSummary, error) {
	var rewards []models.Reward
	if err := e.db.Where("status = ?", models.RewardStatusActive).Find(&rewards).Error; err != nil {
		return nil, fmt.Errorf("failed to load active rewards: %w", err)
	}

	summary := &RunSummary{}
	for i := range rewards {
		granted, err := e.evaluateReward(ctx, &rewards[i])
		if err != nil {
			log.Printf("Reward evaluation failed for reward %s: %v", rewards[i].ID, err)
			continue
		}
		summary.RewardsEvaluated++
		summary.GrantsCreated += granted
	}
	return summary, nil
}

// marketerProgress is the granted state of one marketer on one reward
type marketerProgress struct {
	count       int
	maxSequence int
}

func (e *Evaluator) evaluateReward(ctx context.Context, reward *models.Reward) (int, error) {
	if reward.MilestoneValue <= 0 {
		return 0, fmt.Errorf("reward %s has non-positive milestone value", reward.ID)
	}

	metrics, err := e.computeMetrics(reward)
	if err != nil {
		return 0, err
	}
	if len(metrics) == 0 {
		return 0, nil
	}

	granted, err := e.loadProgress(reward.ID)
	if err != nil {
		return 0, err
	}

	// FIRST_N admission is decided against the granted-marketer set as it
	// stood at the start of the run, plus marketers admitted within the run,
	// so the persisted result can never exceed the cap
	admittedCount := len(granted)

	var project models.Project
	if err := e.db.First(&project, "id = ?", reward.ProjectID).Error; err != nil {
		return 0, fmt.Errorf("failed to load project for reward %s: %w", reward.ID, err)
	}

	totalGranted := 0
	for marketerID, metric := range metrics {
		achieved := metric / reward.MilestoneValue
		if achieved <= 0 {
			continue
		}
		if !reward.AllowsMarketer(marketerID) {
			continue
		}

		desired := int(achieved)
		if reward.EarnLimit == models.EarnOncePerMarketer && desired > 1 {
			desired = 1
		}

		progress, alreadyAdmitted := granted[marketerID]
		if progress.maxSequence >= desired {
			continue
		}

		if reward.Availability == models.AvailabilityFirstN && !alreadyAdmitted {
			if admittedCount >= reward.AvailabilityCap {
				continue
			}
			admittedCount++
		}

		n, err := e.grant(reward, &project, marketerID, progress.maxSequence+1, desired)
		if err != nil {
			// One marketer's failure must not block the others
			log.Printf("Failed to grant reward %s to marketer %s: %v", reward.ID, marketerID, err)
			if reward.Availability == models.AvailabilityFirstN && !alreadyAdmitted {
				admittedCount--
			}
			continue
		}
		totalGranted += n
	}
	return totalGranted, nil
}

// grant inserts one RewardEarned row per unmet sequence number in
// [fromSeq, toSeq] and emits the audit event and notifications for each
func (e *Evaluator) grant(reward *models.Reward, project *models.Project, marketerID uuid.UUID, fromSeq, toSeq int) (int, error) {
	created := 0
	for seq := fromSeq; seq <= toSeq; seq++ {
		earned := models.RewardEarned{
			RewardID:   reward.ID,
			ProjectID:  reward.ProjectID,
			MarketerID: marketerID,
			Sequence:   seq,
			Status:     models.RewardEarnedUnlocked,
		}
		if reward.RewardType == models.RewardTypeCash {
			earned.Amount = reward.Amount
			earned.Currency = reward.Currency
		}

		if err := e.db.Create(&earned).Error; err != nil {
			// The unique (reward, marketer, sequence) index backstops a
			// concurrent run; treat the collision as already granted
			var count int64
			e.db.Model(&models.RewardEarned{}).
				Where("reward_id = ? AND marketer_id = ? AND sequence = ?", reward.ID, marketerID, seq).
				Count(&count)
			if count > 0 {
				continue
			}
			return created, fmt.Errorf("failed to create reward grant: %w", err)
		}
		created++

		e.audit.Record(models.AuditEventRewardGranted, nil, &reward.ProjectID, "reward_earned", earned.ID.String(), map[string]interface{}{
			"reward_id":   reward.ID.String(),
			"marketer_id": marketerID.String(),
			"sequence":    seq,
			"amount":      earned.Amount,
			"currency":    earned.Currency,
		})
		e.notifier.Notify(marketerID, notify.TypeRewardEarned,
			"Reward earned",
			fmt.Sprintf("You reached the %q milestone on %s", reward.Name, project.Name),
			map[string]interface{}{"reward_earned_id": earned.ID.String()})
		e.notifier.Notify(project.CreatorID, notify.TypeMarketerEarnedReward,
			"Marketer earned a reward",
			fmt.Sprintf("A marketer reached the %q milestone on %s", reward.Name, project.Name),
			map[string]interface{}{"reward_earned_id": earned.ID.String(), "marketer_id": marketerID.String()})
	}
	return created, nil
}

func (e *Evaluator) loadProgress(rewardID uuid.UUID) (map[uuid.UUID]marketerProgress, error) {
	var rows []struct {
		MarketerID  uuid.UUID
		Count       int
		MaxSequence int
	}
	err := e.db.Model(&models.RewardEarned{}).
		Select("marketer_id, COUNT(*) AS count, MAX(sequence) AS max_sequence").
		Where("reward_id = ?", rewardID).
		Group("marketer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load granted rewards: %w", err)
	}

	granted := make(map[uuid.UUID]marketerProgress, len(rows))
	for _, row := range rows {
		granted[row.MarketerID] = marketerProgress{count: row.Count, maxSequence: row.MaxSequence}
	}
	return granted, nil
}

// computeMetrics returns the cumulative metric per marketer for the reward's
// milestone type, counting only activity at or after the reward's start and,
// for revenue and sales, only purchases past their refund window
func (e *Evaluator) computeMetrics(reward *models.Reward) (map[uuid.UUID]int64, error) {
	var rows []struct {
		MarketerID uuid.UUID
		Metric     int64
	}

	now := time.Now()
	switch reward.MilestoneType {
	case models.MilestoneNetRevenue, models.MilestoneCompletedSales:
		selectExpr := "marketer_id, COUNT(*) AS metric"
		if reward.MilestoneType == models.MilestoneNetRevenue {
			selectExpr = "marketer_id, SUM(gross_amount - refunded_amount) AS metric"
		}
		err := e.db.Model(&models.Purchase{}).
			Select(selectExpr).
			Where("project_id = ? AND marketer_id IS NOT NULL", reward.ProjectID).
			Where("occurred_at >= ?", reward.StartsAt).
			Where("refund_eligible_at IS NOT NULL AND refund_eligible_at <= ?", now).
			Where("commission_status NOT IN ?", []models.CommissionStatus{
				models.CommissionRefunded,
				models.CommissionChargeback,
			}).
			Group("marketer_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to compute purchase metrics: %w", err)
		}
	case models.MilestoneClicks, models.MilestoneInstalls:
		kind := models.AttributionClick
		if reward.MilestoneType == models.MilestoneInstalls {
			kind = models.AttributionInstall
		}
		err := e.db.Model(&models.AttributionEvent{}).
			Select("marketer_id, COUNT(*) AS metric").
			Where("project_id = ? AND kind = ?", reward.ProjectID, kind).
			Where("occurred_at >= ?", reward.StartsAt).
			Group("marketer_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to compute attribution metrics: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown milestone type %s", reward.MilestoneType)
	}

	metrics := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		if row.Metric > 0 {
			metrics[row.MarketerID] = row.Metric
		}
	}
	return metrics, nil
}
