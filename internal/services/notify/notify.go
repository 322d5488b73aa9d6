package notify

import (
	"log"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// Notification types produced by the engine
const (
	TypeRewardEarned         = "reward_earned"
	TypeMarketerEarnedReward = "marketer_earned_reward"
	TypePayoutSent           = "payout_sent"
	TypePayoutReceived       = "payout_received"
	TypePurchaseRefunded     = "purchase_refunded"
)

// Service persists user notifications. Delivery is best-effort: a failure is
// logged and never rolls back the action it describes.
type Service struct {
	db *gorm.DB
}

// NewService creates a new notification service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Notify writes one notification for a user
func (s *Service) Notify(userID uuid.UUID, notifType, title, message string, data map[string]interface{}) {
	notification := models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    data,
	}

	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("Failed to create %s notification for user %s: %v", notifType, userID, err)
	}
}
