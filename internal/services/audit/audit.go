package audit

import (
	"log"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/models"
	"gorm.io/gorm"
)

// Logger records domain audit events. Recording is fire-and-forget: a failure
// is logged and swallowed so it can never block the settlement or grant that
// produced it.
type Logger struct {
	db *gorm.DB
}

// NewLogger creates a new audit logger
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Record writes one audit event
func (l *Logger) Record(eventType models.AuditEventType, actorID, projectID *uuid.UUID, subjectType, subjectID string, data map[string]interface{}) {
	event := models.AuditEvent{
		Type:        eventType,
		ActorID:     actorID,
		ProjectID:   projectID,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Data:        data,
	}

	if err := l.db.Create(&event).Error; err != nil {
		log.Printf("Failed to record audit event %s for %s %s: %v", eventType, subjectType, subjectID, err)
	}
}
