package models

import (
	"time"

	"github.com/google/uuid"
)

// AttributionKind is the type of a raw attribution event
type AttributionKind string

const (
	AttributionClick   AttributionKind = "click"
	AttributionInstall AttributionKind = "install"
)

// AttributionEvent is a raw click or install attributed to a marketer. These
// feed the CLICKS and INSTALLS milestone types.
type AttributionEvent struct {
	Base
	ProjectID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	MarketerID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"marketer_id"`
	Kind            AttributionKind `gorm:"type:varchar(20);not null" json:"kind"`
	ExternalEventID string          `gorm:"type:varchar(100);index" json:"external_event_id"`
	OccurredAt      time.Time       `gorm:"not null;index" json:"occurred_at"`
	Metadata        JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
}
