package production

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityAction names a batch lifecycle step in the activity log
type ActivityAction string

const (
	ActivityScheduled     ActivityAction = "SCHEDULED"
	ActivityAutoScheduled ActivityAction = "AUTO_SCHEDULED"
	ActivityStarted       ActivityAction = "STARTED"
	ActivityCompleted     ActivityAction = "COMPLETED"
	ActivityCancelled     ActivityAction = "CANCELLED"
)

// ActivityLogEntry is one append-only audit row per batch state transition.
// The ID is the id of the event that produced it, so replaying an event
// cannot write the entry twice.
type ActivityLogEntry struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BatchID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_activity_batch"`
	Action         ActivityAction `gorm:"type:varchar(30);not null"`
	Actor          string         `gorm:"type:varchar(100)"`
	PreviousStatus BatchStatus    `gorm:"type:varchar(20)"`
	NewStatus      BatchStatus    `gorm:"type:varchar(20);not null"`
	Notes          string         `gorm:"type:text"`
	// Metadata is a JSON object
	Metadata  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index:idx_activity_batch"`
}

// TableName returns the table name for GORM
func (ActivityLogEntry) TableName() string {
	return "batch_activity_logs"
}

// NewActivityLogEntry builds the log row for a lifecycle event
func NewActivityLogEntry(eventID uuid.UUID, occurredAt time.Time, t BatchTransition) ActivityLogEntry {
	metadata := ""
	if len(t.Metadata) > 0 || len(t.OrderIDs) > 0 {
		payload := make(map[string]any, len(t.Metadata)+2)
		for k, v := range t.Metadata {
			payload[k] = v
		}
		payload["batch_number"] = t.BatchNumber
		if len(t.OrderIDs) > 0 {
			payload["order_ids"] = t.OrderIDs
		}
		if raw, err := json.Marshal(payload); err == nil {
			metadata = string(raw)
		}
	}
	return ActivityLogEntry{
		ID:             eventID,
		BatchID:        t.BatchID,
		Action:         t.Action,
		Actor:          t.Actor,
		PreviousStatus: t.PreviousStatus,
		NewStatus:      t.NewStatus,
		Notes:          t.Notes,
		Metadata:       metadata,
		CreatedAt:      occurredAt,
	}
}
