package production

import (
	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
)

// AggregateTypeBatch is the aggregate type recorded on batch events
const AggregateTypeBatch = "ProductionBatch"

// Event types
const (
	EventTypeBatchScheduled = "production.batch.scheduled"
	EventTypeBatchStarted   = "production.batch.started"
	EventTypeBatchCompleted = "production.batch.completed"
	EventTypeBatchCancelled = "production.batch.cancelled"
)

// BatchTransition is the payload shared by every batch lifecycle event.
// It carries what the follow-up handlers need: the orders to touch and the
// data for the activity log entry.
type BatchTransition struct {
	BatchID        uuid.UUID      `json:"batch_id"`
	BatchNumber    string         `json:"batch_number"`
	Action         ActivityAction `json:"action"`
	PreviousStatus BatchStatus    `json:"previous_status,omitempty"`
	NewStatus      BatchStatus    `json:"new_status"`
	Actor          string         `json:"actor"`
	Notes          string         `json:"notes,omitempty"`
	OrderIDs       []uuid.UUID    `json:"order_ids,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TransitionEvent is implemented by all batch lifecycle events
type TransitionEvent interface {
	shared.DomainEvent
	Transition() BatchTransition
}

// BatchScheduledEvent is raised when a batch is created, manually or automatically
type BatchScheduledEvent struct {
	shared.BaseDomainEvent
	BatchTransition
}

// Transition returns the lifecycle payload
func (e *BatchScheduledEvent) Transition() BatchTransition { return e.BatchTransition }

// BatchStartedEvent is raised when a scheduled batch goes into production
type BatchStartedEvent struct {
	shared.BaseDomainEvent
	BatchTransition
}

// Transition returns the lifecycle payload
func (e *BatchStartedEvent) Transition() BatchTransition { return e.BatchTransition }

// BatchCompletedEvent is raised when actual production has been recorded
type BatchCompletedEvent struct {
	shared.BaseDomainEvent
	BatchTransition
}

// Transition returns the lifecycle payload
func (e *BatchCompletedEvent) Transition() BatchTransition { return e.BatchTransition }

// BatchCancelledEvent is raised when a batch is cancelled
type BatchCancelledEvent struct {
	shared.BaseDomainEvent
	BatchTransition
	Reason string `json:"reason"`
}

// Transition returns the lifecycle payload
func (e *BatchCancelledEvent) Transition() BatchTransition { return e.BatchTransition }

func newTransitionBase(eventType string, batchID uuid.UUID) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeBatch, batchID)
}
