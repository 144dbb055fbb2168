package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of a batch follow-up event
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Retry policy of follow-up delivery
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 10 * time.Minute
)

// RetryBackoff returns the delay before the given attempt (1-based):
// base, 2*base, 4*base, ... capped at MaxBackoff
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := DefaultBaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= MaxBackoff {
			return MaxBackoff
		}
	}
	return backoff
}

// OutboxEntry is a domain event written in the same transaction as the batch
// change that raised it. Its handlers run after commit.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName maps outbox entries onto the outbox_events table
func (OutboxEntry) TableName() string {
	return "outbox_events"
}

// NewOutboxEntry wraps a serialized event as a pending entry
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now().UTC()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanRetry reports whether a failed entry has attempts left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// IsDead reports whether the entry exhausted its retries
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// IsSent reports whether every handler accepted the event
func (e *OutboxEntry) IsSent() bool {
	return e.Status == OutboxStatusSent
}

// MarkProcessing claims a pending or failed entry for delivery
func (e *OutboxEntry) MarkProcessing() error {
	switch e.Status {
	case OutboxStatusPending, OutboxStatusFailed:
		e.touch(OutboxStatusProcessing)
		return nil
	default:
		return NewIllegalTransitionError("outbox entry %s is %s and cannot be claimed", e.ID, e.Status)
	}
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent() {
	e.touch(OutboxStatusSent)
	processed := e.UpdatedAt
	e.ProcessedAt = &processed
	e.NextRetryAt = nil
}

// MarkFailed records a failed delivery. The entry is scheduled for another
// attempt, or becomes dead once MaxRetries is reached.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	if e.RetryCount >= e.MaxRetries {
		e.touch(OutboxStatusDead)
		e.NextRetryAt = nil
		return
	}
	e.touch(OutboxStatusFailed)
	next := e.UpdatedAt.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// ResetForRetry puts a dead entry back to pending with a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return NewIllegalTransitionError("outbox entry %s is %s, only dead entries can be retried", e.ID, e.Status)
	}
	e.touch(OutboxStatusPending)
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	return nil
}

func (e *OutboxEntry) touch(status OutboxStatus) {
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns failed entries whose NextRetryAt is before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing claims the entries and returns the ones it won
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan removes sent entries processed before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
