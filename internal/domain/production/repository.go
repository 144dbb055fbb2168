package production

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/shared"
)

// BatchFilter narrows batch listings
type BatchFilter struct {
	shared.Filter
	Status          *BatchStatus
	MasterProductID *uuid.UUID
	ScheduledFrom   *time.Time
	ScheduledTo     *time.Time
}

// BatchRepository persists production batches with their lines
type BatchRepository interface {
	// Create inserts a new batch. A batch number collision returns ErrAlreadyExists
	// and leaves the surrounding transaction usable.
	Create(ctx context.Context, batch *ProductionBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionBatch, error)
	// FindByIDForUpdate loads a batch and locks its row for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ProductionBatch, error)
	// Save writes header and line changes with an optimistic version check
	Save(ctx context.Context, batch *ProductionBatch) error
	List(ctx context.Context, filter BatchFilter) ([]ProductionBatch, int64, error)
	// LatestSequence returns the highest sequence used for the month of period, 0 if none
	LatestSequence(ctx context.Context, period time.Time) (int, error)
	// FindStatusesByOrder returns the status of every batch with a line for the order
	FindStatusesByOrder(ctx context.Context, orderID uuid.UUID) ([]BatchStatus, error)
}

// ActivityLogRepository is the append-only audit trail of batch transitions
type ActivityLogRepository interface {
	// Append inserts the entry; an entry with the same ID is ignored
	Append(ctx context.Context, entry *ActivityLogEntry) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]ActivityLogEntry, error)
}

// AllCompleted reports whether every status is COMPLETED. An empty list is false.
func AllCompleted(statuses []BatchStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, s := range statuses {
		if s != BatchStatusCompleted {
			return false
		}
	}
	return true
}
