package event

import (
	"context"
	"fmt"

	"github.com/paintworks/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox inside the caller's
// transaction, so they commit or roll back with the batch changes.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// NewOutboxPublisher creates a new outbox publisher. maxRetries <= 0 keeps
// the entry default.
func NewOutboxPublisher(serializer *EventSerializer, maxRetries int) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer, maxRetries: maxRetries}
}

// PublishWithTx stores events as pending outbox entries using tx
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	if len(events) == 0 {
		return nil, nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, evt := range events {
		payload, err := p.serializer.Serialize(evt)
		if err != nil {
			return nil, err
		}
		entry := shared.NewOutboxEntry(evt, payload)
		if p.maxRetries > 0 {
			entry.MaxRetries = p.maxRetries
		}
		entries = append(entries, entry)
	}

	if err := NewGormOutboxRepository(tx).Save(ctx, entries...); err != nil {
		return nil, fmt.Errorf("failed to save outbox entries: %w", err)
	}
	return entries, nil
}
