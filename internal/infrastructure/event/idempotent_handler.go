package event

import (
	"context"
	"sync/atomic"

	"github.com/paintworks/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of an IdempotentHandler's counters
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler wraps a follow-up handler so a redelivered event has no
// further effect once the handler has succeeded for it. The key is recorded
// only after success, so a failed attempt is retried in full.
type IdempotentHandler struct {
	handler shared.NamedHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(
	handler shared.NamedHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the wrapped handler's name
func (h *IdempotentHandler) Name() string {
	return h.handler.Name()
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless it already succeeded for this event
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.key(event)
	done, err := h.store.IsProcessed(ctx, key)
	if err != nil {
		h.logger.Warn("Idempotency check failed, handling anyway",
			zap.String("key", key),
			zap.Error(err),
		)
	} else if done {
		h.duplicate.Add(1)
		h.logger.Debug("Duplicate event skipped",
			zap.String("key", key),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		h.logger.Warn("Failed to record handled event",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return nil
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

func (h *IdempotentHandler) key(event shared.DomainEvent) string {
	return "event:" + h.handler.Name() + ":" + event.EventID().String()
}

var _ shared.NamedHandler = (*IdempotentHandler)(nil)
