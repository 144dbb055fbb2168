package production

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paintworks/backend/internal/domain/order"
	"github.com/paintworks/backend/internal/domain/production"
	"github.com/paintworks/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Handler names are part of the idempotency keys of processed events and
// must stay stable.
const (
	HandlerOrderLink      = "order_link"
	HandlerOrderReadiness = "order_readiness"
	HandlerOrderRevert    = "order_revert"
	HandlerActivityLog    = "activity_log"
)

func transitionOf(event shared.DomainEvent, expected ...string) (production.BatchTransition, error) {
	te, ok := event.(production.TransitionEvent)
	if !ok {
		return production.BatchTransition{}, fmt.Errorf("unexpected event type: expected one of %v, got %s",
			expected, event.EventType())
	}
	return te.Transition(), nil
}

// OrderLinkHandler promotes the orders of a scheduled batch to
// SCHEDULED_FOR_PRODUCTION and records the batch on them
type OrderLinkHandler struct {
	orders order.Repository
	logger *zap.Logger
}

// NewOrderLinkHandler creates a new OrderLinkHandler
func NewOrderLinkHandler(orders order.Repository, logger *zap.Logger) *OrderLinkHandler {
	return &OrderLinkHandler{orders: orders, logger: logger}
}

// Name returns the handler name
func (h *OrderLinkHandler) Name() string {
	return HandlerOrderLink
}

// EventTypes returns the event types this handler is interested in
func (h *OrderLinkHandler) EventTypes() []string {
	return []string{production.EventTypeBatchScheduled}
}

// Handle links every order of the batch
func (h *OrderLinkHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	t, err := transitionOf(event, production.EventTypeBatchScheduled)
	if err != nil {
		return err
	}
	for _, orderID := range t.OrderIDs {
		o, err := h.orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", orderID, err)
		}
		if o.BatchID != nil && *o.BatchID == t.BatchID && o.Status == order.StatusScheduledForProduction {
			continue
		}
		if err := o.LinkBatch(t.BatchID); err != nil {
			// The order moved on (dispatched, cancelled) since the batch was planned.
			h.logger.Warn("order cannot be linked to batch",
				zap.String("order_id", orderID.String()),
				zap.String("batch_id", t.BatchID.String()),
				zap.String("status", o.Status.String()),
			)
			continue
		}
		if err := h.orders.Save(ctx, o); err != nil {
			return fmt.Errorf("failed to link order %s: %w", orderID, err)
		}
		h.logger.Info("order scheduled for production",
			zap.String("order_id", orderID.String()),
			zap.String("batch_number", t.BatchNumber),
		)
	}
	return nil
}

// OrderReadinessHandler marks orders ready for dispatch once every batch
// feeding them has completed
type OrderReadinessHandler struct {
	orders  order.Repository
	batches production.BatchRepository
	logger  *zap.Logger
}

// NewOrderReadinessHandler creates a new OrderReadinessHandler
func NewOrderReadinessHandler(orders order.Repository, batches production.BatchRepository, logger *zap.Logger) *OrderReadinessHandler {
	return &OrderReadinessHandler{orders: orders, batches: batches, logger: logger}
}

// Name returns the handler name
func (h *OrderReadinessHandler) Name() string {
	return HandlerOrderReadiness
}

// EventTypes returns the event types this handler is interested in
func (h *OrderReadinessHandler) EventTypes() []string {
	return []string{production.EventTypeBatchCompleted}
}

// Handle checks each order of the completed batch
func (h *OrderReadinessHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	t, err := transitionOf(event, production.EventTypeBatchCompleted)
	if err != nil {
		return err
	}
	for _, orderID := range t.OrderIDs {
		statuses, err := h.batches.FindStatusesByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load batch statuses of order %s: %w", orderID, err)
		}
		if !production.AllCompleted(withoutCancelled(statuses)) {
			continue
		}
		o, err := h.orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", orderID, err)
		}
		if o.Status != order.StatusScheduledForProduction {
			continue
		}
		if err := o.MarkReadyForDispatch(); err != nil {
			return err
		}
		if err := h.orders.Save(ctx, o); err != nil {
			return fmt.Errorf("failed to mark order %s ready: %w", orderID, err)
		}
		h.logger.Info("order ready for dispatch",
			zap.String("order_id", orderID.String()),
			zap.String("order_number", o.OrderNumber),
		)
	}
	return nil
}

func withoutCancelled(statuses []production.BatchStatus) []production.BatchStatus {
	out := make([]production.BatchStatus, 0, len(statuses))
	for _, s := range statuses {
		if s != production.BatchStatusCancelled {
			out = append(out, s)
		}
	}
	return out
}

// OrderRevertHandler returns the orders of a cancelled batch to ACCEPTED
type OrderRevertHandler struct {
	orders order.Repository
	logger *zap.Logger
}

// NewOrderRevertHandler creates a new OrderRevertHandler
func NewOrderRevertHandler(orders order.Repository, logger *zap.Logger) *OrderRevertHandler {
	return &OrderRevertHandler{orders: orders, logger: logger}
}

// Name returns the handler name
func (h *OrderRevertHandler) Name() string {
	return HandlerOrderRevert
}

// EventTypes returns the event types this handler is interested in
func (h *OrderRevertHandler) EventTypes() []string {
	return []string{production.EventTypeBatchCancelled}
}

// Handle reverts the orders still pointing at the cancelled batch
func (h *OrderRevertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	t, err := transitionOf(event, production.EventTypeBatchCancelled)
	if err != nil {
		return err
	}
	for _, orderID := range t.OrderIDs {
		o, err := h.orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", orderID, err)
		}
		if !revertible(o, t.BatchID) {
			h.logger.Info("order left unchanged by batch cancellation",
				zap.String("order_id", orderID.String()),
				zap.String("status", o.Status.String()),
			)
			continue
		}
		if err := o.RevertToAccepted(); err != nil {
			return err
		}
		if err := h.orders.Save(ctx, o); err != nil {
			return fmt.Errorf("failed to revert order %s: %w", orderID, err)
		}
		h.logger.Info("order reverted to accepted",
			zap.String("order_id", orderID.String()),
			zap.String("batch_number", t.BatchNumber),
		)
	}
	return nil
}

// revertible reports whether o still depends on batchID
func revertible(o *order.Order, batchID uuid.UUID) bool {
	if o.Status != order.StatusScheduledForProduction && o.Status != order.StatusReadyForDispatch {
		return false
	}
	return o.BatchID == nil || *o.BatchID == batchID
}

// ActivityLogHandler appends one audit entry per batch transition
type ActivityLogHandler struct {
	activity production.ActivityLogRepository
	logger   *zap.Logger
}

// NewActivityLogHandler creates a new ActivityLogHandler
func NewActivityLogHandler(activity production.ActivityLogRepository, logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{activity: activity, logger: logger}
}

// Name returns the handler name
func (h *ActivityLogHandler) Name() string {
	return HandlerActivityLog
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityLogHandler) EventTypes() []string {
	return []string{
		production.EventTypeBatchScheduled,
		production.EventTypeBatchStarted,
		production.EventTypeBatchCompleted,
		production.EventTypeBatchCancelled,
	}
}

// Handle writes the activity entry keyed by the event id
func (h *ActivityLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	t, err := transitionOf(event, h.EventTypes()...)
	if err != nil {
		return err
	}
	entry := production.NewActivityLogEntry(event.EventID(), event.OccurredAt(), t)
	if err := h.activity.Append(ctx, &entry); err != nil {
		return fmt.Errorf("failed to append activity for batch %s: %w", t.BatchID, err)
	}
	h.logger.Debug("batch activity recorded",
		zap.String("batch_id", t.BatchID.String()),
		zap.String("action", string(t.Action)),
	)
	return nil
}

// HandlerWrapper decorates a follow-up handler before it is subscribed,
// e.g. with idempotency
type HandlerWrapper func(shared.NamedHandler) shared.NamedHandler

// RegisterHandlers subscribes the batch follow-up handlers to bus
func RegisterHandlers(
	bus shared.EventSubscriber,
	orders order.Repository,
	batches production.BatchRepository,
	activity production.ActivityLogRepository,
	wrap HandlerWrapper,
	logger *zap.Logger,
) {
	handlers := []shared.NamedHandler{
		NewOrderLinkHandler(orders, logger),
		NewOrderReadinessHandler(orders, batches, logger),
		NewOrderRevertHandler(orders, logger),
		NewActivityLogHandler(activity, logger),
	}
	for _, h := range handlers {
		if wrap != nil {
			h = wrap(h)
		}
		bus.Subscribe(h, h.EventTypes()...)
	}
}

var (
	_ shared.NamedHandler = (*OrderLinkHandler)(nil)
	_ shared.NamedHandler = (*OrderReadinessHandler)(nil)
	_ shared.NamedHandler = (*OrderRevertHandler)(nil)
	_ shared.NamedHandler = (*ActivityLogHandler)(nil)
)
