// Package event delivers domain events: the transactional outbox that stores
// them with the business change, the processor that dispatches them after
// commit, and the in-process bus their handlers subscribe to.
package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/paintworks/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// HandlerError is one handler's failure to process an event
type HandlerError struct {
	Handler   string
	EventType string
	EventID   string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s %s: %v", e.Handler, e.EventType, e.EventID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// FailedHandlers lists the handler names found in err
func FailedHandlers(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var names []string
		for _, inner := range joined.Unwrap() {
			names = append(names, FailedHandlers(inner)...)
		}
		return names
	}
	var he *HandlerError
	if errors.As(err, &he) {
		return []string{he.Handler}
	}
	return nil
}

// InMemoryEventBus delivers events synchronously to registered handlers.
// Every handler runs even when an earlier one fails; the failures are
// returned joined so the outbox can retry the event.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{registry: NewHandlerRegistry(), logger: logger}
}

// Publish delivers each event to its handlers and joins their errors
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, evt := range events {
		for _, h := range b.registry.HandlersFor(evt.EventType()) {
			if err := b.dispatch(ctx, h, evt); err != nil {
				errs = append(errs, &HandlerError{
					Handler:   HandlerName(h),
					EventType: evt.EventType(),
					EventID:   evt.EventID().String(),
					Err:       err,
				})
			}
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers handler for eventTypes, defaulting to handler.EventTypes()
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed",
		zap.String("handler", HandlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("handler", HandlerName(h)),
				zap.String("event_type", evt.EventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, evt)
}

// HandlerName returns the handler's Name() when it has one, its type otherwise
func HandlerName(h shared.EventHandler) string {
	if named, ok := h.(shared.NamedHandler); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", h)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
