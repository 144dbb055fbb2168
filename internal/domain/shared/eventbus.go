package shared

import "context"

// EventHandler reacts to domain events after the change that raised them
// has committed
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all
	EventTypes() []string
}

// NamedHandler is a handler with a stable name, used to key per-handler
// idempotency records so a retried event skips the handlers that succeeded
type NamedHandler interface {
	EventHandler
	Name() string
}

// EventPublisher delivers events to every subscribed handler and returns
// the joined handler failures
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is both
type EventBus interface {
	EventPublisher
	EventSubscriber
}
