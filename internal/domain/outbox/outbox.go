package outbox

import "context"

// Event is a domain event identified by name. Settlement and cart
// reconciliation publish events; workers subscribe by name.
type Event interface {
	EventName() string
}

// Handler processes one published event.
type Handler func(ctx context.Context, e Event) error

// Publisher hands an event to the bus. Publishing is best-effort for
// callers: a failed publish is reported but never fails the use case
// that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
