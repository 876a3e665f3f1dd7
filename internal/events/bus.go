package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// A nil *Bus drops every event, so components can run without one.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(ColorRenderedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}

	switch e := ev.(type) {
	case ColorRenderedEvent:
		event.Publish(b.dispatcher, e)
	case RenderFailedEvent:
		event.Publish(b.dispatcher, e)
	case CommandReceivedEvent:
		event.Publish(b.dispatcher, e)
	case SequenceUpdatedEvent:
		event.Publish(b.dispatcher, e)
	case PublishFailedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects the events it receives.
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e SequenceUpdatedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	if b == nil {
		return func() {}
	}

	switch h := handler.(type) {
	case func(ColorRenderedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RenderFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandReceivedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SequenceUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PublishFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler types never fire
		return func() {}
	}
}

// Close stops the dispatcher and all subscriber goroutines
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	return b.dispatcher.Close()
}
