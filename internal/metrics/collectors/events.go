// Package collectors feeds the metrics package from runtime sources.
package collectors

import (
	"sync"

	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/metrics"
)

// EventSubscriber is the part of events.Bus the collector needs.
type EventSubscriber interface {
	Subscribe(handler any) func()
}

// EventCollector turns events.Bus traffic into metric updates.
type EventCollector struct {
	bus    EventSubscriber
	unsubs []func()
	mu     sync.Mutex
}

// NewEventCollector creates a collector for bus.
func NewEventCollector(bus EventSubscriber) *EventCollector {
	return &EventCollector{bus: bus}
}

// Start subscribes to the events that carry metrics.
func (c *EventCollector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unsubs = append(c.unsubs,
		c.bus.Subscribe(func(e events.ColorRenderedEvent) {
			metrics.ObserveRender(e.Source, e.R, e.G, e.B)
		}),
		c.bus.Subscribe(func(e events.RenderFailedEvent) {
			metrics.IncRenderFailure(e.Source)
		}),
		c.bus.Subscribe(func(e events.CommandReceivedEvent) {
			metrics.IncCommand(e.Kind, e.Origin)
		}),
		c.bus.Subscribe(func(e events.SequenceUpdatedEvent) {
			metrics.AddSlotWrites(e.Updated)
		}),
		c.bus.Subscribe(func(e events.PublishFailedEvent) {
			metrics.IncPublishFailure(e.Topic)
		}),
	)
}

// Stop unsubscribes from the bus.
func (c *EventCollector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
