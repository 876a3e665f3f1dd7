// Package dispatch turns inbound bus commands into sequence updates and
// immediate renders.
package dispatch

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/smazurov/rgbnode/internal/bus"
	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/pixel"
	"github.com/smazurov/rgbnode/internal/sequence"
)

// Payload limits of the firmware's fixed command buffers.
const (
	MaxSetPayload      = 31
	MaxSequencePayload = 95
)

// Command kinds and origins reported in CommandReceivedEvent.
const (
	KindSet      = "set"
	KindSequence = "sequence"

	OriginBus = "bus"
	OriginAPI = "api"
)

// Dispatcher routes set and sequence commands.
// Handlers never fail: bad tokens degrade to off and render or publish
// errors are logged.
type Dispatcher struct {
	store     *sequence.Store
	renderer  pixel.Renderer
	publisher bus.Publisher
	topics    bus.Topics
	events    *events.Bus
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPublisher sets where echoes and acknowledgements go.
func WithPublisher(p bus.Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

// WithEvents publishes command and render events to b.
func WithEvents(b *events.Bus) Option {
	return func(d *Dispatcher) {
		d.events = b
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a dispatcher writing to store and rendering immediate colors
// on renderer.
func New(store *sequence.Store, renderer pixel.Renderer, topics bus.Topics, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		renderer: renderer,
		topics:   topics,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers the dispatcher for both inbound topics.
func (d *Dispatcher) Subscribe(client bus.Client) error {
	for _, topic := range []string{d.topics.Set, d.topics.Sequence} {
		if err := client.Subscribe(topic, d.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle routes one inbound message by topic. It matches bus.Handler.
func (d *Dispatcher) Handle(topic string, payload []byte) {
	switch topic {
	case d.topics.Set:
		d.HandleSet(payload)
	case d.topics.Sequence:
		d.HandleSequence(payload)
	default:
		d.logger.Debug("Ignoring message on unknown topic", "topic", topic)
	}
}

// HandleSet shows a named color immediately, bypassing the sequence.
func (d *Dispatcher) HandleSet(payload []byte) color.RGB {
	return d.Set(payload, OriginBus)
}

// HandleSequence replaces up to three sequence slots.
func (d *Dispatcher) HandleSequence(payload []byte) int {
	return d.Sequence(payload, OriginBus)
}

// Set renders the named color in payload and echoes the lowercased name on
// the state topic. Only the name table is consulted; anything else renders
// off. The store is never touched.
func (d *Dispatcher) Set(payload []byte, origin string) color.RGB {
	name := SetName(payload)
	d.events.Publish(events.CommandReceivedEvent{Kind: KindSet, Origin: origin, Payload: name})

	c, ok := color.Lookup(name)
	if !ok {
		d.logger.Debug("Unknown color name, rendering off", "name", name)
	}
	d.logger.Info("Set color", "name", name, "color", c.Hex(), "origin", origin)

	if err := d.renderer.Show(c); err != nil {
		d.logger.Error("Failed to render color", "color", c.Hex(), "error", err)
		d.events.Publish(events.RenderFailedEvent{Source: events.SourceSet, Error: err.Error()})
	} else {
		d.events.Publish(renderedEvent(c))
	}

	d.publish(d.topics.State, []byte(name))
	return c
}

// Sequence splits payload on commas and writes up to three resolved colors
// into slots 0..2 in order. Empty tokens are skipped and slots beyond the
// last token keep their color. Returns the number of slots written.
func (d *Dispatcher) Sequence(payload []byte, origin string) int {
	text := string(lowerASCII(truncate(payload, MaxSequencePayload)))
	d.events.Publish(events.CommandReceivedEvent{Kind: KindSequence, Origin: origin, Payload: text})

	tokens := Tokens(text)
	for i, token := range tokens {
		c, ok := color.Resolve(token)
		if !ok {
			d.logger.Debug("Unresolved token, using off", "slot", i, "token", token)
		}
		d.store.Set(i, c)
	}

	snapshot := d.store.Snapshot()
	slots := make([]string, len(snapshot))
	for i, c := range snapshot {
		slots[i] = c.Hex()
	}
	d.logger.Info("Sequence updated", "tokens", len(tokens), "sequence", slots, "origin", origin)
	d.events.Publish(events.SequenceUpdatedEvent{Slots: slots, Updated: len(tokens)})

	d.publish(d.topics.Status, []byte(bus.SequenceUpdated))
	return len(tokens)
}

// Tokens splits on "," skipping empty tokens and keeps at most
// sequence.Slots of them.
func Tokens(text string) []string {
	tokens := make([]string, 0, sequence.Slots)
	for _, token := range strings.Split(text, ",") {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == sequence.Slots {
			break
		}
	}
	return tokens
}

// SetName is the color name a set command carries: payload cut at the
// first NUL and at MaxSetPayload bytes, with ASCII letters lowercased.
// It is the exact state topic echo.
func SetName(payload []byte) string {
	return string(lowerASCII(truncate(payload, MaxSetPayload)))
}

// lowerASCII lowercases A-Z and copies every other byte unchanged, so a
// cut through a multi-byte character stays within the byte limit.
func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// truncate cuts payload at the first NUL and at limit bytes
func truncate(payload []byte, limit int) []byte {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	if len(payload) > limit {
		payload = payload[:limit]
	}
	return payload
}

func (d *Dispatcher) publish(topic string, payload []byte) {
	if d.publisher == nil || topic == "" {
		return
	}
	if err := d.publisher.Publish(topic, payload); err != nil {
		d.logger.Warn("Failed to publish", "topic", topic, "error", err)
		d.events.Publish(events.PublishFailedEvent{Topic: topic, Error: err.Error()})
	}
}

func renderedEvent(c color.RGB) events.ColorRenderedEvent {
	return events.ColorRenderedEvent{
		Color:  c.Hex(),
		R:      c.R,
		G:      c.G,
		B:      c.B,
		Slot:   -1,
		Source: events.SourceSet,
	}
}
