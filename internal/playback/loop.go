// Package playback cycles the sequence store onto the pixel device.
//
// Each cycle shows the color in the current slot for the dwell interval,
// blanks the pixel for the blank interval and advances the cursor. The lit
// color is published on the state topic as #RRGGBB.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/rgbnode/internal/bus"
	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/pixel"
	"github.com/smazurov/rgbnode/internal/sequence"
)

// Default hold intervals.
const (
	DefaultDwell = 3 * time.Second
	DefaultBlank = 100 * time.Millisecond
)

// Loop renders the sequence store in a lit/off cycle.
type Loop struct {
	store      *sequence.Store
	renderer   pixel.Renderer
	publisher  bus.Publisher
	stateTopic string
	events     *events.Bus
	logger     *slog.Logger

	policy     FailurePolicy
	maxRetries int

	mu    sync.Mutex
	dwell time.Duration
	blank time.Duration

	cursor atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithTimings sets the dwell and blank intervals. Non-positive values keep
// the defaults.
func WithTimings(dwell, blank time.Duration) Option {
	return func(l *Loop) {
		l.setTimings(dwell, blank)
	}
}

// WithFailurePolicy sets the render failure policy. maxRetries only applies
// to PolicyRetry; values below 1 use DefaultMaxRetries.
func WithFailurePolicy(p FailurePolicy, maxRetries int) Option {
	return func(l *Loop) {
		l.policy = p
		if maxRetries < 1 {
			maxRetries = DefaultMaxRetries
		}
		l.maxRetries = maxRetries
	}
}

// WithPublisher publishes every lit color on topic.
func WithPublisher(p bus.Publisher, topic string) Option {
	return func(l *Loop) {
		l.publisher = p
		l.stateTopic = topic
	}
}

// WithEvents publishes render events to b.
func WithEvents(b *events.Bus) Option {
	return func(l *Loop) {
		l.events = b
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// New creates a playback loop over store.
func New(store *sequence.Store, renderer pixel.Renderer, opts ...Option) *Loop {
	l := &Loop{
		store:      store,
		renderer:   renderer,
		logger:     slog.Default(),
		policy:     PolicyFatal,
		maxRetries: DefaultMaxRetries,
		dwell:      DefaultDwell,
		blank:      DefaultBlank,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetTimings changes the hold intervals. The change applies from the next
// hold. Non-positive values leave the current interval unchanged.
func (l *Loop) SetTimings(dwell, blank time.Duration) {
	l.setTimings(dwell, blank)
	d, b := l.Timings()
	l.logger.Info("Playback timings updated", "dwell", d, "blank", b)
}

func (l *Loop) setTimings(dwell, blank time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if dwell > 0 {
		l.dwell = dwell
	}
	if blank > 0 {
		l.blank = blank
	}
}

// Timings returns the current dwell and blank intervals.
func (l *Loop) Timings() (dwell, blank time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dwell, l.blank
}

// Cursor returns the number of completed lit/off cycles.
func (l *Loop) Cursor() uint64 {
	return l.cursor.Load()
}

// Run cycles until ctx is cancelled and then returns nil. Under PolicyFatal
// the first render error is returned.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Playback started", "policy", l.policy.String())
	defer func() {
		l.logger.Info("Playback stopped", "cycles", l.Cursor())
	}()

	for {
		slot := int(l.cursor.Load() % sequence.Slots)
		dwell, blank := l.Timings()

		c := l.store.Get(slot)
		shown, err := l.show(ctx, c, slot)
		if err != nil {
			return err
		}
		if shown {
			l.publish(c)
		}
		if !sleep(ctx, dwell) {
			return nil
		}

		if _, err := l.show(ctx, color.Off, -1); err != nil {
			return err
		}
		if !sleep(ctx, blank) {
			return nil
		}

		l.cursor.Add(1)
	}
}

// show renders c and applies the failure policy. It reports whether the
// color reached the device. A non-nil error ends the loop.
func (l *Loop) show(ctx context.Context, c color.RGB, slot int) (bool, error) {
	attempts := 1
	if l.policy == PolicyRetry {
		attempts += l.maxRetries
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = l.renderer.Show(c); err == nil {
			l.events.Publish(events.ColorRenderedEvent{
				Color:  c.Hex(),
				R:      c.R,
				G:      c.G,
				B:      c.B,
				Slot:   slot,
				Source: events.SourcePlayback,
			})
			return true, nil
		}

		l.events.Publish(events.RenderFailedEvent{Source: events.SourcePlayback, Error: err.Error()})
		if l.policy == PolicyFatal {
			l.logger.Error("Render failed, stopping playback", "color", c.Hex(), "error", err)
			return false, err
		}

		l.logger.Warn("Render failed", "color", c.Hex(), "attempt", attempt, "of", attempts, "error", err)
		if attempt < attempts {
			_, blank := l.Timings()
			if !sleep(ctx, blank) {
				return false, nil
			}
		}
	}

	l.logger.Error("Render failed after retries, skipping", "color", c.Hex(), "slot", slot, "error", err)
	return false, nil
}

func (l *Loop) publish(c color.RGB) {
	if l.publisher == nil || l.stateTopic == "" {
		return
	}
	if err := l.publisher.Publish(l.stateTopic, []byte(c.Hex())); err != nil {
		l.logger.Debug("Failed to publish state", "topic", l.stateTopic, "error", err)
		l.events.Publish(events.PublishFailedEvent{Topic: l.stateTopic, Error: err.Error()})
	}
}

// sleep waits for d or until ctx is done. Reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
