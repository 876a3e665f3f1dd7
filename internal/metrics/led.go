// Package metrics provides Prometheus metrics for the LED node.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rgbnode",
		Subsystem: "dispatch",
		Name:      "commands_total",
		Help:      "Commands handled by kind and origin",
	}, []string{"kind", "origin"})

	slotWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rgbnode",
		Subsystem: "sequence",
		Name:      "slot_writes_total",
		Help:      "Sequence slots written by sequence commands",
	})

	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rgbnode",
		Subsystem: "pixel",
		Name:      "renders_total",
		Help:      "Colors pushed to the pixel device",
	}, []string{"source"})

	renderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rgbnode",
		Subsystem: "pixel",
		Name:      "render_failures_total",
		Help:      "Failed pixel device refreshes",
	}, []string{"source"})

	publishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rgbnode",
		Subsystem: "bus",
		Name:      "publish_failures_total",
		Help:      "Outbound messages dropped",
	}, []string{"topic"})

	currentColor = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rgbnode",
		Subsystem: "pixel",
		Name:      "current_color",
		Help:      "Channel value of the color currently shown",
	}, []string{"channel"})

	busConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rgbnode",
		Subsystem: "bus",
		Name:      "connected",
		Help:      "1 while the broker session is up",
	})

	// Local cache for the API and tests.
	cache   Snapshot
	cacheMu sync.RWMutex
)

// Snapshot holds the current metric values.
type Snapshot struct {
	Commands        uint64
	SlotWrites      uint64
	Renders         uint64
	RenderFailures  uint64
	PublishFailures uint64
	R, G, B         uint8
	BusConnected    bool
}

// IncCommand counts one handled command.
func IncCommand(kind, origin string) {
	commandsTotal.WithLabelValues(kind, origin).Inc()
	update(func(s *Snapshot) { s.Commands++ })
}

// AddSlotWrites counts sequence slots written by one command.
func AddSlotWrites(n int) {
	if n <= 0 {
		return
	}
	slotWritesTotal.Add(float64(n))
	update(func(s *Snapshot) { s.SlotWrites += uint64(n) })
}

// ObserveRender counts a successful render and records the shown color.
func ObserveRender(source string, r, g, b uint8) {
	rendersTotal.WithLabelValues(source).Inc()
	currentColor.WithLabelValues("red").Set(float64(r))
	currentColor.WithLabelValues("green").Set(float64(g))
	currentColor.WithLabelValues("blue").Set(float64(b))
	update(func(s *Snapshot) {
		s.Renders++
		s.R, s.G, s.B = r, g, b
	})
}

// IncRenderFailure counts a failed render.
func IncRenderFailure(source string) {
	renderFailuresTotal.WithLabelValues(source).Inc()
	update(func(s *Snapshot) { s.RenderFailures++ })
}

// IncPublishFailure counts a dropped outbound message.
func IncPublishFailure(topic string) {
	publishFailuresTotal.WithLabelValues(topic).Inc()
	update(func(s *Snapshot) { s.PublishFailures++ })
}

// SetBusConnected records the broker session state.
func SetBusConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	busConnected.Set(v)
	update(func(s *Snapshot) { s.BusConnected = connected })
}

// Current returns a copy of the current metric values.
func Current() Snapshot {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return cache
}

func update(fn func(*Snapshot)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	fn(&cache)
}
