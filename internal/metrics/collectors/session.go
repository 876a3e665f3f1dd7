package collectors

import (
	"context"
	"time"

	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/metrics"
)

// ConnectionChecker reports broker session state.
type ConnectionChecker interface {
	IsConnected() bool
}

// SessionCollector polls the broker session and records it as a gauge.
type SessionCollector struct {
	logger   logging.Logger
	client   ConnectionChecker
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSessionCollector creates a collector polling client every 5 seconds.
func NewSessionCollector(client ConnectionChecker) *SessionCollector {
	return &SessionCollector{
		logger:   logging.GetLogger("bus"),
		client:   client,
		interval: 5 * time.Second,
	}
}

// Start begins polling.
func (s *SessionCollector) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run()
}

// Stop stops polling and waits for the goroutine to exit.
func (s *SessionCollector) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *SessionCollector) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.collect(false, true)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			last = s.collect(last, false)
		}
	}
}

// collect records the session state and logs transitions
func (s *SessionCollector) collect(last, first bool) bool {
	connected := s.client.IsConnected()
	metrics.SetBusConnected(connected)
	if !first && connected != last {
		s.logger.Info("Broker session changed", "connected", connected)
	}
	return connected
}
