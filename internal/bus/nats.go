package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subscription pairs a handler with its live NATS subscription, if any
type subscription struct {
	handler Handler
	sub     *nats.Subscription
}

// NATSClient is a Client backed by core NATS (no JetStream).
// Topics are mapped to subjects with Subject.
type NATSClient struct {
	opts   Options
	conn   *nats.Conn
	subs   map[string]*subscription
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewNATSClient creates a NATS client. Call Connect to start the session.
func NewNATSClient(opts Options) *NATSClient {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	return &NATSClient{
		opts:   opts,
		subs:   make(map[string]*subscription),
		logger: opts.Logger.With("component", "nats-client"),
	}
}

// Connect establishes the connection. If the server is unreachable the
// client keeps retrying and subscriptions are sent once connected.
func (c *NATSClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.opts.ClientID
	if name == "" {
		name = "rgbnode"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(c.opts.ConnectTimeout),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			} else {
				c.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.logger.Info("NATS reconnected")
		}),
		nats.ConnectHandler(func(_ *nats.Conn) {
			c.logger.Debug("NATS connected")
		}),
	}
	if c.opts.Username != "" {
		opts = append(opts, nats.UserInfo(c.opts.Username, c.opts.Password))
	}

	conn, err := nats.Connect(c.opts.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	c.conn = conn

	if conn.IsConnected() {
		c.logger.Info("Connected to NATS", "url", c.opts.URL)
	} else {
		c.logger.Warn("NATS unavailable, running in offline mode", "url", c.opts.URL)
	}

	for topic, s := range c.subs {
		if s.sub == nil {
			if err := c.subscribeLocked(topic, s); err != nil {
				return err
			}
		}
	}

	return nil
}

// Subscribe registers h for topic. Before Connect the handler is kept and
// subscribed when the connection is created.
func (c *NATSClient) Subscribe(topic string, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.subs[topic]; ok && old.sub != nil {
		_ = old.sub.Unsubscribe()
	}

	s := &subscription{handler: h}
	c.subs[topic] = s

	if c.conn == nil {
		return nil
	}
	return c.subscribeLocked(topic, s)
}

// subscribeLocked subscribes to the subject for topic (must hold lock).
// nats.go replays live subscriptions after a reconnect.
func (c *NATSClient) subscribeLocked(topic string, s *subscription) error {
	subject := Subject(topic)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		s.handler(topic, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.sub = sub
	c.logger.Debug("Subscribed", "subject", subject)
	return nil
}

// Publish sends payload on the subject for topic.
// Returns ErrNotConnected while offline (graceful degradation).
func (c *NATSClient) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}

	subject := Subject(topic)
	if err := conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Flush waits until the server has processed everything published so far.
func (c *NATSClient) Flush() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}
	return conn.FlushTimeout(c.opts.ConnectTimeout)
}

// IsConnected returns true if connected to NATS.
func (c *NATSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Close unsubscribes everything and closes the connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, s := range c.subs {
		if s.sub != nil {
			_ = s.sub.Unsubscribe()
		}
		delete(c.subs, topic)
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	c.logger.Debug("NATS client closed")
}
