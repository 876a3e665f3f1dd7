package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// qos is used for every subscription and publish (at least once)
const qos = 1

// MQTTClient is a Client backed by an MQTT 3.1.1 session.
type MQTTClient struct {
	opts     Options
	client   mqtt.Client
	handlers map[string]Handler
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewMQTTClient creates an MQTT client. Call Connect to start the session.
func NewMQTTClient(opts Options) *MQTTClient {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	return &MQTTClient{
		opts:     opts,
		handlers: make(map[string]Handler),
		logger:   opts.Logger.With("component", "mqtt-client"),
	}
}

// Connect starts the session. Waits up to ConnectTimeout for the first
// CONNACK; after that the connection keeps being retried in the background.
func (c *MQTTClient) Connect() error {
	clientID := c.opts.ClientID
	if clientID == "" {
		clientID = "rgbnode"
	}

	o := mqtt.NewClientOptions().
		AddBroker(c.opts.URL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectTimeout(c.opts.ConnectTimeout).
		SetOrderMatters(false). // handlers publish acks
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.logger.Warn("MQTT connection lost", "error", err)
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			c.logger.Debug("MQTT reconnecting")
		})
	if c.opts.Username != "" {
		o.SetUsername(c.opts.Username)
		o.SetPassword(c.opts.Password)
	}

	client := mqtt.NewClient(o)

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(c.opts.ConnectTimeout) {
		c.logger.Warn("MQTT broker unavailable, running in offline mode", "url", c.opts.URL)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// onConnect (re)subscribes every registered topic; sessions are clean so
// the broker forgets subscriptions on disconnect.
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.logger.Info("Connected to MQTT broker", "url", c.opts.URL)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for topic, h := range c.handlers {
		c.subscribe(client, topic, h)
	}
}

func (c *MQTTClient) subscribe(client mqtt.Client, topic string, h Handler) {
	token := client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		h(topic, msg.Payload())
	})
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Warn("Failed to subscribe", "topic", topic, "error", err)
			return
		}
		c.logger.Debug("Subscribed", "topic", topic)
	}()
}

// Subscribe registers h for topic.
func (c *MQTTClient) Subscribe(topic string, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[topic] = h
	if c.client != nil && c.client.IsConnectionOpen() {
		c.subscribe(c.client, topic, h)
	}
	return nil
}

// Publish sends payload with QoS 1.
// Returns ErrNotConnected while offline (graceful degradation).
func (c *MQTTClient) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(c.opts.ConnectTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// IsConnected returns true if the session is up.
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil && c.client.IsConnectionOpen()
}

// Close disconnects, allowing in-flight work 250ms to complete.
func (c *MQTTClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
	c.logger.Debug("MQTT client closed")
}
