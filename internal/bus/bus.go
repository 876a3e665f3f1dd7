package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnsupportedScheme is returned by New for broker URLs it cannot route.
	ErrUnsupportedScheme = errors.New("unsupported broker scheme")

	// ErrNotConnected is returned by Publish while the session is down.
	ErrNotConnected = errors.New("not connected to broker")
)

// Handler receives one inbound message. topic is the topic the handler was
// registered for, in slash-separated form.
type Handler func(topic string, payload []byte)

// Publisher sends a payload on a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client is a pub/sub session with a broker.
// Implementations degrade gracefully: Publish fails fast with
// ErrNotConnected while offline and subscriptions survive reconnects.
type Client interface {
	Publisher

	// Connect starts the session. An unreachable broker is not an error;
	// the client keeps retrying in the background.
	Connect() error

	// Subscribe registers h for topic. Safe to call before Connect.
	Subscribe(topic string, h Handler) error

	IsConnected() bool
	Close()
}

// Options configures a broker session.
type Options struct {
	URL            string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Topics names the inbound and outbound topics.
type Topics struct {
	Set      string // immediate color commands (in)
	Sequence string // sequence updates (in)
	State    string // rendered color and set echo (out)
	Status   string // acknowledgements (out)
}

// DefaultTopics returns the topic layout used by the ESP32 firmware.
func DefaultTopics() Topics {
	return Topics{
		Set:      "esp32/led/set",
		Sequence: "esp32/led/seq",
		State:    "esp32/led",
		Status:   "esp32/status",
	}
}

// SequenceUpdated is published on the status topic after a sequence command.
const SequenceUpdated = "seq_updated"

// New builds a client for opts.URL. mqtt, mqtts, tcp, ssl, ws and wss select
// MQTT; nats and tls select NATS.
func New(opts Options) (Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL %q: %w", opts.URL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mqtt", "mqtts", "tcp", "ssl", "ws", "wss":
		return NewMQTTClient(opts), nil
	case "nats", "tls":
		return NewNATSClient(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Subject maps a slash-separated topic to a NATS subject.
func Subject(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}
