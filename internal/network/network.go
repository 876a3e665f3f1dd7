// Package network brings up connectivity to the broker before the bus
// session starts.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/smazurov/rgbnode/internal/logging"
)

const (
	connectTimeout = 3 * time.Second
	retryInterval  = 2 * time.Second
	maxRetries     = 5
)

// ErrUnreachable is returned when the broker host never answered.
var ErrUnreachable = errors.New("broker unreachable")

var defaultPorts = map[string]string{
	"mqtt":  "1883",
	"tcp":   "1883",
	"mqtts": "8883",
	"ssl":   "8883",
	"ws":    "80",
	"wss":   "443",
	"nats":  "4222",
	"tls":   "4222",
}

// BrokerAddress returns host:port for a broker URL, filling in the
// scheme's default port.
func BrokerAddress(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid broker URL %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("broker URL %q has no host", rawURL)
	}

	port := u.Port()
	if port == "" {
		port = defaultPorts[strings.ToLower(u.Scheme)]
	}
	if port == "" {
		return "", fmt.Errorf("no default port for scheme %q", u.Scheme)
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// CheckConnectivity verifies that address accepts TCP connections.
func CheckConnectivity(ctx context.Context, address string, timeout time.Duration) error {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	return conn.Close()
}

// WaitOptions bounds WaitForBroker.
type WaitOptions struct {
	MaxRetries int
	Interval   time.Duration
	Timeout    time.Duration
}

// DefaultWaitOptions returns five retries two seconds apart.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		MaxRetries: maxRetries,
		Interval:   retryInterval,
		Timeout:    connectTimeout,
	}
}

// WaitForBroker probes address until it answers or MaxRetries retries have
// failed. Returns ErrUnreachable when retries are exhausted and ctx.Err()
// when cancelled.
func WaitForBroker(ctx context.Context, address string, opts WaitOptions) error {
	logger := logging.GetLogger("network")

	if opts.Timeout <= 0 {
		opts.Timeout = connectTimeout
	}

	for attempt := 0; ; attempt++ {
		err := CheckConnectivity(ctx, address, opts.Timeout)
		if err == nil {
			logger.Info("Broker reachable", "address", address, "attempts", attempt+1)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= opts.MaxRetries {
			logger.Warn("Broker not reachable, giving up", "address", address, "error", err)
			return fmt.Errorf("%w: %s after %d attempts", ErrUnreachable, address, attempt+1)
		}

		logger.Info("Retrying broker connection", "address", address, "attempt", attempt+1, "max_retries", opts.MaxRetries)

		timer := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
