package playback

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what the loop does when the pixel device rejects a
// frame.
type FailurePolicy int

const (
	// PolicyFatal stops the loop and returns the render error.
	PolicyFatal FailurePolicy = iota
	// PolicyRetry retries the render, then skips the state and continues.
	PolicyRetry
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

func (p FailurePolicy) String() string {
	switch p {
	case PolicyFatal:
		return "fatal"
	case PolicyRetry:
		return "retry"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy parses "fatal" or "retry". An empty string is fatal.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fatal":
		return PolicyFatal, nil
	case "retry":
		return PolicyRetry, nil
	default:
		return PolicyFatal, fmt.Errorf("unknown failure policy %q (want fatal or retry)", s)
	}
}
