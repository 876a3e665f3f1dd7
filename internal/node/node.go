// Package node identifies this controller on the bus.
package node

import "os"

// Name retrieves the node name from environment variables
func Name() string {
	name := os.Getenv("NODE_NAME")
	if name == "" {
		name = os.Getenv("HOSTNAME")
	}
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		}
	}
	if name == "" {
		name = "unknown"
	}
	return name
}

// ClientID returns the broker client identifier for this node.
func ClientID() string {
	return "rgbnode-" + Name()
}
