// Package systemd integrates rgbnode with the service manager: readiness
// notification and control of the rgbnode unit over D-Bus.
package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultUnit is the unit name shipped with the package.
const DefaultUnit = "rgbnode.service"

// Manager controls units over a D-Bus connection.
type Manager struct {
	conn *dbus.Conn
}

// NewManager connects to the user manager, or the system manager when
// system is set.
func NewManager(ctx context.Context, system bool) (*Manager, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if system {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	} else {
		conn, err = dbus.NewUserConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

// UnitState returns the ActiveState of unit, e.g. "active" or "failed".
func (m *Manager) UnitState(ctx context.Context, unit string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return "", fmt.Errorf("failed to read state of %s: %w", unit, err)
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return prop.Value.String(), nil
	}
	return state, nil
}

// Restart restarts unit and waits for the job to finish.
func (m *Manager) Restart(ctx context.Context, unit string) error {
	done := make(chan string, 1)
	if _, err := m.conn.RestartUnitContext(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("failed to restart %s: %w", unit, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("restart of %s finished with %q", unit, result)
		}
		return nil
	}
}

// Close closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
