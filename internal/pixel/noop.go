package pixel

import (
	"log/slog"

	"github.com/smazurov/rgbnode/internal/color"
)

// noop implements Device for hosts without an attached indicator
type noop struct {
	logger *slog.Logger
	staged color.RGB
}

// newNoop creates a device that only logs what it would display
func newNoop(logger *slog.Logger) *noop {
	return &noop{
		logger: logger,
	}
}

func (n *noop) SetPixel(index int, c color.RGB) error {
	if index == 0 {
		n.staged = c
	}
	return nil
}

// Refresh logs the staged color but performs no hardware access
func (n *noop) Refresh() error {
	n.logger.Debug("Pixel refresh (no-op)", "color", n.staged.Hex())
	return nil
}

func (n *noop) Close() error {
	return nil
}
