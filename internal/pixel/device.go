// Package pixel drives the addressable RGB indicator.
package pixel

import (
	"fmt"
	"sync"

	"github.com/smazurov/rgbnode/internal/color"
)

// Device abstracts an addressable pixel strip.
// Writes are buffered by SetPixel and become visible on Refresh.
type Device interface {
	// SetPixel stages a color for the pixel at index
	SetPixel(index int, c color.RGB) error

	// Refresh pushes staged pixels to the hardware
	Refresh() error

	// Close releases the underlying hardware
	Close() error
}

// Renderer paints one color across the whole indicator.
type Renderer interface {
	Show(c color.RGB) error
}

// Synchronized serializes access to a Device so that a full
// SetPixel+Refresh cycle is atomic with respect to other writers.
type Synchronized struct {
	mu         sync.Mutex
	dev        Device
	count      int
	brightness uint8
	last       color.RGB
}

// NewSynchronized wraps dev. count is the number of pixels painted by Show
// and brightness (0-100) scales every channel before it reaches the device.
func NewSynchronized(dev Device, count int, brightness int) *Synchronized {
	if count < 1 {
		count = 1
	}
	if brightness < 0 || brightness > 100 {
		brightness = 100
	}

	return &Synchronized{
		dev:        dev,
		count:      count,
		brightness: uint8(brightness),
	}
}

// Show paints c on every pixel and refreshes the device.
func (s *Synchronized) Show(c color.RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scaled := Scale(c, s.brightness)

	for i := 0; i < s.count; i++ {
		if err := s.dev.SetPixel(i, scaled); err != nil {
			return fmt.Errorf("failed to set pixel %d: %w", i, err)
		}
	}
	if err := s.dev.Refresh(); err != nil {
		return fmt.Errorf("failed to refresh pixels: %w", err)
	}

	s.last = c
	return nil
}

// SetBrightness changes the scale applied from the next Show. Values outside
// 0-100 are ignored.
func (s *Synchronized) SetBrightness(percent int) {
	if percent < 0 || percent > 100 {
		return
	}
	s.mu.Lock()
	s.brightness = uint8(percent)
	s.mu.Unlock()
}

// Last returns the most recent color successfully shown, before scaling.
func (s *Synchronized) Last() color.RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Close closes the wrapped device.
func (s *Synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Close()
}

// Scale applies a 0-100 brightness percentage to every channel.
func Scale(c color.RGB, percent uint8) color.RGB {
	if percent >= 100 {
		return c
	}

	scale := func(v uint8) uint8 {
		return uint8((uint16(v)*uint16(percent) + 50) / 100)
	}
	return color.RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}
