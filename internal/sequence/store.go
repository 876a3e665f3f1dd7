// Package sequence holds the three-slot color sequence shared by the command
// dispatcher and the playback loop.
package sequence

import (
	"sync"

	"github.com/smazurov/rgbnode/internal/color"
)

// Slots is the fixed number of colors in a sequence.
const Slots = 3

// Store is a mutex-guarded fixed sequence of colors. A nil *Store behaves as
// an uninitialized store: Set is a no-op and Get returns color.Off.
type Store struct {
	mu    sync.Mutex
	slots [Slots]color.RGB
}

// New returns a store holding the default red, green, blue sequence.
func New() *Store {
	return &Store{
		slots: [Slots]color.RGB{color.Red, color.Green, color.Blue},
	}
}

// Set replaces the color at index. Out of range indexes are ignored.
func (s *Store) Set(index int, c color.RGB) {
	if s == nil || index < 0 || index >= Slots {
		return
	}

	s.mu.Lock()
	s.slots[index] = c
	s.mu.Unlock()
}

// Get returns the color at index, or color.Off when the store is nil or the
// index is out of range.
func (s *Store) Get(index int) color.RGB {
	if s == nil || index < 0 || index >= Slots {
		return color.Off
	}

	s.mu.Lock()
	c := s.slots[index]
	s.mu.Unlock()
	return c
}

// Snapshot returns a copy of the whole sequence taken under one lock.
func (s *Store) Snapshot() [Slots]color.RGB {
	if s == nil {
		return [Slots]color.RGB{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots
}

// Len returns the number of slots.
func (s *Store) Len() int {
	return Slots
}
