package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Playback is the hot-reloadable [playback] section of config.toml.
type Playback struct {
	DwellMS    int `toml:"dwell_ms"`
	BlankMS    int `toml:"blank_ms"`
	Brightness int `toml:"brightness"`
}

// Dwell returns the lit interval.
func (p Playback) Dwell() time.Duration {
	return time.Duration(p.DwellMS) * time.Millisecond
}

// Blank returns the off interval.
func (p Playback) Blank() time.Duration {
	return time.Duration(p.BlankMS) * time.Millisecond
}

// Validate rejects values the playback loop cannot use.
func (p Playback) Validate() error {
	if p.DwellMS <= 0 {
		return fmt.Errorf("playback.dwell_ms must be positive, got %d", p.DwellMS)
	}
	if p.BlankMS < 0 {
		return fmt.Errorf("playback.blank_ms must not be negative, got %d", p.BlankMS)
	}
	if p.Brightness < 0 || p.Brightness > 100 {
		return fmt.Errorf("playback.brightness must be 0-100, got %d", p.Brightness)
	}
	return nil
}

// PlaybackLoader returns a loader for NewConfigWatcher. Keys missing from the
// file keep the values in defaults.
func PlaybackLoader(defaults Playback) func(path string) (Playback, error) {
	return func(path string) (Playback, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return Playback{}, fmt.Errorf("failed to read config: %w", err)
		}

		raw := struct {
			Playback Playback `toml:"playback"`
		}{Playback: defaults}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Playback{}, fmt.Errorf("failed to parse TOML config: %w", err)
		}

		if err := raw.Playback.Validate(); err != nil {
			return Playback{}, err
		}
		return raw.Playback, nil
	}
}
