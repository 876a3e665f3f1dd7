package pixel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smazurov/rgbnode/internal/color"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Device using the Linux multicolor LED class
// (multi_intensity + brightness). It exposes a single pixel.
type sysfs struct {
	ledPath string
	order   []string // channel order reported by multi_index
	staged  color.RGB
}

// newSysfs opens a multicolor LED below root (normally /sys/class/leds)
func newSysfs(root, name string) (*sysfs, error) {
	ledPath := filepath.Join(root, name)

	// Check if LED exists
	if _, err := os.Stat(filepath.Join(ledPath, "multi_intensity")); err != nil {
		return nil, fmt.Errorf("multicolor LED %q not found at %s: %w", name, ledPath, err)
	}

	order := []string{"red", "green", "blue"}
	if data, err := os.ReadFile(filepath.Join(ledPath, "multi_index")); err == nil {
		if fields := strings.Fields(string(data)); len(fields) > 0 {
			order = fields
		}
	}

	return &sysfs{
		ledPath: ledPath,
		order:   order,
	}, nil
}

func (s *sysfs) SetPixel(index int, c color.RGB) error {
	if index != 0 {
		return fmt.Errorf("pixel %d out of range for sysfs LED", index)
	}
	s.staged = c
	return nil
}

// Refresh writes channel intensities then brightness so the new color latches
func (s *sysfs) Refresh() error {
	values := make([]string, len(s.order))
	for i, channel := range s.order {
		var v uint8
		switch channel {
		case "red":
			v = s.staged.R
		case "green":
			v = s.staged.G
		case "blue":
			v = s.staged.B
		}
		values[i] = strconv.Itoa(int(v))
	}

	intensityPath := filepath.Join(s.ledPath, "multi_intensity")
	if err := os.WriteFile(intensityPath, []byte(strings.Join(values, " ")), 0644); err != nil {
		return fmt.Errorf("failed to set LED intensity: %w", err)
	}

	brightness := s.maxBrightness()
	if s.staged.IsOff() {
		brightness = "0"
	}

	brightnessPath := filepath.Join(s.ledPath, "brightness")
	if err := os.WriteFile(brightnessPath, []byte(brightness), 0644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}

	return nil
}

// maxBrightness reads max_brightness, defaulting to 255
func (s *sysfs) maxBrightness() string {
	data, err := os.ReadFile(filepath.Join(s.ledPath, "max_brightness"))
	if err != nil {
		return "255"
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "255"
	}
	return value
}

func (s *sysfs) Close() error {
	return nil
}
