package pixel

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/smazurov/rgbnode/internal/color"
)

func TestNewNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	for _, driver := range []string{"", DriverNoop} {
		dev, err := New(Config{Driver: driver}, logger)
		if err != nil {
			t.Fatalf("New(%q) error: %v", driver, err)
		}
		if err := dev.SetPixel(0, color.Red); err != nil {
			t.Errorf("SetPixel() returned error: %v", err)
		}
		if err := dev.Refresh(); err != nil {
			t.Errorf("Refresh() returned error: %v", err)
		}
		if err := dev.Close(); err != nil {
			t.Errorf("Close() returned error: %v", err)
		}
	}
}

func TestNewSysfs(t *testing.T) {
	root, _ := makeLED(t, "red green blue")

	dev, err := New(Config{Driver: DriverSysfs, SysfsRoot: root, SysfsName: "rgb:status"}, nil)
	if err != nil {
		t.Fatalf("New(sysfs) error: %v", err)
	}
	if _, ok := dev.(*sysfs); !ok {
		t.Errorf("New(sysfs) returned %T", dev)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(Config{Driver: "ws2801"}, nil)
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("New(ws2801) error = %v, want ErrUnknownDriver", err)
	}
}

func TestNewSerialMissingPort(t *testing.T) {
	_, err := New(Config{Driver: DriverSerial, SerialPort: "/dev/does-not-exist-rgbnode"}, nil)
	if err == nil {
		t.Error("New(serial) with missing port should return error")
	}
}
