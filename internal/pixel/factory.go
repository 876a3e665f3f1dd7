package pixel

import (
	"errors"
	"fmt"
	"log/slog"
)

// Driver names accepted by New.
const (
	DriverNoop     = "noop"
	DriverSysfs    = "sysfs"
	DriverSerial   = "serial"
	DriverTerminal = "terminal"
)

// ErrUnknownDriver is returned by New for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown pixel driver")

// Config selects and configures a pixel driver.
type Config struct {
	Driver     string
	Count      int
	SysfsRoot  string
	SysfsName  string
	SerialPort string
	SerialBaud int
}

// New opens the configured device. An empty driver selects noop.
func New(cfg Config, logger *slog.Logger) (Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case "", DriverNoop:
		logger.Info("Using no-op pixel driver")
		return newNoop(logger), nil

	case DriverSysfs:
		root := cfg.SysfsRoot
		if root == "" {
			root = sysfsLEDPath
		}
		dev, err := newSysfs(root, cfg.SysfsName)
		if err != nil {
			return nil, err
		}
		logger.Info("Using sysfs multicolor LED", "led", cfg.SysfsName, "channels", dev.order)
		return dev, nil

	case DriverSerial:
		baud := cfg.SerialBaud
		if baud == 0 {
			baud = 115200
		}
		dev, err := openSerial(cfg.SerialPort, baud, cfg.Count)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Adalight serial strip", "port", cfg.SerialPort, "baud", baud, "pixels", len(dev.pixels))
		return dev, nil

	case DriverTerminal:
		dev, err := openTerminal(cfg.Count)
		if err != nil {
			return nil, err
		}
		return dev, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
