package pixel

import (
	"fmt"
	"io"

	"github.com/smazurov/rgbnode/internal/color"
	"github.com/tarm/serial"
)

// adalightMagic prefixes every Adalight frame
var adalightMagic = []byte{'A', 'd', 'a'}

// serialStrip implements Device for microcontroller-driven strips speaking
// the Adalight protocol over a serial port.
type serialStrip struct {
	port   io.WriteCloser
	pixels []color.RGB
}

// openSerial opens the serial port and returns a strip of count pixels
func openSerial(portName string, baudRate, count int) (*serialStrip, error) {
	c := &serial.Config{
		Name: portName,
		Baud: baudRate,
	}

	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return newSerialStrip(port, count), nil
}

func newSerialStrip(port io.WriteCloser, count int) *serialStrip {
	if count < 1 {
		count = 1
	}
	return &serialStrip{
		port:   port,
		pixels: make([]color.RGB, count),
	}
}

func (s *serialStrip) SetPixel(index int, c color.RGB) error {
	if index < 0 || index >= len(s.pixels) {
		return fmt.Errorf("pixel %d out of range (strip has %d)", index, len(s.pixels))
	}
	s.pixels[index] = c
	return nil
}

// Refresh sends the whole strip as one frame
func (s *serialStrip) Refresh() error {
	if _, err := s.port.Write(adalightFrame(s.pixels)); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

func (s *serialStrip) Close() error {
	return s.port.Close()
}

// adalightFrame encodes pixels as "Ada", count-1 (big endian), checksum, RGB...
func adalightFrame(pixels []color.RGB) []byte {
	n := len(pixels) - 1
	hi := byte(n >> 8)
	lo := byte(n & 0xff)

	frame := make([]byte, 0, len(adalightMagic)+3+len(pixels)*3)
	frame = append(frame, adalightMagic...)
	frame = append(frame, hi, lo, hi^lo^0x55)
	for _, p := range pixels {
		frame = append(frame, p.R, p.G, p.B)
	}
	return frame
}
