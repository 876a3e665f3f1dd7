package pixel

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/smazurov/rgbnode/internal/color"
)

const swatchWidth = 7

// terminal implements Device by painting swatches on a tcell screen.
// Useful for development without hardware.
//
// The screen runs the tty in raw mode, so Ctrl-C arrives as a key event
// rather than SIGINT. Ctrl-C and Esc call interrupt instead.
type terminal struct {
	screen    tcell.Screen
	pixels    []color.RGB
	interrupt func()
	done      chan struct{}
}

// openTerminal initializes the controlling terminal
func openTerminal(count int) (*terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal screen: %w", err)
	}
	return newTerminal(screen, count, raiseInterrupt), nil
}

func newTerminal(screen tcell.Screen, count int, interrupt func()) *terminal {
	if count < 1 {
		count = 1
	}
	t := &terminal{
		screen:    screen,
		pixels:    make([]color.RGB, count),
		interrupt: interrupt,
		done:      make(chan struct{}),
	}
	go t.pollEvents()
	return t
}

// raiseInterrupt delivers SIGINT to this process so the normal shutdown
// path runs.
func raiseInterrupt() {
	if p, err := os.FindProcess(os.Getpid()); err == nil {
		_ = p.Signal(os.Interrupt)
	}
}

// pollEvents drains input until the screen is finalized.
func (t *terminal) pollEvents() {
	defer close(t.done)
	for {
		switch ev := t.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape {
				t.interrupt()
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *terminal) SetPixel(index int, c color.RGB) error {
	if index < 0 || index >= len(t.pixels) {
		return fmt.Errorf("pixel %d out of range (preview has %d)", index, len(t.pixels))
	}
	t.pixels[index] = c
	return nil
}

// Refresh draws one swatch per pixel with its hex value underneath
func (t *terminal) Refresh() error {
	t.screen.Clear()

	for i, p := range t.pixels {
		x0 := i * (swatchWidth + 1)
		bg := tcell.NewRGBColor(int32(p.R), int32(p.G), int32(p.B))
		swatch := tcell.StyleDefault.Background(bg)

		for y := 0; y < 2; y++ {
			for x := 0; x < swatchWidth; x++ {
				t.screen.SetContent(x0+x, y, ' ', nil, swatch)
			}
		}
		for x, r := range p.Hex() {
			t.screen.SetContent(x0+x, 2, r, nil, tcell.StyleDefault)
		}
	}

	t.screen.Show()
	return nil
}

func (t *terminal) Close() error {
	t.screen.Fini()
	<-t.done
	return nil
}
