package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/pixel"
)

// DefaultSelfTestStep is how long each primary is shown by SelfTest.
const DefaultSelfTestStep = time.Second

// SelfTest shows red, green and blue for step each and then turns the pixel
// off. It returns ctx.Err() when cancelled and the first render error
// otherwise.
func SelfTest(ctx context.Context, renderer pixel.Renderer, step time.Duration, bus *events.Bus) error {
	if step <= 0 {
		step = DefaultSelfTestStep
	}

	for _, c := range []color.RGB{color.Red, color.Green, color.Blue} {
		if err := renderer.Show(c); err != nil {
			bus.Publish(events.RenderFailedEvent{Source: events.SourceSelfTest, Error: err.Error()})
			return fmt.Errorf("self test %s: %w", c.Hex(), err)
		}
		bus.Publish(events.ColorRenderedEvent{
			Color:  c.Hex(),
			R:      c.R,
			G:      c.G,
			B:      c.B,
			Slot:   -1,
			Source: events.SourceSelfTest,
		})
		if !sleep(ctx, step) {
			_ = renderer.Show(color.Off)
			return ctx.Err()
		}
	}

	if err := renderer.Show(color.Off); err != nil {
		return fmt.Errorf("self test off: %w", err)
	}
	return nil
}
