package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/rgbnode/internal/events"
)

// registerEventRoutes registers the SSE stream of node events.
func (s *Server) registerEventRoutes() {
	if s.options.Events == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Event Stream",
		Description: "Real-time stream of renders, commands and sequence updates",
		Tags:        []string{"events"},
	}, map[string]any{
		"color-rendered":   events.ColorRenderedEvent{},
		"render-failed":    events.RenderFailedEvent{},
		"command-received": events.CommandReceivedEvent{},
		"sequence-updated": events.SequenceUpdatedEvent{},
		"publish-failed":   events.PublishFailedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.ColorRenderedEvent](s.options.Events, eventCh),
			events.SubscribeToChannel[events.RenderFailedEvent](s.options.Events, eventCh),
			events.SubscribeToChannel[events.CommandReceivedEvent](s.options.Events, eventCh),
			events.SubscribeToChannel[events.SequenceUpdatedEvent](s.options.Events, eventCh),
			events.SubscribeToChannel[events.PublishFailedEvent](s.options.Events, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
