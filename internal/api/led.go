package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rgbnode/internal/api/models"
	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/dispatch"
	"github.com/smazurov/rgbnode/internal/sequence"
)

func (s *Server) registerLEDRoutes() {
	if s.options.Pixel != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "get-led",
			Method:      http.MethodGet,
			Path:        "/api/led",
			Summary:     "Get LED",
			Description: "Get the color last written to the pixel",
			Tags:        []string{"led"},
		}, func(_ context.Context, _ *struct{}) (*models.LEDResponse, error) {
			return &models.LEDResponse{Body: ledData("", s.options.Pixel.Last())}, nil
		})
	}

	if s.options.Commander == nil {
		s.logger.Debug("Commander not available, skipping LED control route")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "set-led",
		Method:      http.MethodPost,
		Path:        "/api/led",
		Summary:     "Set LED",
		Description: "Show a named color immediately, bypassing the sequence. The next playback state overwrites it.",
		Tags:        []string{"led"},
		Errors:      []int{400},
	}, func(_ context.Context, input *models.LEDSetRequest) (*models.LEDResponse, error) {
		c := s.options.Commander.Set([]byte(input.Body.Color), dispatch.OriginAPI)
		return &models.LEDResponse{Body: ledData(dispatch.SetName([]byte(input.Body.Color)), c)}, nil
	})
}

func ledData(name string, c color.RGB) models.LEDData {
	return models.LEDData{
		Name:  name,
		Color: c.Hex(),
		R:     c.R,
		G:     c.G,
		B:     c.B,
	}
}

func (s *Server) registerPlaybackRoutes() {
	if s.options.Playback == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-playback",
		Method:      http.MethodGet,
		Path:        "/api/playback",
		Summary:     "Get Playback",
		Description: "Get playback timings and progress",
		Tags:        []string{"sequence"},
	}, func(_ context.Context, _ *struct{}) (*models.PlaybackResponse, error) {
		dwell, blank := s.options.Playback.Timings()
		cycles := s.options.Playback.Cursor()
		return &models.PlaybackResponse{
			Body: models.PlaybackData{
				DwellMS: dwell.Milliseconds(),
				BlankMS: blank.Milliseconds(),
				Cycles:  cycles,
				Slot:    int(cycles % sequence.Slots),
			},
		}, nil
	})
}
