package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rgbnode/internal/api/models"
	"github.com/smazurov/rgbnode/internal/dispatch"
	"github.com/smazurov/rgbnode/internal/sequence"
)

func (s *Server) registerSequenceRoutes() {
	if s.options.Store == nil {
		s.logger.Debug("Sequence store not available, skipping sequence routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-sequence",
		Method:      http.MethodGet,
		Path:        "/api/sequence",
		Summary:     "Get Sequence",
		Description: "Get the three colors cycled by playback",
		Tags:        []string{"sequence"},
	}, func(_ context.Context, _ *struct{}) (*models.SequenceResponse, error) {
		return &models.SequenceResponse{
			Body: models.SequenceData{Colors: sequenceHex(s.options.Store)},
		}, nil
	})

	if s.options.Commander == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "update-sequence",
		Method:      http.MethodPut,
		Path:        "/api/sequence",
		Summary:     "Update Sequence",
		Description: "Replace up to three slots in order. Same syntax as the bus sequence command: " +
			"empty tokens are skipped and unknown tokens become off.",
		Tags:   []string{"sequence"},
		Errors: []int{400},
	}, func(_ context.Context, input *models.SequenceUpdateRequest) (*models.SequenceUpdateResponse, error) {
		updated := s.options.Commander.Sequence([]byte(input.Body.Colors), dispatch.OriginAPI)

		resp := &models.SequenceUpdateResponse{}
		resp.Body.Colors = sequenceHex(s.options.Store)
		resp.Body.Updated = updated
		return resp, nil
	})
}

func sequenceHex(store *sequence.Store) []string {
	snapshot := store.Snapshot()
	colors := make([]string, len(snapshot))
	for i, c := range snapshot {
		colors[i] = c.Hex()
	}
	return colors
}
