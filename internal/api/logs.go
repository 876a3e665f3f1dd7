package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rgbnode/internal/api/models"
	"github.com/smazurov/rgbnode/internal/logging"
)

// registerLogRoutes registers the buffered log endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get the newest buffered log entries, oldest first",
		Tags:        []string{"logs"},
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		resp := &models.LogsResponse{}
		resp.Body.Entries = []models.LogEntry{}

		buffer := logging.GetBuffer()
		if buffer == nil {
			return resp, nil
		}

		for _, entry := range buffer.Since(input.After, input.Limit) {
			resp.Body.Entries = append(resp.Body.Entries, models.LogEntry{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp,
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
				Line:       logging.FormatLogLine(entry),
			})
		}
		resp.Body.Count = buffer.Count()
		return resp, nil
	})
}
