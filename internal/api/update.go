package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rgbnode/internal/api/models"
	"github.com/smazurov/rgbnode/internal/updater"
)

// registerUpdateRoutes registers self-update endpoints.
func (s *Server) registerUpdateRoutes() {
	svc := s.options.Updater
	if svc == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "check-update",
		Method:      http.MethodGet,
		Path:        "/api/update/check",
		Summary:     "Check for Updates",
		Description: "Check whether a newer release is available without downloading it",
		Tags:        []string{"update"},
		Errors:      []int{404, 409, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateResponse, error) {
		info, err := svc.Check(ctx)
		if err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateResponse{Body: updateData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-update",
		Method:      http.MethodPost,
		Path:        "/api/update/apply",
		Summary:     "Apply Update",
		Description: "Download and install the latest release. Takes effect on the next restart.",
		Tags:        []string{"update"},
		Errors:      []int{400, 404, 409, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.UpdateResponse, error) {
		info, err := svc.Apply(ctx)
		if err != nil {
			return nil, mapUpdateError(err)
		}
		return &models.UpdateResponse{Body: updateData(info)}, nil
	})
}

func updateData(info *updater.Info) models.UpdateData {
	return models.UpdateData{
		CurrentVersion:  info.CurrentVersion,
		LatestVersion:   info.LatestVersion,
		ReleaseNotes:    info.ReleaseNotes,
		ReleaseURL:      info.ReleaseURL,
		PublishedAt:     info.PublishedAt,
		AssetSize:       info.AssetSize,
		UpdateAvailable: info.UpdateAvailable,
	}
}

// mapUpdateError converts updater errors to huma status errors.
func mapUpdateError(err error) error {
	var updateErr *updater.Error
	if !errors.As(err, &updateErr) {
		return huma.Error500InternalServerError(err.Error())
	}

	switch updateErr.Code {
	case updater.ErrCodeBusy:
		return huma.Error409Conflict(updateErr.Message)
	case updater.ErrCodeNoUpdate:
		return huma.Error400BadRequest(updateErr.Message)
	case updater.ErrCodeNotFound:
		return huma.Error404NotFound(updateErr.Message)
	case updater.ErrCodeDisabled:
		return huma.Error503ServiceUnavailable(updateErr.Message)
	default:
		return huma.Error500InternalServerError(updateErr.Message)
	}
}
