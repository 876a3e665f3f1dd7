// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"time"

	"github.com/smazurov/rgbnode/internal/version"
)

// HealthData reports liveness and bus session state.
type HealthData struct {
	Status       string `json:"status" example:"ok" doc:"Service status"`
	BusConnected bool   `json:"bus_connected" example:"true" doc:"Whether the broker session is up"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// SequenceData is the three-slot sequence as #RRGGBB strings.
type SequenceData struct {
	Colors []string `json:"colors" example:"[\"#FF0000\",\"#00FF00\",\"#0000FF\"]" doc:"Slots 0..2 as #RRGGBB"`
}

type SequenceResponse struct {
	Body SequenceData
}

// SequenceUpdateRequest replaces up to three slots, same syntax as the bus
// sequence command.
type SequenceUpdateRequest struct {
	Body struct {
		Colors string `json:"colors" example:"red,00ff00,#0000FF" doc:"Comma separated color names or hex codes"`
	}
}

type SequenceUpdateResponse struct {
	Body struct {
		Colors  []string `json:"colors" doc:"Slots 0..2 after the update as #RRGGBB"`
		Updated int      `json:"updated" example:"3" doc:"Number of slots written"`
	}
}

// LEDSetRequest shows a named color immediately.
type LEDSetRequest struct {
	Body struct {
		Color string `json:"color" example:"purple" doc:"Color name from the fixed table; unknown names turn the pixel off"`
	}
}

// LEDData is a color shown on the pixel.
type LEDData struct {
	Name  string `json:"name,omitempty" example:"purple" doc:"Requested name, lowercased"`
	Color string `json:"color" example:"#FF00FF" doc:"Color as #RRGGBB"`
	R     uint8  `json:"r"`
	G     uint8  `json:"g"`
	B     uint8  `json:"b"`
}

type LEDResponse struct {
	Body LEDData
}

// PlaybackData describes the playback loop.
type PlaybackData struct {
	DwellMS int64  `json:"dwell_ms" example:"3000" doc:"Lit hold interval"`
	BlankMS int64  `json:"blank_ms" example:"100" doc:"Off hold interval"`
	Cycles  uint64 `json:"cycles" example:"42" doc:"Completed lit/off cycles"`
	Slot    int    `json:"slot" example:"0" doc:"Slot shown in the current cycle"`
}

type PlaybackResponse struct {
	Body PlaybackData
}

// LogsRequest selects how many recent log entries to return.
type LogsRequest struct {
	Limit int    `query:"limit" default:"100" minimum:"0" maximum:"500" doc:"Newest entries to return, 0 for all"`
	After uint64 `query:"after" doc:"Only entries with a greater seq, for polling"`
}

// LogEntry is one buffered log record.
type LogEntry struct {
	Seq        uint64         `json:"seq" doc:"Increases by one per record"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level" example:"info"`
	Module     string         `json:"module" example:"dispatch"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Line       string         `json:"line" doc:"Entry rendered as one text line"`
}

type LogsResponse struct {
	Body struct {
		Entries []LogEntry `json:"entries"`
		Count   int        `json:"count" doc:"Entries currently buffered"`
	}
}

// UpdateData is the result of an update check or apply.
type UpdateData struct {
	CurrentVersion  string    `json:"current_version" example:"1.0.0" doc:"Currently installed version"`
	LatestVersion   string    `json:"latest_version" example:"1.1.0" doc:"Latest available version"`
	ReleaseNotes    string    `json:"release_notes,omitempty" doc:"Markdown release notes"`
	ReleaseURL      string    `json:"release_url,omitempty" doc:"URL to the release page"`
	PublishedAt     time.Time `json:"published_at,omitempty" doc:"When the release was published"`
	AssetSize       int       `json:"asset_size,omitempty" example:"5242880" doc:"Size of the update in bytes"`
	UpdateAvailable bool      `json:"update_available" example:"true" doc:"Whether an update is available"`
}

type UpdateResponse struct {
	Body UpdateData
}
