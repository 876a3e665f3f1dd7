// Package api serves the HTTP control surface: sequence and pixel control,
// playback state, buffered logs, an event stream and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/rgbnode/internal/api/models"
	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/sequence"
	"github.com/smazurov/rgbnode/internal/updater"
	"github.com/smazurov/rgbnode/internal/version"
)

// Commander runs set and sequence commands. dispatch.Dispatcher
// implements it.
type Commander interface {
	Set(payload []byte, origin string) color.RGB
	Sequence(payload []byte, origin string) int
}

// ColorSource reports the color last written to the pixel.
type ColorSource interface {
	Last() color.RGB
}

// PlaybackState exposes the playback loop.
type PlaybackState interface {
	Timings() (dwell, blank time.Duration)
	Cursor() uint64
}

// SessionChecker reports the broker session state.
type SessionChecker interface {
	IsConnected() bool
}

// UpdateService checks for and applies releases.
type UpdateService interface {
	Enabled() bool
	DisabledReason() string
	Check(ctx context.Context) (*updater.Info, error)
	Apply(ctx context.Context) (*updater.Info, error)
}

// Options wires the server to the running node. Nil fields disable the
// routes that need them.
type Options struct {
	Store          *sequence.Store
	Commander      Commander
	Pixel          ColorSource
	Playback       PlaybackState
	Session        SessionChecker
	Events         *events.Bus
	Updater        UpdateService
	MetricsHandler http.Handler
}

// Server is the huma API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the server and registers all routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("rgbnode API", version.Version)
	config.Info.Description = "Control and inspect an rgbnode LED sequencer"
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start listens on addr and serves until Stop. It returns nil after a
// clean shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener.
func (s *Server) Serve(listener net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting API server", "addr", listener.Addr().String())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+listener.Addr().String()+"/docs")

	err := s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down, closing open event streams.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health and broker session state",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "ok"
		if s.options.Session != nil {
			resp.Body.BusConnected = s.options.Session.IsConnected()
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	s.registerSequenceRoutes()
	s.registerLEDRoutes()
	s.registerPlaybackRoutes()
	s.registerLogRoutes()
	s.registerEventRoutes()
	s.registerUpdateRoutes()
}
