package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/rgbnode/internal/api/models"
	"github.com/smazurov/rgbnode/internal/bus"
	"github.com/smazurov/rgbnode/internal/color"
	"github.com/smazurov/rgbnode/internal/dispatch"
	"github.com/smazurov/rgbnode/internal/events"
	"github.com/smazurov/rgbnode/internal/logging"
	"github.com/smazurov/rgbnode/internal/pixel"
	"github.com/smazurov/rgbnode/internal/sequence"
	"github.com/smazurov/rgbnode/internal/updater"
)

type fakeSession struct{ connected bool }

func (f fakeSession) IsConnected() bool { return f.connected }

type fakePlayback struct{}

func (fakePlayback) Timings() (time.Duration, time.Duration) {
	return 3 * time.Second, 100 * time.Millisecond
}

func (fakePlayback) Cursor() uint64 { return 7 }

type fakeUpdater struct {
	info *updater.Info
	err  error
}

func (f *fakeUpdater) Enabled() bool          { return f.err == nil }
func (f *fakeUpdater) DisabledReason() string { return "" }
func (f *fakeUpdater) Check(context.Context) (*updater.Info, error) {
	return f.info, f.err
}

func (f *fakeUpdater) Apply(context.Context) (*updater.Info, error) {
	return f.info, f.err
}

type testNode struct {
	server *Server
	store  *sequence.Store
	pixel  *pixel.Synchronized
}

func newTestNode(t *testing.T, opts *Options) testNode {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	dev, err := pixel.New(pixel.Config{Driver: "noop"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	renderer := pixel.NewSynchronized(dev, 1, 100)
	store := sequence.New()
	d := dispatch.New(store, renderer, bus.DefaultTopics(), dispatch.WithLogger(logger))

	if opts == nil {
		opts = &Options{}
	}
	opts.Store = store
	opts.Commander = d
	opts.Pixel = renderer

	return testNode{server: NewServer(opts), store: store, pixel: renderer}
}

func (n testNode) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	n.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	n := newTestNode(t, &Options{Session: fakeSession{connected: true}})

	w := n.do(t, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got := decode[models.HealthData](t, w)
	if got.Status != "ok" || !got.BusConnected {
		t.Errorf("health = %+v", got)
	}
}

func TestVersion(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodGet, "/api/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decode[map[string]any](t, w)
	if got["version"] == "" || got["platform"] == "" {
		t.Errorf("version = %v", got)
	}
}

func TestGetSequenceDefaults(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodGet, "/api/sequence", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	got := decode[models.SequenceData](t, w)
	if want := []string{"#FF0000", "#00FF00", "#0000FF"}; !reflect.DeepEqual(got.Colors, want) {
		t.Errorf("colors = %v, want %v", got.Colors, want)
	}
}

func TestPutSequence(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodPut, "/api/sequence", `{"colors":"orange,,CYAN"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got := decode[struct {
		Colors  []string `json:"colors"`
		Updated int      `json:"updated"`
	}](t, w)
	if got.Updated != 2 {
		t.Errorf("updated = %d, want 2", got.Updated)
	}
	if want := []string{"#FFA500", "#00FFFF", "#0000FF"}; !reflect.DeepEqual(got.Colors, want) {
		t.Errorf("colors = %v, want %v", got.Colors, want)
	}
	if n.store.Get(1) != color.Cyan {
		t.Errorf("store slot 1 = %v", n.store.Get(1))
	}
}

func TestPutSequenceRejectsBadBody(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodPut, "/api/sequence", `{"colors":`)
	if w.Code < 400 || w.Code >= 500 {
		t.Errorf("status = %d, want 4xx", w.Code)
	}
	if n.store.Snapshot() != sequence.New().Snapshot() {
		t.Error("store changed on malformed body")
	}
}

func TestSetLED(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodPost, "/api/led", `{"color":"Purple"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got := decode[models.LEDData](t, w)
	if got.Name != "purple" || got.Color != "#FF00FF" || got.R != 255 || got.B != 255 {
		t.Errorf("led = %+v", got)
	}
	if n.pixel.Last() != color.Magenta {
		t.Errorf("pixel = %v, want magenta", n.pixel.Last())
	}
	if n.store.Snapshot() != sequence.New().Snapshot() {
		t.Error("set command touched the store")
	}

	w = n.do(t, http.MethodGet, "/api/led", "")
	if got := decode[models.LEDData](t, w); got.Color != "#FF00FF" {
		t.Errorf("GET /api/led color = %q", got.Color)
	}
}

func TestSetLEDUnknownName(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodPost, "/api/led", `{"color":"#00ff00"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[models.LEDData](t, w); got.Color != "#000000" {
		t.Errorf("color = %q, want #000000", got.Color)
	}
}

func TestSetLEDEchoMatchesBus(t *testing.T) {
	n := newTestNode(t, nil)

	body := fmt.Sprintf(`{"color":%q}`, strings.Repeat("X", 40))
	w := n.do(t, http.MethodPost, "/api/led", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got, want := decode[models.LEDData](t, w).Name, strings.Repeat("x", dispatch.MaxSetPayload); got != want {
		t.Errorf("name = %q, want %q", got, want)
	}
}

func TestPlayback(t *testing.T) {
	n := newTestNode(t, &Options{Playback: fakePlayback{}})

	w := n.do(t, http.MethodGet, "/api/playback", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := models.PlaybackData{DwellMS: 3000, BlankMS: 100, Cycles: 7, Slot: 1}
	if got := decode[models.PlaybackData](t, w); got != want {
		t.Errorf("playback = %+v, want %+v", got, want)
	}
}

func TestLogs(t *testing.T) {
	n := newTestNode(t, nil)
	logging.GetLogger("apitest").Warn("Buffered for the logs endpoint", "slot", 2)

	w := n.do(t, http.MethodGet, "/api/logs?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	got := decode[struct {
		Entries []models.LogEntry `json:"entries"`
		Count   int               `json:"count"`
	}](t, w)
	if len(got.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(got.Entries))
	}
	entry := got.Entries[0]
	if entry.Message != "Buffered for the logs endpoint" || entry.Module != "apitest" || entry.Level != "warn" {
		t.Errorf("entry = %+v", entry)
	}
	if !strings.Contains(entry.Line, "[WARN] [apitest] Buffered for the logs endpoint slot=2") {
		t.Errorf("line = %q", entry.Line)
	}
	if got.Count < 1 {
		t.Errorf("count = %d", got.Count)
	}

	if w := n.do(t, http.MethodGet, "/api/logs?limit=9999", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("limit over maximum status = %d, want 422", w.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "rgbnode_bus_connected 1\n")
	})
	n := newTestNode(t, &Options{MetricsHandler: metrics})

	w := n.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "rgbnode_bus_connected") {
		t.Errorf("metrics status = %d body %q", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	n := newTestNode(t, nil)

	w := n.do(t, http.MethodOptions, "/api/sequence", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestUpdateRoutes(t *testing.T) {
	tests := []struct {
		name   string
		svc    *fakeUpdater
		method string
		path   string
		want   int
	}{
		{"check ok", &fakeUpdater{info: &updater.Info{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateAvailable: true}}, http.MethodGet, "/api/update/check", http.StatusOK},
		{"apply ok", &fakeUpdater{info: &updater.Info{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateAvailable: true}}, http.MethodPost, "/api/update/apply", http.StatusOK},
		{"disabled", &fakeUpdater{err: &updater.Error{Code: updater.ErrCodeDisabled, Message: "read-only"}}, http.MethodGet, "/api/update/check", http.StatusServiceUnavailable},
		{"busy", &fakeUpdater{err: &updater.Error{Code: updater.ErrCodeBusy, Message: "busy"}}, http.MethodPost, "/api/update/apply", http.StatusConflict},
		{"no update", &fakeUpdater{err: &updater.Error{Code: updater.ErrCodeNoUpdate, Message: "current"}}, http.MethodPost, "/api/update/apply", http.StatusBadRequest},
		{"other error", &fakeUpdater{err: io.ErrUnexpectedEOF}, http.MethodGet, "/api/update/check", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(t, &Options{Updater: tt.svc})
			if w := n.do(t, tt.method, tt.path, ""); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestOptionalRoutesSkipped(t *testing.T) {
	s := NewServer(&Options{})

	for _, path := range []string{"/api/sequence", "/api/led", "/api/playback", "/api/update/check", "/api/events"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
	}
}

func TestEventStream(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	n := newTestNode(t, &Options{Events: bus})

	srv := httptest.NewServer(n.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Keep publishing until the stream has subscribed and the event arrives
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bus.Publish(events.SequenceUpdatedEvent{Slots: []string{"#FFA500", "#00FF00", "#0000FF"}, Updated: 1})
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	var seen strings.Builder
	for !strings.Contains(seen.String(), "#FFA500") {
		nr, err := resp.Body.Read(buf)
		if err != nil {
			t.Fatalf("stream read: %v (got %q)", err, seen.String())
		}
		seen.Write(buf[:nr])
	}
	if !strings.Contains(seen.String(), "event: sequence-updated") {
		t.Errorf("stream = %q, want sequence-updated event", seen.String())
	}
}

func TestLogsAfter(t *testing.T) {
	n := newTestNode(t, nil)
	logger := logging.GetLogger("apitest")
	logger.Warn("first poll marker")

	w := n.do(t, http.MethodGet, "/api/logs?limit=1", "")
	first := decode[struct {
		Entries []models.LogEntry `json:"entries"`
	}](t, w)
	if len(first.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(first.Entries))
	}
	cursor := first.Entries[0].Seq

	logger.Warn("second poll marker")
	w = n.do(t, http.MethodGet, fmt.Sprintf("/api/logs?after=%d&limit=0", cursor), "")
	next := decode[struct {
		Entries []models.LogEntry `json:"entries"`
	}](t, w)

	found := false
	for _, e := range next.Entries {
		if e.Seq <= cursor {
			t.Errorf("entry seq %d not after cursor %d", e.Seq, cursor)
		}
		if e.Message == "second poll marker" {
			found = true
		}
	}
	if !found {
		t.Errorf("second marker missing from %+v", next.Entries)
	}
}
