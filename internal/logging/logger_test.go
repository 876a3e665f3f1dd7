package logging

import (
	"context"
	"log/slog"
	"testing"
)

// reset clears the package state between tests.
func reset(t *testing.T) {
	t.Helper()
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	mutex.Unlock()
}

func enabled(l *slog.Logger, level slog.Level) bool {
	return l.Handler().Enabled(context.Background(), level)
}

func TestModuleLevelOverride(t *testing.T) {
	reset(t)
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"dispatch": "debug",
			"api":      "warn",
			"pixel":    "bogus",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"dispatch", true, true, true},
		{"api", false, false, true},
		{"pixel", false, true, true}, // unparsable override falls back to global
		{"playback", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			logger := GetLogger(tt.module)
			if got := enabled(logger, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := enabled(logger, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := enabled(logger, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestReinitializeUpdatesHeldLoggers(t *testing.T) {
	reset(t)

	// Components keep the logger they were built with
	held := GetLogger("playback")
	if enabled(held, slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"playback": "debug"}})
	if !enabled(held, slog.LevelDebug) {
		t.Error("held logger should see the debug override")
	}

	Initialize(Config{Level: "error"})
	if enabled(held, slog.LevelWarn) {
		t.Error("held logger should follow the reloaded global level")
	}
	if !enabled(GetLogger("playback"), slog.LevelError) {
		t.Error("fresh lookup should log errors")
	}
}

func TestLoggersFeedBuffer(t *testing.T) {
	reset(t)
	Initialize(Config{Level: "info", Format: "json", Stderr: true})

	GetLogger("dispatch").Info("Sequence updated", "tokens", 3)

	entries := GetBuffer().Tail(1)
	if len(entries) != 1 {
		t.Fatalf("buffer holds %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.Module != "dispatch" || got.Message != "Sequence updated" || got.Level != "info" {
		t.Errorf("entry = %+v", got)
	}
	if got.Attributes["tokens"] != int64(3) {
		t.Errorf("tokens = %v (%T), want 3", got.Attributes["tokens"], got.Attributes["tokens"])
	}
}

func TestLevelFor(t *testing.T) {
	cfg := Config{Level: "warn", Modules: map[string]string{"bus": "debug", "": "error"}}

	tests := []struct {
		module string
		want   slog.Level
	}{
		{"bus", slog.LevelDebug},
		{"api", slog.LevelWarn},
		{"", slog.LevelWarn}, // the global logger ignores module overrides
	}
	for _, tt := range tests {
		if got := levelFor(cfg, tt.module); got != tt.want {
			t.Errorf("levelFor(%q) = %v, want %v", tt.module, got, tt.want)
		}
	}

	if got := levelFor(Config{}, "bus"); got != slog.LevelInfo {
		t.Errorf("levelFor(empty) = %v, want info", got)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
