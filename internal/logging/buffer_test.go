package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(3)

	if got := rb.Tail(10); got != nil {
		t.Fatalf("Tail on empty buffer = %v, want nil", got)
	}

	for _, msg := range []string{"a", "b", "c", "d"} {
		rb.Write(LogEntry{Message: msg})
	}

	if rb.Count() != 3 {
		t.Errorf("Count() = %d, want 3", rb.Count())
	}

	tests := []struct {
		n    int
		want string
	}{
		{0, "bcd"},
		{2, "cd"},
		{1, "d"},
		{10, "bcd"},
	}
	for _, tt := range tests {
		var got strings.Builder
		for _, e := range rb.Tail(tt.n) {
			got.WriteString(e.Message)
		}
		if got.String() != tt.want {
			t.Errorf("Tail(%d) = %q, want %q", tt.n, got.String(), tt.want)
		}
	}
}

func TestRingBufferSince(t *testing.T) {
	rb := NewRingBuffer(4)
	for _, msg := range []string{"a", "b", "c", "d", "e", "f"} {
		rb.Write(LogEntry{Message: msg})
	}

	// seq 1 and 2 (a, b) were overwritten
	tests := []struct {
		after uint64
		n     int
		want  string
	}{
		{0, 0, "cdef"},
		{3, 0, "def"},
		{3, 2, "ef"},
		{6, 0, ""},
		{99, 0, ""},
	}
	for _, tt := range tests {
		var got strings.Builder
		for _, e := range rb.Since(tt.after, tt.n) {
			got.WriteString(e.Message)
		}
		if got.String() != tt.want {
			t.Errorf("Since(%d, %d) = %q, want %q", tt.after, tt.n, got.String(), tt.want)
		}
	}

	entries := rb.Tail(1)
	if len(entries) != 1 || entries[0].Seq != 6 {
		t.Errorf("newest entry = %+v, want seq 6", entries)
	}
}

func TestRingBufferMinimumSize(t *testing.T) {
	rb := NewRingBuffer(0)
	rb.Write(LogEntry{Message: "a"})
	rb.Write(LogEntry{Message: "b"})

	if got := rb.Tail(0); len(got) != 1 || got[0].Message != "b" {
		t.Errorf("Tail(0) = %+v, want only b", got)
	}
}

func TestBufferHandler(t *testing.T) {
	rb := NewRingBuffer(10)
	logger := slog.New(NewBufferHandler(rb, slog.LevelInfo)).With("module", "dispatch")

	logger.Debug("hidden")
	logger.Info("Sequence updated", "tokens", 2, "err", errors.New("boom"))
	logger.WithGroup("slot").Warn("Render failed", "index", 1)

	entries := rb.Tail(0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.Module != "dispatch" || first.Level != "info" {
		t.Errorf("first entry = %+v", first)
	}
	if first.Attributes["err"] != "boom" {
		t.Errorf("err attribute = %v, want boom", first.Attributes["err"])
	}
	if _, ok := entries[1].Attributes["slot.index"]; !ok {
		t.Errorf("grouped attribute missing: %v", entries[1].Attributes)
	}
}

func TestFormatLogLine(t *testing.T) {
	entry := LogEntry{
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:      "warn",
		Module:     "playback",
		Message:    "Render failed",
		Attributes: map[string]any{"slot": 2, "attempt": 1},
	}

	want := "2026-01-02T03:04:05Z [WARN] [playback] Render failed attempt=1 slot=2"
	if got := FormatLogLine(entry); got != want {
		t.Errorf("FormatLogLine() = %q, want %q", got, want)
	}
}
