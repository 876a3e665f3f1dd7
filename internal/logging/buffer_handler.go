package logging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// BufferHandler is a slog.Handler that keeps records in a RingBuffer.
// The "module" attribute becomes LogEntry.Module; other attributes are
// flattened with dotted group prefixes.
type BufferHandler struct {
	buffer *RingBuffer
	level  slog.Leveler
	scope  scope
}

// NewBufferHandler creates a handler that writes to the given ring buffer.
func NewBufferHandler(buffer *RingBuffer, level slog.Leveler) *BufferHandler {
	return &BufferHandler{buffer: buffer, level: level}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     "app",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}

	h.scope.each(r, func(groups []string, a slog.Attr) {
		if a.Key == "module" && len(groups) == 0 {
			entry.Module = a.Value.String()
			return
		}
		flattenAttr(entry.Attributes, groups, a)
	})

	h.buffer.Write(entry)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{buffer: h.buffer, level: h.level, scope: h.scope.withAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{buffer: h.buffer, level: h.level, scope: h.scope.withGroup(name)}
}

// flattenAttr stores a under its dotted key. Values are kept JSON friendly:
// errors and Stringers (such as colors) become their text.
func flattenAttr(attrs map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		nested := groups
		if a.Key != "" {
			nested = append(slices.Clip(groups), a.Key)
		}
		for _, ga := range a.Value.Group() {
			flattenAttr(attrs, nested, ga)
		}
		return
	}

	key := strings.Join(append(slices.Clip(groups), a.Key), ".")
	switch a.Value.Kind() {
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			attrs[key] = v.Error()
		case fmt.Stringer:
			attrs[key] = v.String()
		default:
			attrs[key] = v
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

var levelNames = []struct {
	min  slog.Level
	name string
}{
	{slog.LevelError, "error"},
	{slog.LevelWarn, "warn"},
	{slog.LevelInfo, "info"},
}

func levelName(level slog.Level) string {
	for _, l := range levelNames {
		if level >= l.min {
			return l.name
		}
	}
	return "debug"
}

// FormatLogLine renders an entry as one text line with sorted attributes:
//
//	2026-01-02T03:04:05Z [WARN] [playback] Render failed attempt=1 slot=2
func FormatLogLine(entry LogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		entry.Timestamp.Format(time.RFC3339Nano),
		strings.ToUpper(entry.Level),
		entry.Module,
		entry.Message)

	for _, k := range slices.Sorted(maps.Keys(entry.Attributes)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Attributes[k])
	}
	return sb.String()
}
