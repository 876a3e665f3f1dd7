package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// scope is the attribute and group state a handler accumulates through
// WithAttrs and WithGroup. Attributes added while groups are open are
// stored already nested, so groups opened later do not qualify them.
type scope struct {
	attrs  []slog.Attr
	groups []string
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	if n := len(s.groups); n > 0 && len(attrs) > 0 {
		nested := slog.Attr{Key: s.groups[n-1], Value: slog.GroupValue(attrs...)}
		for i := n - 2; i >= 0; i-- {
			nested = slog.Attr{Key: s.groups[i], Value: slog.GroupValue(nested)}
		}
		attrs = []slog.Attr{nested}
	}
	return scope{attrs: append(slices.Clip(s.attrs), attrs...), groups: s.groups}
}

func (s scope) withGroup(name string) scope {
	if name == "" {
		return s
	}
	return scope{attrs: s.attrs, groups: append(slices.Clip(s.groups), name)}
}

// each calls fn for the scoped attributes, then for the record's own under
// the open groups.
func (s scope) each(r slog.Record, fn func(groups []string, a slog.Attr)) {
	for _, a := range s.attrs {
		fn(nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fn(s.groups, a)
		return true
	})
}

// MultiHandler fans each record out to every handler enabled for its level.
type MultiHandler []slog.Handler

// NewMultiHandler drops nil handlers.
func NewMultiHandler(handlers ...slog.Handler) MultiHandler {
	m := make(MultiHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			m = append(m, h)
		}
	}
	return m
}

// Enabled implements slog.Handler.
func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(m, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

// Handle implements slog.Handler. Every handler sees the record even when an
// earlier one fails; the failures are joined.
func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (m MultiHandler) WithGroup(name string) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m MultiHandler) derive(fn func(slog.Handler) slog.Handler) MultiHandler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = fn(h)
	}
	return out
}
