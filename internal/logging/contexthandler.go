package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the attributes of the current run, such as its
// id and the matchup being evaluated. It is called once per record.
type ContextProvider func() []slog.Attr

// ContextHandler stamps every record with the provider's attributes. They
// are always added at the top level, even on loggers derived with
// WithGroup, so a run can be found by runId regardless of the component
// that logged.
type ContextHandler struct {
	base     slog.Handler
	provider ContextProvider
	derive   []func(slog.Handler) slog.Handler
}

// NewContextHandler wraps base with run attributes from provider.
func NewContextHandler(base slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{base: base, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle rebuilds the derived handler on top of the current run attributes.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	target := h.base
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			target = target.WithAttrs(attrs)
		}
	}
	for _, d := range h.derive {
		target = d(target)
	}
	return target.Handle(ctx, r)
}

func (h *ContextHandler) with(d func(slog.Handler) slog.Handler) *ContextHandler {
	derive := make([]func(slog.Handler) slog.Handler, len(h.derive), len(h.derive)+1)
	copy(derive, h.derive)
	return &ContextHandler{base: h.base, provider: h.provider, derive: append(derive, d)}
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}
