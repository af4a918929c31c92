package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans records out to every sink: console or log file, the
// OTel bridge and Graylog.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler ignores nil sinks so optional ones can be passed as-is.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	m := &MultiHandler{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Enabled reports whether any sink accepts the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every sink that accepts it. A failing sink
// does not stop delivery to the others; all failures are returned joined.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (m *MultiHandler) derive(f func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, s := range m.sinks {
		sinks[i] = f(s)
	}
	return &MultiHandler{sinks: sinks}
}
