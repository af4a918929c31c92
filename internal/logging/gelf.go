package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFSink ships JSON-encoded records to a Graylog input.
type GELFSink struct {
	writer  *gelf.Writer
	handler slog.Handler
}

// NewGELFSink dials the Graylog UDP input at address.
func NewGELFSink(address, level string) (*GELFSink, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graylog at %s: %w", address, err)
	}
	return &GELFSink{
		writer:  w,
		handler: slog.NewJSONHandler(w, handlerOptions(level)),
	}, nil
}

// Handler returns the slog handler writing to Graylog.
func (s *GELFSink) Handler() slog.Handler {
	return s.handler
}

// Close closes the underlying connection.
func (s *GELFSink) Close() error {
	return s.writer.Close()
}
