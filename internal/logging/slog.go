package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// consoleOut receives console logs. Standard output is reserved for
// matchup results, so logs go to stderr.
var consoleOut io.Writer = os.Stderr

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// Options configures the handlers built by Setup.
type Options struct {
	// File receives text logs. When nil, logs go to the console instead.
	File io.Writer
	// Level is one of debug, info, warn or error.
	Level string
	// Provider enables the OTel bridge when non-nil.
	Provider *sdklog.LoggerProvider
	// Context is called for every record to add dynamic attributes.
	Context ContextProvider
	// Extra handlers, such as a GELF sink.
	Extra []slog.Handler
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system with file and optional OTel output.
// If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.SetupWith(Options{File: file, Level: level, Provider: provider})
}

// SetupWith is Setup with context injection and extra sinks.
func (m *SlogManager) SetupWith(opts Options) {
	handlerOpts := handlerOptions(opts.Level)
	m.logProvider = opts.Provider

	var handlers []slog.Handler

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(consoleOut, handlerOpts))
	}

	if opts.Provider != nil {
		otelHandler := otelslog.NewHandler("fleeteval", otelslog.WithLoggerProvider(opts.Provider))
		handlers = append(handlers, otelHandler)
	}

	handlers = append(handlers, opts.Extra...)

	var handler slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		handler = NewContextHandler(handler, opts.Context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", opts.Level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
