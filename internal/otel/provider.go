// Package otel sets up the OpenTelemetry log pipeline and hands out meters.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/athena2/fleeteval/internal/config"
)

// ErrNoSink is returned when OTel is enabled with neither a log writer
// nor an OTLP endpoint.
var ErrNoSink = errors.New("OTel enabled but no log writer or endpoint configured")

// Config holds OTel configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	LogWriter      io.Writer // pretty-printed records, usually the log file
	Endpoint       string    // OTLP/HTTP endpoint, optional
	Insecure       bool
}

// FromConfig builds a provider Config from the application settings.
// Batched log records are written to w.
func FromConfig(cfg config.OTelConfig, version string, w io.Writer) Config {
	return Config{
		Enabled:        cfg.Enabled,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		BatchTimeout:   cfg.BatchTimeout,
		LogWriter:      w,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
	}
}

// Provider owns the log provider of an evaluation session.
type Provider struct {
	logs *sdklog.LoggerProvider
	cfg  Config
}

// New creates a provider. A disabled config yields a provider whose
// methods are no-ops.
func New(cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	procs, err := processors(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range procs {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logs = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

func processors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	var exporters []sdklog.Exporter

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if len(exporters) == 0 {
		return nil, ErrNoSink
	}

	procs := make([]sdklog.Processor, len(exporters))
	for i, exp := range exporters {
		procs[i] = sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout))
	}
	return procs, nil
}

// LoggerProvider returns the log provider for the otelslog bridge, or nil
// when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a named meter from the global meter provider, so an
// embedding program can install its own exporter. Disabled providers
// return a no-op meter.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.cfg.Enabled {
		return noop.Meter{}
	}
	return otel.GetMeterProvider().Meter(name)
}

// Flush exports every buffered log record.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the log pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled reports whether OTel is enabled.
func (p *Provider) Enabled() bool {
	return p.cfg.Enabled
}
