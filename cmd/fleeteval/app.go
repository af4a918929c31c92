package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/influx"
	"github.com/athena2/fleeteval/internal/logging"
	intOtel "github.com/athena2/fleeteval/internal/otel"
	fleetrun "github.com/athena2/fleeteval/internal/run"
)

// app holds the process-wide services shared by every run.
type app struct {
	sessionStart time.Time

	slogManager *logging.SlogManager
	logger      *slog.Logger
	zlog        zerolog.Logger
	logFile     *os.File
	gelf        *logging.GELFSink

	otelProvider *intOtel.Provider
	influx       *influx.Manager
	runCtx       *fleetrun.Context
}

// newApp sets up logging, OTel and InfluxDB from the loaded configuration.
// Failures of optional sinks are logged and the sink is skipped.
func newApp(ctx context.Context, stderr io.Writer) *app {
	a := &app{
		sessionStart: time.Now(),
		slogManager:  logging.NewSlogManager(),
		runCtx:       fleetrun.NewContext(),
	}
	level := viper.GetString("logLevel")

	var logOut io.Writer = stderr
	var logFileErr error
	if viper.GetBool("logToFile") {
		a.logFile, logFileErr = logging.OpenLogFile(viper.GetString("logsDir"), appName, a.sessionStart)
		if logFileErr == nil {
			logOut = a.logFile
		}
	}

	var otelErr error
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otelProvider, otelErr = intOtel.New(intOtel.FromConfig(otelCfg, Version, logOut))
	}

	var gelfErr error
	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		a.gelf, gelfErr = logging.NewGELFSink(viper.GetString("graylog.address"), level)
		if gelfErr == nil {
			extra = append(extra, a.gelf.Handler())
		}
	}

	var provider *sdklog.LoggerProvider
	if a.otelProvider != nil {
		provider = a.otelProvider.LoggerProvider()
	}
	a.slogManager.SetupWith(logging.Options{
		File:     logOut,
		Level:    level,
		Provider: provider,
		Context:  a.runCtx.Attrs,
		Extra:    extra,
	})
	a.logger = a.slogManager.Logger()
	a.zlog = logging.NewZerolog(logOut, level, "dispatcher")

	if logFileErr != nil {
		a.logger.Error("Failed to open log file, logging to console", "error", logFileErr)
	}
	if otelErr != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", otelErr)
	} else if a.otelProvider != nil {
		a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}
	if gelfErr != nil {
		a.logger.Error("Failed to connect to Graylog", "address", viper.GetString("graylog.address"), "error", gelfErr)
	}

	a.connectInflux(ctx, logOut, level)
	return a
}

func (a *app) connectInflux(ctx context.Context, logOut io.Writer, level string) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	backupPath := filepath.Join(
		viper.GetString("logsDir"),
		fmt.Sprintf("%s_influx_%s.lp.gz", appName, a.sessionStart.Format("20060102_150405")),
	)
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		a.logger.Error("Failed to create InfluxDB backup dir", "error", err)
		return
	}

	m := influx.NewManager(logging.NewZerolog(logOut, level, "influx"), cfg, backupPath)
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Connect(connectCtx); err != nil {
		a.logger.Error("Failed to initialize InfluxDB", "error", err)
		return
	}
	a.influx = m
}

// meter returns the meter for tournament metrics, or nil to fall back to
// the global provider.
func (a *app) meter() metric.Meter {
	if a.otelProvider == nil {
		return nil
	}
	return a.otelProvider.Meter("github.com/athena2/fleeteval/internal/worker")
}

// close flushes and releases every sink in reverse order of creation.
func (a *app) close() {
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.slogManager.Flush(ctx); err != nil {
		a.logger.Error("Failed to flush logs", "error", err)
	}
	if a.otelProvider != nil {
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
