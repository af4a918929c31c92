package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/storage"
	"github.com/athena2/fleeteval/internal/storage/memory"
	pgstorage "github.com/athena2/fleeteval/internal/storage/postgres"
	sqlitestorage "github.com/athena2/fleeteval/internal/storage/sqlite"
	wsstorage "github.com/athena2/fleeteval/internal/storage/websocket"
)

// streamPath is appended to api.serverUrl when no websocket URL is set.
const streamPath = "/v1/stream"

func createStorageBackend(storageCfg config.StorageConfig, logger *slog.Logger, dbLog zerolog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend initialized")
		return pgstorage.New(config.GetDatabaseConfig(), logger, dbLog), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "websocket":
		wsCfg := storageCfg.WebSocket
		if wsCfg.URL == "" {
			wsCfg.URL = httpToWS(viper.GetString("api.serverUrl")) + streamPath
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = viper.GetString("api.apiKey")
		}
		logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, logger), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
