// Package postgres stores results in PostgreSQL through the GORM backend.
// When Postgres is unreachable the run is kept in an in-memory SQLite
// database and dumped to db.sqlitePath when it ends.
package postgres

import (
	"errors"
	"log/slog"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/database"
	gormstorage "github.com/athena2/fleeteval/internal/storage/gorm"
)

// Backend is the GORM backend bound to a database.Manager connection.
type Backend struct {
	*gormstorage.Backend
	db  *database.Manager
	log *slog.Logger
}

// New creates a Postgres backend. The connection is opened by Init.
func New(cfg config.DatabaseConfig, logger *slog.Logger, dbLog zerolog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		db:  database.NewManager(dbLog, cfg),
		log: logger,
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		Logger: logger,
		Open:   b.open,
	})
	return b
}

func (b *Backend) open() (*gorm.DB, error) {
	if err := b.db.Connect(); err != nil {
		return nil, err
	}
	if b.db.ShouldSaveLocal {
		b.log.Warn("Postgres unreachable, keeping results in SQLite", "path", b.db.SqliteFilePath)
	}
	return b.db.DB, nil
}

// Fallback reports whether results are going to the SQLite fallback.
func (b *Backend) Fallback() bool {
	return b.db.ShouldSaveLocal
}

// EndRun flushes the run and, on the fallback, dumps it to disk.
func (b *Backend) EndRun() error {
	if err := b.Backend.EndRun(); err != nil {
		return err
	}
	return b.db.DumpMemoryToDisk()
}

// Close flushes the writer, dumps the fallback and closes the connection.
func (b *Backend) Close() error {
	if b.DB() == nil {
		return nil
	}
	err := b.Backend.Close()
	if err == nil {
		err = b.db.DumpMemoryToDisk()
	}
	return errors.Join(err, b.db.Close())
}
