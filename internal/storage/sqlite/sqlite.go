// Package sqlitestorage stores results in an in-memory SQLite database
// with periodic disk dumps via VACUUM INTO. It wraps the GORM backend; the
// only SQLite-specific concerns are creating the in-memory DB and the
// dump loop.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/database"
	gormstorage "github.com/athena2/fleeteval/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.started = true

	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}
	return nil
}

// EndRun flushes the run and dumps the database so the file on disk is
// complete once the run ends.
func (b *Backend) EndRun() error {
	if err := b.Backend.EndRun(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	if !b.started {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.Dump()
}

// Dump writes the in-memory database to the configured path. It does
// nothing when no path is set.
func (b *Backend) Dump() error {
	if b.cfg.Path == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.Path); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.Path, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
