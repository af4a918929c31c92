// Package gormstorage implements the storage.Backend interface on any GORM
// dialect, with a write queue drained by a background goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athena2/fleeteval/internal/database"
	"github.com/athena2/fleeteval/internal/model"
	"github.com/athena2/fleeteval/internal/model/convert"
	"github.com/athena2/fleeteval/internal/queue"
	"github.com/athena2/fleeteval/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 500
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger

	// Open is called by Init when DB is nil.
	Open func() (*gorm.DB, error)

	// FlushInterval and BatchSize tune the background writer.
	FlushInterval time.Duration
	BatchSize     int
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	matchups *queue.Queue[model.Matchup]
	runID    atomic.Uint64

	writeMu   sync.Mutex
	lastWrite atomic.Int64 // nanoseconds

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	return &Backend{
		deps:     deps,
		matchups: queue.New[model.Matchup](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
// If no DB was injected via Dependencies, it opens one with Open.
func (b *Backend) Init() error {
	if b.deps.DB == nil && b.deps.Open != nil {
		db, err := b.deps.Open()
		if err != nil {
			return err
		}
		b.deps.DB = db
	}
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes anything still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return b.Flush()
}

// StartRun inserts the run row synchronously so matchups can reference it.
func (b *Backend) StartRun(run *core.RunInfo) error {
	row := convert.CoreToRun(*run)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	b.runID.Store(uint64(row.ID))
	b.deps.Logger.Info("Run stored", "runId", run.ID, "dbId", row.ID)
	return nil
}

// RunDBID returns the database id of the current run, or 0.
func (b *Backend) RunDBID() uint {
	return uint(b.runID.Load())
}

// RecordMatchup converts a result and queues it for the writer.
func (b *Backend) RecordMatchup(r *core.MatchupResult) error {
	runID := b.RunDBID()
	if runID == 0 {
		return core.ErrNoRun
	}
	row := convert.CoreToMatchup(*r)
	row.RunID = runID
	b.matchups.Push(row)
	return nil
}

// EndRun flushes the queue and stamps the run end time.
func (b *Backend) EndRun() error {
	runID := b.RunDBID()
	if runID == 0 {
		return core.ErrNoRun
	}
	if err := b.Flush(); err != nil {
		return err
	}

	err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).
		Update("end_time", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}
	b.runID.Store(0)
	return nil
}

// QueueLength is the number of matchups waiting to be written.
func (b *Backend) QueueLength() int {
	return b.matchups.Len()
}

// LastWriteDuration is how long the most recent batch took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush writes every queued matchup in batches. A failed batch goes back
// to the head of the queue.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	for {
		batch := b.matchups.PopN(b.deps.BatchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := b.writeBatch(batch); err != nil {
			b.matchups.PushFront(batch...)
			return err
		}
	}
}

func (b *Backend) writeBatch(batch []model.Matchup) error {
	start := time.Now()
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&batch).Error
	})
	if err != nil {
		b.deps.Logger.Error("Error creating matchups", "count", len(batch), "error", err)
		return fmt.Errorf("failed to write %d matchups: %w", len(batch), err)
	}
	elapsed := time.Since(start)
	b.lastWrite.Store(int64(elapsed))
	b.deps.Logger.Debug("Wrote matchups", "count", len(batch), "duration", elapsed)
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// errors are logged in writeBatch and retried next tick
			_ = b.Flush()
		}
	}
}

// Runs lists stored runs, newest first.
func (b *Backend) Runs() ([]core.RunInfo, error) {
	var rows []model.Run
	if err := b.deps.DB.Order("start_time desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]core.RunInfo, len(rows))
	for i, r := range rows {
		out[i] = convert.RunToCore(r)
	}
	return out, nil
}

// Matchups lists the stored results of one run in insertion order.
func (b *Backend) Matchups(runID uuid.UUID) ([]core.MatchupResult, error) {
	var run model.Run
	if err := run.GetByUUID(b.deps.DB, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to find run %s: %w", runID, err)
	}

	var rows []model.Matchup
	if err := b.deps.DB.Where("run_id = ?", run.ID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list matchups: %w", err)
	}
	out := make([]core.MatchupResult, len(rows))
	for i, m := range rows {
		out[i] = convert.MatchupToCore(m, runID)
	}
	return out, nil
}
