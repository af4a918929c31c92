package memory

import (
	"sync"
	"time"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/report"
	"github.com/athena2/fleeteval/pkg/core"
)

// Backend stores run results in memory and exports them to JSON on EndRun
type Backend struct {
	cfg config.MemoryConfig

	run      *core.RunInfo
	matchups []core.MatchupResult
	table    *report.Table
	endTime  time.Time

	lastExportPath     string
	lastExportMetadata core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, discarding anything held from the
// previous one
func (b *Backend) StartRun(run *core.RunInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.matchups = make([]core.MatchupResult, 0, run.Matchups()*max(run.Trials, 1))
	b.table = report.NewTable(run.Fleets)
	b.endTime = time.Time{}
	b.lastExportPath = ""
	b.lastExportMetadata = core.UploadMetadata{}
	return nil
}

// RecordMatchup appends a trial result
func (b *Backend) RecordMatchup(r *core.MatchupResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return core.ErrNoRun
	}
	b.matchups = append(b.matchups, *r)
	b.table.Add(*r)
	return nil
}

// EndRun exports the recorded run. The export is skipped when no output
// directory is configured.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return core.ErrNoRun
	}
	b.endTime = time.Now().UTC()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// Matchups returns a copy of every result recorded for the current run.
func (b *Backend) Matchups() []core.MatchupResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.MatchupResult, len(b.matchups))
	copy(out, b.matchups)
	return out
}

// Summaries returns per-pairing aggregates for the current run.
func (b *Backend) Summaries() []report.Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.table == nil {
		return nil
	}
	return b.table.Summaries()
}

// GetExportedFilePath returns the path of the last export, or "".
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
