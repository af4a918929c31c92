package worker

import (
	"log/slog"
	"sync/atomic"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/athena2/fleeteval/internal/run"
	"github.com/athena2/fleeteval/internal/storage"
)

// PointWriter receives matchup points. *influx.Manager satisfies it.
type PointWriter interface {
	MatchupBucket() string
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger *slog.Logger
	Run    *run.Context
	Influx PointWriter // optional
}

// Manager routes tournament events to storage and metrics sinks
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	recorded atomic.Int64
	failed   atomic.Int64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Run == nil {
		deps.Run = run.NewContext()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}

// Recorded is the number of results the backend accepted.
func (m *Manager) Recorded() int64 {
	return m.recorded.Load()
}

// Failed is the number of results the backend rejected.
func (m *Manager) Failed() int64 {
	return m.failed.Load()
}
