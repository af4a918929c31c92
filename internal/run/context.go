package run

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Context holds the current run and its progress. It is shared by the
// worker pool, the monitor and the logging context handler.
type Context struct {
	mu        sync.RWMutex
	id        uuid.UUID
	name      string
	startedAt time.Time
	matchup   string

	total     atomic.Int64
	completed atomic.Int64
}

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID     uuid.UUID
	Name      string
	StartedAt time.Time
	Matchup   string
	Total     int64
	Completed int64
}

// Fraction returns completed/total, or 0 when nothing is scheduled.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// NewContext creates a Context with no run started.
func NewContext() *Context {
	return &Context{name: "No run started"}
}

// Start begins a new run of total trials and returns its identifier.
func (c *Context) Start(name string, total int) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = uuid.New()
	c.name = name
	c.startedAt = time.Now()
	c.matchup = ""
	c.total.Store(int64(total))
	c.completed.Store(0)
	return c.id
}

// RunID returns the current run identifier, uuid.Nil before Start.
func (c *Context) RunID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// SetMatchup records the matchup most recently picked up by a worker.
func (c *Context) SetMatchup(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchup = label
}

// Complete marks one trial done and returns the new completed count.
func (c *Context) Complete() int64 {
	return c.completed.Add(1)
}

// Progress returns a snapshot of the run.
func (c *Context) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Progress{
		RunID:     c.id,
		Name:      c.name,
		StartedAt: c.startedAt,
		Matchup:   c.matchup,
		Total:     c.total.Load(),
		Completed: c.completed.Load(),
	}
}

// Attrs returns the log attributes for the current run. It matches
// logging.ContextProvider.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.id == uuid.Nil {
		return nil
	}
	attrs := []slog.Attr{slog.String("runId", c.id.String())}
	if c.matchup != "" {
		attrs = append(attrs, slog.String("matchup", c.matchup))
	}
	return attrs
}
