package worker

import (
	"fmt"

	"github.com/athena2/fleeteval/internal/dispatcher"
	"github.com/athena2/fleeteval/internal/influx"
	"github.com/athena2/fleeteval/pkg/core"
)

// Commands handled by the manager.
const (
	CommandRunStart = ":RUN:START:"
	CommandMatchup  = ":MATCHUP:"
	CommandRunEnd   = ":RUN:END:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Run lifecycle - sync (storage must know the run before results arrive)
	d.Register(CommandRunStart, m.handleRunStart, dispatcher.Logged())
	d.Register(CommandRunEnd, m.handleRunEnd, dispatcher.Logged())

	// Results - buffered, never dropped
	d.Register(CommandMatchup, m.handleMatchup, dispatcher.Buffered(10000), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handleRunStart(e dispatcher.Event) (any, error) {
	info, ok := e.Payload.(*core.RunInfo)
	if !ok {
		return nil, fmt.Errorf("run start: unexpected payload %T", e.Payload)
	}
	if err := m.backend.StartRun(info); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return info.ID, nil
}

func (m *Manager) handleRunEnd(e dispatcher.Event) (any, error) {
	if err := m.backend.EndRun(); err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}
	return m.recorded.Load(), nil
}

// handleMatchup stores a result and mirrors it to influx. Sink failures are
// logged and counted; they never stop the tournament.
func (m *Manager) handleMatchup(e dispatcher.Event) (any, error) {
	r, ok := e.Payload.(core.MatchupResult)
	if !ok {
		return nil, fmt.Errorf("matchup: unexpected payload %T", e.Payload)
	}

	m.deps.Run.SetMatchup(r.Label())
	m.deps.Run.Complete()

	if m.deps.Influx != nil {
		if err := m.deps.Influx.WritePoint(m.deps.Influx.MatchupBucket(), influx.MatchupPoint(r)); err != nil {
			m.deps.Logger.Warn("Failed to write matchup point", "matchup", r.Label(), "error", err)
		}
	}

	if err := m.backend.RecordMatchup(&r); err != nil {
		m.failed.Add(1)
		return nil, fmt.Errorf("failed to record matchup %s: %w", r.Label(), err)
	}
	m.recorded.Add(1)
	return nil, nil
}
