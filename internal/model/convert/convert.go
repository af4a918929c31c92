package convert

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/athena2/fleeteval/internal/geo"
	"github.com/athena2/fleeteval/internal/model"
	"github.com/athena2/fleeteval/pkg/core"
)

// RunToCore converts a GORM model.Run back to a core.RunInfo.
// An unparseable RunUUID yields uuid.Nil.
func RunToCore(r model.Run) core.RunInfo {
	id, _ := uuid.Parse(r.RunUUID)

	var fleets []core.FleetInfo
	if len(r.Fleets) > 0 {
		_ = json.Unmarshal(r.Fleets, &fleets)
	}

	return core.RunInfo{
		ID:                 id,
		Name:               r.Name,
		Mode:               r.Mode,
		FightLengthLimit:   r.FightLengthLimit,
		WithdrawMultiplier: r.WithdrawMultiplier,
		Timestep:           r.Timestep,
		Trials:             r.Trials,
		Fleets:             fleets,
		StartTime:          r.StartTime,
		Version:            r.Version,
	}
}

// MatchupToCore converts a GORM model.Matchup back to a core.MatchupResult.
// Side summaries come from the jsonb columns; the flat score columns win
// if they disagree.
func MatchupToCore(m model.Matchup, runID uuid.UUID) core.MatchupResult {
	var a, b core.SideResult
	if len(m.SummaryA) > 0 {
		_ = json.Unmarshal(m.SummaryA, &a)
	}
	if len(m.SummaryB) > 0 {
		_ = json.Unmarshal(m.SummaryB, &b)
	}
	a.Fleet, a.Score = m.FleetA, m.ScoreA
	b.Fleet, b.Score = m.FleetB, m.ScoreB

	return core.MatchupResult{
		RunID:    runID,
		Trial:    m.Trial,
		A:        a,
		B:        b,
		Ticks:    m.Ticks,
		Elapsed:  m.Elapsed,
		Duration: time.Duration(float64(m.DurationMs) * float64(time.Millisecond)),
		Trace:    geo.TracePoints(m.Trace),
		Time:     m.Time,
	}
}
