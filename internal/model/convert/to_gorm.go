// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/athena2/fleeteval/internal/geo"
	"github.com/athena2/fleeteval/internal/model"
	"github.com/athena2/fleeteval/pkg/core"
)

// toJSON marshals v for a jsonb column, falling back to fallback on error.
func toJSON(v any, fallback string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.RunInfo to a GORM model.Run.
// The run UUID is kept in RunUUID; the database assigns ID.
func CoreToRun(r core.RunInfo) model.Run {
	fleets := datatypes.JSON("[]")
	if len(r.Fleets) > 0 {
		fleets = toJSON(r.Fleets, "[]")
	}

	return model.Run{
		RunUUID:            r.ID.String(),
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

// CoreToMatchup converts a core.MatchupResult to a GORM model.Matchup.
// RunID is left zero; the writer stamps it.
func CoreToMatchup(r core.MatchupResult) model.Matchup {
	winner, margin := r.Winner()

	return model.Matchup{
		Time:       r.Time,
		Trial:      r.Trial,
		FleetA:     r.A.Fleet,
		FleetB:     r.B.Fleet,
		ScoreA:     r.A.Score,
		ScoreB:     r.B.Score,
		Winner:     winner,
		Margin:     margin,
		Ticks:      r.Ticks,
		Elapsed:    r.Elapsed,
		DurationMs: float32(r.Duration.Seconds() * 1000),
		SummaryA:   toJSON(r.A, "{}"),
		SummaryB:   toJSON(r.B, "{}"),
		Trace:      geo.TraceLineString(r.Trace),
	}
}
