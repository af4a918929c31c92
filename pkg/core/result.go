package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoRun is returned when a result arrives outside a started run.
var ErrNoRun = errors.New("no run started")

// FleetInfo summarises a fleet for run metadata.
type FleetInfo struct {
	Name  string  `json:"name"`
	Cost  float64 `json:"cost"`
	Ships int     `json:"ships"`
}

// NewFleetInfo summarises f.
func NewFleetInfo(f *Fleet) FleetInfo {
	return FleetInfo{Name: f.Name, Cost: f.Cost(), Ships: f.ShipCount()}
}

// RunInfo describes one tournament run. Storage backends receive it on
// StartRun.
type RunInfo struct {
	ID                 uuid.UUID   `json:"id"`
	Name               string      `json:"name"`
	Mode               string      `json:"mode"`
	FightLengthLimit   float64     `json:"fightLengthLimit"`
	WithdrawMultiplier float64     `json:"withdrawMultiplier"`
	Timestep           float64     `json:"timestep"`
	Trials             int         `json:"trials"`
	Fleets             []FleetInfo `json:"fleets"`
	StartTime          time.Time   `json:"startTime"`
	Version            string      `json:"version"`
}

// Matchups is the number of unordered fleet pairs in the run.
func (r RunInfo) Matchups() int {
	n := len(r.Fleets)
	return n * (n - 1) / 2
}

// SideResult is one fleet's side of a single trial.
type SideResult struct {
	Fleet      string  `json:"fleet"`
	Score      float64 `json:"score"`
	Cost       float64 `json:"cost"`
	Survivors  int     `json:"survivors"`
	Destroyed  int     `json:"destroyed"`
	Disengaged int     `json:"disengaged"`
	Attacks    int     `json:"attacks"`
	Hits       int     `json:"hits"`
}

// TracePoint samples the distance between fleet centres at a moment.
type TracePoint struct {
	Elapsed    float64 `json:"elapsed"`
	Separation float64 `json:"separation"`
}

// MatchupResult is the outcome of one trial between two fleets.
type MatchupResult struct {
	RunID    uuid.UUID     `json:"runId"`
	Trial    int           `json:"trial"`
	A        SideResult    `json:"a"`
	B        SideResult    `json:"b"`
	Ticks    int           `json:"ticks"`
	Elapsed  float64       `json:"elapsed"`
	Duration time.Duration `json:"duration"`
	Trace    []TracePoint  `json:"trace,omitempty"`
	Time     time.Time     `json:"time"`
}

// Label returns "A vs B".
func (m MatchupResult) Label() string {
	return m.A.Fleet + " vs " + m.B.Fleet
}

// Winner returns the fleet that lost less, or "" on a draw, and the margin.
func (m MatchupResult) Winner() (string, float64) {
	return Winner(m.A.Fleet, m.A.Score, m.B.Fleet, m.B.Score)
}

// Winner compares two scores where lower is better.
func Winner(nameA string, scoreA float64, nameB string, scoreB float64) (string, float64) {
	switch {
	case scoreA < scoreB:
		return nameA, scoreB - scoreA
	case scoreB < scoreA:
		return nameB, scoreA - scoreB
	default:
		return "", 0
	}
}

// UploadMetadata accompanies an exported results file on upload.
type UploadMetadata struct {
	RunID    uuid.UUID
	RunName  string
	Fleets   int
	Matchups int
	Trials   int
	Duration float64 // wall-clock seconds
	Tag      string
}
