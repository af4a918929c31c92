package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Matchup{},
	&Performance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// Performance is a periodic sample of tournament throughput
type Performance struct {
	Time                time.Time `json:"time" gorm:"index:idx_time"`
	RunID               uint      `json:"runId" gorm:"index:idx_performance_run_id"`
	Run                 Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Completed           int64     `json:"completed"`
	Total               int64     `json:"total"`
	TrialsPerSecond     float64   `json:"trialsPerSecond"`
	WriteQueueLength    int       `json:"writeQueueLength"`
	Goroutines          int       `json:"goroutines"`
	HeapAllocMB         float64   `json:"heapAllocMb"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*Performance) TableName() string {
	return "performances"
}

////////////////////////
// RESULT MODELS
////////////////////////

// Run is one tournament over a runspec
type Run struct {
	gorm.Model
	RunUUID            string         `json:"runId" gorm:"size:36;uniqueIndex:idx_run_uuid"`
	Name               string         `json:"name" gorm:"size:255"`
	Mode               string         `json:"mode" gorm:"size:16;default:manual"`
	FightLengthLimit   float64        `json:"fightLengthLimit"`
	WithdrawMultiplier float64        `json:"withdrawMultiplier"`
	Timestep           float64        `json:"timestep"`
	Trials             int            `json:"trials"`
	Fleets             datatypes.JSON `json:"fleets" gorm:"type:jsonb;default:'[]'"` // []core.FleetInfo
	StartTime          time.Time      `json:"startTime" gorm:"index:idx_run_start"`
	EndTime            sql.NullTime   `json:"endTime"`
	Version            string         `json:"version" gorm:"size:64"`
	Matchups           []Matchup
}

func (*Run) TableName() string {
	return "runs"
}

// GetByUUID loads the run with the given identifier into r.
func (r *Run) GetByUUID(db *gorm.DB, id string) error {
	return db.Where("run_uuid = ?", id).First(r).Error
}

// Matchup is the outcome of one trial between two fleets
type Matchup struct {
	ID         uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time       `json:"time" gorm:"index:idx_matchup_time"`
	RunID      uint            `json:"runId" gorm:"index:idx_matchup_run_id"`
	Run        Run             `gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Trial      int             `json:"trial"`
	FleetA     string          `json:"fleetA" gorm:"size:127;index:idx_matchup_fleets"`
	FleetB     string          `json:"fleetB" gorm:"size:127;index:idx_matchup_fleets"`
	ScoreA     float64         `json:"scoreA"`
	ScoreB     float64         `json:"scoreB"`
	Winner     string          `json:"winner" gorm:"size:127"` // empty on a draw
	Margin     float64         `json:"margin"`
	Ticks      int             `json:"ticks"`
	Elapsed    float64         `json:"elapsed"`
	DurationMs float32         `json:"durationMs"`
	SummaryA   datatypes.JSON  `json:"summaryA" gorm:"type:jsonb;default:'{}'"` // core.SideResult
	SummaryB   datatypes.JSON  `json:"summaryB" gorm:"type:jsonb;default:'{}'"`
	Trace      geom.LineString `json:"-"` // (elapsed, separation) samples
}

func (*Matchup) TableName() string {
	return "matchups"
}

// Label returns "A vs B".
func (m *Matchup) Label() string {
	return m.FleetA + " vs " + m.FleetB
}
