package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/storage"
	"github.com/athena2/fleeteval/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

func testRun() *core.RunInfo {
	return &core.RunInfo{
		ID:     uuid.New(),
		Name:   "Frigate Trials: round 1",
		Mode:   "manual",
		Trials: 2,
		Fleets: []core.FleetInfo{
			{Name: "Alpha", Cost: 500, Ships: 5},
			{Name: "Beta", Cost: 400, Ships: 4},
			{Name: "Gamma", Cost: 450, Ships: 3},
		},
		StartTime: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}
}

func testMatchup(run *core.RunInfo, a, b string, sa, sb float64, trial int) *core.MatchupResult {
	return &core.MatchupResult{
		RunID: run.ID,
		Trial: trial,
		A:     core.SideResult{Fleet: a, Score: sa},
		B:     core.SideResult{Fleet: b, Score: sb},
		Ticks: 100,
		Time:  run.StartTime.Add(time.Second),
	}
}

func TestNew(t *testing.T) {
	cfg := config.MemoryConfig{
		OutputDir:      "/tmp/test",
		CompressOutput: true,
	}
	b := New(cfg)

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.OutputDir != "/tmp/test" {
		t.Errorf("expected OutputDir=/tmp/test, got %s", b.cfg.OutputDir)
	}
	if !b.cfg.CompressOutput {
		t.Error("expected CompressOutput=true")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestRecordMatchup_WithoutRun(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.RecordMatchup(&core.MatchupResult{}); err != core.ErrNoRun {
		t.Errorf("expected ErrNoRun, got %v", err)
	}
	if err := b.EndRun(); err != core.ErrNoRun {
		t.Errorf("expected ErrNoRun from EndRun, got %v", err)
	}
}

func TestRecordMatchup(t *testing.T) {
	b := New(config.MemoryConfig{})
	run := testRun()
	if err := b.StartRun(run); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	_ = b.RecordMatchup(testMatchup(run, "Alpha", "Beta", 10, 30, 0))
	_ = b.RecordMatchup(testMatchup(run, "Alpha", "Beta", 20, 10, 1))
	_ = b.RecordMatchup(testMatchup(run, "Beta", "Gamma", 0, 45, 0))

	if got := len(b.Matchups()); got != 3 {
		t.Fatalf("expected 3 matchups, got %d", got)
	}

	summaries := b.Summaries()
	if len(summaries) != 3 {
		t.Fatalf("expected 3 pairings, got %d", len(summaries))
	}
	ab := summaries[0]
	if ab.Trials != 2 || ab.MeanA != 15 || ab.MeanB != 20 || ab.Winner != "Alpha" {
		t.Errorf("unexpected Alpha vs Beta summary: %+v", ab)
	}
	if summaries[1].Trials != 0 {
		t.Errorf("expected Alpha vs Gamma untouched, got %+v", summaries[1])
	}
	if summaries[2].Winner != "Beta" {
		t.Errorf("expected Beta to beat Gamma, got %q", summaries[2].Winner)
	}
}

func TestStartRun_ResetsState(t *testing.T) {
	b := New(config.MemoryConfig{})
	run := testRun()
	_ = b.StartRun(run)
	_ = b.RecordMatchup(testMatchup(run, "Alpha", "Beta", 1, 2, 0))

	_ = b.StartRun(testRun())
	if got := len(b.Matchups()); got != 0 {
		t.Errorf("expected matchups cleared, got %d", got)
	}
}

func TestMatchups_ReturnsCopy(t *testing.T) {
	b := New(config.MemoryConfig{})
	run := testRun()
	_ = b.StartRun(run)
	_ = b.RecordMatchup(testMatchup(run, "Alpha", "Beta", 1, 2, 0))

	got := b.Matchups()
	got[0].A.Score = 999
	if b.Matchups()[0].A.Score != 1 {
		t.Error("Matchups leaked internal slice")
	}
}

func TestConcurrentRecord(t *testing.T) {
	b := New(config.MemoryConfig{})
	run := testRun()
	_ = b.StartRun(run)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(trial int) {
			defer wg.Done()
			_ = b.RecordMatchup(testMatchup(run, "Alpha", "Gamma", 5, 5, trial))
		}(i)
	}
	wg.Wait()

	if got := len(b.Matchups()); got != 100 {
		t.Errorf("expected 100 matchups, got %d", got)
	}
	if s := b.Summaries()[1]; s.Draws != 100 {
		t.Errorf("expected 100 draws, got %d", s.Draws)
	}
}

func TestEndRun_NoOutputDirSkipsExport(t *testing.T) {
	b := New(config.MemoryConfig{})
	_ = b.StartRun(testRun())

	if err := b.EndRun(); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}
	if b.GetExportedFilePath() != "" {
		t.Errorf("expected no export, got %s", b.GetExportedFilePath())
	}
}
