package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena2/fleeteval/internal/database"
	"github.com/athena2/fleeteval/internal/influx"
	"github.com/athena2/fleeteval/internal/model"
	"github.com/athena2/fleeteval/internal/run"
)

type fakeStorage struct{}

func (fakeStorage) QueueLength() int                 { return 7 }
func (fakeStorage) LastWriteDuration() time.Duration { return 1500 * time.Microsecond }

type pointRecorder struct {
	mu      sync.Mutex
	buckets []string
	points  []*influxdb2_write.Point
}

func (r *pointRecorder) WritePoint(bucket string, p *influxdb2_write.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets = append(r.buckets, bucket)
	r.points = append(r.points, p)
	return nil
}

func (r *pointRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

func startedRun(total, completed int) *run.Context {
	rc := run.NewContext()
	rc.Start("bench.json", total)
	for i := 0; i < completed; i++ {
		rc.Complete()
	}
	rc.SetMatchup("Alpha vs Beta")
	return rc
}

func TestGetProgramStatus(t *testing.T) {
	s := NewService(Dependencies{Run: startedRun(10, 4), Storage: fakeStorage{}, RunDBID: func() uint { return 3 }})

	lines, perf := s.GetProgramStatus()
	require.Len(t, lines, 2)

	var status Status
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &status))
	assert.Equal(t, "bench.json", status.Name)
	assert.Equal(t, "Alpha vs Beta", status.Matchup)
	assert.Equal(t, int64(4), status.Completed)
	assert.Equal(t, 40.0, status.Percent)

	assert.Equal(t, uint(3), perf.RunID)
	assert.Equal(t, int64(10), perf.Total)
	assert.Equal(t, 7, perf.WriteQueueLength)
	assert.InDelta(t, 1.5, perf.LastWriteDurationMs, 1e-6)
	assert.Positive(t, perf.Goroutines)
	assert.Positive(t, perf.TrialsPerSecond)
}

func TestGetProgramStatus_NoOptionalDeps(t *testing.T) {
	s := NewService(Dependencies{Run: run.NewContext()})
	_, perf := s.GetProgramStatus()
	assert.Zero(t, perf.RunID)
	assert.Zero(t, perf.WriteQueueLength)
	assert.Zero(t, perf.TrialsPerSecond)
}

func TestSample_WritesEverySink(t *testing.T) {
	db, err := database.OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	dbRun := model.Run{RunUUID: "r1", StartTime: time.Now()}
	require.NoError(t, db.Create(&dbRun).Error)

	statusFile := filepath.Join(t.TempDir(), "status.txt")
	points := &pointRecorder{}
	s := NewService(Dependencies{
		Run:        startedRun(5, 5),
		DB:         db,
		RunDBID:    func() uint { return dbRun.ID },
		Influx:     points,
		StatusFile: statusFile,
	})

	s.Sample()

	raw, err := os.ReadFile(statusFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"percent": 100`))

	var count int64
	require.NoError(t, db.Model(&model.Performance{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Equal(t, 1, points.count())
	assert.Equal(t, influx.PerformanceBucket, points.buckets[0])
	assert.Equal(t, "performance", points.points[0].Name())
}

func TestSample_SkipsBeforeRunStarts(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "status.txt")
	s := NewService(Dependencies{Run: run.NewContext(), StatusFile: statusFile})

	s.Sample()
	assert.NoFileExists(t, statusFile)
}

func TestStartStop(t *testing.T) {
	points := &pointRecorder{}
	s := NewService(Dependencies{Run: startedRun(2, 1), Influx: points, Interval: 10 * time.Millisecond})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return points.count() >= 2 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	after := points.count()
	s.Stop()
	assert.Equal(t, after, points.count(), "stopping twice does not sample again")
}
