package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena2/fleeteval/internal/dispatcher"
	"github.com/athena2/fleeteval/internal/logging"
	"github.com/athena2/fleeteval/internal/run"
	"github.com/athena2/fleeteval/pkg/core"
)

type fakeBackend struct {
	mu        sync.Mutex
	started   *core.RunInfo
	ended     bool
	matchups  []core.MatchupResult
	recordErr error
}

func (f *fakeBackend) Init() error  { return nil }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) StartRun(r *core.RunInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = r
	return nil
}

func (f *fakeBackend) EndRun() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
	return nil
}

func (f *fakeBackend) RecordMatchup(r *core.MatchupResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.matchups = append(f.matchups, *r)
	return nil
}

type timedBackend struct {
	fakeBackend
}

func (b *timedBackend) LastWriteDuration() time.Duration {
	return 42 * time.Millisecond
}

type fakeInflux struct {
	mu     sync.Mutex
	bucket string
	points []*influxdb2_write.Point
	err    error
}

func (f *fakeInflux) MatchupBucket() string { return "matchups" }

func (f *fakeInflux) WritePoint(bucket string, p *influxdb2_write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bucket = bucket
	f.points = append(f.points, p)
	return f.err
}

func newTestDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(logging.NewDispatcherLogger(zerolog.Nop()))
	require.NoError(t, err)
	return d
}

func matchup(a, b string, trial int) core.MatchupResult {
	return core.MatchupResult{
		Trial: trial,
		A:     core.SideResult{Fleet: a, Score: 10},
		B:     core.SideResult{Fleet: b, Score: 20},
		Time:  time.Now(),
	}
}

func TestManager_RunLifecycle(t *testing.T) {
	backend := &fakeBackend{}
	influx := &fakeInflux{}
	rc := run.NewContext()
	rc.Start("test", 3)

	m := NewManager(Dependencies{Run: rc, Influx: influx}, backend)
	d := newTestDispatcher(t)
	m.RegisterHandlers(d)

	info := &core.RunInfo{ID: uuid.New(), Name: "test"}
	id, err := d.Dispatch(dispatcher.Event{Command: CommandRunStart, Payload: info})
	require.NoError(t, err)
	assert.Equal(t, info.ID, id)
	assert.Same(t, info, backend.started)

	for i := range 3 {
		res, err := d.Dispatch(dispatcher.Event{Command: CommandMatchup, Payload: matchup("A", "B", i)})
		require.NoError(t, err)
		assert.Equal(t, "queued", res)
	}
	d.Close()

	recorded, err := d.Dispatch(dispatcher.Event{Command: CommandRunEnd})
	require.NoError(t, err)
	assert.Equal(t, int64(3), recorded)
	assert.True(t, backend.ended)

	assert.Len(t, backend.matchups, 3)
	assert.Equal(t, int64(3), m.Recorded())
	assert.Zero(t, m.Failed())

	p := rc.Progress()
	assert.Equal(t, int64(3), p.Completed)
	assert.Equal(t, "A vs B", p.Matchup)

	assert.Equal(t, "matchups", influx.bucket)
	assert.Len(t, influx.points, 3)
}

func TestManager_SinkFailuresAreNotFatal(t *testing.T) {
	backend := &fakeBackend{recordErr: errors.New("disk full")}
	influx := &fakeInflux{err: errors.New("influx down")}
	rc := run.NewContext()

	m := NewManager(Dependencies{Run: rc, Influx: influx}, backend)
	d := newTestDispatcher(t)
	m.RegisterHandlers(d)

	for i := range 2 {
		_, err := d.Dispatch(dispatcher.Event{Command: CommandMatchup, Payload: matchup("A", "B", i)})
		require.NoError(t, err)
	}
	d.Close()

	assert.Equal(t, int64(2), m.Failed())
	assert.Zero(t, m.Recorded())
	assert.Equal(t, int64(2), rc.Progress().Completed)
	assert.Len(t, influx.points, 2)
}

func TestManager_BadPayload(t *testing.T) {
	m := NewManager(Dependencies{}, &fakeBackend{})
	d := newTestDispatcher(t)
	m.RegisterHandlers(d)

	_, err := d.Dispatch(dispatcher.Event{Command: CommandRunStart, Payload: "nope"})
	assert.ErrorContains(t, err, "unexpected payload string")

	_, err = m.handleMatchup(dispatcher.Event{Command: CommandMatchup, Payload: 7})
	assert.ErrorContains(t, err, "unexpected payload int")
	d.Close()
}

func TestManager_WithoutInflux(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(Dependencies{}, backend)

	_, err := m.handleMatchup(dispatcher.Event{Command: CommandMatchup, Payload: matchup("A", "B", 0)})
	require.NoError(t, err)
	assert.Len(t, backend.matchups, 1)
}

func TestManager_GetLastDBWriteDuration(t *testing.T) {
	assert.Zero(t, NewManager(Dependencies{}, &fakeBackend{}).GetLastDBWriteDuration())
	assert.Equal(t, 42*time.Millisecond, NewManager(Dependencies{}, &timedBackend{}).GetLastDBWriteDuration())
}

func TestRegisterHandlers(t *testing.T) {
	d := newTestDispatcher(t)
	NewManager(Dependencies{}, &fakeBackend{}).RegisterHandlers(d)
	defer d.Close()

	for _, cmd := range []string{CommandRunStart, CommandMatchup, CommandRunEnd} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}
