package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/internal/storage"
	"github.com/athena2/fleeteval/pkg/core"
	"github.com/athena2/fleeteval/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_run/end_run unless ack is false.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun) {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testRun() *core.RunInfo {
	return &core.RunInfo{
		ID:     uuid.New(),
		Name:   "streamed",
		Fleets: []core.FleetInfo{{Name: "A"}, {Name: "B"}},
	}
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	run := testRun()
	require.NoError(t, b.StartRun(run))
	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordMatchup(&core.MatchupResult{
			RunID: run.ID,
			Trial: i,
			A:     core.SideResult{Fleet: "A", Score: 1},
			B:     core.SideResult{Fleet: "B", Score: 2},
		}))
	}
	require.NoError(t, b.EndRun())

	msgs := ml.all()
	require.Len(t, msgs, 5, "end_run ack arrives after every earlier message")
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	for _, m := range msgs[1:4] {
		assert.Equal(t, streaming.TypeMatchupResult, m.Type)
	}
	assert.Equal(t, streaming.TypeEndRun, msgs[4].Type)

	var start streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, run.ID, start.Run.ID)

	var result core.MatchupResult
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &result))
	assert.Equal(t, 2, result.Trial)

	var end streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &end))
	assert.Equal(t, run.ID, end.RunID)
	assert.Equal(t, int64(3), end.Matchups)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()
	assert.Zero(t, b.Dropped())
}

func TestRecordMatchup_WithoutRun(t *testing.T) {
	srv, _ := testServer(t, true)
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorIs(t, b.RecordMatchup(&core.MatchupResult{}), core.ErrNoRun)
	assert.ErrorIs(t, b.EndRun(), core.ErrNoRun)
}

func TestStartRun_AckTimeout(t *testing.T) {
	srv, _ := testServer(t, false)
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv), AckTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.StartRun(testRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `timeout waiting for ack of "start_run"`)
}

func TestInit_BadURL(t *testing.T) {
	b := New(config.WebSocketConfig{URL: "ws://127.0.0.1:1/stream"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t, true)
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestMarshalEnvelope(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{Matchups: 7})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeEndRun, decoded.Type)

	var p streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &p))
	assert.Equal(t, int64(7), p.Matchups)
}

func currentSocket(b *Backend) *ws.Conn {
	b.link.mu.Lock()
	defer b.link.mu.Unlock()
	return b.link.sock
}

func TestReconnect_ReplaysStartRun(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv), Secret: "test"}, nil)
	b.link.retryBase = time.Millisecond
	require.NoError(t, b.Init())
	defer b.Close()

	run := testRun()
	require.NoError(t, b.StartRun(run))

	b.link.discard(currentSocket(b))

	require.NoError(t, b.RecordMatchup(&core.MatchupResult{RunID: run.ID}))
	require.NoError(t, b.EndRun())

	var types []string
	for _, m := range ml.all() {
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{
		streaming.TypeStartRun,
		streaming.TypeStartRun,
		streaming.TypeMatchupResult,
		streaming.TypeEndRun,
	}, types)
	assert.Zero(t, b.Dropped())
}

func TestReconnect_GivesUp(t *testing.T) {
	srv, _ := testServer(t, true)
	defer srv.Close()

	b := New(config.WebSocketConfig{URL: wsURL(srv)}, nil)
	b.link.retryBase = time.Millisecond
	require.NoError(t, b.Init())
	defer b.Close()

	run := testRun()
	require.NoError(t, b.StartRun(run))

	b.link.mu.Lock()
	b.link.target = "ws://127.0.0.1:1/stream"
	b.link.mu.Unlock()
	b.link.discard(currentSocket(b))

	require.NoError(t, b.RecordMatchup(&core.MatchupResult{RunID: run.ID}))
	require.Eventually(t, func() bool { return b.Dropped() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.RecordMatchup(&core.MatchupResult{RunID: run.ID}))
	require.Eventually(t, func() bool { return b.Dropped() == 2 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, b.QueueLength())
}
