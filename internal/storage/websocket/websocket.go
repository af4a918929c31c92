package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/athena2/fleeteval/internal/config"
	"github.com/athena2/fleeteval/pkg/core"
	"github.com/athena2/fleeteval/pkg/streaming"
)

const defaultAckTimeout = 10 * time.Second

// Backend streams run results over WebSocket to a results server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	link       *link
	cfg        config.WebSocketConfig
	run        atomic.Pointer[core.RunInfo]
	sent       atomic.Int64
	ackTimeout time.Duration
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.AckTimeout
	if timeout <= 0 {
		timeout = defaultAckTimeout
	}
	return &Backend{
		link:       newLink(logger),
		cfg:        cfg,
		ackTimeout: timeout,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRun sends the run header and waits for server ack.
func (b *Backend) StartRun(run *core.RunInfo) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	// Replayed after a reconnect.
	b.link.setReplay(data)

	b.run.Store(run)
	b.sent.Store(0)
	return b.link.sendAndWait(data, streaming.TypeStartRun, b.ackTimeout)
}

// RecordMatchup sends one result (fire-and-forget).
func (b *Backend) RecordMatchup(r *core.MatchupResult) error {
	if b.run.Load() == nil {
		return core.ErrNoRun
	}
	data, err := marshalEnvelope(streaming.TypeMatchupResult, r)
	if err != nil {
		return err
	}
	b.link.send(data)
	b.sent.Add(1)
	return nil
}

// EndRun sends end_run and waits for server ack. The write loop is FIFO, so
// the ack also confirms every result before it was written.
func (b *Backend) EndRun() error {
	run := b.run.Load()
	if run == nil {
		return core.ErrNoRun
	}
	data, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{RunID: run.ID, Matchups: b.sent.Load()})
	if err != nil {
		return err
	}
	err = b.link.sendAndWait(data, streaming.TypeEndRun, b.ackTimeout)

	b.link.setReplay(nil)
	b.run.Store(nil)

	return err
}

// QueueLength is the number of messages not yet written.
func (b *Backend) QueueLength() int {
	return b.link.pending()
}

// Dropped is the number of messages lost to a full send buffer.
func (b *Backend) Dropped() int64 {
	return b.link.dropped.Load()
}
