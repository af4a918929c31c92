// Package streaming defines the messages a run streams to a results server.
package streaming

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/athena2/fleeteval/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun      = "start_run"
	TypeMatchupResult = "matchup_result"
	TypeEndRun        = "end_run"
	TypeAck           = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload announces a run and its fleets.
type StartRunPayload struct {
	Run *core.RunInfo `json:"run"`
}

// EndRunPayload closes a run.
type EndRunPayload struct {
	RunID    uuid.UUID `json:"runId"`
	Matchups int64     `json:"matchups"` // results sent for the run
}
