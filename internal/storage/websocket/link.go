package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/athena2/fleeteval/pkg/streaming"
)

const (
	outboxSize   = 10_000
	ackBuffer    = 16
	maxRedials   = 10
	maxRetryWait = 30 * time.Second
	writeWait    = 10 * time.Second
)

var errLinkDown = errors.New("websocket link down")

// link owns one results-server socket at a time. A single write pump
// drains the outbox in order; when a write fails it redials, replays the
// start_run message and retries the same frame.
type link struct {
	mu     sync.Mutex
	sock   *ws.Conn
	replay []byte
	closed bool
	down   bool

	outbox chan []byte
	acks   chan streaming.AckMessage
	quit   chan struct{}

	target    string
	retryBase time.Duration
	dropped   atomic.Int64

	log *slog.Logger
}

func newLink(logger *slog.Logger) *link {
	return &link{
		outbox:    make(chan []byte, outboxSize),
		acks:      make(chan streaming.AckMessage, ackBuffer),
		quit:      make(chan struct{}),
		retryBase: time.Second,
		log:       logger,
	}
}

// open dials the server once and starts the pumps.
func (l *link) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	l.target = u.String()

	sock, err := l.dial()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.sock = sock
	l.mu.Unlock()

	go l.readPump(sock)
	go l.writePump()
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	sock, _, err := ws.DefaultDialer.Dial(l.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return sock, nil
}

func (l *link) setReplay(data []byte) {
	l.mu.Lock()
	l.replay = data
	l.mu.Unlock()
}

func (l *link) writePump() {
	for {
		select {
		case <-l.quit:
			return
		case data := <-l.outbox:
			if err := l.deliver(data); err != nil {
				l.dropped.Add(1)
				if !errors.Is(err, errLinkDown) {
					l.log.Warn("WebSocket message lost", "error", err)
				}
			}
		}
	}
}

// deliver writes one frame, redialing as needed.
func (l *link) deliver(data []byte) error {
	for {
		l.mu.Lock()
		sock, down := l.sock, l.down
		l.mu.Unlock()
		if down {
			return errLinkDown
		}

		if sock == nil {
			var err error
			if sock, err = l.redial(); err != nil {
				return err
			}
		}

		err := write(sock, data)
		if err == nil {
			return nil
		}
		l.log.Warn("WebSocket write error", "error", err)
		l.discard(sock)
	}
}

func write(sock *ws.Conn, data []byte) error {
	if err := sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return sock.WriteMessage(ws.TextMessage, data)
}

// discard closes sock if it is still the current socket.
func (l *link) discard(sock *ws.Conn) {
	l.mu.Lock()
	if l.sock == sock {
		l.sock = nil
	}
	l.mu.Unlock()
	_ = sock.Close()
}

// redial reconnects with exponential backoff and replays start_run. After
// maxRedials failures the link stays down and later frames are dropped.
func (l *link) redial() (*ws.Conn, error) {
	wait := l.retryBase
	for attempt := 1; attempt <= maxRedials; attempt++ {
		l.log.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", wait)
		select {
		case <-l.quit:
			return nil, errLinkDown
		case <-time.After(wait):
		}
		wait = min(wait*2, maxRetryWait)

		sock, err := l.dial()
		if err != nil {
			l.log.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		l.mu.Lock()
		replay := l.replay
		l.mu.Unlock()
		if replay != nil {
			if err := write(sock, replay); err != nil {
				l.log.Warn("Failed to replay start_run after reconnect", "error", err)
				_ = sock.Close()
				continue
			}
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = sock.Close()
			return nil, errLinkDown
		}
		l.sock = sock
		l.mu.Unlock()

		l.log.Info("WebSocket reconnected", "attempt", attempt)
		go l.readPump(sock)
		return sock, nil
	}

	l.log.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxRedials)
	l.mu.Lock()
	l.down = true
	l.mu.Unlock()
	return nil, errLinkDown
}

// readPump routes acks from sock until it fails. Reconnecting is left to
// the write pump.
func (l *link) readPump(sock *ws.Conn) {
	for {
		_, message, err := sock.ReadMessage()
		if err != nil {
			select {
			case <-l.quit:
			default:
				l.log.Warn("WebSocket read error", "error", err)
				l.discard(sock)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.log.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.log.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// send queues data for the write pump, dropping it when the outbox is full.
func (l *link) send(data []byte) {
	select {
	case l.outbox <- data:
	default:
		l.dropped.Add(1)
		l.log.Warn("WebSocket outbox full, dropping message")
	}
}

func (l *link) pending() int {
	return len(l.outbox)
}

// sendAndWait queues data and blocks until the server acks ackFor. The
// outbox is FIFO, so the ack also covers every frame queued before data.
func (l *link) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	l.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.quit:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close stops the pumps and sends a normal close frame. Close frames are
// control messages, which gorilla allows alongside the write pump.
func (l *link) close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.quit)
	sock := l.sock
	l.sock = nil
	l.mu.Unlock()

	if sock == nil {
		return nil
	}
	_ = sock.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return sock.Close()
}
