// Package dispatcher routes pipeline commands (run start, matchup results,
// run end) to the handlers that persist and export them.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned when dispatching to a buffered handler after Close.
var ErrClosed = errors.New("dispatcher closed")

// Queued is the result returned by a buffered handler once an event is
// accepted into its queue.
const Queued = "queued"

// Event is a pipeline message routed to the handler registered for Command.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*routeConfig)

type routeConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the handler on its own goroutine behind a queue of the
// given size.
func Buffered(size int) Option {
	return func(c *routeConfig) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler wait for queue space instead of
// dropping the event.
func Blocking() Option {
	return func(c *routeConfig) {
		c.blocking = true
	}
}

// Logged adds debug logging and failure logging to the handler.
func Logged() Option {
	return func(c *routeConfig) {
		c.logged = true
	}
}

type instruments struct {
	queueDepth metric.Int64ObservableGauge
	handled    metric.Int64Counter
	failed     metric.Int64Counter
	dropped    metric.Int64Counter
	latency    metric.Float64Histogram
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger
	inst     instruments

	mu     sync.RWMutex
	queues map[string]chan Event
	closed bool
	wg     sync.WaitGroup
}

// New creates a Dispatcher reporting to the global OTel meter, which is a
// no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	return NewWithMeter(logger, meter())
}

// NewWithMeter creates a Dispatcher reporting to m.
func NewWithMeter(logger Logger, m metric.Meter) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.instrument(m); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error

	d.inst.queueDepth, err = m.Int64ObservableGauge(
		"fleeteval.dispatcher.queue.depth",
		metric.WithDescription("Events waiting in a buffered handler queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, q := range d.queues {
			o.ObserveInt64(d.inst.queueDepth, int64(len(q)),
				metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.inst.queueDepth)
	if err != nil {
		return fmt.Errorf("registering queue depth callback: %w", err)
	}

	if d.inst.handled, err = m.Int64Counter(
		"fleeteval.dispatcher.events.handled",
		metric.WithDescription("Events handled by buffered handlers"),
	); err != nil {
		return fmt.Errorf("creating handled counter: %w", err)
	}
	if d.inst.failed, err = m.Int64Counter(
		"fleeteval.dispatcher.events.failed",
		metric.WithDescription("Events whose buffered handler returned an error"),
	); err != nil {
		return fmt.Errorf("creating failed counter: %w", err)
	}
	if d.inst.dropped, err = m.Int64Counter(
		"fleeteval.dispatcher.events.dropped",
		metric.WithDescription("Events dropped because a queue was full"),
	); err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	if d.inst.latency, err = m.Float64Histogram(
		"fleeteval.dispatcher.event.duration",
		metric.WithDescription("Time spent in buffered handlers"),
		metric.WithUnit("ms"),
	); err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}
	return nil
}

// Register adds a handler for the given command with optional configuration.
// Handlers must be registered before the first Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var cfg routeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.logged(command, handler)
	}
	if cfg.bufferSize > 0 {
		handler = d.queued(command, cfg, handler)
	}
	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler reports whether a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Close stops accepting buffered events and waits until every queued
// event has been handled. Synchronous handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) queued(command string, cfg routeConfig, h HandlerFunc) HandlerFunc {
	q := make(chan Event, cfg.bufferSize)

	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx := context.Background()
		for e := range q {
			start := time.Now()
			_, err := h(e)
			d.inst.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
			d.inst.handled.Add(ctx, 1, attrs)
			if err != nil {
				d.inst.failed.Add(ctx, 1, attrs)
				if !cfg.logged {
					d.logger.Error("buffered event failed", "command", command, "error", err)
				}
			}
		}
	}()

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		if cfg.blocking {
			q <- e
			return Queued, nil
		}
		select {
		case q <- e:
			return Queued, nil
		default:
			d.inst.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command)

		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
