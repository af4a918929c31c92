package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/athena2/fleeteval/internal/combat"
	"github.com/athena2/fleeteval/internal/geo"
	"github.com/athena2/fleeteval/internal/report"
	"github.com/athena2/fleeteval/pkg/core"
)

const instrumentationName = "github.com/athena2/fleeteval/internal/worker"

// DefaultTraceEvery is the tick stride of recorded engagement traces.
const DefaultTraceEvery = 10

// Sink receives every finished trial. It is called from the worker
// goroutines and must be safe for concurrent use.
type Sink func(core.MatchupResult)

// Tournament evaluates every unordered pair of fleets Trials times.
type Tournament struct {
	Fleets   []*core.Fleet
	Settings combat.Settings
	Trials   int
	Workers  int
	// Seed makes every trial reproducible when non-zero. Each trial is
	// seeded from its position in the schedule, so results do not depend
	// on which worker ran it.
	Seed uint64
	// TraceEvery is the tick stride of the engagement trace; negative
	// disables tracing.
	TraceEvery int
	// DebugDump logs a snapshot of both fleets after every tick.
	DebugDump bool
	Logger    *slog.Logger
	Meter     metric.Meter
}

type job struct {
	index int
	a, b  int
	trial int
}

type metrics struct {
	evaluated metric.Int64Counter
	ticks     metric.Int64Counter
	duration  metric.Float64Histogram
}

func newMetrics(m metric.Meter) (*metrics, error) {
	var (
		ms  metrics
		err error
	)
	ms.evaluated, err = m.Int64Counter(
		"fleeteval.matchups.evaluated",
		metric.WithDescription("Total trials evaluated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating evaluated counter: %w", err)
	}
	ms.ticks, err = m.Int64Counter(
		"fleeteval.matchups.ticks",
		metric.WithDescription("Total battle ticks simulated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	ms.duration, err = m.Float64Histogram(
		"fleeteval.matchup.duration",
		metric.WithDescription("Wall-clock time of one trial"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &ms, nil
}

// Matchups is the number of trials the tournament will run.
func (t *Tournament) Matchups() int {
	n := len(t.Fleets)
	return n * (n - 1) / 2 * t.trials()
}

func (t *Tournament) trials() int {
	return max(1, t.Trials)
}

// Run evaluates the schedule over a pool of t.Workers goroutines. Results
// are added to table (when non-nil) and passed to sink (when non-nil).
// Cancelling ctx stops the pool between trials; a trial already under way
// finishes first.
func (t *Tournament) Run(ctx context.Context, runID uuid.UUID, table *report.Table, sink Sink) error {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	meter := t.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	ms, err := newMetrics(meter)
	if err != nil {
		return err
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	workers := max(1, t.Workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := combat.NewRand()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				var r combat.Rand = rng
				if t.Seed != 0 {
					r = combat.NewSeededRand(t.Seed + uint64(j.index))
				}
				res := t.evaluate(ctx, j, r, runID, logger, ms)
				if table != nil {
					table.Add(res)
				}
				if sink != nil {
					sink(res)
				}
			}
			logger.Debug("Worker finished", "worker", w)
		}()
	}

	index := 0
schedule:
	for a := 0; a < len(t.Fleets); a++ {
		for b := a + 1; b < len(t.Fleets); b++ {
			for trial := range t.trials() {
				select {
				case <-ctx.Done():
					break schedule
				case jobs <- job{index: index, a: a, b: b, trial: trial}:
				}
				index++
			}
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}

func (t *Tournament) evaluate(ctx context.Context, j job, r combat.Rand, runID uuid.UUID, logger *slog.Logger, ms *metrics) core.MatchupResult {
	fa, fb := t.Fleets[j.a], t.Fleets[j.b]

	var observers []combat.Observer
	var trace *geo.TraceRecorder
	if t.TraceEvery >= 0 {
		every := t.TraceEvery
		if every == 0 {
			every = DefaultTraceEvery
		}
		trace = geo.NewTraceRecorder(every)
		observers = append(observers, trace)
	}
	if t.DebugDump {
		observers = append(observers, debugDump(logger.With("a", fa.Name, "b", fb.Name, "trial", j.trial)))
	}

	opts := []combat.Option{combat.WithRand(r)}
	if obs := fanOut(observers); obs != nil {
		opts = append(opts, combat.WithObserver(obs))
	}

	out := combat.Run(fa, fb, t.Settings, opts...)

	res := core.MatchupResult{
		RunID:    runID,
		Trial:    j.trial,
		A:        sideResult(fa.Name, out.A),
		B:        sideResult(fb.Name, out.B),
		Ticks:    out.Ticks,
		Elapsed:  out.Elapsed,
		Duration: out.Duration,
		Time:     time.Now(),
	}
	if trace != nil {
		res.Trace = trace.Points()
	}

	attrs := metric.WithAttributes(attribute.String("matchup", res.Label()))
	ms.evaluated.Add(ctx, 1, attrs)
	ms.ticks.Add(ctx, int64(out.Ticks), attrs)
	ms.duration.Record(ctx, float64(out.Duration.Microseconds())/1000, attrs)

	return res
}

func sideResult(name string, s combat.SideSummary) core.SideResult {
	return core.SideResult{
		Fleet:      name,
		Score:      s.Score,
		Cost:       s.Cost,
		Survivors:  s.Survivors,
		Destroyed:  s.Destroyed,
		Disengaged: s.Disengaged,
		Attacks:    s.Attacks,
		Hits:       s.Hits,
	}
}

// fanOut combines observers. It returns nil for none.
func fanOut(observers []combat.Observer) combat.Observer {
	switch len(observers) {
	case 0:
		return nil
	case 1:
		return observers[0]
	}
	return combat.ObserverFunc(func(s combat.TickSnapshot) {
		for _, o := range observers {
			o.ObserveTick(s)
		}
	})
}

// debugDump logs the state of both fleets after every tick.
func debugDump(logger *slog.Logger) combat.Observer {
	return combat.ObserverFunc(func(s combat.TickSnapshot) {
		logger.Debug("Tick",
			"tick", s.Tick,
			"elapsed", s.Elapsed,
			"separation", s.Separation(),
			slog.Group("fleetA", snapshotAttrs(s.A)...),
			slog.Group("fleetB", snapshotAttrs(s.B)...),
		)
	})
}

func snapshotAttrs(f combat.FleetSnapshot) []any {
	return []any{
		"ships", f.Ships,
		"projectiles", f.Projectiles,
		"strikeCraft", f.StrikeCraft,
		"destroyed", f.Destroyed,
		"disengaged", f.Disengaged,
		"hull", f.Hull,
		"armour", f.Armour,
		"shields", f.Shields,
		"centre", f.Centre,
	}
}
