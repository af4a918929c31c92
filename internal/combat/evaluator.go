package combat

import (
	"time"

	"github.com/athena2/fleeteval/pkg/core"
)

const (
	DefaultTimestep           = 0.1
	DefaultFightLengthLimit   = 360.0
	DefaultWithdrawMultiplier = 0.1
)

// Settings are the battle hyperparameters.
type Settings struct {
	// FightLengthLimit is the maximum simulated time.
	FightLengthLimit float64
	// WithdrawMultiplier is the share of a disengaged ship's cost charged
	// to its fleet.
	WithdrawMultiplier float64
	// Timestep is the simulated time per tick; zero means DefaultTimestep.
	Timestep float64
}

func DefaultSettings() Settings {
	return Settings{
		FightLengthLimit:   DefaultFightLengthLimit,
		WithdrawMultiplier: DefaultWithdrawMultiplier,
		Timestep:           DefaultTimestep,
	}
}

func (s Settings) timestep() float64 {
	if s.Timestep <= 0 {
		return DefaultTimestep
	}
	return s.Timestep
}

// SideSummary is the end-of-battle state of one fleet.
type SideSummary struct {
	Score      float64 `json:"score"`
	Cost       float64 `json:"cost"`
	Survivors  int     `json:"survivors"`
	Destroyed  int     `json:"destroyed"`
	Disengaged int     `json:"disengaged"`
	Attacks    int     `json:"attacks"`
	Hits       int     `json:"hits"`
}

// Outcome is the full result of one battle. Lower scores are better.
type Outcome struct {
	A        SideSummary   `json:"a"`
	B        SideSummary   `json:"b"`
	Ticks    int           `json:"ticks"`
	Elapsed  float64       `json:"elapsed"`
	Duration time.Duration `json:"duration"`
}

type options struct {
	rand     Rand
	observer Observer
}

// Option customises a single evaluation.
type Option func(*options)

// WithRand injects the random source. Without it each evaluation seeds a
// fresh one.
func WithRand(r Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithObserver receives a snapshot after every tick.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// Evaluate fights a against b and returns the cost each side lost.
func Evaluate(a, b *core.Fleet, settings Settings, opts ...Option) (float64, float64) {
	out := Run(a, b, settings, opts...)
	return out.A.Score, out.B.Score
}

// Run fights a against b and returns the detailed outcome. Fleet a starts
// at position 0 and fleet b at the longer of the two engagement ranges.
// The battle ends when either side has no ships left or the fight length
// limit is reached.
func Run(a, b *core.Fleet, settings Settings, opts ...Option) Outcome {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rand == nil {
		o.rand = NewRand()
	}

	started := time.Now()
	dt := settings.timestep()
	fa := NewFleet(a, 0)
	fb := NewFleet(b, max(a.EngagementRange(), b.EngagementRange()))

	tick := 0
	for ; elapsed(tick, dt) < settings.FightLengthLimit && fa.Alive() && fb.Alive(); tick++ {
		step(fa, fb, tick, dt, o.rand)
		if o.observer != nil {
			o.observer.ObserveTick(snapshot(tick, elapsed(tick+1, dt), fa, fb))
		}
	}

	return Outcome{
		A:        summarize(fa, settings.WithdrawMultiplier),
		B:        summarize(fb, settings.WithdrawMultiplier),
		Ticks:    tick,
		Elapsed:  elapsed(tick, dt),
		Duration: time.Since(started),
	}
}

// step advances the battle by one tick.
func step(a, b *Fleet, tick int, dt float64, r Rand) {
	fire(a, b, r)
	fire(b, a, r)

	resolveImpacts(a, b, r, dt)
	resolveImpacts(b, a, r, dt)

	a.commitLaunches()
	b.commitLaunches()

	a.Cleanup()
	b.Cleanup()

	a.Tick(dt)
	b.Tick(dt)

	moveFleets(a, b, tick, dt)
}

func elapsed(tick int, dt float64) float64 {
	return float64(tick) * dt
}

func summarize(f *Fleet, withdrawMultiplier float64) SideSummary {
	return SideSummary{
		Score:      f.Score(withdrawMultiplier),
		Cost:       f.Design.Cost(),
		Survivors:  len(f.Ships),
		Destroyed:  len(f.Destroyed),
		Disengaged: len(f.Disengaged),
		Attacks:    f.Attacks,
		Hits:       f.Hits,
	}
}
