package combat

import "github.com/athena2/fleeteval/pkg/core"

var (
	_ Combatant = (*Ship)(nil)
	_ Combatant = (*Projectile)(nil)
	_ Combatant = (*StrikeCraft)(nil)
)

// Fleet is one side of a battle. A ship is in exactly one of Ships,
// Destroyed or Disengaged and only ever leaves Ships.
type Fleet struct {
	Design      *core.Fleet    `json:"-"`
	Ships       []*Ship        `json:"ships"`
	Projectiles []*Projectile  `json:"projectiles"`
	StrikeCraft []*StrikeCraft `json:"strikeCraft"`
	Destroyed   []*Ship        `json:"destroyed"`
	Disengaged  []*Ship        `json:"disengaged"`

	Attacks int `json:"attacks"`
	Hits    int `json:"hits"`

	launchedProjectiles []*Projectile
	launchedCraft       []*StrikeCraft
}

// NewFleet instantiates every ship of the design at position.
func NewFleet(d *core.Fleet, position float64) *Fleet {
	f := &Fleet{
		Design: d,
		Ships:  make([]*Ship, 0, d.ShipCount()),
	}
	for _, e := range d.Ships {
		for range e.Count {
			f.Ships = append(f.Ships, NewShip(e.Ship, position))
		}
	}
	return f
}

// Alive reports whether any ship is still fighting.
func (f *Fleet) Alive() bool {
	return len(f.Ships) > 0
}

// Cleanup moves flagged ships to Disengaged, dead ships to Destroyed and
// drops dead projectiles and strike craft. Order is preserved.
func (f *Fleet) Cleanup() {
	live := f.Ships[:0]
	for _, s := range f.Ships {
		switch {
		case s.WillDisengage:
			f.Disengaged = append(f.Disengaged, s)
		case s.Dead():
			f.Destroyed = append(f.Destroyed, s)
		default:
			live = append(live, s)
		}
	}
	clear(f.Ships[len(live):])
	f.Ships = live

	f.Projectiles = sweep(f.Projectiles)
	f.StrikeCraft = sweep(f.StrikeCraft)
}

func sweep[T Combatant](items []T) []T {
	live := items[:0]
	for _, it := range items {
		if !it.Body().Dead() {
			live = append(live, it)
		}
	}
	clear(items[len(live):])
	return live
}

// Tick runs regeneration and reload for everything the fleet has fielded.
func (f *Fleet) Tick(dt float64) {
	for _, s := range f.Ships {
		s.Tick(dt)
	}
	for _, c := range f.StrikeCraft {
		c.Tick(dt)
	}
}

// Score is the cost this fleet lost: destroyed ships in full, disengaged
// ships scaled by withdrawMultiplier.
func (f *Fleet) Score(withdrawMultiplier float64) float64 {
	var destroyed, disengaged float64
	for _, s := range f.Destroyed {
		destroyed += s.Design.Cost
	}
	for _, s := range f.Disengaged {
		disengaged += s.Design.Cost
	}
	return destroyed + withdrawMultiplier*disengaged
}

// commitLaunches adds the projectiles and craft launched this tick.
func (f *Fleet) commitLaunches() {
	f.Projectiles = append(f.Projectiles, f.launchedProjectiles...)
	f.StrikeCraft = append(f.StrikeCraft, f.launchedCraft...)
	f.launchedProjectiles = f.launchedProjectiles[:0]
	f.launchedCraft = f.launchedCraft[:0]
}

// nearestShip returns the closest living ship to from, or nil.
func (f *Fleet) nearestShip(from *Entity) *Ship {
	var best *Ship
	bestRange := 0.0
	for _, s := range f.Ships {
		if s.Dead() {
			continue
		}
		if d := from.RangeTo(&s.Entity); best == nil || d < bestRange {
			best, bestRange = s, d
		}
	}
	return best
}
