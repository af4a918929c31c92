package combat

// Observer is notified after each tick. It runs inside the battle loop and
// must not retain the fleets.
type Observer interface {
	ObserveTick(TickSnapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TickSnapshot)

func (f ObserverFunc) ObserveTick(s TickSnapshot) {
	f(s)
}

// FleetSnapshot is a compact view of one side after a tick.
type FleetSnapshot struct {
	Ships       int     `json:"ships"`
	Projectiles int     `json:"projectiles"`
	StrikeCraft int     `json:"strikeCraft"`
	Destroyed   int     `json:"destroyed"`
	Disengaged  int     `json:"disengaged"`
	Hull        float64 `json:"hull"`
	Armour      float64 `json:"armour"`
	Shields     float64 `json:"shields"`
	// Centre is the mean position of the live ships.
	Centre float64 `json:"centre"`
}

// TickSnapshot is passed to observers after each tick.
type TickSnapshot struct {
	Tick    int           `json:"tick"`
	Elapsed float64       `json:"elapsed"`
	A       FleetSnapshot `json:"a"`
	B       FleetSnapshot `json:"b"`
}

// Separation is the distance between the two fleets' centres.
func (s TickSnapshot) Separation() float64 {
	d := s.B.Centre - s.A.Centre
	if d < 0 {
		return -d
	}
	return d
}

func snapshot(tick int, elapsed float64, a, b *Fleet) TickSnapshot {
	return TickSnapshot{
		Tick:    tick,
		Elapsed: elapsed,
		A:       snapshotFleet(a),
		B:       snapshotFleet(b),
	}
}

func snapshotFleet(f *Fleet) FleetSnapshot {
	fs := FleetSnapshot{
		Ships:       len(f.Ships),
		Projectiles: len(f.Projectiles),
		StrikeCraft: len(f.StrikeCraft),
		Destroyed:   len(f.Destroyed),
		Disengaged:  len(f.Disengaged),
	}
	for _, s := range f.Ships {
		fs.Hull += s.Hull
		fs.Armour += s.Armour
		fs.Shields += s.Shields
		fs.Centre += s.Position
	}
	if len(f.Ships) > 0 {
		fs.Centre /= float64(len(f.Ships))
	}
	return fs
}
