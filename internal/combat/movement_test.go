package combat

import (
	"testing"

	"github.com/athena2/fleeteval/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestMoveToRange(t *testing.T) {
	tests := []struct {
		name     string
		position float64
		target   float64
		rng      float64
		speed    float64
		expected float64
	}{
		{name: "already at range", position: 0, target: 50, rng: 50, speed: 10, expected: 0},
		{name: "closes at top speed", position: 0, target: 50, rng: 20, speed: 10, expected: 1},
		{name: "snaps when within a tick", position: 29.5, target: 50, rng: 20, speed: 10, expected: 30},
		{name: "backs off when too close", position: 45, target: 50, rng: 20, speed: 10, expected: 44},
		{name: "picks the nearer side", position: 80, target: 50, rng: 20, speed: 100, expected: 70},
		{name: "seeks zero range", position: 10, target: 12, rng: 0, speed: 100, expected: 12},
		{name: "stationary", position: 10, target: 50, rng: 0, speed: 0, expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entity{Position: tt.position, Speed: tt.speed}
			e.MoveToRange(&Entity{Position: tt.target}, tt.rng, 0.1)
			assert.InDelta(t, tt.expected, e.Position, 1e-9)
		})
	}
}

func TestPreferredRange(t *testing.T) {
	short := testWeapon(func(w *core.Weapon) { w.MaxRange = 10 })
	mid := testWeapon(func(w *core.Weapon) { w.MaxRange = 30 })
	long := testWeapon(func(w *core.Weapon) { w.MaxRange = 80 })
	weapons := []*core.Weapon{long, short, mid}

	tests := []struct {
		tactics  core.Tactics
		expected float64
	}{
		{core.TacticsSwarm, 0},
		{core.TacticsTorpedo, 0},
		{core.TacticsPicket, 30},
		{core.TacticsLine, 30},
		{core.TacticsArtillery, 80},
		{core.TacticsCarrier, 80},
	}
	for _, tt := range tests {
		t.Run(string(tt.tactics), func(t *testing.T) {
			s := NewShip(testDesign(func(d *core.ShipDesign) {
				d.Tactics = tt.tactics
				d.Weapons = weapons
			}), 0)
			assert.InDelta(t, tt.expected, s.PreferredRange(), 1e-9)
		})
	}

	assert.Panics(t, func() {
		NewShip(testDesign(func(d *core.ShipDesign) { d.Tactics = "kamikaze" }), 0)
	})
}

func TestMove_EntitiesFollowNearestShip(t *testing.T) {
	missile := testWeapon(func(w *core.Weapon) {
		w.Kind = core.WeaponProjectile
		w.Projectile = &core.ProjectileSpec{Speed: 100, Hull: 1}
	})
	attacker := shipsAt(testDesign(), 0)
	p := newProjectile(missile, attacker.Ships[0])
	attacker.Projectiles = append(attacker.Projectiles, p)
	defender := shipsAt(testDesign(unarmed), 100, 25)

	move(attacker, defender, 0.1)
	assert.InDelta(t, -1, attacker.Ships[0].Position, 1e-9, "line ship backs off toward weapon range")
	assert.InDelta(t, 10, p.Position, 1e-9)
}

func TestMoveFleets_AlternatesPriority(t *testing.T) {
	// b chases a, so whoever moves second sees the other's new position
	chaser := testDesign(func(d *core.ShipDesign) {
		unarmed(d)
		d.Speed = 200
	})
	runner := testDesign(func(d *core.ShipDesign) {
		unarmed(d)
		d.Speed = 10
	})

	a := shipsAt(runner, 0)
	b := shipsAt(chaser, 20)
	moveFleets(a, b, 0, 0.1)
	assert.InDelta(t, 1, a.Ships[0].Position, 1e-9)
	assert.InDelta(t, 1, b.Ships[0].Position, 1e-9)

	a = shipsAt(runner, 0)
	b = shipsAt(chaser, 20)
	moveFleets(a, b, 1, 0.1)
	assert.InDelta(t, 0, b.Ships[0].Position, 1e-9)
	assert.InDelta(t, 0, a.Ships[0].Position, 1e-9)
}
