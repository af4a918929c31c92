package combat

import (
	"testing"

	"github.com/athena2/fleeteval/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRetreat_AboveHalfHull(t *testing.T) {
	for _, hull := range []float64{50.0001, 75, 100} {
		s := NewShip(testDesign(func(d *core.ShipDesign) { d.DisengageChanceModifier = 100 }), 0)
		s.Hull = hull

		s.CheckRetreat(1000, fixedRand(0))
		assert.False(t, s.WillDisengage, "hull %v", hull)
		assert.Equal(t, 1, s.DisengageChancesRemaining, "hull %v", hull)
	}
}

func TestCheckRetreat_NoChancesLeft(t *testing.T) {
	s := NewShip(testDesign(func(d *core.ShipDesign) {
		d.DisengageChances = 0
		d.DisengageChanceModifier = 100
	}), 0)
	s.Hull = 10

	s.CheckRetreat(90, fixedRand(0))
	assert.False(t, s.WillDisengage)
	assert.Equal(t, 0, s.DisengageChancesRemaining)
}

func TestCheckRetreat_Probability(t *testing.T) {
	tests := []struct {
		name     string
		draw     float64
		expected bool
	}{
		// 10 hull damage of 100 at modifier 1 is a 0.15 chance
		{name: "draw under chance", draw: 0.1, expected: true},
		{name: "draw over chance", draw: 0.2, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShip(testDesign(func(d *core.ShipDesign) { d.DisengageChances = 3 }), 0)
			s.Hull = 40

			s.CheckRetreat(10, fixedRand(tt.draw))
			assert.Equal(t, tt.expected, s.WillDisengage)
			assert.Equal(t, 2, s.DisengageChancesRemaining)
		})
	}
}

func TestTakeDamage_TriggersRetreat(t *testing.T) {
	s := NewShip(testDesign(), 0)
	w := testWeapon(func(w *core.Weapon) { w.MinDamage, w.MaxDamage = 60, 60 })

	s.TakeDamage(w, testDesign(), fixedRand(0.5))
	assert.InDelta(t, 40, s.Hull, 1e-9)
	assert.True(t, s.WillDisengage)
	assert.Zero(t, s.DisengageChancesRemaining)
}

func TestTakeDamage_LethalHitSkipsRetreat(t *testing.T) {
	s := NewShip(testDesign(), 0)
	w := testWeapon(func(w *core.Weapon) { w.MinDamage, w.MaxDamage = 500, 500 })

	s.TakeDamage(w, testDesign(), fixedRand(0))
	assert.True(t, s.Dead())
	assert.False(t, s.WillDisengage)
	assert.Equal(t, 1, s.DisengageChancesRemaining)
}

func TestShipTick_Regen(t *testing.T) {
	s := NewShip(testDesign(func(d *core.ShipDesign) {
		d.HullRegen = 5
		d.ArmourHealth = 20
		d.ArmourRegen = 15
		d.ShieldHealth = 20
		d.ShieldRegen = 2
	}), 0)
	s.Hull = 50
	s.Armour = 0
	s.Shields = 0

	// regen is a per-tick amount, independent of the timestep
	s.Tick(0.1)
	assert.InDelta(t, 55, s.Hull, 1e-9)
	assert.InDelta(t, 15, s.Armour, 1e-9)
	assert.InDelta(t, 2, s.Shields, 1e-9)

	s.Tick(0.5)
	assert.InDelta(t, 60, s.Hull, 1e-9)
	assert.InDelta(t, 20, s.Armour, 1e-9, "armour is capped at the design maximum")
	assert.InDelta(t, 4, s.Shields, 1e-9)
}

func TestTakeDamage_ShieldHitSpendsDisengageChance(t *testing.T) {
	target := NewShip(testDesign(func(d *core.ShipDesign) { d.ShieldHealth = 100 }), 0)
	target.Hull = 40

	hit := target.TakeDamage(testWeapon(), testDesign(), fixedRand(0))
	require.True(t, hit)
	assert.InDelta(t, 90, target.Shields, 1e-9)
	assert.Equal(t, 40.0, target.Hull)
	assert.Zero(t, target.DisengageChancesRemaining, "a hit with no hull damage still runs the check")
	// zero hull damage gives a zero chance to leave
	assert.False(t, target.WillDisengage)
}

func TestTakeDamage_KillingHitSkipsDisengage(t *testing.T) {
	target := NewShip(testDesign(), 0)
	target.Hull = 5

	target.TakeDamage(testWeapon(), testDesign(), fixedRand(0))
	assert.Zero(t, target.Hull)
	assert.Equal(t, 1, target.DisengageChancesRemaining)
}

func TestShipTick_Cooldown(t *testing.T) {
	tests := []struct {
		name     string
		hull     float64
		fireRate float64
		expected float64
	}{
		{name: "full hull", hull: 100, expected: 0.9},
		{name: "half hull reloads slower", hull: 50, expected: 0.925},
		{name: "fire rate modifier", hull: 100, fireRate: 1, expected: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShip(testDesign(func(d *core.ShipDesign) { d.FireRateModifier = tt.fireRate }), 0)
			s.Hull = tt.hull
			s.Weapons[0].Cooldown = 1

			s.Tick(0.1)
			assert.InDelta(t, tt.expected, s.Weapons[0].Cooldown, 1e-9)
		})
	}
}

func TestShipTick_IdleWeaponStaysReady(t *testing.T) {
	s := NewShip(testDesign(), 0)
	s.Tick(0.1)
	assert.Zero(t, s.Weapons[0].Cooldown)
	assert.True(t, s.Weapons[0].Ready())
}

func TestWeaponState_Hangar(t *testing.T) {
	hangar := testWeapon(func(w *core.Weapon) {
		w.Kind = core.WeaponHangar
		w.Hangar = &core.HangarSpec{UnitsPerHangar: 2.5, RegenPerDay: 1}
	})
	s := NewShip(testDesign(func(d *core.ShipDesign) { d.Weapons = []*core.Weapon{hangar} }), 0)
	ws := s.Weapons[0]
	require.InDelta(t, 2.5, ws.Stored, 1e-9)
	require.True(t, ws.Ready())

	assert.Equal(t, 2, ws.launch())
	assert.InDelta(t, 0.5, ws.Stored, 1e-9)
	assert.False(t, ws.Ready())

	for range 30 {
		s.Tick(0.1)
	}
	assert.InDelta(t, 2.5, ws.Stored, 1e-9, "restock is capped at hangar capacity")
}

func TestStrikeCraftTick(t *testing.T) {
	hangar := testWeapon(func(w *core.Weapon) {
		w.Kind = core.WeaponHangar
		w.Cooldown = 2
		w.Hangar = &core.HangarSpec{
			UnitsPerHangar: 1,
			StrikeCraft:    core.StrikeCraftSpec{Range: 5, Speed: 30, Hull: 10, Shield: 4},
		}
	})
	carrier := NewShip(testDesign(func(d *core.ShipDesign) { d.Weapons = []*core.Weapon{hangar} }), 7)

	c := newStrikeCraft(hangar, carrier)
	assert.Equal(t, 7.0, c.Position)
	assert.Equal(t, 4.0, c.Shields)

	c.fire()
	c.Hull = 5
	c.Tick(0.1)
	assert.InDelta(t, 2-0.075, c.Cooldown, 1e-9)
}
