package combat

import "github.com/athena2/fleeteval/pkg/core"

// Ship is a live ship. Design is shared and never modified.
type Ship struct {
	Entity
	Design  *core.ShipDesign `json:"-"`
	Weapons []*WeaponState   `json:"weapons"`

	DisengageChancesRemaining int  `json:"disengageChancesRemaining"`
	WillDisengage             bool `json:"willDisengage"`

	preferredRange float64
}

// NewShip instantiates a design at full health. It panics if the design's
// tactics are not recognised.
func NewShip(d *core.ShipDesign, position float64) *Ship {
	s := &Ship{
		Entity: Entity{
			Hull:            d.HullHealth,
			Armour:          d.ArmourHealth,
			ArmourHardening: d.ArmourHardening,
			Shields:         d.ShieldHealth,
			ShieldHardening: d.ShieldHardening,
			Evasion:         d.Evasion,
			Position:        position,
			Speed:           d.Speed,
		},
		Design:                    d,
		Weapons:                   make([]*WeaponState, 0, len(d.Weapons)),
		DisengageChancesRemaining: d.DisengageChances,
		preferredRange:            d.PreferredRange(),
	}
	for _, w := range d.Weapons {
		s.Weapons = append(s.Weapons, newWeaponState(w))
	}
	return s
}

func (s *Ship) TakeDamage(w *core.Weapon, firer *core.ShipDesign, r Rand) bool {
	return takeDamage(s, w, firer, r)
}

// CheckRetreat spends a disengage chance once the hull is at or below half
// and may flag the ship to leave the battle at the next cleanup.
func (s *Ship) CheckRetreat(hullDamage float64, r Rand) {
	if s.Hull > 0.5*s.Design.HullHealth {
		return
	}
	if s.DisengageChancesRemaining <= 0 {
		return
	}
	s.DisengageChancesRemaining--

	var p float64
	if s.Design.HullHealth > 0 {
		p = clamp01(hullDamage / s.Design.HullHealth * 1.5 * s.Design.DisengageChanceModifier)
	}
	s.WillDisengage = bernoulli(r, p)
}

// Tick regenerates pools toward the design maxima and reloads weapons.
// Regen rates are amounts per tick and do not scale with dt.
func (s *Ship) Tick(dt float64) {
	d := s.Design
	s.Hull = min(d.HullHealth, s.Hull+d.HullRegen)
	s.Armour = min(d.ArmourHealth, s.Armour+d.ArmourRegen)
	s.Shields = min(d.ShieldHealth, s.Shields+d.ShieldRegen)

	for _, ws := range s.Weapons {
		ws.tick(dt, s)
	}
}

// InRange applies the weapon's min and modified max range to target.
func (s *Ship) InRange(w *core.Weapon, target *Entity) bool {
	d := s.RangeTo(target)
	return w.MinRange <= d && d <= s.Design.EffectiveRange(w)
}

// PreferredRange is the distance the ship holds from its nearest enemy.
func (s *Ship) PreferredRange() float64 {
	return s.preferredRange
}
