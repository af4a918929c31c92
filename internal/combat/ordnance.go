package combat

import "github.com/athena2/fleeteval/pkg/core"

// Projectile is a missile or torpedo in flight. It picks the nearest enemy
// ship every tick and is spent on impact.
type Projectile struct {
	Entity
	Weapon *core.Weapon     `json:"-"`
	Firer  *core.ShipDesign `json:"-"`
}

func newProjectile(w *core.Weapon, firer *Ship) *Projectile {
	spec := w.Projectile
	return &Projectile{
		Entity: Entity{
			Hull:     spec.Hull,
			Armour:   spec.Armour,
			Evasion:  spec.Evasion,
			Position: firer.Position,
			Speed:    spec.Speed,
		},
		Weapon: w,
		Firer:  firer.Design,
	}
}

func (p *Projectile) TakeDamage(w *core.Weapon, firer *core.ShipDesign, r Rand) bool {
	return takeDamage(p, w, firer, r)
}

func (p *Projectile) Tick(float64) {}

func (p *Projectile) CheckRetreat(float64, Rand) {}

// trackingRange is how far the projectile can see targets.
func (p *Projectile) trackingRange() float64 {
	return max(p.Weapon.Projectile.RetargetRange, p.Firer.EffectiveRange(p.Weapon))
}

// impactRange is the distance closed in one tick.
func (p *Projectile) impactRange(dt float64) float64 {
	return p.Weapon.Projectile.Speed * dt
}

// StrikeCraft is a fighter or bomber launched from a hangar. It attacks
// with the hangar weapon's damage profile on its own cooldown.
type StrikeCraft struct {
	Entity
	Weapon   *core.Weapon     `json:"-"`
	Firer    *core.ShipDesign `json:"-"`
	Cooldown float64          `json:"cooldown"`
}

func newStrikeCraft(w *core.Weapon, carrier *Ship) *StrikeCraft {
	spec := w.Hangar.StrikeCraft
	return &StrikeCraft{
		Entity: Entity{
			Hull:     spec.Hull,
			Armour:   spec.Armour,
			Shields:  spec.Shield,
			Evasion:  spec.Evasion,
			Position: carrier.Position,
			Speed:    spec.Speed,
		},
		Weapon: w,
		Firer:  carrier.Design,
	}
}

func (c *StrikeCraft) TakeDamage(w *core.Weapon, firer *core.ShipDesign, r Rand) bool {
	return takeDamage(c, w, firer, r)
}

// Tick reloads the craft's weapon; damaged craft reload more slowly.
func (c *StrikeCraft) Tick(dt float64) {
	if c.Cooldown > 0 {
		c.Cooldown -= reloadStep(dt, c.Firer.FireRateModifier, c.Hull, c.Weapon.Hangar.StrikeCraft.Hull)
	}
}

func (c *StrikeCraft) CheckRetreat(float64, Rand) {}

func (c *StrikeCraft) ready() bool {
	return c.Cooldown <= 0
}

func (c *StrikeCraft) fire() {
	c.Cooldown = c.Weapon.Cooldown
}

// InRange checks target against the craft's own range after the carrier's
// range modifier.
func (c *StrikeCraft) InRange(target *Entity) bool {
	return c.RangeTo(target) <= c.Weapon.Hangar.StrikeCraft.Range*(1+c.Firer.WeaponsRangeModifier)
}
