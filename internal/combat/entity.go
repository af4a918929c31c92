package combat

import (
	"math"

	"github.com/athena2/fleeteval/pkg/core"
)

// Entity is the mutable state shared by every combat participant.
// An entity with Hull <= 0 is dead.
type Entity struct {
	Hull            float64 `json:"hull"`
	Armour          float64 `json:"armour"`
	ArmourHardening float64 `json:"armourHardening"`
	Shields         float64 `json:"shields"`
	ShieldHardening float64 `json:"shieldHardening"`
	Evasion         float64 `json:"evasion"`
	Position        float64 `json:"position"`
	Speed           float64 `json:"speed"`
}

// Combatant is implemented by Ship, Projectile and StrikeCraft.
type Combatant interface {
	Body() *Entity
	// TakeDamage resolves one attack against the combatant and reports
	// whether it hit.
	TakeDamage(w *core.Weapon, firer *core.ShipDesign, r Rand) bool
	// Tick advances regeneration and reload by dt seconds.
	Tick(dt float64)
	CheckRetreat(hullDamage float64, r Rand)
}

func (e *Entity) Body() *Entity {
	return e
}

func (e *Entity) Dead() bool {
	return e.Hull <= 0
}

// RangeTo is the scalar distance between two entities.
func (e *Entity) RangeTo(other *Entity) float64 {
	return math.Abs(e.Position - other.Position)
}

// MoveToRange moves toward whichever point at distance rng from target is
// closer, covering at most Speed*dt and snapping when the point is within reach.
func (e *Entity) MoveToRange(target *Entity, rng, dt float64) {
	lower := target.Position - rng
	upper := target.Position + rng
	dest := upper
	if math.Abs(e.Position-lower) < math.Abs(e.Position-upper) {
		dest = lower
	}

	step := e.Speed * dt
	switch {
	case math.Abs(dest-e.Position) <= step:
		e.Position = dest
	case dest < e.Position:
		e.Position -= step
	default:
		e.Position += step
	}
}

// takeDamage is the TakeDamage body shared by every combatant kind.
func takeDamage(c Combatant, w *core.Weapon, firer *core.ShipDesign, r Rand) bool {
	body := c.Body()
	hullDamage, hit := body.absorb(w, firer, r)
	if hit && !body.Dead() {
		c.CheckRetreat(hullDamage, r)
	}
	return hit
}
