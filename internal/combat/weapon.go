package combat

import (
	"math"

	"github.com/athena2/fleeteval/pkg/core"
)

// WeaponState is the per-mount runtime state of a weapon. Regular and
// projectile weapons use Cooldown; hangars use Stored.
type WeaponState struct {
	Weapon   *core.Weapon `json:"-"`
	Cooldown float64      `json:"cooldown"`
	Stored   float64      `json:"stored"`
}

func newWeaponState(w *core.Weapon) *WeaponState {
	ws := &WeaponState{Weapon: w}
	if w.Kind == core.WeaponHangar {
		ws.Stored = w.Hangar.UnitsPerHangar
	}
	return ws
}

// Ready reports whether the mount can act this tick.
func (ws *WeaponState) Ready() bool {
	if ws.Weapon.Kind == core.WeaponHangar {
		return ws.Stored >= 1
	}
	return ws.Cooldown <= 0
}

func (ws *WeaponState) fire() {
	ws.Cooldown = ws.Weapon.Cooldown
}

// launch empties the hangar of whole craft and returns how many left.
func (ws *WeaponState) launch() int {
	n := math.Floor(ws.Stored)
	ws.Stored -= n
	return int(n)
}

// tick reloads a cooldown weapon at a rate slowed by hull damage, or
// restocks a hangar.
func (ws *WeaponState) tick(dt float64, ship *Ship) {
	w := ws.Weapon
	if w.Kind == core.WeaponHangar {
		if ws.Stored < w.Hangar.UnitsPerHangar {
			ws.Stored = min(w.Hangar.UnitsPerHangar, ws.Stored+w.Hangar.RegenPerDay*dt)
		}
		return
	}
	if ws.Cooldown > 0 {
		ws.Cooldown -= reloadStep(dt, ship.Design.FireRateModifier, ship.Hull, ship.Design.HullHealth)
	}
}

// reloadStep is how much cooldown elapses in dt; a heavily damaged hull
// reloads up to twice as slowly.
func reloadStep(dt, fireRateModifier, hull, maxHull float64) float64 {
	condition := 1.0
	if maxHull > 0 {
		condition = hull / maxHull
	}
	return dt * (1 + fireRateModifier) * (0.5 + 0.5*condition)
}
