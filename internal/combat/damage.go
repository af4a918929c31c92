package combat

import "github.com/athena2/fleeteval/pkg/core"

// HitChance is the probability that w fired by firer hits a target with the
// given evasion.
func HitChance(w *core.Weapon, firer *core.ShipDesign, evasion float64) float64 {
	tracking := (w.Tracking + firer.TrackingBonus) * (1 + firer.TrackingModifier)
	return clamp01(w.Accuracy - max(0, evasion-tracking) + firer.ChanceToHitBonus)
}

// RollDamage draws the raw damage of a hit before mitigation.
func RollDamage(w *core.Weapon, firer *core.ShipDesign, r Rand) float64 {
	damage := uniform(r, w.MinDamage, w.MaxDamage)
	if w.IsExplosive() {
		damage *= 1 + firer.ExplosiveWeaponsDamageModifier
	}
	return damage
}

// absorb resolves one attack against e: hit roll, damage roll, then the
// shield, armour and hull layers in turn. It returns the hull damage dealt.
func (e *Entity) absorb(w *core.Weapon, firer *core.ShipDesign, r Rand) (float64, bool) {
	if !bernoulli(r, HitChance(w, firer, e.Evasion)) {
		return 0, false
	}

	damage := RollDamage(w, firer, r)
	damage = mitigate(&e.Shields, damage, w.ShieldSkipModifier, e.ShieldHardening, w.ShieldDamageModifier)
	damage = mitigate(&e.Armour, damage, w.ArmourSkipModifier, e.ArmourHardening, w.ArmourDamageModifier)
	return e.damageHull(damage, w.HullDamageModifier), true
}

// mitigate runs incoming damage through one layer and returns what carries
// on to the next. Overflow is measured against the pool before it empties.
// A non-positive modifier leaves the pool alone and the absorbed share is lost.
func mitigate(pool *float64, incoming, skip, hardening, modifier float64) float64 {
	skipped := incoming * skip
	absorbed := incoming * (1 - skip)
	absorbed += skipped * hardening
	skipped -= skipped * hardening

	if modifier <= 0 {
		return skipped
	}

	capacity := *pool / modifier
	if absorbed < capacity {
		*pool -= absorbed * modifier
		return skipped
	}
	*pool = 0
	return skipped + absorbed - capacity
}

func (e *Entity) damageHull(incoming, modifier float64) float64 {
	if modifier <= 0 || incoming <= 0 {
		return 0
	}
	if incoming < e.Hull/modifier {
		dealt := incoming * modifier
		e.Hull -= dealt
		return dealt
	}
	dealt := max(0, e.Hull)
	e.Hull = 0
	return dealt
}
