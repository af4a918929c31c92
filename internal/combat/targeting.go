package combat

import "github.com/athena2/fleeteval/pkg/core"

// fire runs every weapon and strike craft of attacker against defender.
// Launches are held back until commitLaunches, which runs after impacts are
// resolved, so a projectile cannot strike in the tick it was fired.
func fire(attacker, defender *Fleet, r Rand) {
	for _, s := range attacker.Ships {
		for _, ws := range s.Weapons {
			if !ws.Ready() {
				continue
			}
			switch ws.Weapon.Kind {
			case core.WeaponRegular:
				target := selectTarget(s, ws.Weapon, defender)
				if target == nil {
					continue
				}
				attacker.recordAttack(target.TakeDamage(ws.Weapon, s.Design, r))
				ws.fire()
			case core.WeaponProjectile:
				if !anyShipWithin(defender, &s.Entity, s.Design.EffectiveRange(ws.Weapon)) {
					continue
				}
				attacker.launchedProjectiles = append(attacker.launchedProjectiles, newProjectile(ws.Weapon, s))
				ws.fire()
			case core.WeaponHangar:
				for range ws.launch() {
					attacker.launchedCraft = append(attacker.launchedCraft, newStrikeCraft(ws.Weapon, s))
				}
			}
		}
	}

	for _, c := range attacker.StrikeCraft {
		if !c.ready() {
			continue
		}
		target := nearestInRange(defender.Ships, &c.Entity, c.InRange)
		if target == nil {
			continue
		}
		attacker.recordAttack(target.TakeDamage(c.Weapon, c.Firer, r))
		c.fire()
	}
}

// selectTarget finds the nearest valid target for a regular weapon.
// Point-defence weapons also consider projectiles and strike craft; on a
// tie the earlier candidate in scan order wins.
func selectTarget(s *Ship, w *core.Weapon, defender *Fleet) Combatant {
	inRange := func(e *Entity) bool { return s.InRange(w, e) }

	var best Combatant
	bestRange := 0.0
	consider := func(c Combatant) {
		if d := s.RangeTo(c.Body()); best == nil || d < bestRange {
			best, bestRange = c, d
		}
	}

	if ship := nearestInRange(defender.Ships, &s.Entity, inRange); ship != nil {
		consider(ship)
	}
	if w.IsPointDefence() {
		if p := nearestInRange(defender.Projectiles, &s.Entity, inRange); p != nil {
			consider(p)
		}
		if c := nearestInRange(defender.StrikeCraft, &s.Entity, inRange); c != nil {
			consider(c)
		}
	}
	return best
}

// nearestInRange scans candidates in order and returns the closest living
// one accepted by inRange, or the zero value.
func nearestInRange[T Combatant](candidates []T, from *Entity, inRange func(*Entity) bool) T {
	var best T
	found := false
	bestRange := 0.0
	for _, c := range candidates {
		body := c.Body()
		if body.Dead() || !inRange(body) {
			continue
		}
		if d := from.RangeTo(body); !found || d < bestRange {
			best, bestRange, found = c, d, true
		}
	}
	return best
}

func anyShipWithin(f *Fleet, from *Entity, rng float64) bool {
	for _, s := range f.Ships {
		if !s.Dead() && from.RangeTo(&s.Entity) <= rng {
			return true
		}
	}
	return false
}

// resolveImpacts moves every projectile of attacker through its impact
// check: strike the nearest defender ship within one tick of travel, or
// expire if no ship is left within tracking range.
func resolveImpacts(attacker, defender *Fleet, r Rand, dt float64) {
	for _, p := range attacker.Projectiles {
		if p.Dead() {
			continue
		}
		target := defender.nearestShip(&p.Entity)
		if target == nil || p.RangeTo(&target.Entity) > p.trackingRange() {
			p.Hull = 0
			continue
		}
		if p.RangeTo(&target.Entity) <= p.impactRange(dt) {
			attacker.recordAttack(target.TakeDamage(p.Weapon, p.Firer, r))
			p.Hull = 0
		}
	}
}

func (f *Fleet) recordAttack(hit bool) {
	f.Attacks++
	if hit {
		f.Hits++
	}
}
