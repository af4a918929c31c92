package combat

// move closes every entity of f on its nearest enemy ship. Ships hold
// their preferred range; projectiles and strike craft close to zero.
func move(f, enemy *Fleet, dt float64) {
	for _, s := range f.Ships {
		if target := enemy.nearestShip(&s.Entity); target != nil {
			s.MoveToRange(&target.Entity, s.PreferredRange(), dt)
		}
	}
	for _, p := range f.Projectiles {
		if target := enemy.nearestShip(&p.Entity); target != nil {
			p.MoveToRange(&target.Entity, 0, dt)
		}
	}
	for _, c := range f.StrikeCraft {
		if target := enemy.nearestShip(&c.Entity); target != nil {
			c.MoveToRange(&target.Entity, 0, dt)
		}
	}
}

// moveFleets alternates which side moves first on each tick.
func moveFleets(a, b *Fleet, tick int, dt float64) {
	if tick%2 == 0 {
		move(a, b, dt)
		move(b, a, dt)
		return
	}
	move(b, a, dt)
	move(a, b, dt)
}
