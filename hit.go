package main

// hitTest reports whether a point lies strictly inside the hit sphere around
// a target.
func hitTest(p *Projectile, s *Session, radius float64) bool {
	return p.Pos.Sub(s.Pose.Position).Len() < radius
}

// resolveHits tests every live projectile against the sessions sharing its
// scope, skipping the owner. The first target found takes damage and the
// projectile dies, so each projectile scores at most once. Targets are
// visited in the given order. It returns the sessions hit, one entry per hit.
// grid is cleared and refilled with the targets, so it can be reused across
// ticks; its cell size must be at least radius.
func resolveHits(grid *SpatialGrid, projectiles []*Projectile, targets []*Session, scopeOf func(*Session) string, radius, damage float64) []*Session {
	grid.Clear()
	for i, s := range targets {
		grid.Insert(s.Pose.Position, i)
	}

	var hits []*Session
	var near []int
	for _, p := range projectiles {
		if !p.Alive() {
			continue
		}
		near = grid.QueryBuf(p.Pos, near[:0])
		for _, i := range near {
			s := targets[i]
			if s.ID == p.OwnerID || scopeOf(s) != p.Scope {
				continue
			}
			if hitTest(p, s, radius) {
				s.Damage(damage)
				p.Kill()
				hits = append(hits, s)
				break
			}
		}
	}
	return hits
}

// sweep drops dead projectiles in place, keeping order.
func sweep(projectiles []*Projectile) []*Projectile {
	live := projectiles[:0]
	for _, p := range projectiles {
		if p.Alive() {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(projectiles); i++ {
		projectiles[i] = nil
	}
	return live
}
