package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"flightsim-server/protocol"
)

// Projectile is a shot in flight. Pilots report shots; the server only moves
// them and checks them for hits.
type Projectile struct {
	ID      string
	OwnerID string
	// Scope is the snapshot scope the owner was in when firing.
	Scope string
	Pos   mgl64.Vec3
	Vel   mgl64.Vec3
	TTL   float64 // seconds
}

// NewProjectile builds a projectile from a fire report. The ttl is capped at
// maxTTL seconds.
func NewProjectile(ownerID, scope string, p *protocol.Projectile, maxTTL float64) *Projectile {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Projectile{
		ID:      id,
		OwnerID: ownerID,
		Scope:   scope,
		Pos:     p.Pos.Vec(),
		Vel:     p.Vel.Vec(),
		TTL:     math.Min(p.TTL, maxTTL),
	}
}

// Update moves the projectile one tick.
func (p *Projectile) Update(dt float64) {
	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	p.TTL -= dt
}

// Alive reports whether the projectile has time left.
func (p *Projectile) Alive() bool {
	return p.TTL > 0
}

// Kill ends the projectile immediately.
func (p *Projectile) Kill() {
	p.TTL = 0
}

func (p *Projectile) snapshot() protocol.ProjectileSnapshot {
	return protocol.ProjectileSnapshot{ID: p.ID, Pos: protocol.VecOf(p.Pos)}
}
