package protocol

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"flightsim-server/flight"
)

func VecOf(v mgl64.Vec3) Vec3 { return Vec3(v) }

func (v Vec3) Vec() mgl64.Vec3 { return mgl64.Vec3(v) }

func QuatOf(q mgl64.Quat) Quat {
	return Quat{q.V[0], q.V[1], q.V[2], q.W}
}

// Quat returns the rotation as a unit quaternion. A zero quaternion is read
// as the identity.
func (q Quat) Quat() mgl64.Quat {
	r := mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}}
	if r.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return r.Normalize()
}

// StateOf converts a simulated state into its wire form.
func StateOf(s flight.State) FlightState {
	hp := s.Health
	return FlightState{
		Pos:  VecOf(s.Position),
		Quat: QuatOf(s.Orientation),
		Vel:  VecOf(s.Velocity),
		HP:   &hp,
	}
}

// Apply overlays the wire pose onto base. Health is taken from the wire when
// present and floored at zero.
func (s FlightState) Apply(base flight.State) flight.State {
	base.Position = s.Pos.Vec()
	base.Orientation = s.Quat.Quat()
	base.Velocity = s.Vel.Vec()
	if s.HP != nil {
		base.Health = math.Max(*s.HP, 0)
	}
	return base
}
