package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Step advances s by dt seconds under the default tuning.
func Step(s State, in Input, dt float64) State {
	return DefaultParams().Step(s, in, dt)
}

// Step advances s by dt seconds. It is pure and deterministic. The returned
// orientation is unit length, speed is at most MaxSpeed, and a state that
// would go non-finite or run out of health comes back as a fresh Spawn.
func (p Params) Step(s State, in Input, dt float64) State {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return s
	}
	in = in.sanitized()

	s.Throttle = mgl64.Clamp(s.Throttle+in.Throttle*p.ThrottleRate*dt, 0, 1)

	target := Rates{
		Pitch: in.Pitch * p.PitchMax,
		Roll:  in.Roll * p.RollMax,
	}
	target.Yaw = in.Yaw*p.YawMax + target.Roll*p.CoordGain
	s.AngularRates.Pitch += (target.Pitch - s.AngularRates.Pitch) * p.Smooth
	s.AngularRates.Yaw += (target.Yaw - s.AngularRates.Yaw) * p.Smooth
	s.AngularRates.Roll += (target.Roll - s.AngularRates.Roll) * p.Smooth

	// Small-angle integration of q' = q * w / 2 with w in body coordinates.
	omega := mgl64.Quat{W: 0, V: s.AngularRates.body()}
	dq := s.Orientation.Mul(omega).Scale(0.5 * dt)
	s.Orientation = s.Orientation.Add(dq).Normalize()

	forward := s.Orientation.Rotate(Forward)
	up := s.Orientation.Rotate(Up)

	force := mgl64.Vec3{0, -p.Gravity, 0}
	force = force.Add(forward.Mul(s.Throttle * p.ThrustMax))
	if speed := s.Velocity.Len(); speed > 0 {
		q := speed * speed
		force = force.Add(s.Velocity.Mul(-p.DragK * q / speed))
		alpha := AngleOfAttack(s.Orientation, s.Velocity)
		force = force.Add(up.Mul(p.LiftK * q * p.LiftCoefficient(alpha)))
	}

	s.Velocity = s.Velocity.Add(force.Mul(dt))
	if speed := s.Velocity.Len(); speed > p.MaxSpeed {
		s.Velocity = s.Velocity.Mul(p.MaxSpeed / speed)
	}
	s.Position = s.Position.Add(s.Velocity.Mul(dt))

	if !s.Finite() {
		return Spawn()
	}
	return p.applyBounds(s)
}

// AngleOfAttack returns the angle between the body's forward axis and the
// velocity, measured in the body's vertical plane. It is positive when the
// relative wind comes from below. Zero velocity yields zero.
func AngleOfAttack(orientation mgl64.Quat, velocity mgl64.Vec3) float64 {
	if velocity.Len() == 0 {
		return 0
	}
	local := orientation.Conjugate().Rotate(velocity)
	return math.Atan2(-local.Dot(Up), local.Dot(Forward))
}

// applyBounds clamps s into the world box. Each step that leaves the box
// zeroes the offending velocity components and costs BoundaryPenalty health.
func (p Params) applyBounds(s State) State {
	violated := false
	if s.Position[1] < 0 {
		s.Position[1], s.Velocity[1] = 0, 0
		violated = true
	} else if s.Position[1] > p.SkyCeiling {
		s.Position[1], s.Velocity[1] = p.SkyCeiling, 0
		violated = true
	}
	for _, i := range [...]int{0, 2} {
		switch {
		case s.Position[i] < -p.WorldHalfExtent:
			s.Position[i], s.Velocity[i] = -p.WorldHalfExtent, 0
			violated = true
		case s.Position[i] > p.WorldHalfExtent:
			s.Position[i], s.Velocity[i] = p.WorldHalfExtent, 0
			violated = true
		}
	}
	if violated {
		return Damage(s, p.BoundaryPenalty)
	}
	return s
}

// Damage removes amount health from s, respawning it when health reaches zero.
func Damage(s State, amount float64) State {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return s
	}
	s.Health -= amount
	if s.Health <= 0 {
		return Spawn()
	}
	return s
}
