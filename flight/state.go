// Package flight implements the rigid-body flight model and the fixed-timestep
// driver that advances it.
package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body axes. Forward is -Z so poses can be handed to a renderer unchanged.
var (
	Forward = mgl64.Vec3{0, 0, -1}
	Up      = mgl64.Vec3{0, 1, 0}
	Right   = mgl64.Vec3{1, 0, 0}
)

const (
	SpawnAltitude = 500.0
	SpawnThrottle = 0.6
	MaxHealth     = 100.0
)

// Rates are angular rates in radians per second about the body axes.
type Rates struct {
	Pitch float64 // positive = nose up
	Yaw   float64 // positive = nose right
	Roll  float64 // positive = right wing down
}

// body returns the rates as a rotation vector in body coordinates.
func (r Rates) body() mgl64.Vec3 {
	return mgl64.Vec3{r.Pitch, -r.Yaw, -r.Roll}
}

// State is the full simulated state of one aircraft.
type State struct {
	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	Orientation  mgl64.Quat
	AngularRates Rates
	Throttle     float64 // [0, 1]
	Health       float64 // never negative
}

// Input is one tick of control input.
type Input struct {
	Pitch float64 // stick deflection, [-1, 1]
	Roll  float64
	Yaw   float64
	// Throttle is a rate, [-1, 1]: the persisted throttle moves by
	// Throttle*ThrottleRate per second.
	Throttle float64
}

// sanitized clamps every axis into [-1, 1] and zeroes non-finite values.
func (in Input) sanitized() Input {
	return Input{
		Pitch:    axis(in.Pitch),
		Roll:     axis(in.Roll),
		Yaw:      axis(in.Yaw),
		Throttle: axis(in.Throttle),
	}
}

func axis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return mgl64.Clamp(v, -1, 1)
}

// Spawn returns the canonical spawn pose: fixed altitude, at rest, level and
// facing forward.
func Spawn() State {
	return State{
		Position:    mgl64.Vec3{0, SpawnAltitude, 0},
		Orientation: mgl64.QuatIdent(),
		Throttle:    SpawnThrottle,
		Health:      MaxHealth,
	}
}

// Speed returns the magnitude of the velocity.
func (s State) Speed() float64 {
	return s.Velocity.Len()
}

// Heading returns the world-space forward vector.
func (s State) Heading() mgl64.Vec3 {
	return s.Orientation.Rotate(Forward)
}

// Finite reports whether every component of the state is a finite number.
func (s State) Finite() bool {
	for _, v := range [...]float64{
		s.Position[0], s.Position[1], s.Position[2],
		s.Velocity[0], s.Velocity[1], s.Velocity[2],
		s.Orientation.W, s.Orientation.V[0], s.Orientation.V[1], s.Orientation.V[2],
		s.AngularRates.Pitch, s.AngularRates.Yaw, s.AngularRates.Roll,
		s.Throttle, s.Health,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
