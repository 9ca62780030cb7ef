package flight

import "math"

// Params are the tuning constants of the flight model.
type Params struct {
	MaxSpeed  float64 // velocity magnitude cap, units/s
	ThrustMax float64 // thrust at full throttle, units/s²
	LiftK     float64 // lift per speed² per unit lift coefficient
	DragK     float64 // drag per speed²
	Gravity   float64 // units/s²

	PitchMax float64 // rad/s at full deflection
	RollMax  float64
	YawMax   float64

	// CoordGain feeds roll rate into yaw for coordinated banking turns.
	CoordGain float64
	// Smooth is the fraction of the gap to the target rate closed each step.
	// It is applied per step, not scaled by dt, so it assumes a fixed timestep.
	Smooth float64
	// ThrottleRate is how fast full throttle input moves the throttle, 1/s.
	ThrottleRate float64

	StallAngle float64 // |angle of attack| where lift starts to fall off, rad
	StallWidth float64 // angle past StallAngle over which lift reaches StallFloor
	StallFloor float64 // lift multiplier deep in the stall

	SkyCeiling      float64 // max altitude
	WorldHalfExtent float64 // lateral bound on |x| and |z|
	BoundaryPenalty float64 // health lost per boundary violation
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		MaxSpeed:  350,
		ThrustMax: 250,
		LiftK:     0.008,
		DragK:     0.0003,
		Gravity:   9.81,

		PitchMax: 1.8,
		RollMax:  2.5,
		YawMax:   1.2,

		CoordGain:    0.2,
		Smooth:       0.15,
		ThrottleRate: 0.5,

		StallAngle: 15 * math.Pi / 180,
		StallWidth: 15 * math.Pi / 180,
		StallFloor: 0.7,

		SkyCeiling:      4000,
		WorldHalfExtent: 50000,
		BoundaryPenalty: 50,
	}
}

// LiftCoefficient maps angle of attack to a lift coefficient. It is linear up
// to the stall angle and then falls off linearly to StallFloor of the stall
// value over StallWidth, holding there beyond. The curve is continuous.
func (p Params) LiftCoefficient(alpha float64) float64 {
	a := math.Abs(alpha)
	if a <= p.StallAngle {
		return alpha
	}
	past := 1.0
	if p.StallWidth > 0 {
		past = math.Min((a-p.StallAngle)/p.StallWidth, 1)
	}
	mult := 1 - (1-p.StallFloor)*past
	return math.Copysign(p.StallAngle*mult, alpha)
}
