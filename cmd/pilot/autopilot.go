package main

import (
	"github.com/go-gl/mathgl/mgl64"

	"flightsim-server/flight"
)

// Autopilot holds altitude and airspeed while flying a gentle banked circle.
type Autopilot struct {
	Altitude float64 // metres
	Speed    float64 // m/s
	Bank     float64 // roll input held while turning, [-1, 1]
}

func DefaultAutopilot() Autopilot {
	return Autopilot{Altitude: 600, Speed: 150, Bank: 0.15}
}

// Input returns the stick and throttle for state s.
func (a Autopilot) Input(s flight.State) flight.Input {
	altErr := (a.Altitude - s.Position[1]) / 200
	climb := s.Velocity[1] / 50
	speedErr := (a.Speed - s.Speed()) / 50

	// Hold the bank angle: compare the right wing's height with the target.
	right := s.Orientation.Rotate(flight.Right)
	roll := (a.Bank + right[1]) * 2

	return flight.Input{
		Pitch:    mgl64.Clamp(altErr-climb, -1, 1),
		Roll:     mgl64.Clamp(roll, -1, 1),
		Throttle: mgl64.Clamp(speedErr, -1, 1),
	}
}
