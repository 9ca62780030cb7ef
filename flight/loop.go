package flight

const (
	DefaultTimestep = 1.0 / 120 // seconds per integrator step
	MaxFrameTime    = 0.1       // cap on real time credited per frame
)

// InputFunc samples control input once per integrator step.
type InputFunc func() Input

// Loop drives the integrator at a fixed timestep from a variable frame clock.
// A frame may run zero, one or several steps; the leftover real time carries
// over to the next frame. Loop is not safe for concurrent use.
type Loop struct {
	Params   Params
	Timestep float64
	MaxFrame float64

	state State
	acc   float64
	ticks uint64
}

// NewLoop returns a loop at the default timestep holding a freshly spawned
// state.
func NewLoop(p Params) *Loop {
	return &Loop{
		Params:   p,
		Timestep: DefaultTimestep,
		MaxFrame: MaxFrameTime,
		state:    Spawn(),
	}
}

// Advance credits frame seconds of real time and runs as many whole steps as
// fit, sampling input before each. It returns the number of steps run.
func (l *Loop) Advance(frame float64, input InputFunc) int {
	if !(frame > 0) {
		return 0
	}
	if frame > l.MaxFrame {
		frame = l.MaxFrame
	}
	l.acc += frame

	steps := 0
	for l.acc >= l.Timestep {
		var in Input
		if input != nil {
			in = input()
		}
		l.state = l.Params.Step(l.state, in, l.Timestep)
		l.acc -= l.Timestep
		l.ticks++
		steps++
	}
	return steps
}

// State returns the current simulated state.
func (l *Loop) State() State {
	return l.state
}

// Alpha is the fraction of a step left in the accumulator, for render blending.
func (l *Loop) Alpha() float64 {
	return l.acc / l.Timestep
}

// Ticks returns the total number of steps run.
func (l *Loop) Ticks() uint64 {
	return l.ticks
}

// Damage applies damage to the simulated aircraft.
func (l *Loop) Damage(amount float64) {
	l.state = Damage(l.state, amount)
}

// Respawn replaces the state with a fresh spawn.
func (l *Loop) Respawn() {
	l.state = Spawn()
	l.acc = 0
}
