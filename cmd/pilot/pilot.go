package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"flightsim-server/flight"
	"flightsim-server/interp"
	"flightsim-server/protocol"
)

const (
	muzzleSpeed  = 400.0 // m/s added to the aircraft's velocity
	muzzleOffset = 10.0  // metres ahead of the nose
	shotTTL      = 2.0   // seconds
	hitDamage    = 1.0
)

// Options configures one headless pilot.
type Options struct {
	URL          string
	Username     string
	Aircraft     string
	FrameRate    int
	SendInterval time.Duration
	FireInterval time.Duration // zero disables firing
}

// Pilot flies one aircraft against a server. All state is owned by the Run
// goroutine.
type Pilot struct {
	opts    Options
	auto    Autopilot
	loop    *flight.Loop
	remotes *interp.Interpolator

	id    string
	shots int
	hits  int
}

func NewPilot(opts Options) *Pilot {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 60
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = 50 * time.Millisecond
	}
	return &Pilot{
		opts:    opts,
		auto:    DefaultAutopilot(),
		loop:    flight.NewLoop(flight.DefaultParams()),
		remotes: interp.New(""),
	}
}

// Run connects and flies until ctx is done or the connection drops.
func (p *Pilot) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.opts.URL, err)
	}
	defer conn.Close()

	inbox := make(chan protocol.Message, 64)
	readErr := make(chan error, 1)
	go readLoop(ctx, conn, inbox, readErr)

	if err := send(conn, &protocol.Join{Username: p.opts.Username, Aircraft: p.opts.Aircraft}); err != nil {
		return err
	}

	frameEvery := time.Second / time.Duration(p.opts.FrameRate)
	frames := time.NewTicker(frameEvery)
	defer frames.Stop()
	sends := time.NewTicker(p.opts.SendInterval)
	defer sends.Stop()

	var fire <-chan time.Time
	if p.opts.FireInterval > 0 {
		t := time.NewTicker(p.opts.FireInterval)
		defer t.Stop()
		fire = t.C
	}

	last := time.Now()
	for {
		select {
		case now := <-frames.C:
			p.frame(now.Sub(last).Seconds())
			last = now

		case <-sends.C:
			if err := send(conn, p.stateMessage()); err != nil {
				return err
			}

		case <-fire:
			if err := send(conn, p.fireMessage()); err != nil {
				return err
			}

		case msg := <-inbox:
			p.handle(msg)

		case err := <-readErr:
			return err

		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			s := p.loop.State()
			log.Info().
				Str("conn", p.id).
				Int("shots", p.shots).
				Int("hits", p.hits).
				Float64("alt", s.Position[1]).
				Float64("speed", s.Speed()).
				Strs("remotes", p.remotes.IDs()).
				Msg("pilot done")
			return nil
		}
	}
}

// frame advances the local simulation and the remote smoothing by dt of
// real time.
func (p *Pilot) frame(dt float64) {
	p.loop.Advance(dt, func() flight.Input { return p.auto.Input(p.loop.State()) })
	p.remotes.Frame()
}

func (p *Pilot) handle(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Hello:
		p.id = m.ID
		p.remotes.SetLocal(m.ID)
		log.Info().Str("conn", m.ID).Msg("connected")
	case *protocol.Snapshot:
		poses := make(map[string]interp.Pose, len(m.Players))
		for _, pl := range m.Players {
			poses[pl.ID] = interp.Pose{Position: pl.State.Pos.Vec(), Orientation: pl.State.Quat.Quat()}
		}
		p.remotes.Update(poses)
	case *protocol.Hit:
		if m.ID == p.id {
			p.hits++
			p.loop.Damage(hitDamage)
			log.Debug().Int("hits", p.hits).Float64("hp", p.loop.State().Health).Msg("hit")
		}
	case *protocol.Presence:
		log.Debug().Int("online", m.OnlineCount).Msg("presence")
	}
}

func (p *Pilot) stateMessage() *protocol.State {
	st := protocol.StateOf(p.loop.State())
	return &protocol.State{State: &st}
}

func (p *Pilot) fireMessage() *protocol.Fire {
	s := p.loop.State()
	heading := s.Heading()
	p.shots++
	return &protocol.Fire{Projectile: &protocol.Projectile{
		ID:  uuid.NewString(),
		Pos: protocol.VecOf(s.Position.Add(heading.Mul(muzzleOffset))),
		Vel: protocol.VecOf(s.Velocity.Add(heading.Mul(muzzleSpeed))),
		TTL: shotTTL,
	}}
}

func send(conn *websocket.Conn, m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func readLoop(ctx context.Context, conn *websocket.Conn, inbox chan<- protocol.Message, errc chan<- error) {
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		var msg protocol.Message
		if kind == websocket.BinaryMessage {
			msg, err = protocol.DecodeBinary(raw)
		} else {
			msg, err = protocol.ParseServer(raw)
		}
		if err != nil {
			log.Debug().Err(err).Msg("dropped message")
			continue
		}
		select {
		case inbox <- msg:
		case <-ctx.Done():
			return
		}
	}
}
