package main

import (
	"math"

	"github.com/google/uuid"

	"flightsim-server/flight"
	"flightsim-server/lobby"
	"flightsim-server/protocol"
)

const (
	defaultUsername = "Pilot"
	maxNameLen      = 16
)

// Sender delivers encoded frames to one connection. Implementations must not
// block.
type Sender interface {
	SendRaw(data []byte)
	SendBinary(data []byte)
	// Binary reports whether snapshots should be sent as msgpack frames.
	Binary() bool
}

// Session is the server-side record of one live connection.
type Session struct {
	ID       string
	Username string
	Aircraft flight.Aircraft
	// Pose is the last reported flight state, or the spawn pose until the
	// first report arrives.
	Pose     flight.State
	Reported bool

	out Sender
}

func newSession(out Sender) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Username: defaultUsername,
		Aircraft: flight.DefaultAircraft,
		Pose:     flight.Spawn(),
		out:      out,
	}
}

// SetProfile applies a display name and aircraft choice. It reports whether
// anything changed.
func (s *Session) SetProfile(username, aircraft string) bool {
	name := cleanName(username, defaultUsername, maxNameLen)
	craft := flight.ParseAircraft(aircraft)
	if name == s.Username && craft == s.Aircraft {
		return false
	}
	s.Username, s.Aircraft = name, craft
	return true
}

// Report replaces the last known state wholesale. Updates are last write
// wins; there is no ordering check.
func (s *Session) Report(st protocol.FlightState) {
	s.Pose = st.Apply(s.Pose)
	s.Reported = true
}

// Damage takes amount health. Health never goes below zero on the server;
// respawning is the pilot's business.
func (s *Session) Damage(amount float64) {
	s.Pose.Health = math.Max(s.Pose.Health-amount, 0)
}

func (s *Session) player() lobby.Player {
	return lobby.Player{ID: s.ID, Username: s.Username, Aircraft: s.Aircraft}
}

func (s *Session) snapshot() protocol.PlayerSnapshot {
	return protocol.PlayerSnapshot{ID: s.ID, State: protocol.StateOf(s.Pose)}
}
