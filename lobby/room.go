// Package lobby holds the matchmaking rooms and their ready-state machine.
package lobby

import "flightsim-server/flight"

// Status is the lifecycle phase of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusReady   Status = "ready"
	StatusInGame  Status = "in-game"
)

// Player is one member of a room.
type Player struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Aircraft flight.Aircraft `json:"aircraft"`
	Ready    bool            `json:"ready"`
}

// Room is a snapshot of one room. Values returned by Manager are copies.
type Room struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Status  Status   `json:"status"`
	Players []Player `json:"players"`
	Max     int      `json:"max"`
	OwnerID string   `json:"ownerId"`
}

// Has reports whether playerID is a member.
func (r Room) Has(playerID string) bool {
	return r.index(playerID) >= 0
}

// Full reports whether the room is at capacity.
func (r Room) Full() bool {
	return len(r.Players) >= r.Max
}

func (r Room) index(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r Room) clone() Room {
	r.Players = append([]Player(nil), r.Players...)
	return r
}

// recompute derives the status from membership. An in-game room keeps its
// status; leaving a match is handled by the caller.
func (r *Room) recompute() {
	if r.Status == StatusInGame {
		return
	}
	if len(r.Players) == r.Max && allReady(r.Players) {
		r.Status = StatusReady
	} else {
		r.Status = StatusWaiting
	}
}

func allReady(players []Player) bool {
	for _, p := range players {
		if !p.Ready {
			return false
		}
	}
	return true
}
