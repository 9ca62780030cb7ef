package lobby

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"unicode/utf8"

	"flightsim-server/flight"
)

const (
	DefaultMaxPlayers = 2
	DefaultRoomName   = "Room"
	maxRoomNameLen    = 30
	roomIDLen         = 6
)

// ReasonPlayerLeft is the match-end reason when a member leaves mid-match.
const ReasonPlayerLeft = "player-left"

// Departure describes the room a player just left.
type Departure struct {
	Room Room
	// Closed is set when the room emptied and was removed.
	Closed bool
	// MatchEnded is set when the room was in-game and fell back to waiting.
	MatchEnded bool
}

type entry struct {
	Room
	seq uint64
}

// Manager is the registry of live rooms. A player belongs to at most one room.
// Manager is not safe for concurrent use; the owner serializes access.
type Manager struct {
	max      int
	rooms    map[string]*entry
	byPlayer map[string]string
	seq      uint64
}

// NewManager returns an empty registry whose rooms hold up to maxPlayers.
func NewManager(maxPlayers int) *Manager {
	if maxPlayers < 1 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Manager{
		max:      maxPlayers,
		rooms:    make(map[string]*entry),
		byPlayer: make(map[string]string),
	}
}

// MaxPlayers returns the room capacity.
func (m *Manager) MaxPlayers() int {
	return m.max
}

// CreateRoom opens a waiting room with owner as its only member. An owner
// already in another room is moved out of it first.
func (m *Manager) CreateRoom(name string, owner Player) Room {
	m.LeaveRoom(owner.ID)

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultRoomName
	}
	name = truncate(name, maxRoomNameLen)

	owner.Ready = false
	m.seq++
	e := &entry{
		Room: Room{
			ID:      m.newID(),
			Name:    name,
			Players: []Player{owner},
			Max:     m.max,
			OwnerID: owner.ID,
		},
		seq: m.seq,
	}
	e.recompute()
	m.rooms[e.ID] = e
	m.byPlayer[owner.ID] = e.ID
	return e.clone()
}

// JoinRoom adds p to room id. It fails without side effects when the room is
// missing, full, in-game, or already holds p.
func (m *Manager) JoinRoom(id string, p Player) (Room, bool) {
	e, ok := m.rooms[id]
	if !ok || e.Full() || e.Status == StatusInGame || e.Has(p.ID) {
		return Room{}, false
	}
	m.LeaveRoom(p.ID)

	p.Ready = false
	e.Players = append(e.Players, p)
	e.recompute()
	m.byPlayer[p.ID] = id
	return e.clone(), true
}

// LeaveRoom removes playerID from its room. Ownership passes to the next
// remaining member; an empty room is removed.
func (m *Manager) LeaveRoom(playerID string) (Departure, bool) {
	id, ok := m.byPlayer[playerID]
	if !ok {
		return Departure{}, false
	}
	delete(m.byPlayer, playerID)
	e := m.rooms[id]

	i := e.index(playerID)
	e.Players = append(e.Players[:i], e.Players[i+1:]...)

	var d Departure
	if e.OwnerID == playerID {
		e.OwnerID = ""
		if len(e.Players) > 0 {
			e.OwnerID = e.Players[0].ID
		}
	}
	if e.Status == StatusInGame {
		e.Status = StatusWaiting
		for i := range e.Players {
			e.Players[i].Ready = false
		}
		d.MatchEnded = true
	}
	e.recompute()

	if len(e.Players) == 0 {
		delete(m.rooms, id)
		d.Closed = true
	}
	d.Room = e.clone()
	return d, true
}

// SetReady sets a member's ready flag and re-derives the room status. It fails
// for unknown rooms or members and while a match is running.
func (m *Manager) SetReady(roomID, playerID string, ready bool) (Room, bool) {
	e, ok := m.rooms[roomID]
	if !ok || e.Status == StatusInGame {
		return Room{}, false
	}
	i := e.index(playerID)
	if i < 0 {
		return Room{}, false
	}
	e.Players[i].Ready = ready
	e.recompute()
	return e.clone(), true
}

// StartMatch moves a ready room in-game.
func (m *Manager) StartMatch(roomID string) (Room, bool) {
	e, ok := m.rooms[roomID]
	if !ok || e.Status != StatusReady {
		return Room{}, false
	}
	e.Status = StatusInGame
	return e.clone(), true
}

// UpdatePlayer refreshes a member's display name and aircraft.
func (m *Manager) UpdatePlayer(playerID, username string, aircraft flight.Aircraft) (Room, bool) {
	id, ok := m.byPlayer[playerID]
	if !ok {
		return Room{}, false
	}
	e := m.rooms[id]
	i := e.index(playerID)
	e.Players[i].Username = username
	e.Players[i].Aircraft = aircraft
	return e.clone(), true
}

// Room returns a copy of room id.
func (m *Manager) Room(id string) (Room, bool) {
	e, ok := m.rooms[id]
	if !ok {
		return Room{}, false
	}
	return e.clone(), true
}

// RoomOf returns the room holding playerID.
func (m *Manager) RoomOf(playerID string) (Room, bool) {
	id, ok := m.byPlayer[playerID]
	if !ok {
		return Room{}, false
	}
	return m.Room(id)
}

// ListRooms returns every live room in creation order.
func (m *Manager) ListRooms() []Room {
	entries := make([]*entry, 0, len(m.rooms))
	for _, e := range m.rooms {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	list := make([]Room, len(entries))
	for i, e := range entries {
		list[i] = e.clone()
	}
	return list
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	return len(m.rooms)
}

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (m *Manager) newID() string {
	for {
		code := generateCode(roomIDLen)
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
