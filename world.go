package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"flightsim-server/config"
	"flightsim-server/lobby"
	"flightsim-server/protocol"
)

// WorldConfig tunes the shared simulation.
type WorldConfig struct {
	Tick             time.Duration
	MaxPlayers       int
	HitRadius        float64
	HitDamage        float64
	MaxProjectiles   int
	MaxProjectileTTL time.Duration
	// RoomScope confines snapshots, hits and hit notices to each room.
	RoomScope bool
}

// DefaultWorldConfig matches the reference tuning.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Tick:             50 * time.Millisecond,
		MaxPlayers:       lobby.DefaultMaxPlayers,
		HitRadius:        1,
		HitDamage:        1,
		MaxProjectiles:   500,
		MaxProjectileTTL: 10 * time.Second,
	}
}

// WorldConfigFrom extracts the simulation settings from cfg.
func WorldConfigFrom(cfg *config.Config) WorldConfig {
	return WorldConfig{
		Tick:             cfg.TickInterval,
		MaxPlayers:       cfg.MaxPlayers,
		HitRadius:        cfg.HitRadius,
		HitDamage:        cfg.HitDamage,
		MaxProjectiles:   cfg.MaxProjectiles,
		MaxProjectileTTL: cfg.MaxProjectileTTL,
		RoomScope:        cfg.SnapshotScope == config.ScopeRoom,
	}
}

// World owns every session, the room registry and the projectile list. All
// access goes through its methods, which serialize on one mutex shared with
// the broadcast tick.
type World struct {
	mu          sync.Mutex
	cfg         WorldConfig
	sessions    map[string]*Session
	rooms       *lobby.Manager
	projectiles []*Projectile
	grid        *SpatialGrid
	tick        uint64
}

// NewWorld creates an empty world.
func NewWorld(cfg WorldConfig) *World {
	return &World{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		rooms:    lobby.NewManager(cfg.MaxPlayers),
		grid:     NewSpatialGrid(cfg.HitRadius),
	}
}

// Run drives the broadcast tick until ctx is done.
func (w *World) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()

	dt := w.cfg.Tick.Seconds()
	for {
		select {
		case <-ticker.C:
			w.Tick(dt)
		case <-ctx.Done():
			return
		}
	}
}

// Tick advances projectiles by dt seconds, resolves hits, drops dead
// projectiles and broadcasts one snapshot, all under the world lock.
func (w *World) Tick(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++

	for _, p := range w.projectiles {
		p.Update(dt)
	}

	sessions := w.sortedSessions()
	for _, s := range resolveHits(w.grid, w.projectiles, sessions, w.scopeOf, w.cfg.HitRadius, w.cfg.HitDamage) {
		log.Debug().Str("conn", s.ID).Float64("hp", s.Pose.Health).Msg("hit")
		w.sendScope(w.scopeOf(s), &protocol.Hit{ID: s.ID})
	}
	w.projectiles = sweep(w.projectiles)

	snaps := buildSnapshots(sessions, w.projectiles, w.scopeOf)
	encoded := make(map[string]*frames, len(snaps))
	for scope, snap := range snaps {
		encoded[scope] = &frames{snap: snap}
	}
	for _, s := range sessions {
		encoded[w.scopeOf(s)].send(s.out)
	}
}

// Connect registers a new session for out and greets it.
func (w *World) Connect(out Sender) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := newSession(out)
	w.sessions[s.ID] = s

	w.sendTo(s, &protocol.Hello{ID: s.ID, ServerTime: time.Now().UnixMilli()})
	w.sendTo(s, &protocol.Rooms{List: w.rooms.ListRooms()})
	w.broadcast(&protocol.Presence{OnlineCount: len(w.sessions)})
	return s
}

// Disconnect tears down a session: it leaves its room, and everyone gets the
// new presence count and room list.
func (w *World) Disconnect(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.sessions[id]; !ok {
		return
	}
	w.leave(id)
	delete(w.sessions, id)

	w.broadcast(&protocol.Presence{OnlineCount: len(w.sessions)})
	w.broadcastRooms()
}

// Join sets a session's display name and aircraft.
func (w *World) Join(id, username, aircraft string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return
	}
	if s.SetProfile(username, aircraft) {
		w.profileChanged(s)
	}
}

// UpdateState stores a state report. A username or aircraft riding along
// with it is applied as a profile update.
func (w *World) UpdateState(id string, m *protocol.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return
	}
	if m.Username != "" || m.Aircraft != "" {
		username, aircraft := m.Username, m.Aircraft
		if username == "" {
			username = s.Username
		}
		if aircraft == "" {
			aircraft = string(s.Aircraft)
		}
		if s.SetProfile(username, aircraft) {
			w.profileChanged(s)
		}
	}
	s.Report(*m.State)
}

// Fire adds a projectile owned by session id. Shots over the live cap are
// dropped. An id already held by a live projectile is replaced so snapshot
// ids stay unique.
func (w *World) Fire(id string, p *protocol.Projectile) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return
	}
	if len(w.projectiles) >= w.cfg.MaxProjectiles {
		log.Debug().Str("conn", id).Msg("projectile cap reached, shot dropped")
		return
	}
	proj := NewProjectile(s.ID, w.scopeOf(s), p, w.cfg.MaxProjectileTTL.Seconds())
	if w.projectileLive(proj.ID) {
		proj.ID = uuid.NewString()
	}
	w.projectiles = append(w.projectiles, proj)
}

// projectileLive reports whether a live projectile already uses id.
func (w *World) projectileLive(id string) bool {
	for _, p := range w.projectiles {
		if p.ID == id {
			return true
		}
	}
	return false
}

// CreateRoom opens a room owned by session id, moving it out of any room it
// was in.
func (w *World) CreateRoom(id, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return
	}
	w.leave(id)
	room := w.rooms.CreateRoom(name, s.player())
	log.Info().Str("conn", id).Str("room", room.ID).Msg("room created")

	w.sendTo(s, &protocol.RoomCreated{Room: room})
	w.broadcastRooms()
}

// JoinRoom moves session id into room roomID. A join that the room cannot
// take changes nothing.
func (w *World) JoinRoom(id, roomID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[id]
	if !ok {
		return
	}
	target, ok := w.rooms.Room(roomID)
	if !ok || target.Full() || target.Status == lobby.StatusInGame || target.Has(id) {
		log.Debug().Str("conn", id).Str("room", roomID).Msg("join rejected")
		return
	}
	w.leave(id)
	room, ok := w.rooms.JoinRoom(roomID, s.player())
	if !ok {
		return
	}

	w.sendTo(s, &protocol.Joined{Room: room})
	w.sendRoom(room, &protocol.Updated{Room: room})
	w.broadcastRooms()
}

// LeaveRoom takes session id out of its room.
func (w *World) LeaveRoom(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.leave(id) {
		w.broadcastRooms()
	}
}

// SetReady flips the session's ready flag in its current room.
func (w *World) SetReady(id string, ready bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.rooms.RoomOf(id)
	if !ok {
		return
	}
	room, ok := w.rooms.SetReady(current.ID, id, ready)
	if !ok {
		return
	}

	w.sendRoom(room, &protocol.Ready{PlayerID: id, Ready: ready})
	w.sendRoom(room, &protocol.Updated{Room: room})
	w.broadcastRooms()
}

// StartMatch starts the session's room if every seat is filled and ready.
func (w *World) StartMatch(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.rooms.RoomOf(id)
	if !ok {
		return
	}
	room, ok := w.rooms.StartMatch(current.ID)
	if !ok {
		log.Debug().Str("conn", id).Str("room", current.ID).Str("status", string(current.Status)).Msg("start rejected")
		return
	}
	log.Info().Str("room", room.ID).Msg("match started")

	w.sendRoom(room, &protocol.MatchStart{RoomID: room.ID, StartTime: time.Now().UnixMilli()})
	w.sendRoom(room, &protocol.Updated{Room: room})
	w.broadcastRooms()
}

// OnlineCount returns the number of live sessions.
func (w *World) OnlineCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

// Rooms returns every live room.
func (w *World) Rooms() []lobby.Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rooms.ListRooms()
}

// ProjectileCount returns the number of live projectiles.
func (w *World) ProjectileCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.projectiles)
}

// Session returns a copy of session id.
func (w *World) Session(id string) (Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// leave removes id from its room and tells the members left behind. It
// reports whether the session was in a room.
func (w *World) leave(id string) bool {
	d, ok := w.rooms.LeaveRoom(id)
	if !ok {
		return false
	}
	log.Info().Str("conn", id).Str("room", d.Room.ID).Bool("closed", d.Closed).Msg("left room")
	if d.Closed {
		return true
	}
	if d.MatchEnded {
		w.sendRoom(d.Room, &protocol.MatchEnd{RoomID: d.Room.ID, Reason: lobby.ReasonPlayerLeft})
	}
	w.sendRoom(d.Room, &protocol.Updated{Room: d.Room})
	return true
}

func (w *World) profileChanged(s *Session) {
	room, ok := w.rooms.UpdatePlayer(s.ID, s.Username, s.Aircraft)
	if !ok {
		return
	}
	w.sendRoom(room, &protocol.Updated{Room: room})
	w.broadcastRooms()
}

// scopeOf returns the snapshot scope of s: everyone shares one scope unless
// snapshots are per room, in which case room-less sessions share the lobby
// scope "".
func (w *World) scopeOf(s *Session) string {
	if !w.cfg.RoomScope {
		return ""
	}
	room, ok := w.rooms.RoomOf(s.ID)
	if !ok {
		return ""
	}
	return room.ID
}

func (w *World) sortedSessions() []*Session {
	list := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func encode(m protocol.Message) []byte {
	data, err := protocol.Encode(m)
	if err != nil {
		log.Error().Err(err).Str("type", m.Type()).Msg("encode")
		return nil
	}
	return data
}

func (w *World) sendTo(s *Session, m protocol.Message) {
	if data := encode(m); data != nil {
		s.out.SendRaw(data)
	}
}

func (w *World) broadcast(m protocol.Message) {
	data := encode(m)
	if data == nil {
		return
	}
	for _, s := range w.sessions {
		s.out.SendRaw(data)
	}
}

func (w *World) broadcastRooms() {
	w.broadcast(&protocol.Rooms{List: w.rooms.ListRooms()})
}

// sendRoom delivers m to every member of room.
func (w *World) sendRoom(room lobby.Room, m protocol.Message) {
	data := encode(m)
	if data == nil {
		return
	}
	for _, p := range room.Players {
		if s, ok := w.sessions[p.ID]; ok {
			s.out.SendRaw(data)
		}
	}
}

// sendScope delivers m to every session in scope.
func (w *World) sendScope(scope string, m protocol.Message) {
	if !w.cfg.RoomScope {
		w.broadcast(m)
		return
	}
	data := encode(m)
	if data == nil {
		return
	}
	for _, s := range w.sessions {
		if w.scopeOf(s) == scope {
			s.out.SendRaw(data)
		}
	}
}
