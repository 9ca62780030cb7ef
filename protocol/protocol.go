// Package protocol defines the wire messages exchanged between pilots and the
// server. Every message is a JSON object discriminated by its "type" field.
package protocol

import "flightsim-server/lobby"

// Client -> Server message types
const (
	MsgJoin       = "join"
	MsgState      = "state"
	MsgProjectile = "projectile"
	MsgCreateRoom = "createRoom"
	MsgJoinRoom   = "joinRoom"
	MsgLeaveRoom  = "leaveRoom"
	MsgSetReady   = "setReady"
	MsgStartMatch = "startMatch"
)

// Server -> Client message types
const (
	MsgHello       = "hello"
	MsgPresence    = "presence"
	MsgRooms       = "rooms"
	MsgRoomCreated = "roomCreated"
	MsgJoined      = "joined"
	MsgUpdated     = "updated"
	MsgReady       = "ready"
	MsgMatchStart  = "matchStart"
	MsgMatchEnd    = "matchEnd"
	MsgSnapshot    = "snapshot"
	MsgHit         = "hit"
)

// Message is one variant of the closed wire union.
type Message interface {
	Type() string
	stamp(kind string)
}

// Header carries the discriminator. Every message embeds it.
type Header struct {
	Kind string `json:"type"`
}

func (h *Header) stamp(kind string) { h.Kind = kind }

// Vec3 is a point or vector as [x, y, z].
type Vec3 [3]float64

// Quat is a rotation as [x, y, z, w].
type Quat [4]float64

// FlightState is the wire form of an aircraft's pose.
type FlightState struct {
	Pos  Vec3     `json:"pos"`
	Quat Quat     `json:"quat"`
	Vel  Vec3     `json:"vel"`
	HP   *float64 `json:"hp,omitempty"`
}

// Projectile is a shot reported by the pilot that fired it.
type Projectile struct {
	ID  string  `json:"id"`
	Pos Vec3    `json:"pos"`
	Vel Vec3    `json:"vel"`
	TTL float64 `json:"ttl"`
}

// ---- client -> server ----

// Join sets the sender's identity.
type Join struct {
	Header
	Username string `json:"username"`
	Aircraft string `json:"aircraft"`
}

// State replaces the sender's last known flight state.
type State struct {
	Header
	Username string       `json:"username,omitempty"`
	Aircraft string       `json:"aircraft,omitempty"`
	State    *FlightState `json:"state"`
}

// Fire spawns a projectile owned by the sender.
type Fire struct {
	Header
	Projectile *Projectile `json:"projectile"`
}

type CreateRoom struct {
	Header
	Name string `json:"name"`
}

type JoinRoom struct {
	Header
	ID string `json:"id"`
}

type LeaveRoom struct {
	Header
}

type SetReady struct {
	Header
	Ready *bool `json:"ready"`
}

type StartMatch struct {
	Header
}

// ---- server -> client ----

// Hello is the first message on every connection.
type Hello struct {
	Header
	ID         string `json:"id"`
	ServerTime int64  `json:"serverTime"` // unix ms
}

type Presence struct {
	Header
	OnlineCount int `json:"onlineCount"`
}

type Rooms struct {
	Header
	List []lobby.Room `json:"list"`
}

type RoomCreated struct {
	Header
	Room lobby.Room `json:"room"`
}

type Joined struct {
	Header
	Room lobby.Room `json:"room"`
}

type Updated struct {
	Header
	Room lobby.Room `json:"room"`
}

type Ready struct {
	Header
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type MatchStart struct {
	Header
	RoomID    string `json:"roomId"`
	StartTime int64  `json:"startTime"` // unix ms
}

type MatchEnd struct {
	Header
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// PlayerSnapshot is one player's entry in a snapshot.
type PlayerSnapshot struct {
	ID    string      `json:"id"`
	State FlightState `json:"state"`
}

// ProjectileSnapshot is one live projectile in a snapshot.
type ProjectileSnapshot struct {
	ID  string `json:"id"`
	Pos Vec3   `json:"pos"`
}

// Snapshot is the world state broadcast once per server tick.
type Snapshot struct {
	Header
	Players     []PlayerSnapshot     `json:"players"`
	Projectiles []ProjectileSnapshot `json:"projectiles"`
}

// Hit reports that player ID was struck.
type Hit struct {
	Header
	ID string `json:"id"`
}

func (*Join) Type() string       { return MsgJoin }
func (*State) Type() string      { return MsgState }
func (*Fire) Type() string       { return MsgProjectile }
func (*CreateRoom) Type() string { return MsgCreateRoom }
func (*JoinRoom) Type() string   { return MsgJoinRoom }
func (*LeaveRoom) Type() string  { return MsgLeaveRoom }
func (*SetReady) Type() string   { return MsgSetReady }
func (*StartMatch) Type() string { return MsgStartMatch }

func (*Hello) Type() string       { return MsgHello }
func (*Presence) Type() string    { return MsgPresence }
func (*Rooms) Type() string       { return MsgRooms }
func (*RoomCreated) Type() string { return MsgRoomCreated }
func (*Joined) Type() string      { return MsgJoined }
func (*Updated) Type() string     { return MsgUpdated }
func (*Ready) Type() string       { return MsgReady }
func (*MatchStart) Type() string  { return MsgMatchStart }
func (*MatchEnd) Type() string    { return MsgMatchEnd }
func (*Snapshot) Type() string    { return MsgSnapshot }
func (*Hit) Type() string         { return MsgHit }
