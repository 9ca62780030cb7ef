package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownType = errors.New("protocol: unknown message type")
	ErrInvalid     = errors.New("protocol: invalid message")
)

var clientMessages = map[string]func() Message{
	MsgJoin:       func() Message { return &Join{} },
	MsgState:      func() Message { return &State{} },
	MsgProjectile: func() Message { return &Fire{} },
	MsgCreateRoom: func() Message { return &CreateRoom{} },
	MsgJoinRoom:   func() Message { return &JoinRoom{} },
	MsgLeaveRoom:  func() Message { return &LeaveRoom{} },
	MsgSetReady:   func() Message { return &SetReady{} },
	MsgStartMatch: func() Message { return &StartMatch{} },
}

var serverMessages = map[string]func() Message{
	MsgHello:       func() Message { return &Hello{} },
	MsgPresence:    func() Message { return &Presence{} },
	MsgRooms:       func() Message { return &Rooms{} },
	MsgRoomCreated: func() Message { return &RoomCreated{} },
	MsgJoined:      func() Message { return &Joined{} },
	MsgUpdated:     func() Message { return &Updated{} },
	MsgReady:       func() Message { return &Ready{} },
	MsgMatchStart:  func() Message { return &MatchStart{} },
	MsgMatchEnd:    func() Message { return &MatchEnd{} },
	MsgSnapshot:    func() Message { return &Snapshot{} },
	MsgHit:         func() Message { return &Hit{} },
}

type validator interface {
	validate() error
}

// Encode stamps m with its type and marshals it.
func Encode(m Message) ([]byte, error) {
	m.stamp(m.Type())
	return json.Marshal(m)
}

// ParseClient decodes a message sent by a pilot. Anything that is not one of
// the known client shapes is rejected.
func ParseClient(data []byte) (Message, error) {
	return parse(data, clientMessages)
}

// ParseServer decodes a message sent by the server.
func ParseServer(data []byte) (Message, error) {
	return parse(data, serverMessages)
}

func parse(data []byte, registry map[string]func() Message) (Message, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	ctor, ok := registry[h.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, h.Kind)
	}
	m := ctor()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, h.Kind, err)
	}
	if v, ok := m.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, h.Kind, err)
		}
	}
	return m, nil
}

func (m *State) validate() error {
	if m.State == nil {
		return errors.New("missing state")
	}
	return m.State.validate()
}

func (m *Fire) validate() error {
	p := m.Projectile
	if p == nil {
		return errors.New("missing projectile")
	}
	if !finite(p.Pos[:]...) || !finite(p.Vel[:]...) {
		return errors.New("non-finite projectile")
	}
	if !(p.TTL > 0) || math.IsInf(p.TTL, 0) {
		return errors.New("ttl must be positive")
	}
	return nil
}

func (m *JoinRoom) validate() error {
	if m.ID == "" {
		return errors.New("missing room id")
	}
	return nil
}

func (m *SetReady) validate() error {
	if m.Ready == nil {
		return errors.New("missing ready flag")
	}
	return nil
}

func (s *FlightState) validate() error {
	if !finite(s.Pos[:]...) || !finite(s.Quat[:]...) || !finite(s.Vel[:]...) {
		return errors.New("non-finite state")
	}
	if s.HP != nil && !finite(*s.HP) {
		return errors.New("non-finite hp")
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
