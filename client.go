package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"flightsim-server/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a WebSocket connection.
type Client struct {
	hub        *Hub
	world      *World
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	binary     bool
	limiter    *rate.Limiter
	log        zerolog.Logger
	closeOnce  sync.Once
}

// NewClient creates a new Client. Inbound messages beyond perSec (with the
// given burst) are dropped; perSec <= 0 disables the limit.
func NewClient(hub *Hub, world *World, conn *websocket.Conn, remoteAddr string, binary bool, perSec float64, burst int) *Client {
	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		hub:        hub,
		world:      world,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		binary:     binary,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log.With().Str("remote", remoteAddr).Logger(),
	}
}

// Attach registers the client's session with the world. It must run before
// the pumps start.
func (c *Client) Attach() {
	s := c.world.Connect(c)
	c.id = s.ID
	c.log = c.log.With().Str("conn", c.id).Logger()
	c.log.Info().Bool("binary", c.binary).Msg("connected")
}

// ReadPump reads messages from the WebSocket connection. When the connection
// closes the session is torn down before the pump returns.
func (c *Client) ReadPump() {
	defer func() {
		c.world.Disconnect(c.id)
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.Unregister(c)
		c.closeSend()
		c.conn.Close()
		c.log.Info().Msg("disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws error")
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !c.limiter.Allow() {
			c.log.Debug().Msg("rate limited, message dropped")
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeSend closes the send channel, ending WritePump. Safe to call more than
// once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// SendRaw queues pre-encoded bytes as a text message.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary queues bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// Binary reports whether this client asked for msgpack snapshots.
func (c *Client) Binary() bool {
	return c.binary
}

// handleMessage routes one inbound message. Anything that does not parse as
// a known client message is dropped.
func (c *Client) handleMessage(raw []byte) {
	msg, err := protocol.ParseClient(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("dropped message")
		return
	}

	switch m := msg.(type) {
	case *protocol.Join:
		c.world.Join(c.id, m.Username, m.Aircraft)
	case *protocol.State:
		c.world.UpdateState(c.id, m)
	case *protocol.Fire:
		c.world.Fire(c.id, m.Projectile)
	case *protocol.CreateRoom:
		c.world.CreateRoom(c.id, m.Name)
	case *protocol.JoinRoom:
		c.world.JoinRoom(c.id, m.ID)
	case *protocol.LeaveRoom:
		c.world.LeaveRoom(c.id)
	case *protocol.SetReady:
		c.world.SetReady(c.id, *m.Ready)
	case *protocol.StartMatch:
		c.world.StartMatch(c.id)
	}
}
