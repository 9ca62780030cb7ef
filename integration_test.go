package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"flightsim-server/protocol"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

type testServer struct {
	srv   *httptest.Server
	wsURL string
	world *World
	hub   *Hub
}

// startTestServer spins up an httptest.Server with a running World and Hub.
// Everything is torn down when the test ends.
func startTestServer(t *testing.T, routes RouteConfig, maxPerIP int) *testServer {
	t.Helper()

	cfg := DefaultWorldConfig()
	cfg.Tick = 10 * time.Millisecond
	world := NewWorld(cfg)
	hub := NewHub(maxPerIP, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go world.Run(ctx)
	go hub.Run(ctx)

	srv := httptest.NewServer(SetupRoutes(hub, world, routes))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &testServer{
		srv:   srv,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		world: world,
		hub:   hub,
	}
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMsg reads one server message; binary frames are msgpack snapshots.
func readMsg(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if msgType == websocket.BinaryMessage {
		snap, err := protocol.DecodeBinary(raw)
		if err != nil {
			t.Fatalf("msgpack decode: %v", err)
		}
		return snap
	}
	msg, err := protocol.ParseServer(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return msg
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(protocol.Message) bool) protocol.Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if msg := readMsg(t, conn); match(msg) {
			return msg
		}
	}
	t.Fatalf("timed out waiting for %s", what)
	return nil
}

func readType(t *testing.T, conn *websocket.Conn, kind string) protocol.Message {
	t.Helper()
	return readUntil(t, conn, kind, func(m protocol.Message) bool { return m.Type() == kind })
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msg protocol.Message) {
	t.Helper()
	raw, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

func sendRaw(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// hello reads the greeting and returns the assigned id.
func hello(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	msg := readMsg(t, conn)
	h, ok := msg.(*protocol.Hello)
	if !ok {
		t.Fatalf("expected hello, got %s", msg.Type())
	}
	return h.ID
}

func snapshotHP(snap *protocol.Snapshot, id string) (float64, bool) {
	for _, p := range snap.Players {
		if p.ID == id && p.State.HP != nil {
			return *p.State.HP, true
		}
	}
	return 0, false
}

// ---------- HTTP endpoints ----------

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	resp, err := http.Get(ts.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]bool
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || !body["ok"] {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func getStatus(t *testing.T, url string) statusResponse {
	t.Helper()
	resp, err := http.Get(url + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestStatusEndpointOpen(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	conn := dialWS(t, ts.wsURL)
	hello(t, conn)

	body := getStatus(t, ts.srv.URL)
	if !body.OK || body.OnlineCount != 1 || body.Rooms == nil {
		t.Errorf("unexpected status %+v", body)
	}

	// The hub registers asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for body.Connections != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		body = getStatus(t, ts.srv.URL)
	}
	if body.Connections != 1 {
		t.Errorf("expected 1 registered connection, got %d", body.Connections)
	}
}

func TestStatusEndpointRequiresToken(t *testing.T) {
	ts := startTestServer(t, RouteConfig{StatusSecret: "k"}, 0)

	resp, err := http.Get(ts.srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	token, _ := MintStatusToken("k", time.Minute)
	req, _ := http.NewRequest("GET", ts.srv.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestPlainHTTPRootIsNotFound(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	resp, err := http.Get(ts.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

// ---------- connection lifecycle ----------

func TestWSHelloRoomsPresence(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	conn := dialWS(t, ts.wsURL)

	id := hello(t, conn)
	if !uuidRegex.MatchString(id) {
		t.Errorf("id %q is not a UUID", id)
	}
	if msg := readMsg(t, conn); msg.Type() != protocol.MsgRooms {
		t.Errorf("expected rooms after hello, got %s", msg.Type())
	}
	p := readType(t, conn, protocol.MsgPresence).(*protocol.Presence)
	if p.OnlineCount != 1 {
		t.Errorf("expected onlineCount 1, got %d", p.OnlineCount)
	}
}

func TestWSRootPathUpgrades(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	conn := dialWS(t, strings.TrimSuffix(ts.wsURL, "/ws"))
	hello(t, conn)
}

func TestMalformedMessagesKeepConnection(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	conn := dialWS(t, ts.wsURL)
	hello(t, conn)

	sendRaw(t, conn, "not json")
	sendRaw(t, conn, `{"type":"warp"}`)
	sendRaw(t, conn, `{"type":"state"}`)
	sendRaw(t, conn, `{"type":"projectile","projectile":{"ttl":-1}}`)
	conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
	sendMsg(t, conn, &protocol.CreateRoom{Name: "still here"})

	msg := readType(t, conn, protocol.MsgRoomCreated).(*protocol.RoomCreated)
	if msg.Room.Name != "still here" {
		t.Errorf("unexpected room %+v", msg.Room)
	}
}

func TestDisconnectCleansUpSession(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	a := dialWS(t, ts.wsURL)
	hello(t, a)
	sendMsg(t, a, &protocol.CreateRoom{Name: "duel"})
	room := readType(t, a, protocol.MsgRoomCreated).(*protocol.RoomCreated).Room

	b := dialWS(t, ts.wsURL)
	hello(t, b)
	sendMsg(t, b, &protocol.JoinRoom{ID: room.ID})
	readType(t, b, protocol.MsgJoined)
	readUntil(t, a, "update with 2 players", func(m protocol.Message) bool {
		u, ok := m.(*protocol.Updated)
		return ok && len(u.Room.Players) == 2
	})

	b.Close()

	readUntil(t, a, "update with 1 player", func(m protocol.Message) bool {
		u, ok := m.(*protocol.Updated)
		return ok && len(u.Room.Players) == 1
	})
	readUntil(t, a, "presence 1", func(m protocol.Message) bool {
		p, ok := m.(*protocol.Presence)
		return ok && p.OnlineCount == 1
	})
	if n := ts.world.OnlineCount(); n != 1 {
		t.Errorf("expected 1 session, got %d", n)
	}
}

func TestConnectionCapPerIP(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 1)
	conn := dialWS(t, ts.wsURL)
	hello(t, conn)

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	if err == nil {
		t.Fatal("second connection from the same IP should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
}

func TestOriginAllowList(t *testing.T) {
	ts := startTestServer(t, RouteConfig{AllowedOrigins: []string{"https://play.example"}}, 0)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(ts.wsURL, header); err == nil {
		t.Error("foreign origin accepted")
	}

	header.Set("Origin", "https://play.example")
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL, header)
	if err != nil {
		t.Fatalf("allowed origin refused: %v", err)
	}
	defer conn.Close()
	hello(t, conn)
}

// ---------- gameplay ----------

func TestSnapshotBroadcasts(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	conn := dialWS(t, ts.wsURL)
	id := hello(t, conn)

	snap := readType(t, conn, protocol.MsgSnapshot).(*protocol.Snapshot)
	if _, ok := snapshotHP(snap, id); !ok {
		t.Errorf("own entry missing from snapshot %+v", snap)
	}
}

func TestMsgpackSnapshots(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	conn := dialWS(t, ts.wsURL+"?enc=msgpack")
	id := hello(t, conn)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		snap, err := protocol.DecodeBinary(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := snapshotHP(snap, id); !ok {
			t.Errorf("own entry missing from binary snapshot")
		}
		return
	}
}

// A pilot reports zero health, then takes a hit: health must stay at zero.
func TestEndToEndHealthFloor(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	ace := dialWS(t, ts.wsURL)
	aceID := hello(t, ace)
	gunner := dialWS(t, ts.wsURL)
	hello(t, gunner)

	pos := protocol.Vec3{100, 200, 300}
	zero := 0.0
	sendMsg(t, ace, &protocol.Join{Username: "Ace", Aircraft: "raptor"})
	sendMsg(t, ace, &protocol.State{State: &protocol.FlightState{
		Pos: pos, Quat: protocol.Quat{0, 0, 0, 1}, Vel: protocol.Vec3{}, HP: &zero,
	}})
	readUntil(t, ace, "snapshot with hp 0", func(m protocol.Message) bool {
		snap, ok := m.(*protocol.Snapshot)
		if !ok {
			return false
		}
		hp, ok := snapshotHP(snap, aceID)
		return ok && hp == 0
	})

	sendMsg(t, gunner, &protocol.Fire{Projectile: &protocol.Projectile{
		ID: "round-1", Pos: pos, Vel: protocol.Vec3{}, TTL: 2,
	}})

	hit := readType(t, ace, protocol.MsgHit).(*protocol.Hit)
	if hit.ID != aceID {
		t.Errorf("hit on %q, want %q", hit.ID, aceID)
	}
	snap := readType(t, ace, protocol.MsgSnapshot).(*protocol.Snapshot)
	if hp, _ := snapshotHP(snap, aceID); hp != 0 {
		t.Errorf("health went to %v, want 0", hp)
	}
	for _, p := range snap.Projectiles {
		if p.ID == "round-1" {
			t.Error("spent projectile still in snapshot")
		}
	}

	s, _ := ts.world.Session(aceID)
	if s.Username != "Ace" || s.Aircraft != "raptor" || s.Pose.Health != 0 {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestRoomMatchFlow(t *testing.T) {
	ts := startTestServer(t, RouteConfig{}, 0)
	a := dialWS(t, ts.wsURL)
	idA := hello(t, a)
	b := dialWS(t, ts.wsURL)
	idB := hello(t, b)

	sendMsg(t, a, &protocol.CreateRoom{Name: "duel"})
	room := readType(t, a, protocol.MsgRoomCreated).(*protocol.RoomCreated).Room

	sendMsg(t, b, &protocol.JoinRoom{ID: room.ID})
	readType(t, b, protocol.MsgJoined)

	yes := true
	sendMsg(t, a, &protocol.SetReady{Ready: &yes})
	readUntil(t, b, "ready from a", func(m protocol.Message) bool {
		r, ok := m.(*protocol.Ready)
		return ok && r.PlayerID == idA && r.Ready
	})
	sendMsg(t, b, &protocol.SetReady{Ready: &yes})
	readUntil(t, a, "ready from b", func(m protocol.Message) bool {
		r, ok := m.(*protocol.Ready)
		return ok && r.PlayerID == idB
	})

	sendMsg(t, a, &protocol.StartMatch{})
	start := readType(t, b, protocol.MsgMatchStart).(*protocol.MatchStart)
	if start.RoomID != room.ID || start.StartTime == 0 {
		t.Errorf("unexpected matchStart %+v", start)
	}

	sendMsg(t, b, &protocol.LeaveRoom{})
	end := readType(t, a, protocol.MsgMatchEnd).(*protocol.MatchEnd)
	if end.Reason != "player-left" {
		t.Errorf("unexpected matchEnd %+v", end)
	}
}
