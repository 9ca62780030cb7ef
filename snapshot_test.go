package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"flightsim-server/protocol"
)

func TestBuildSnapshotsGlobal(t *testing.T) {
	a := sessionAt("a", mgl64.Vec3{1, 2, 3})
	b := sessionAt("b", mgl64.Vec3{4, 5, 6})
	p := &Projectile{ID: "p", Pos: mgl64.Vec3{7, 8, 9}, TTL: 1}

	snaps := buildSnapshots([]*Session{a, b}, []*Projectile{p}, globalScope)
	if len(snaps) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(snaps))
	}
	snap := snaps[""]
	if len(snap.Players) != 2 || snap.Players[0].ID != "a" || snap.Players[1].State.Pos != (protocol.Vec3{4, 5, 6}) {
		t.Errorf("unexpected players %+v", snap.Players)
	}
	if len(snap.Projectiles) != 1 || snap.Projectiles[0].Pos != (protocol.Vec3{7, 8, 9}) {
		t.Errorf("unexpected projectiles %+v", snap.Projectiles)
	}
}

func TestBuildSnapshotsByRoom(t *testing.T) {
	a := sessionAt("a", mgl64.Vec3{})
	b := sessionAt("b", mgl64.Vec3{})
	rooms := map[string]string{"a": "R1"}
	scope := func(s *Session) string { return rooms[s.ID] }
	orphan := &Projectile{ID: "x", Scope: "GONE", TTL: 1}

	snaps := buildSnapshots([]*Session{a, b}, []*Projectile{orphan}, scope)
	if len(snaps) != 2 {
		t.Fatalf("expected two scopes, got %d", len(snaps))
	}
	if len(snaps["R1"].Players) != 1 || len(snaps[""].Players) != 1 {
		t.Errorf("each scope should hold its own member")
	}
	for scope, snap := range snaps {
		if len(snap.Projectiles) != 0 {
			t.Errorf("scope %q got a projectile from an empty scope", scope)
		}
	}
}

func TestFramesEncodeOnce(t *testing.T) {
	f := &frames{snap: &protocol.Snapshot{}}
	text1, text2 := &mockSender{}, &mockSender{}
	bin := &mockSender{binary: true}

	f.send(text1)
	f.send(text2)
	f.send(bin)

	if len(text1.text) != 1 || &text1.text[0][0] != &text2.text[0][0] {
		t.Error("text receivers should share one encoding")
	}
	if len(bin.bin) != 1 || len(bin.text) != 0 {
		t.Error("binary receiver should get only the binary frame")
	}
}
