package main

import (
	"github.com/rs/zerolog/log"

	"flightsim-server/protocol"
)

// frames is one snapshot encoded for both kinds of receiver. The binary form
// is produced only when some receiver asks for it.
type frames struct {
	snap *protocol.Snapshot
	text []byte
	bin  []byte
}

func (f *frames) send(out Sender) {
	if out.Binary() {
		if f.bin == nil {
			b, err := protocol.EncodeBinary(f.snap)
			if err != nil {
				log.Error().Err(err).Msg("encode binary snapshot")
				return
			}
			f.bin = b
		}
		out.SendBinary(f.bin)
		return
	}
	if f.text == nil {
		b, err := protocol.Encode(f.snap)
		if err != nil {
			log.Error().Err(err).Msg("encode snapshot")
			return
		}
		f.text = b
	}
	out.SendRaw(f.text)
}

// buildSnapshots groups sessions and projectiles by scope. Every scope with at
// least one session gets a snapshot of its own members and projectiles.
func buildSnapshots(sessions []*Session, projectiles []*Projectile, scopeOf func(*Session) string) map[string]*protocol.Snapshot {
	snaps := make(map[string]*protocol.Snapshot)
	for _, s := range sessions {
		scope := scopeOf(s)
		snap, ok := snaps[scope]
		if !ok {
			snap = &protocol.Snapshot{
				Players:     []protocol.PlayerSnapshot{},
				Projectiles: []protocol.ProjectileSnapshot{},
			}
			snaps[scope] = snap
		}
		snap.Players = append(snap.Players, s.snapshot())
	}
	for _, p := range projectiles {
		if snap, ok := snaps[p.Scope]; ok {
			snap.Projectiles = append(snap.Projectiles, p.snapshot())
		}
	}
	return snaps
}
