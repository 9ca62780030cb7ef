// Package interp smooths remote entities between network snapshots.
//
// Each entity keeps a target pose, replaced verbatim whenever a snapshot
// arrives, and a current pose that moves a fixed fraction of the way toward
// the target on every rendered frame. It does not extrapolate.
package interp

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultBlend is the fraction of the remaining distance covered per frame.
const DefaultBlend = 0.1

// Pose is a rendered position and orientation.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

type entity struct {
	current Pose
	target  Pose
}

// Interpolator tracks every remote entity seen in the latest snapshot. It is
// not safe for concurrent use.
type Interpolator struct {
	Blend float64

	local    string
	entities map[string]*entity
}

// New returns an interpolator that ignores the entity with id local.
func New(local string) *Interpolator {
	return &Interpolator{
		Blend:    DefaultBlend,
		local:    local,
		entities: make(map[string]*entity),
	}
}

// SetLocal changes the id that is skipped, such as after the server assigns
// one.
func (in *Interpolator) SetLocal(id string) {
	in.local = id
	delete(in.entities, id)
}

// Update replaces every target with the poses in snapshot. A new entity
// starts at its target; entities absent from snapshot are dropped.
func (in *Interpolator) Update(snapshot map[string]Pose) {
	for id := range in.entities {
		if _, ok := snapshot[id]; !ok {
			delete(in.entities, id)
		}
	}
	for id, p := range snapshot {
		if id == in.local {
			continue
		}
		p.Orientation = unit(p.Orientation)
		if e, ok := in.entities[id]; ok {
			e.target = p
			continue
		}
		in.entities[id] = &entity{current: p, target: p}
	}
}

// Frame blends every current pose toward its target once.
func (in *Interpolator) Frame() {
	t := in.Blend
	for _, e := range in.entities {
		e.current.Position = lerp(e.current.Position, e.target.Position, t)
		e.current.Orientation = slerp(e.current.Orientation, e.target.Orientation, t)
	}
}

// Pose returns the current rendered pose of id.
func (in *Interpolator) Pose(id string) (Pose, bool) {
	e, ok := in.entities[id]
	if !ok {
		return Pose{}, false
	}
	return e.current, true
}

// Target returns the most recent snapshot pose of id.
func (in *Interpolator) Target(id string) (Pose, bool) {
	e, ok := in.entities[id]
	if !ok {
		return Pose{}, false
	}
	return e.target, true
}

// IDs returns the tracked entity ids in sorted order.
func (in *Interpolator) IDs() []string {
	ids := make([]string, 0, len(in.entities))
	for id := range in.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// slerp takes the short way round.
func slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

func unit(q mgl64.Quat) mgl64.Quat {
	if q.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
