package main

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

type cellKey [3]int64

// SpatialGrid is a hashed 3D grid for broad-phase hit queries. Cells are at
// least as large as the query radius, so every point within radius of a
// query lies in the 3x3x3 block around it.
type SpatialGrid struct {
	size  float64
	cells map[cellKey][]int
}

// NewSpatialGrid returns an empty grid for queries up to radius.
func NewSpatialGrid(radius float64) *SpatialGrid {
	return &SpatialGrid{
		size:  math.Max(radius, 1),
		cells: make(map[cellKey][]int),
	}
}

func (g *SpatialGrid) key(p mgl64.Vec3) cellKey {
	return cellKey{
		int64(math.Floor(p[0] / g.size)),
		int64(math.Floor(p[1] / g.size)),
		int64(math.Floor(p[2] / g.size)),
	}
}

// Clear empties every cell. Cells filled since the previous Clear keep their
// capacity; cells that stayed empty are dropped.
func (g *SpatialGrid) Clear() {
	for k, v := range g.cells {
		if len(v) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = v[:0]
	}
}

// Insert adds index idx at p.
func (g *SpatialGrid) Insert(p mgl64.Vec3, idx int) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], idx)
}

// QueryBuf appends the indices stored near p to buf in ascending order and
// returns the extended slice.
func (g *SpatialGrid) QueryBuf(p mgl64.Vec3, buf []int) []int {
	start := len(buf)
	k := g.key(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				buf = append(buf, g.cells[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}]...)
			}
		}
	}
	sort.Ints(buf[start:])
	return buf
}
