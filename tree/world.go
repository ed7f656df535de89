// SPDX-License-Identifier: GPL-2.0-or-later

package tree

import (
	"github.com/chewxy/math32"

	"gobsp/geom"
	"gobsp/math/vec"
)

// pointEqualEpsilon is the welding distance for the output vertex table.
const pointEqualEpsilon = 0.001

// World holds the shared tables the tree refers into: the plane table,
// the deduplicated output vertexes, the original brushes with their sides
// and the entities. The vertex table is append only.
type World struct {
	Planes   geom.Planes
	Vertexes []vec.Vec3
	Brushes  []*Brush
	Entities []*Entity
	NumAreas int32

	hashVerts map[[3]int32][]uint32
}

type hashVec = [3]int32

func hashVecFor(p vec.Vec3) hashVec {
	return hashVec{
		int32(math32.Floor(p.X)),
		int32(math32.Floor(p.Y)),
		int32(math32.Floor(p.Z)),
	}
}

// FindOrAddVertex welds p onto an existing table entry within
// pointEqualEpsilon or appends it.
func (w *World) FindOrAddVertex(p vec.Vec3) uint32 {
	if w.hashVerts == nil {
		w.hashVerts = make(map[hashVec][]uint32)
	}
	h := hashVecFor(p)
	for _, num := range w.hashVerts[h] {
		if vec.EpsilonEqual(w.Vertexes[num], p, pointEqualEpsilon) {
			return num
		}
	}

	num := uint32(len(w.Vertexes))
	w.Vertexes = append(w.Vertexes, p)
	// register the vertex in the neighborhood of its cell so a lookup
	// of a nearby point in an adjacent cell still finds it
	for x := int32(-1); x <= 1; x++ {
		for y := int32(-1); y <= 1; y++ {
			for z := int32(-1); z <= 1; z++ {
				n := hashVec{h[0] + x, h[1] + y, h[2] + z}
				w.hashVerts[n] = append(w.hashVerts[n], num)
			}
		}
	}
	return num
}

// AddEntity appends e and returns its index.
func (w *World) AddEntity(e *Entity) int32 {
	w.Entities = append(w.Entities, e)
	return int32(len(w.Entities) - 1)
}

// AddBrush appends b and returns its index.
func (w *World) AddBrush(b *Brush) int32 {
	w.Brushes = append(w.Brushes, b)
	return int32(len(w.Brushes) - 1)
}
