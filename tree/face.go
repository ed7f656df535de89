package tree

import (
	"gobsp/geom"
	"gobsp/winding"
)

// Side is one original brush side. The portal pass marks the sides that
// end up visible in the output.
type Side struct {
	PlaneNum int32
	TexInfo  int32
	Visible  bool
	Bevel    bool
}

// Brush is the original convex input volume a leaf derives from.
type Brush struct {
	Contents Contents
	Sides    []*Side
	// index into World.Entities if this brush belongs to an area
	// portal entity, Nil otherwise
	AreaPortal int32
}

// Entity carries the per-entity output state this pipeline produces, which
// for area portal entities is the pair of areas the portal bridges.
type Entity struct {
	AreaPortalNum int32
	PortalAreas   [2]int32
	Bounds        geom.Bounds
}

// Face is a planar output polygon. The merge pass coalesces faces in
// place through W; afterwards the vertex emitter fills OriginalVertices
// and the crack resolver replaces the polygon with Fragments.
type Face struct {
	PlaneNum  int32
	PlaneSide uint8
	TexInfo   int32
	Contents  Contents
	LMShift   uint8

	W winding.Winding
	// indices into World.Vertexes
	OriginalVertices []uint32
	// each fragment has at least 3 vertices
	Fragments [][]uint32
}

// Merged reports whether the face was merged away.
func (f *Face) Merged() bool {
	return len(f.W) == 0
}

// NewFaceFrom returns an empty face carrying over the attributes of f.
func NewFaceFrom(f *Face) *Face {
	return &Face{
		PlaneNum:  f.PlaneNum,
		PlaneSide: f.PlaneSide,
		TexInfo:   f.TexInfo,
		Contents:  f.Contents,
		LMShift:   f.LMShift,
	}
}
