// SPDX-License-Identifier: GPL-2.0-or-later

// Package process drives the geometry finishing pipeline: portalize the
// tree, flood visibility areas, pick visible sides, merge coplanar
// faces, weld vertices and resolve T-junctions.
package process

import (
	"github.com/google/uuid"

	"gobsp/conlog"
	"gobsp/merge"
	"gobsp/portal"
	"gobsp/tjunc"
	"gobsp/tree"
)

// Result carries the pipeline outputs ready for serialization.
type Result struct {
	RunID       uuid.UUID
	Areas       []portal.Area
	AreaPortals []portal.AreaPortal
	MergedFaces int
	PortalStats *portal.Stats
	TJuncStats  *tjunc.Stats
}

// EmitVertices welds every surviving face winding into the world vertex
// table and records the resulting ring on the face.
func EmitVertices(t *tree.Tree) {
	var walk func(ni int32)
	walk = func(ni int32) {
		node := t.Node(ni)
		if node.IsLeaf() {
			return
		}
		for _, f := range node.Faces {
			if f.Merged() || len(f.OriginalVertices) != 0 {
				continue
			}
			f.OriginalVertices = make([]uint32, len(f.W))
			for i, p := range f.W {
				f.OriginalVertices[i] = t.World.FindOrAddVertex(p)
			}
		}
		walk(node.Children[0])
		walk(node.Children[1])
	}
	walk(t.Head)
}

// Compile runs the finishing pipeline over a built tree. The tree's
// faces end up with fragment lists and the returned result holds the
// area tables.
func Compile(t *tree.Tree) (*Result, error) {
	r := &Result{RunID: uuid.New()}
	conlog.Printf("compile %s\n", r.RunID)

	var err error
	r.PortalStats, err = portal.MakeTreePortals(t)
	if err != nil {
		return nil, err
	}
	if err := portal.FloodAreas(t); err != nil {
		return nil, err
	}
	portal.MarkVisibleSides(t)

	r.MergedFaces = merge.MergeAll(t)

	EmitVertices(t)
	r.TJuncStats = tjunc.FixAll(t)

	r.Areas, r.AreaPortals = portal.EmitAreaPortals(t.World)

	return r, nil
}
