// SPDX-License-Identifier: GPL-2.0-or-later

package portal

import (
	"github.com/pkg/errors"

	"gobsp/conlog"
	"gobsp/cvars"
	"gobsp/tree"
)

// ClusterContents ORs the leaf contents of a detail subtree together,
// giving the node its effective classification for traversal decisions.
func ClusterContents(t *tree.Tree, ni int32) tree.Contents {
	node := t.Node(ni)
	if node.IsLeaf() {
		return node.Contents
	}
	return ClusterContents(t, node.Children[0]) | ClusterContents(t, node.Children[1])
}

// VisFlood reports whether the visibility calculation may see through the
// portal. The nodes on either side may be clusters, so contents are ORed.
func VisFlood(t *tree.Tree, pi int32) bool {
	p := t.Portal(pi)
	if p.OnNode == tree.Nil {
		return false // to the global outside leaf
	}

	c := ClusterContents(t, p.Nodes[0]) | ClusterContents(t, p.Nodes[1])

	if c&tree.ContentsVisBlocker != 0 {
		return false
	}
	if c&(tree.ContentsSolid|tree.ContentsLava|tree.ContentsSlime) != 0 {
		return false
	}
	if c&tree.ContentsWater != 0 && !cvars.TransWater.Bool() {
		return false
	}
	if c&tree.ContentsSky != 0 && !cvars.TransSky.Bool() {
		return false
	}
	return true
}

// EntityFlood reports whether an entity could move through the portal.
// Both sides must be leaves; solid on either side blocks.
func EntityFlood(t *tree.Tree, pi int32) (bool, error) {
	p := t.Portal(pi)
	if !t.Node(p.Nodes[0]).IsLeaf() || !t.Node(p.Nodes[1]).IsLeaf() {
		return false, errors.Errorf("EntityFlood: portal %d not between leafs", pi)
	}

	if t.Node(p.Nodes[0]).Contents.IsSolid() || t.Node(p.Nodes[1]).Contents.IsSolid() {
		return false, nil
	}
	return true, nil
}

// FloodAreas groups the reachable leaves into areas bounded by area
// portals and assigns the bridged areas to the area portal entities.
func FloodAreas(t *tree.Tree) error {
	conlog.Progress("FloodAreas")
	if err := findAreas(t); err != nil {
		return err
	}
	setAreaPortalAreas(t, t.Head)
	conlog.Statf("%5d areas\n", t.World.NumAreas)
	return nil
}

// findClusters collects the flood starting candidates: leaves, or whole
// detail subtrees behind their separator node.
func findClusters(t *tree.Tree, ni int32, out []int32) []int32 {
	node := t.Node(ni)
	if node.IsLeaf() || node.DetailSeparator {
		return append(out, ni)
	}
	out = findClusters(t, node.Children[0], out)
	return findClusters(t, node.Children[1], out)
}

func findAreas(t *tree.Tree) error {
	for _, ci := range findClusters(t, t.Head, nil) {
		node := t.Node(ci)
		if node.Area != 0 {
			continue
		}
		contents := ClusterContents(t, ci)
		if contents&tree.ContentsAreaPortal != 0 {
			// area portals are only flooded into, never out of
			continue
		}
		if contents.IsSolid() {
			continue
		}

		t.World.NumAreas++
		if err := floodAreas(t, ci); err != nil {
			return err
		}
	}
	return nil
}

// applyArea propagates the current area to all descendants of a cluster.
func applyArea(t *tree.Tree, ni int32) {
	node := t.Node(ni)
	node.Area = t.World.NumAreas
	if !node.IsLeaf() {
		applyArea(t, node.Children[0])
		applyArea(t, node.Children[1])
	}
}

// areaPortalEntityForLeaf finds the area portal entity owning the leaf
// through the original brush references.
func areaPortalEntityForLeaf(t *tree.Tree, ni int32) *tree.Entity {
	node := t.Node(ni)
	if !node.IsLeaf() {
		if e := areaPortalEntityForLeaf(t, node.Children[0]); e != nil {
			return e
		}
		return areaPortalEntityForLeaf(t, node.Children[1])
	}

	for _, bi := range node.Brushes {
		b := t.World.Brushes[bi]
		if b.AreaPortal != tree.Nil {
			return t.World.Entities[b.AreaPortal]
		}
	}
	return nil
}

func floodAreas(t *tree.Tree, ni int32) error {
	node := t.Node(ni)

	if (node.IsLeaf() || node.DetailSeparator) &&
		ClusterContents(t, ni)&tree.ContentsAreaPortal != 0 {
		e := areaPortalEntityForLeaf(t, ni)
		if e == nil {
			conlog.Warnf("areaportal contents in node, but no entity found %v -> %v\n",
				node.Bounds.Mins, node.Bounds.Maxs)
			return nil
		}

		// if the current area has already touched this portal we
		// are done
		cur := t.World.NumAreas
		if e.PortalAreas[0] == cur || e.PortalAreas[1] == cur {
			return nil
		}

		// note the current area as bounding the portal
		if e.PortalAreas[1] != 0 {
			conlog.Warnf("areaportal entity %d touches > 2 areas\n  Entity Bounds: %v -> %v\n",
				e.AreaPortalNum, e.Bounds.Mins, e.Bounds.Maxs)
			return nil
		}
		if e.PortalAreas[0] != 0 {
			e.PortalAreas[1] = cur
		} else {
			e.PortalAreas[0] = cur
		}
		return nil
	}

	if node.Area != 0 {
		return nil // already got it
	}
	node.Area = t.World.NumAreas
	if !node.IsLeaf() {
		applyArea(t, ni)
	}

	s := 0
	for pi := node.Portals; pi != tree.Nil; pi = t.Portal(pi).Next[s] {
		p := t.Portal(pi)
		s = 0
		if p.Nodes[1] == ni {
			s = 1
		}

		ok, err := EntityFlood(t, pi)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := floodAreas(t, p.Nodes[1-s]); err != nil {
			return err
		}
	}
	return nil
}

// setAreaPortalAreas back propagates a recorded area onto the area portal
// leaves themselves.
func setAreaPortalAreas(t *tree.Tree, ni int32) {
	node := t.Node(ni)
	if !node.IsLeaf() {
		setAreaPortalAreas(t, node.Children[0])
		setAreaPortalAreas(t, node.Children[1])
		return
	}

	if node.Contents&tree.ContentsAreaPortal == 0 {
		return
	}
	if node.Area != 0 {
		return // already set
	}

	e := areaPortalEntityForLeaf(t, ni)
	if e == nil {
		conlog.Warnf("areaportal missing for node: %v -> %v\n",
			node.Bounds.Mins, node.Bounds.Maxs)
		return
	}

	node.Area = e.PortalAreas[0]
	if e.PortalAreas[1] == 0 {
		conlog.Warnf("areaportal entity %d doesn't touch two areas\n  Entity Bounds: %v -> %v\n",
			e.AreaPortalNum, e.Bounds.Mins, e.Bounds.Maxs)
	}
}

// Area describes one emitted visibility area as a range into the emitted
// area portal table.
type Area struct {
	FirstAreaPortal int32
	NumAreaPortals  int32
}

// AreaPortal is one emitted area portal record: the entity's portal
// number and the area on the far side.
type AreaPortal struct {
	PortalNum int32
	OtherArea int32
}

// EmitAreaPortals builds the per area list of deduplicated area portal
// records. Index 0 of both tables is a reserved empty record.
func EmitAreaPortals(w *tree.World) ([]Area, []AreaPortal) {
	conlog.Progress("EmitAreaPortals")

	areas := []Area{{}}
	aps := []AreaPortal{{}}

	for i := int32(1); i <= w.NumAreas; i++ {
		area := Area{FirstAreaPortal: int32(len(aps))}

		for _, e := range w.Entities {
			if e.AreaPortalNum == 0 {
				continue
			}
			var dp AreaPortal
			switch i {
			case e.PortalAreas[0]:
				dp = AreaPortal{PortalNum: e.AreaPortalNum, OtherArea: e.PortalAreas[1]}
			case e.PortalAreas[1]:
				dp = AreaPortal{PortalNum: e.AreaPortalNum, OtherArea: e.PortalAreas[0]}
			default:
				continue
			}

			dup := false
			for _, x := range aps {
				if x == dp {
					dup = true
					break
				}
			}
			if !dup {
				aps = append(aps, dp)
			}
		}

		area.NumAreaPortals = int32(len(aps)) - area.FirstAreaPortal
		areas = append(areas, area)
	}

	conlog.Statf("%5d numareas\n", len(areas))
	conlog.Statf("%5d numareaportals\n", len(aps))
	return areas, aps
}
