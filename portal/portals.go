// SPDX-License-Identifier: GPL-2.0-or-later

// Package portal derives the portal graph of a BSP tree and floods it
// into visibility areas.
package portal

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"gobsp/conlog"
	"gobsp/cvars"
	"gobsp/geom"
	"gobsp/tree"
	"gobsp/winding"
)

const (
	baseWindingEpsilon  = 0.001
	splitWindingEpsilon = 0.001
	// portals are clipped against each other with a loose tolerance
	portalClipEpsilon = 0.1
	// windings below this edge length are slivers and get rejected
	tinySize = 0.2
)

// Stats counts the recoverable defects seen while portalizing.
type Stats struct {
	TinyPortals     int
	ZeroVolumeNodes int
	UnboundedNodes  int
}

// MakeTreePortals builds the portal graph for the whole tree: six portals
// sealing the padded world against the outside leaf, then one portal per
// node plane, pushed down and split until only leaves border portals.
func MakeTreePortals(t *tree.Tree) (*Stats, error) {
	conlog.Progress("MakeTreePortals")

	if err := FreeTreePortals(t, t.Head); err != nil {
		return nil, err
	}
	if err := AssertNoPortals(t, t.Head); err != nil {
		return nil, err
	}

	stats := &Stats{}
	if err := makeHeadnodePortals(t); err != nil {
		return nil, err
	}
	if err := makeTreePortals(t, t.Head, stats); err != nil {
		return nil, err
	}
	if stats.TinyPortals > 0 {
		conlog.Statf("%5d tiny portals\n", stats.TinyPortals)
	}
	return stats, nil
}

// makeHeadnodePortals sets up the six portals between the tree root and
// the synthetic outside leaf.
func makeHeadnodePortals(t *tree.Tree) error {
	// pad with some space so there will never be null volume leafs
	bounds := t.Bounds.Grow(cvars.SideSpace.Value())

	var portals [6]int32
	var bplanes [6]geom.Plane

	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			n := j*3 + i

			var pl geom.Plane
			if j != 0 {
				pl.Normal.SetIdx(i, -1)
				pl.Dist = -bounds.Maxs.Idx(i)
			} else {
				pl.Normal.SetIdx(i, 1)
				pl.Dist = bounds.Mins.Idx(i)
			}
			bplanes[n] = pl
			planeNum := t.World.Planes.FindOrAdd(pl)

			pi := t.NewPortal()
			portals[n] = pi
			p := t.Portal(pi)
			p.PlaneNum = int32(planeNum)
			p.W = winding.BaseForPlane(pl, cvars.WorldExtent.Value())

			// the tree is on the front side of all six planes
			if err := t.AddPortalToNodes(pi, t.Head, t.Outside); err != nil {
				return err
			}
		}
	}

	// clip the base windings against each other
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if j == i {
				continue
			}
			p := t.Portal(portals[i])
			p.W, _ = p.W.Clip(bplanes[j], cvars.Epsilon.Value(), true)
		}
	}
	return nil
}

// baseWindingForNode returns the full plane winding of the node, clipped
// by every ancestor plane, keeping the half the node lives in.
func baseWindingForNode(t *tree.Tree, ni int32) winding.Winding {
	node := t.Node(ni)
	w := winding.BaseForPlane(t.World.Planes.Get(int(node.PlaneNum)), cvars.WorldExtent.Value())

	for np := node.Parent; np != tree.Nil && w != nil; {
		parent := t.Node(np)
		plane := t.World.Planes.Get(int(parent.PlaneNum))

		front, back := w.Clip(plane, baseWindingEpsilon, false)
		if parent.Children[0] == ni {
			w = front
		} else {
			w = back
		}

		ni = np
		np = parent.Parent
	}
	return w
}

// makeNodePortal creates the portal separating the node's two children:
// the node plane winding cut down by the ancestors and by every portal
// already bordering the node.
func makeNodePortal(t *tree.Tree, ni int32, stats *Stats) error {
	w := baseWindingForNode(t, ni)

	side := 0
	for pi := t.Node(ni).Portals; pi != tree.Nil && w != nil; pi = t.Portal(pi).Next[side] {
		p := t.Portal(pi)
		var plane geom.Plane
		switch ni {
		case p.Nodes[0]:
			side = 0
			plane = t.World.Planes.Get(int(p.PlaneNum))
		case p.Nodes[1]:
			side = 1
			plane = t.World.Planes.Get(int(p.PlaneNum)).Inverse()
		default:
			return errors.Errorf("makeNodePortal: mislinked portal %d on node %d", pi, ni)
		}

		w, _ = w.Clip(plane, portalClipEpsilon, false)
	}

	if w == nil {
		return nil
	}
	if w.IsTiny(tinySize) {
		stats.TinyPortals++
		return nil
	}

	node := t.Node(ni)
	pi := t.NewPortal()
	p := t.Portal(pi)
	p.PlaneNum = node.PlaneNum
	p.OnNode = ni
	p.W = w
	return t.AddPortalToNodes(pi, node.Children[0], node.Children[1])
}

// splitNodePortals distributes the portals bordering the node onto its
// children, cutting each portal winding by the node plane.
func splitNodePortals(t *tree.Tree, ni int32, stats *Stats) error {
	node := t.Node(ni)
	plane := t.World.Planes.Get(int(node.PlaneNum))
	f, b := node.Children[0], node.Children[1]

	next := tree.Nil
	for pi := node.Portals; pi != tree.Nil; pi = next {
		p := t.Portal(pi)
		var side int
		switch ni {
		case p.Nodes[0]:
			side = 0
		case p.Nodes[1]:
			side = 1
		default:
			return errors.Errorf("splitNodePortals: mislinked portal %d on node %d", pi, ni)
		}
		next = p.Next[side]
		otherNode := p.Nodes[1-side]

		if err := t.RemovePortalFromNode(pi, p.Nodes[0]); err != nil {
			return err
		}
		if err := t.RemovePortalFromNode(pi, p.Nodes[1]); err != nil {
			return err
		}

		// cut the portal into two portals, one on each side of the
		// node plane
		frontW, backW := p.W.Clip(plane, splitWindingEpsilon, true)
		if frontW != nil && frontW.IsTiny(tinySize) {
			frontW = nil
			stats.TinyPortals++
		}
		if backW != nil && backW.IsTiny(tinySize) {
			backW = nil
			stats.TinyPortals++
		}

		if frontW == nil && backW == nil {
			// tiny windings on both sides
			t.FreePortal(pi)
			continue
		}

		if frontW == nil {
			p.W = backW
			var err error
			if side == 0 {
				err = t.AddPortalToNodes(pi, b, otherNode)
			} else {
				err = t.AddPortalToNodes(pi, otherNode, b)
			}
			if err != nil {
				return err
			}
			continue
		}
		if backW == nil {
			p.W = frontW
			var err error
			if side == 0 {
				err = t.AddPortalToNodes(pi, f, otherNode)
			} else {
				err = t.AddPortalToNodes(pi, otherNode, f)
			}
			if err != nil {
				return err
			}
			continue
		}

		// the winding is split in two; the new back half keeps the
		// original external node
		qi := t.NewPortal()
		p = t.Portal(pi) // the arena may have grown
		q := t.Portal(qi)
		q.PlaneNum = p.PlaneNum
		q.OnNode = p.OnNode
		q.SideFound = p.SideFound
		q.Side = p.Side
		q.W = backW
		p.W = frontW

		var err error
		if side == 0 {
			err = t.AddPortalToNodes(pi, f, otherNode)
			if err == nil {
				err = t.AddPortalToNodes(qi, b, otherNode)
			}
		} else {
			err = t.AddPortalToNodes(pi, otherNode, f)
			if err == nil {
				err = t.AddPortalToNodes(qi, otherNode, b)
			}
		}
		if err != nil {
			return err
		}
	}

	node.Portals = tree.Nil
	return nil
}

// calcNodeBounds rebuilds the node bounds from its portal windings.
func calcNodeBounds(t *tree.Tree, ni int32) {
	node := t.Node(ni)
	node.Bounds = geom.EmptyBounds()

	for pi := node.Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		s := 0
		if p.Nodes[1] == ni {
			s = 1
		}
		for _, pt := range p.W {
			node.Bounds.AddPoint(pt)
		}
		pi = p.Next[s]
	}
}

func makeTreePortals(t *tree.Tree, ni int32, stats *Stats) error {
	calcNodeBounds(t, ni)
	node := t.Node(ni)

	if node.Bounds.Mins.X >= node.Bounds.Maxs.X {
		conlog.Warnf("node without a volume\n")
		stats.ZeroVolumeNodes++
		if node.Parent != tree.Nil {
			// clamp to a point inside the parent volume
			pb := t.Node(node.Parent).Bounds
			node.Bounds = geom.Bounds{Mins: pb.Mins, Maxs: pb.Mins}
		}
	}

	for i := 0; i < 3; i++ {
		if math32.Abs(node.Bounds.Mins.Idx(i)) > cvars.WorldExtent.Value() {
			conlog.Warnf("node with unbounded volume\n")
			stats.UnboundedNodes++
			break
		}
	}
	if node.IsLeaf() {
		return nil
	}

	if err := makeNodePortal(t, ni, stats); err != nil {
		return err
	}
	if err := splitNodePortals(t, ni, stats); err != nil {
		return err
	}

	if err := makeTreePortals(t, t.Node(ni).Children[0], stats); err != nil {
		return err
	}
	return makeTreePortals(t, t.Node(ni).Children[1], stats)
}

// FreeTreePortals removes and recycles every portal below (and on) node ni.
func FreeTreePortals(t *tree.Tree, ni int32) error {
	if ni == tree.Nil {
		return nil
	}
	node := t.Node(ni)
	if !node.IsLeaf() {
		if err := FreeTreePortals(t, node.Children[0]); err != nil {
			return err
		}
		if err := FreeTreePortals(t, node.Children[1]); err != nil {
			return err
		}
	}

	for pi := node.Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		next := p.Next[0]
		if p.Nodes[1] == ni {
			next = p.Next[1]
		}
		if err := t.RemovePortalFromNode(pi, p.Nodes[0]); err != nil {
			return err
		}
		if err := t.RemovePortalFromNode(pi, p.Nodes[1]); err != nil {
			return err
		}
		t.FreePortal(pi)
		pi = next
	}
	node.Portals = tree.Nil
	return nil
}

// AssertNoPortals errors out if any node still borders a portal.
func AssertNoPortals(t *tree.Tree, ni int32) error {
	node := t.Node(ni)
	if node.Portals != tree.Nil {
		return errors.Errorf("node %d still has portals", ni)
	}
	if !node.IsLeaf() {
		if err := AssertNoPortals(t, node.Children[0]); err != nil {
			return err
		}
		return AssertNoPortals(t, node.Children[1])
	}
	return nil
}
