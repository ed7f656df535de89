// SPDX-License-Identifier: GPL-2.0-or-later

package portal

import (
	"gobsp/conlog"
	"gobsp/math/vec"
	"gobsp/tree"
)

// findPortalSide picks the brush side to texture the portal with: the
// side of the strongest visible content change whose plane matches the
// portal plane, or failing that, the one facing it most directly. Brushes
// are scanned in reverse declaration order so later brushes win ties.
func findPortalSide(t *tree.Tree, p *tree.Portal) {
	visc := tree.VisibleContents(
		t.Node(p.Nodes[0]).Contents ^ t.Node(p.Nodes[1]).Contents)
	if visc == tree.ContentsEmpty {
		return
	}

	planeNum := t.Node(p.OnNode).PlaneNum &^ 1
	p1 := t.World.Planes.Get(int(t.Node(p.OnNode).PlaneNum))

	var bestSide *tree.Side
	var bestDot float32

	for j := 0; j < 2; j++ {
		node := t.Node(p.Nodes[j])
		for bi := len(node.Brushes) - 1; bi >= 0; bi-- {
			brush := t.World.Brushes[node.Brushes[bi]]
			if brush.Contents&visc == 0 {
				continue
			}
			for _, side := range brush.Sides {
				if side.Bevel {
					continue
				}
				if side.PlaneNum&^1 == planeNum {
					// exact match
					p.Side = side
					p.SideFound = true
					return
				}
				// see how close the match is
				p2 := t.World.Planes.Get(int(side.PlaneNum))
				dot := vec.Dot(p1.Normal, p2.Normal)
				if dot > bestDot {
					bestDot = dot
					bestSide = side
				}
			}
		}
	}

	if bestSide == nil {
		conlog.Warnf("side not found for portal\n")
	}
	p.SideFound = true
	p.Side = bestSide
}

func markVisibleSides(t *tree.Tree, ni int32) {
	node := t.Node(ni)
	if !node.IsLeaf() {
		markVisibleSides(t, node.Children[0])
		markVisibleSides(t, node.Children[1])
		return
	}

	// empty leafs are never boundary leafs
	if node.Contents.IsEmpty() {
		return
	}

	for pi := node.Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		s := 0
		if p.Nodes[1] == ni {
			s = 1
		}
		if p.OnNode != tree.Nil { // not on the edge of the world
			if !p.SideFound {
				findPortalSide(t, p)
			}
			if p.Side != nil {
				p.Side.Visible = true
			}
		}
		pi = p.Next[s]
	}
}

// MarkVisibleSides clears all visible flags and re-marks the brush sides
// used by portals with a visible content change.
func MarkVisibleSides(t *tree.Tree) {
	conlog.Progress("MarkVisibleSides")

	for _, b := range t.World.Brushes {
		for _, s := range b.Sides {
			s.Visible = false
		}
	}

	markVisibleSides(t, t.Head)
}
