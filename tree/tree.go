// SPDX-License-Identifier: GPL-2.0-or-later

package tree

import (
	"github.com/pkg/errors"

	"gobsp/geom"
	"gobsp/winding"
)

const (
	// Nil is the sentinel for node and portal indices.
	Nil int32 = -1
	// PlanenumLeaf marks a node as a leaf.
	PlanenumLeaf int32 = -1
)

// Node is one element of the tree arena. Internal nodes carry a splitting
// plane and two children, leaves carry contents, an area id and the
// original brush references. Both kinds thread a list of bounding portals
// through Portals/Portal.Next.
type Node struct {
	PlaneNum int32
	Children [2]int32
	Parent   int32
	Contents Contents
	Area     int32
	Bounds   geom.Bounds
	Portals  int32
	// set on the ancestor node of a detail subtree
	DetailSeparator bool
	Brushes         []int32
	Faces           []*Face
}

func (n *Node) IsLeaf() bool {
	return n.PlaneNum == PlanenumLeaf
}

// Portal is the convex polygon between the two nodes in Nodes. It is
// threaded into both nodes' portal lists; Next[i] continues the list of
// Nodes[i].
type Portal struct {
	PlaneNum int32
	// the node whose split created this portal, Nil for the portals
	// bounding the whole tree
	OnNode    int32
	Nodes     [2]int32
	Next      [2]int32
	W         winding.Winding
	SideFound bool
	Side      *Side
}

// Tree owns the node and portal arenas. Records are addressed by index;
// freed portal slots are recycled through a free list.
type Tree struct {
	World   *World
	Nodes   []Node
	Head    int32
	Outside int32
	Bounds  geom.Bounds

	portals     []Portal
	freePortals []int32
}

// New returns a tree holding only the synthetic outside leaf.
func New(w *World) *Tree {
	t := &Tree{
		World: w,
		Head:  Nil,
	}
	t.Outside = t.AddLeaf(ContentsSolid)
	return t
}

// AddLeaf appends a leaf node and returns its index.
func (t *Tree) AddLeaf(contents Contents) int32 {
	i := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{
		PlaneNum: PlanenumLeaf,
		Children: [2]int32{Nil, Nil},
		Parent:   Nil,
		Contents: contents,
		Portals:  Nil,
	})
	return i
}

// AddNode appends an internal node splitting on planeNum, linking the
// already present children to it.
func (t *Tree) AddNode(planeNum, front, back int32) int32 {
	i := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{
		PlaneNum: planeNum,
		Children: [2]int32{front, back},
		Parent:   Nil,
		Portals:  Nil,
	})
	t.Nodes[front].Parent = i
	t.Nodes[back].Parent = i
	return i
}

func (t *Tree) Node(i int32) *Node {
	return &t.Nodes[i]
}

func (t *Tree) Portal(i int32) *Portal {
	return &t.portals[i]
}

// NewPortal allocates a portal slot with both node links empty.
func (t *Tree) NewPortal() int32 {
	if n := len(t.freePortals); n > 0 {
		i := t.freePortals[n-1]
		t.freePortals = t.freePortals[:n-1]
		t.portals[i] = Portal{
			OnNode: Nil,
			Nodes:  [2]int32{Nil, Nil},
			Next:   [2]int32{Nil, Nil},
			Side:   nil,
		}
		return i
	}
	i := int32(len(t.portals))
	t.portals = append(t.portals, Portal{
		OnNode: Nil,
		Nodes:  [2]int32{Nil, Nil},
		Next:   [2]int32{Nil, Nil},
	})
	return i
}

// FreePortal returns the slot to the free list. The portal must already
// be unlinked from both nodes.
func (t *Tree) FreePortal(i int32) {
	t.portals[i].W = nil
	t.portals[i].Nodes = [2]int32{Nil, Nil}
	t.freePortals = append(t.freePortals, i)
}

// AddPortalToNodes links portal pi between front and back, making it the
// head of both portal lists.
func (t *Tree) AddPortalToNodes(pi, front, back int32) error {
	p := &t.portals[pi]
	if p.Nodes[0] != Nil || p.Nodes[1] != Nil {
		return errors.Errorf("portal %d already included", pi)
	}

	p.Nodes[0] = front
	p.Next[0] = t.Nodes[front].Portals
	t.Nodes[front].Portals = pi

	p.Nodes[1] = back
	p.Next[1] = t.Nodes[back].Portals
	t.Nodes[back].Portals = pi
	return nil
}

// RemovePortalFromNode unthreads portal pi from node ni's list and clears
// the matching Nodes slot. A portal that is not actually linked where
// expected is a structural defect and yields an error.
func (t *Tree) RemovePortalFromNode(pi, ni int32) error {
	pp := &t.Nodes[ni].Portals
	for {
		ti := *pp
		if ti == Nil {
			return errors.Errorf("portal %d not in leaf %d", pi, ni)
		}
		if ti == pi {
			break
		}
		tp := &t.portals[ti]
		switch ni {
		case tp.Nodes[0]:
			pp = &tp.Next[0]
		case tp.Nodes[1]:
			pp = &tp.Next[1]
		default:
			return errors.Errorf("portal %d not bounding leaf %d", ti, ni)
		}
	}

	p := &t.portals[pi]
	switch ni {
	case p.Nodes[0]:
		*pp = p.Next[0]
		p.Nodes[0] = Nil
	case p.Nodes[1]:
		*pp = p.Next[1]
		p.Nodes[1] = Nil
	default:
		return errors.Errorf("portal %d not linked to leaf %d", pi, ni)
	}
	return nil
}

// NumPortals counts the live portal slots.
func (t *Tree) NumPortals() int {
	n := 0
	for i := range t.portals {
		if t.portals[i].Nodes[0] != Nil || t.portals[i].Nodes[1] != Nil {
			n++
		}
	}
	return n
}
