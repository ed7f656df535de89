// SPDX-License-Identifier: GPL-2.0-or-later

package merge

import (
	"github.com/chewxy/math32"

	"gobsp/conlog"
	"gobsp/cvars"
	"gobsp/math/vec"
	"gobsp/tree"
	"gobsp/winding"
)

const (
	equalEpsilon      = 0.001
	continuousEpsilon = 0.001
)

// Surface groups the faces lying on one side of one plane. Merging only
// ever combines faces within a single surface.
type Surface struct {
	PlaneNum  int32
	PlaneSide uint8
	Faces     []*tree.Face
}

type surfaceKey struct {
	planeNum int32
	side     uint8
}

// groupNodeFaces collects a node's faces into per-plane-side surfaces,
// in first-seen order. A node carries at most a front and a back group,
// but split faces from deeper planes can add more.
func groupNodeFaces(node *tree.Node) []*Surface {
	var (
		order []surfaceKey
		byKey = make(map[surfaceKey]*Surface)
	)
	for _, f := range node.Faces {
		if f.Merged() {
			continue
		}
		k := surfaceKey{f.PlaneNum, f.PlaneSide}
		s, ok := byKey[k]
		if !ok {
			s = &Surface{PlaneNum: f.PlaneNum, PlaneSide: f.PlaneSide}
			byKey[k] = s
			order = append(order, k)
		}
		s.Faces = append(s.Faces, f)
	}

	surfs := make([]*Surface, len(order))
	for i, k := range order {
		surfs[i] = byKey[k]
	}
	return surfs
}

// TryMerge combines two faces that share a single reversed common edge,
// provided the joined polygon stays convex and the faces agree in side,
// texture, contents and lightmap shift. A collinear junction drops the
// shared vertex. Returns nil when the faces cannot be merged; the inputs
// are left untouched.
func TryMerge(w *tree.World, f1, f2 *tree.Face) *tree.Face {
	if len(f1.W) == 0 || len(f2.W) == 0 ||
		f1.PlaneSide != f2.PlaneSide ||
		f1.TexInfo != f2.TexInfo ||
		f1.Contents != f2.Contents ||
		f1.LMShift != f2.LMShift {
		return nil
	}

	n1, n2 := len(f1.W), len(f2.W)

	// find a common edge: f1's i -> i+1 against f2's j+1 -> j
	var p1, p2 vec.Vec3
	i, j := 0, 0
	found := false
outer:
	for i = 0; i < n1; i++ {
		p1 = f1.W[i]
		p2 = f1.W[(i+1)%n1]
		for j = 0; j < n2; j++ {
			p3 := f2.W[j]
			p4 := f2.W[(j+1)%n2]
			if math32.Abs(p1.X-p4.X) <= equalEpsilon &&
				math32.Abs(p1.Y-p4.Y) <= equalEpsilon &&
				math32.Abs(p1.Z-p4.Z) <= equalEpsilon &&
				math32.Abs(p2.X-p3.X) <= equalEpsilon &&
				math32.Abs(p2.Y-p3.Y) <= equalEpsilon &&
				math32.Abs(p2.Z-p3.Z) <= equalEpsilon {
				found = true
				break outer
			}
		}
	}
	if !found {
		return nil
	}

	planeNormal := w.Planes.Get(int(f1.PlaneNum)).Normal
	if f1.PlaneSide != 0 {
		planeNormal = vec.Neg(planeNormal)
	}

	// check the slopes of the connected edges. A reflex junction kills
	// the merge, a collinear one lets the shared point go.
	back := f1.W[(i+n1-1)%n1]
	delta := vec.Sub(p1, back)
	normal := vec.Cross(planeNormal, delta)
	normal = normal.Normalize()

	back = f2.W[(j+2)%n2]
	delta = vec.Sub(back, p1)
	dot := vec.Dot(delta, normal)
	if dot > continuousEpsilon {
		return nil // not convex
	}
	keep1 := dot < -continuousEpsilon

	back = f1.W[(i+2)%n1]
	delta = vec.Sub(back, p2)
	normal = vec.Cross(planeNormal, delta)
	normal = normal.Normalize()

	back = f2.W[(j+n2-1)%n2]
	delta = vec.Sub(back, p2)
	dot = vec.Dot(delta, normal)
	if dot > continuousEpsilon {
		return nil // not convex
	}
	keep2 := dot < -continuousEpsilon

	if m := cvars.MaxEdges.Int(); m > 0 && n1+n2 > m {
		conlog.Warnf("TryMerge: too many edges\n")
		return nil
	}

	newf := tree.NewFaceFrom(f1)
	nw := make(winding.Winding, 0, n1+n2-2)

	k := (i + 2) % n1
	if keep2 {
		k = (i + 1) % n1
	}
	for ; k != i; k = (k + 1) % n1 {
		nw = append(nw, f1.W[k])
	}

	l := (j + 2) % n2
	if keep1 {
		l = (j + 1) % n2
	}
	for ; l != j; l = (l + 1) % n2 {
		nw = append(nw, f2.W[l])
	}
	newf.W = nw

	return newf
}

// mergeFaceToList folds the face into the list, restarting the scan after
// every successful merge. Faces merged away keep their slot with a nil
// winding so the caller's iteration stays valid.
func mergeFaceToList(w *tree.World, face *tree.Face, list []*tree.Face) []*tree.Face {
	for i := 0; i < len(list); {
		f := list[i]
		if f.Merged() {
			i++
			continue
		}
		newf := TryMerge(w, face, f)
		if newf == nil {
			i++
			continue
		}
		f.W = nil // merged out
		face = newf
		i = 0
	}
	return append(list, face)
}

// dropMergeScraps removes the merged-out husks from the list.
func dropMergeScraps(list []*tree.Face) []*tree.Face {
	kept := list[:0]
	for _, f := range list {
		if !f.Merged() {
			kept = append(kept, f)
		}
	}
	return kept
}

// MergePlaneFaces merges the surface's face list to a fixpoint.
func MergePlaneFaces(w *tree.World, s *Surface) {
	var merged []*tree.Face
	for _, f := range s.Faces {
		merged = mergeFaceToList(w, f, merged)
	}
	s.Faces = dropMergeScraps(merged)
}

// MergeNodeFaces merges the faces of a single node and writes the
// survivors back. Returns the surviving face count.
func MergeNodeFaces(w *tree.World, node *tree.Node) int {
	surfs := groupNodeFaces(node)

	var kept []*tree.Face
	for _, s := range surfs {
		MergePlaneFaces(w, s)
		kept = append(kept, s.Faces...)
	}
	node.Faces = kept
	return len(kept)
}

// MergeAll merges every node's faces and reports the surviving count.
func MergeAll(t *tree.Tree) int {
	conlog.Progress("MergeAll")

	mergeFaces := 0
	var walk func(ni int32)
	walk = func(ni int32) {
		node := t.Node(ni)
		if node.IsLeaf() {
			return
		}
		mergeFaces += MergeNodeFaces(t.World, node)
		walk(node.Children[0])
		walk(node.Children[1])
	}
	walk(t.Head)

	conlog.Statf("%8d mergefaces\n", mergeFaces)
	return mergeFaces
}
