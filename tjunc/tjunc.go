// SPDX-License-Identifier: GPL-2.0-or-later

// Package tjunc removes T-junctions from the final face set. Every face
// is rebuilt against the vertices of its neighbors so that abutting edges
// share exact vertices and no cracks remain.
package tjunc

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"

	"gobsp/conlog"
	"gobsp/cvars"
	"gobsp/geom"
	"gobsp/math/vec"
	"gobsp/tree"
)

// Resolution levels for the tjunc cvar.
const (
	LevelNone = iota
	LevelRotate
	LevelRetopologize
	LevelMWT
)

const (
	onEpsilon    = 0.1
	angleEpsilon = 0.01 // degrees
)

// Stats counts the outcomes across all faces. The counters are atomic
// because faces are fixed in parallel.
type Stats struct {
	// edges with two identical input vertices
	Degenerate atomic.Uint64
	// new edges created to close a tjunction
	TJunctions atomic.Uint64
	// fragments created by splitting overlong faces
	FaceOverflows atomic.Uint64
	// faces collapsed entirely
	FaceCollapse atomic.Uint64
	// faces fixed just by rotating the start point
	Rotates atomic.Uint64
	// faces that could be fixed neither by rotation nor retopology
	NoRotates atomic.Uint64
	// faces successfully retopologized
	Retopology atomic.Uint64
	// extra fragments generated by retopology
	FaceRetopology atomic.Uint64
	// faces successfully triangulated by MWT
	MWT atomic.Uint64
	// triangles computed by MWT
	TriMWT atomic.Uint64
	// extra fragments generated by MWT
	FaceMWT atomic.Uint64
}

type fixer struct {
	t     *tree.Tree
	w     *tree.World
	level int
	stats *Stats
}

// pointOnEdge returns the parametric distance of p along the edge if p
// lies on the open segment within onEpsilon, and whether it does.
func pointOnEdge(p, edgeStart, edgeDir vec.Vec3, start, end float32) (float32, bool) {
	delta := vec.Sub(p, edgeStart)
	dist := vec.Dot(delta, edgeDir)

	// off an end
	if dist <= start || dist >= end {
		return 0, false
	}

	exact := vec.Add(edgeStart, edgeDir.Scale(dist))
	off := vec.Sub(p, exact)
	if off.Length() > onEpsilon {
		return 0, false
	}
	return dist, true
}

// testEdge bisects the edge p1-p2 at any vertex of edgeVerts lying on it,
// recursing into both halves, and appends the start vertex of every
// junction-free sub edge to the superface.
func (fx *fixer) testEdge(start, end float32, p1, p2 uint32, startVert int,
	edgeVerts []uint32, edgeStart, edgeDir vec.Vec3, superface []uint32) []uint32 {

	if p1 == p2 {
		fx.stats.Degenerate.Add(1)
		return superface
	}

	for k := startVert; k < len(edgeVerts); k++ {
		j := edgeVerts[k]
		if j == p1 || j == p2 {
			continue
		}

		dist, on := pointOnEdge(fx.w.Vertexes[j], edgeStart, edgeDir, start, end)
		if !on {
			continue
		}

		// break the edge
		fx.stats.TJunctions.Add(1)

		superface = fx.testEdge(start, dist, p1, j, k+1, edgeVerts, edgeStart, edgeDir, superface)
		return fx.testEdge(dist, end, j, p2, k+1, edgeVerts, edgeStart, edgeDir, superface)
	}

	// the edge p1 to p2 is now free of tjunctions
	return append(superface, p1)
}

// findEdgeVerts collects the vertices of all faces whose node bounds
// intersect a loose box around the edge.
func (fx *fixer) findEdgeVerts(p1, p2 vec.Vec3, verts []uint32) []uint32 {
	box := geom.EmptyBounds()
	box.AddPoint(p1)
	box.AddPoint(p2)
	box = box.Grow(1)
	return fx.findEdgeVertsNode(fx.t.Head, box, verts)
}

func (fx *fixer) findEdgeVertsNode(ni int32, box geom.Bounds, verts []uint32) []uint32 {
	node := fx.t.Node(ni)
	if node.IsLeaf() {
		return verts
	}
	if node.Bounds.Disjoint(box, 0) {
		return verts
	}

	for _, f := range node.Faces {
		for _, v := range f.OriginalVertices {
			if box.ContainsPoint(fx.w.Vertexes[v]) {
				verts = append(verts, v)
			}
		}
	}

	verts = fx.findEdgeVertsNode(node.Children[0], box, verts)
	return fx.findEdgeVertsNode(node.Children[1], box, verts)
}

// createSuperFace rebuilds the face's vertex ring with every world vertex
// that lies on one of its edges inserted in order.
func (fx *fixer) createSuperFace(f *tree.Face) []uint32 {
	superface := make([]uint32, 0, len(f.OriginalVertices)*2)
	var edgeVerts []uint32

	n := len(f.OriginalVertices)
	for i := 0; i < n; i++ {
		v1 := f.OriginalVertices[i]
		v2 := f.OriginalVertices[(i+1)%n]

		edgeStart := fx.w.Vertexes[v1]
		e2 := fx.w.Vertexes[v2]

		edgeVerts = fx.findEdgeVerts(edgeStart, e2, edgeVerts[:0])

		d := vec.Sub(e2, edgeStart)
		edgeDir, length := d.NormalizeLength()

		superface = fx.testEdge(0, length, v1, v2, 0, edgeVerts, edgeStart, edgeDir, superface)
	}

	return superface
}

// splitFaceIntoFragments slices an overlong vertex ring into fragments of
// at most maxEdges vertices, each retaining the closing edge of its
// predecessor, and appends them to out. Every emitted fragment has
// between 3 and maxEdges vertices.
func (fx *fixer) splitFaceIntoFragments(face []uint32, out [][]uint32) [][]uint32 {
	maxEdges := cvars.MaxEdges.Int()

	for maxEdges > 0 && len(face) > maxEdges {
		fx.stats.FaceOverflows.Add(1)

		newf := make([]uint32, maxEdges)
		copy(newf, face)
		out = append(out, newf)

		// keep the first vertex and the last written one so the
		// remainder shares the closing edge
		rest := make([]uint32, 0, len(face)-maxEdges+2)
		rest = append(rest, face[0])
		rest = append(rest, face[maxEdges-1:]...)
		face = rest
	}

	return append(out, face)
}

// angleOfTriangle returns the interior angle at a, in degrees.
func angleOfTriangle(a, b, c vec.Vec3) float32 {
	ab := vec.Sub(b, a)
	ac := vec.Sub(c, a)
	num := vec.Dot(ab, ac)
	den := ab.Length() * ac.Length()
	return math32.Acos(num/den) * (180 / math32.Pi)
}

// triangleIsValid reports whether the triangle has no interior angle
// below eps degrees.
func (fx *fixer) triangleIsValid(v0, v1, v2 uint32, eps float32) bool {
	a := fx.w.Vertexes[v0]
	b := fx.w.Vertexes[v1]
	c := fx.w.Vertexes[v2]
	return angleOfTriangle(a, b, c) >= eps &&
		angleOfTriangle(b, c, a) >= eps &&
		angleOfTriangle(c, a, b) >= eps
}

// fixFaceEdges resolves the face's T-junctions and fills in its fragment
// list. The resolution level picks how hard to try producing a crack-free
// tessellation.
func (fx *fixer) fixFaceEdges(f *tree.Face) {
	if fx.level == LevelNone {
		f.Fragments = append(f.Fragments, append([]uint32(nil), f.OriginalVertices...))
		return
	}

	superface := fx.createSuperFace(f)

	if len(superface) < 3 {
		// entire face collapsed
		fx.stats.FaceCollapse.Add(1)
		return
	}
	if len(superface) == 3 {
		// a triangle cannot have a crack
		f.Fragments = append(f.Fragments, append([]uint32(nil), f.OriginalVertices...))
		return
	}

	var faces [][]uint32

	// MWT first, it produces optimal results for everything
	if fx.level >= LevelMWT {
		faces = fx.mwtFace(f, superface)
		if len(faces) > 0 {
			fx.stats.MWT.Add(1)
			fx.stats.FaceMWT.Add(uint64(len(faces) - 1))
		}
	}

	// brute force rotating the start point until we find a winding
	// with no zero-area triangles
	if len(faces) == 0 && fx.level >= LevelRotate {
		n := len(superface)
		i := 0
		for ; i < n; i++ {
			x := 0
			for ; x < n-2; x++ {
				v0 := superface[i]
				v1 := superface[(i+x+1)%n]
				v2 := superface[(i+x+2)%n]
				if !fx.triangleIsValid(v0, v1, v2, angleEpsilon) {
					break
				}
			}
			if x == n-2 {
				break
			}
		}

		switch {
		case i == n:
			// rotation cannot eliminate the zero-area triangles
			if fx.level >= LevelRetopologize {
				if retopo := fx.retopologizeFace(superface); len(retopo) > 1 {
					fx.stats.Retopology.Add(1)
					fx.stats.FaceRetopology.Add(uint64(len(retopo) - 1))
					faces = retopo
				}
			}
			if len(faces) == 0 {
				fx.stats.NoRotates.Add(1)
			}
		case i != 0:
			fx.stats.Rotates.Add(1)
			rotated := make([]uint32, 0, n)
			rotated = append(rotated, superface[i:]...)
			rotated = append(rotated, superface[:i]...)
			faces = append(faces, rotated)
		}
	}

	// everything else failed or was switched off, keep the raw
	// superface with its zero-area filler triangles
	if len(faces) == 0 {
		faces = append(faces, superface)
	}

	if cvars.MaxEdges.Int() > 0 {
		var split [][]uint32
		for _, face := range faces {
			split = fx.splitFaceIntoFragments(face, split)
		}
		faces = split
	}

	f.Fragments = faces
}

// findFaces collects every face with emitted vertices, each exactly once.
func findFaces(t *tree.Tree, ni int32, seen map[*tree.Face]bool, out []*tree.Face) []*tree.Face {
	node := t.Node(ni)
	if node.IsLeaf() {
		return out
	}

	for _, f := range node.Faces {
		// might have been merged away or omitted
		if len(f.OriginalVertices) == 0 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}

	out = findFaces(t, node.Children[0], seen, out)
	return findFaces(t, node.Children[1], seen, out)
}

// FixAll resolves T-junctions on every face of the tree. Faces are
// independent, so they are distributed over all CPUs.
func FixAll(t *tree.Tree) *Stats {
	conlog.Progress("TJunc")

	stats := &Stats{}
	faces := findFaces(t, t.Head, make(map[*tree.Face]bool), nil)

	workers := runtime.NumCPU()
	if workers > len(faces) {
		workers = len(faces)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		wg   sync.WaitGroup
		next atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fx := &fixer{t: t, w: t.World, level: cvars.TJunc.Int(), stats: stats}
			for {
				i := next.Add(1) - 1
				if i >= int64(len(faces)) {
					return
				}
				fx.fixFaceEdges(faces[i])
			}
		}()
	}
	wg.Wait()

	if v := stats.Degenerate.Load(); v != 0 {
		conlog.Statf("%5d edges degenerated\n", v)
	}
	if v := stats.FaceCollapse.Load(); v != 0 {
		conlog.Statf("%5d faces degenerated\n", v)
	}
	if v := stats.TJunctions.Load(); v != 0 {
		conlog.Statf("%5d edges added by tjunctions\n", v)
	}
	if v := stats.MWT.Load(); v != 0 {
		conlog.Statf("%5d faces ran through MWT\n", v)
		conlog.Statf("%5d new faces added via MWT (from %d triangles)\n",
			stats.FaceMWT.Load(), stats.TriMWT.Load())
	}
	if v := stats.Retopology.Load(); v != 0 {
		conlog.Statf("%5d faces re-topologized\n", v)
		conlog.Statf("%5d new faces added by re-topology\n", stats.FaceRetopology.Load())
	}
	if v := stats.Rotates.Load(); v != 0 {
		conlog.Statf("%5d faces rotated\n", v)
	}
	if v := stats.NoRotates.Load(); v != 0 {
		conlog.Statf("%5d faces unable to be rotated or re-topologized\n", v)
	}
	if v := stats.FaceOverflows.Load(); v != 0 {
		conlog.Statf("%5d faces added by splitting large faces\n", v)
	}

	return stats
}
