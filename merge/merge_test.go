package merge

import (
	"os"
	"testing"

	"github.com/chewxy/math32"

	"gobsp/conlog"
	"gobsp/cvars"
	"gobsp/geom"
	"gobsp/math/vec"
	"gobsp/tree"
	"gobsp/winding"
)

func TestMain(m *testing.M) {
	conlog.Discard()
	os.Exit(m.Run())
}

func testWorld() (*tree.World, int32) {
	w := &tree.World{}
	pn := w.Planes.Add(geom.Plane{Normal: vec.Vec3{Z: 1}, Dist: 0})
	return w, int32(pn)
}

// quadFace builds a counter-wound rectangle on z=0 spanning [x0,x1]x[y0,y1].
func quadFace(pn int32, x0, y0, x1, y1 float32) *tree.Face {
	return &tree.Face{
		PlaneNum: pn,
		W: winding.Winding{
			{X: x0, Y: y0},
			{X: x0, Y: y1},
			{X: x1, Y: y1},
			{X: x1, Y: y0},
		},
	}
}

func TestTryMergeQuads(t *testing.T) {
	w, pn := testWorld()
	f1 := quadFace(pn, 0, 0, 8, 8)
	f2 := quadFace(pn, 8, 0, 16, 8)

	got := TryMerge(w, f1, f2)
	if got == nil {
		t.Fatalf("adjacent quads did not merge")
	}
	// both junctions are collinear, so the shared points drop out
	if len(got.W) != 4 {
		t.Fatalf("merged winding has %d points, want 4", len(got.W))
	}
	if a := got.W.Area(); math32.Abs(a-128) > 0.01 {
		t.Errorf("merged area %v, want 128", a)
	}
	// inputs stay intact
	if len(f1.W) != 4 || len(f2.W) != 4 {
		t.Errorf("inputs were mutated")
	}
}

func TestTryMergeKeepsConvexCorners(t *testing.T) {
	w, pn := testWorld()
	// a quad and a triangle sharing the quad's right edge. The junctions
	// bend inward, so both endpoints must survive.
	f1 := quadFace(pn, 0, 0, 8, 8)
	f2 := &tree.Face{
		PlaneNum: pn,
		W: winding.Winding{
			{X: 8, Y: 8},
			{X: 12, Y: 4},
			{X: 8, Y: 0},
		},
	}

	got := TryMerge(w, f1, f2)
	if got == nil {
		t.Fatalf("quad and triangle did not merge")
	}
	if len(got.W) != 5 {
		t.Fatalf("merged winding has %d points, want 5", len(got.W))
	}
	want := f1.W.Area() + f2.W.Area()
	if a := got.W.Area(); math32.Abs(a-want) > 0.01 {
		t.Errorf("merged area %v, want %v", a, want)
	}
}

func TestTryMergeRejectsReflex(t *testing.T) {
	w, pn := testWorld()
	f1 := quadFace(pn, 0, 0, 8, 8)
	// wider neighbor: the joined polygon would be L-shaped
	f2 := quadFace(pn, 8, 0, 16, 16)
	f2.W = winding.Winding{
		{X: 8, Y: 0},
		{X: 8, Y: 16},
		{X: 16, Y: 16},
		{X: 16, Y: 0},
	}
	// no single reversed common edge exists, and even a partial overlap
	// must not produce a merge
	if got := TryMerge(w, f1, f2); got != nil {
		t.Errorf("merged into a non-convex polygon: %v", got.W)
	}
}

func TestTryMergeRejectsAttributeMismatch(t *testing.T) {
	w, pn := testWorld()
	f1 := quadFace(pn, 0, 0, 8, 8)

	f2 := quadFace(pn, 8, 0, 16, 8)
	f2.TexInfo = 5
	if TryMerge(w, f1, f2) != nil {
		t.Errorf("merged across texinfo")
	}

	f2 = quadFace(pn, 8, 0, 16, 8)
	f2.Contents = tree.ContentsWater
	if TryMerge(w, f1, f2) != nil {
		t.Errorf("merged across contents")
	}

	f2 = quadFace(pn, 8, 0, 16, 8)
	f2.PlaneSide = 1
	if TryMerge(w, f1, f2) != nil {
		t.Errorf("merged across plane side")
	}

	f2 = quadFace(pn, 8, 0, 16, 8)
	f2.LMShift = 2
	if TryMerge(w, f1, f2) != nil {
		t.Errorf("merged across lmshift")
	}
}

func TestTryMergeEdgeLimit(t *testing.T) {
	w, pn := testWorld()
	f1 := quadFace(pn, 0, 0, 8, 8)
	f2 := quadFace(pn, 8, 0, 16, 8)

	cvars.MaxEdges.SetValue(7)
	defer cvars.MaxEdges.Reset()
	if TryMerge(w, f1, f2) != nil {
		t.Errorf("merge ignored the edge limit")
	}
}

func TestTryMergeEdgeLimitDisabled(t *testing.T) {
	w, pn := testWorld()
	f1 := quadFace(pn, 0, 0, 8, 8)
	f2 := quadFace(pn, 8, 0, 16, 8)

	// maxedges 0 lifts the cap entirely
	cvars.MaxEdges.SetValue(0)
	defer cvars.MaxEdges.Reset()
	m := TryMerge(w, f1, f2)
	if m == nil {
		t.Fatalf("maxedges 0 blocked the merge")
	}
	if len(m.W) != 4 {
		t.Errorf("merged winding has %d points, want 4", len(m.W))
	}
}

func TestMergePlaneFaces(t *testing.T) {
	w, pn := testWorld()
	// a 1x3 strip cut into three quads
	s := &Surface{PlaneNum: pn, Faces: []*tree.Face{
		quadFace(pn, 0, 0, 8, 8),
		quadFace(pn, 8, 0, 16, 8),
		quadFace(pn, 16, 0, 24, 8),
	}}

	MergePlaneFaces(w, s)
	if len(s.Faces) != 1 {
		t.Fatalf("%d faces after merge, want 1", len(s.Faces))
	}
	if a := s.Faces[0].W.Area(); math32.Abs(a-192) > 0.01 {
		t.Errorf("merged area %v, want 192", a)
	}
}

func TestMergeIdempotence(t *testing.T) {
	w, pn := testWorld()
	s := &Surface{PlaneNum: pn, Faces: []*tree.Face{
		quadFace(pn, 0, 0, 8, 8),
		quadFace(pn, 8, 0, 16, 8),
		// a disconnected island
		quadFace(pn, 32, 0, 40, 8),
	}}

	MergePlaneFaces(w, s)
	first := len(s.Faces)
	MergePlaneFaces(w, s)
	if len(s.Faces) != first {
		t.Errorf("second pass changed the face count: %d -> %d",
			first, len(s.Faces))
	}
	if first != 2 {
		t.Errorf("%d faces after merge, want 2", first)
	}
}

func TestMergeAll(t *testing.T) {
	w := &tree.World{}
	pa := int32(w.Planes.Add(geom.Plane{Normal: vec.Vec3{Z: 1}, Dist: 0}))
	pb := int32(w.Planes.Add(geom.Plane{Normal: vec.Vec3{X: 1}, Dist: 0}))

	tr := tree.New(w)
	front := tr.AddLeaf(tree.ContentsEmpty)
	back := tr.AddLeaf(tree.ContentsSolid)
	tr.Head = tr.AddNode(pb, front, back)

	// two mergeable quads on the node plus a face on another plane
	// that must stay separate
	other := quadFace(pb, 0, 0, 8, 8)
	other.PlaneSide = 1
	tr.Node(tr.Head).Faces = []*tree.Face{
		quadFace(pa, 0, 0, 8, 8),
		quadFace(pa, 8, 0, 16, 8),
		other,
	}

	if got := MergeAll(tr); got != 2 {
		t.Fatalf("MergeAll kept %d faces, want 2", got)
	}
	if got := len(tr.Node(tr.Head).Faces); got != 2 {
		t.Fatalf("node holds %d faces, want 2", got)
	}
	if a := tr.Node(tr.Head).Faces[0].W.Area(); math32.Abs(a-128) > 0.01 {
		t.Errorf("merged area %v, want 128", a)
	}
}
