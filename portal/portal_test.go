package portal

import (
	"os"
	"testing"

	"github.com/chewxy/math32"

	"gobsp/conlog"
	"gobsp/cvar"
	"gobsp/cvars"
	"gobsp/geom"
	"gobsp/math/vec"
	"gobsp/tree"
)

func TestMain(m *testing.M) {
	conlog.Discard()
	os.Exit(m.Run())
}

func boxBounds(ext float32) geom.Bounds {
	return geom.Bounds{
		Mins: vec.Vec3{X: -ext, Y: -ext, Z: -ext},
		Maxs: vec.Vec3{X: ext, Y: ext, Z: ext},
	}
}

// leafPortalArea sums the winding areas of all portals bounding the leaf.
func leafPortalArea(t *tree.Tree, ni int32) float32 {
	var total float32
	for pi := t.Node(ni).Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		s := 0
		if p.Nodes[1] == ni {
			s = 1
		}
		total += p.W.Area()
		pi = p.Next[s]
	}
	return total
}

func countLeafPortals(t *tree.Tree, ni int32) int {
	n := 0
	for pi := t.Node(ni).Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		s := 0
		if p.Nodes[1] == ni {
			s = 1
		}
		n++
		pi = p.Next[s]
	}
	return n
}

// A hollow box: the whole tree is one empty leaf.
func TestHeadnodePortalsSealBox(tst *testing.T) {
	w := &tree.World{}
	t := tree.New(w)
	t.Head = t.AddLeaf(tree.ContentsEmpty)
	t.Bounds = boxBounds(64)

	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}

	if got := countLeafPortals(t, t.Head); got != 6 {
		tst.Fatalf("interior leaf has %d portals, want 6", got)
	}
	for pi := t.Node(t.Head).Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		if p.Nodes[0] != t.Head || p.Nodes[1] != t.Outside {
			tst.Errorf("portal %d links %v, want head/outside", pi, p.Nodes)
		}
		if p.OnNode != tree.Nil {
			tst.Errorf("headnode portal %d claims an onnode", pi)
		}
		pi = p.Next[0]
	}

	// the six portals form the closed boundary of the padded box
	side := 2 * (64 + cvars.SideSpace.Value())
	want := 6 * side * side
	if got := leafPortalArea(t, t.Head); math32.Abs(got-want) > want*1e-4 {
		tst.Errorf("boundary area %v want %v", got, want)
	}

	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}
	if t.Node(t.Head).Area != 1 {
		tst.Errorf("interior leaf got area %d, want 1", t.Node(t.Head).Area)
	}
	if w.NumAreas != 1 {
		tst.Errorf("NumAreas = %d want 1", w.NumAreas)
	}
}

// buildSplitTree returns a tree split once at x=0 into two empty leaves.
func buildSplitTree() (*tree.Tree, int32, int32) {
	w := &tree.World{}
	t := tree.New(w)
	pn := w.Planes.Add(geom.Plane{Normal: vec.Vec3{X: 1}, Dist: 0})
	front := t.AddLeaf(tree.ContentsEmpty)
	back := t.AddLeaf(tree.ContentsEmpty)
	t.Head = t.AddNode(int32(pn), front, back)
	t.Bounds = boxBounds(64)
	return t, front, back
}

func TestSplitTreePortals(tst *testing.T) {
	t, front, back := buildSplitTree()
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}

	// find the connecting portal
	var conn *tree.Portal
	for pi := t.Node(front).Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		s := 0
		if p.Nodes[1] == front {
			s = 1
		}
		if p.OnNode == t.Head {
			conn = p
		}
		pi = p.Next[s]
	}
	if conn == nil {
		tst.Fatalf("no portal between the split leaves")
	}
	if conn.Nodes[0] != front || conn.Nodes[1] != back {
		tst.Errorf("connecting portal links %v", conn.Nodes)
	}
	ext := 64 + cvars.SideSpace.Value()
	want := 2 * ext * 2 * ext
	if got := conn.W.Area(); math32.Abs(got-want) > want*1e-4 {
		tst.Errorf("connecting portal area %v want %v", got, want)
	}

	// both leaves must be watertight: half box plus the shared wall
	dx, dy := ext, 2*ext
	wantLeaf := 2 * (dx*dy + dy*dy + dx*dy)
	for _, leaf := range []int32{front, back} {
		if got := countLeafPortals(t, leaf); got != 6 {
			tst.Errorf("leaf %d has %d portals, want 6", leaf, got)
		}
		if got := leafPortalArea(t, leaf); math32.Abs(got-wantLeaf) > wantLeaf*1e-4 {
			tst.Errorf("leaf %d boundary area %v want %v", leaf, got, wantLeaf)
		}
	}

	// the two leaves flood into one area
	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}
	if a, b := t.Node(front).Area, t.Node(back).Area; a != 1 || b != 1 {
		tst.Errorf("areas %d/%d, want 1/1", a, b)
	}
}

func TestRebuildFreesPortals(tst *testing.T) {
	t, front, _ := buildSplitTree()
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	first := t.NumPortals()

	// a rebuild frees the whole graph before portalizing again
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	if got := t.NumPortals(); got != first {
		tst.Errorf("%d portals after rebuild, want %d", got, first)
	}
	if got := countLeafPortals(t, front); got != 6 {
		tst.Errorf("leaf has %d portals after rebuild, want 6", got)
	}

	if err := FreeTreePortals(t, t.Head); err != nil {
		tst.Fatal(err)
	}
	if err := AssertNoPortals(t, t.Head); err != nil {
		tst.Error(err)
	}
	if got := t.NumPortals(); got != 0 {
		tst.Errorf("%d portals survived the free", got)
	}
}

func TestSolidLeafBlocksFlood(tst *testing.T) {
	t, front, back := buildSplitTree()
	t.Node(back).Contents = tree.ContentsSolid
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}
	if t.Node(front).Area != 1 {
		tst.Errorf("empty leaf area %d, want 1", t.Node(front).Area)
	}
	if t.Node(back).Area != 0 {
		tst.Errorf("solid leaf got area %d", t.Node(back).Area)
	}
}

func TestFloodDeterminism(tst *testing.T) {
	t, front, back := buildSplitTree()
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}
	first := []int32{t.Node(front).Area, t.Node(back).Area}

	// reset and rerun on the unchanged tree
	for i := range t.Nodes {
		t.Nodes[i].Area = 0
	}
	t.World.NumAreas = 0
	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}
	second := []int32{t.Node(front).Area, t.Node(back).Area}
	if first[0] != second[0] || first[1] != second[1] {
		tst.Errorf("flood not deterministic: %v vs %v", first, second)
	}
}

// buildCorridorTree builds |empty A| area portal |empty B| along x.
func buildCorridorTree() (*tree.Tree, int32, int32, int32, *tree.Entity) {
	w := &tree.World{}
	e := &tree.Entity{AreaPortalNum: 1, Bounds: boxBounds(8)}
	ei := w.AddEntity(e)
	b := &tree.Brush{Contents: tree.ContentsAreaPortal, AreaPortal: ei}
	bi := w.AddBrush(b)

	t := tree.New(w)
	pnL := w.Planes.Add(geom.Plane{Normal: vec.Vec3{X: 1}, Dist: -8})
	pnR := w.Planes.Add(geom.Plane{Normal: vec.Vec3{X: 1}, Dist: 8})

	right := t.AddLeaf(tree.ContentsEmpty) // x > 8
	mid := t.AddLeaf(tree.ContentsAreaPortal)
	t.Node(mid).Brushes = []int32{bi}
	inner := t.AddNode(int32(pnR), right, mid)
	left := t.AddLeaf(tree.ContentsEmpty) // x < -8
	t.Head = t.AddNode(int32(pnL), inner, left)
	t.Bounds = boxBounds(64)
	return t, left, mid, right, e
}

func TestAreaPortalFlood(tst *testing.T) {
	t, left, mid, right, e := buildCorridorTree()
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}

	if t.World.NumAreas != 2 {
		tst.Fatalf("NumAreas = %d want 2", t.World.NumAreas)
	}
	ra, la := t.Node(right).Area, t.Node(left).Area
	if ra == la || ra == 0 || la == 0 {
		tst.Errorf("corridor ends share an area: %d/%d", ra, la)
	}
	if e.PortalAreas[0] == 0 || e.PortalAreas[1] == 0 {
		tst.Fatalf("entity records %v, want both areas", e.PortalAreas)
	}
	if t.Node(mid).Area != e.PortalAreas[0] {
		tst.Errorf("area portal leaf has area %d, want %d",
			t.Node(mid).Area, e.PortalAreas[0])
	}

	areas, aps := EmitAreaPortals(t.World)
	if len(areas) != 3 { // reserved + 2
		tst.Fatalf("emitted %d area records, want 3", len(areas))
	}
	for i := int32(1); i <= 2; i++ {
		a := areas[i]
		if a.NumAreaPortals != 1 {
			tst.Errorf("area %d has %d portals, want 1", i, a.NumAreaPortals)
			continue
		}
		ap := aps[a.FirstAreaPortal]
		if ap.PortalNum != 1 {
			tst.Errorf("area %d portalnum %d, want 1", i, ap.PortalNum)
		}
		var other int32 = 1
		if i == 1 {
			other = 2
		}
		if ap.OtherArea != other {
			tst.Errorf("area %d otherarea %d, want %d", i, ap.OtherArea, other)
		}
	}
}

func TestAreaPortalOverflow(tst *testing.T) {
	t, _, _, _, e := buildCorridorTree()
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	// pretend two other areas already touched the entity
	e.PortalAreas[0] = 7
	e.PortalAreas[1] = 8
	if err := FloodAreas(t); err != nil {
		tst.Fatal(err)
	}
	// the first two records must survive untouched
	if e.PortalAreas[0] != 7 || e.PortalAreas[1] != 8 {
		tst.Errorf("overfull entity was rewritten: %v", e.PortalAreas)
	}
}

func TestMarkVisibleSides(tst *testing.T) {
	t, _, back := buildSplitTree()
	w := t.World
	t.Node(back).Contents = tree.ContentsSolid

	side := &tree.Side{PlaneNum: int32(w.Planes.FindOrAdd(
		geom.Plane{Normal: vec.Vec3{X: 1}, Dist: 0}))}
	other := &tree.Side{PlaneNum: int32(w.Planes.FindOrAdd(
		geom.Plane{Normal: vec.Vec3{X: -1}, Dist: 64}))}
	bi := w.AddBrush(&tree.Brush{
		Contents:   tree.ContentsSolid,
		Sides:      []*tree.Side{side, other},
		AreaPortal: tree.Nil,
	})
	t.Node(back).Brushes = []int32{bi}

	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}
	MarkVisibleSides(t)

	if !side.Visible {
		tst.Errorf("side on the portal plane not marked visible")
	}
	if other.Visible {
		tst.Errorf("far side marked visible")
	}
}

func TestVisFlood(tst *testing.T) {
	t, front, back := buildSplitTree()
	t.Node(back).Contents = tree.ContentsWater
	if _, err := MakeTreePortals(t); err != nil {
		tst.Fatal(err)
	}

	var conn int32 = tree.Nil
	for pi := t.Node(front).Portals; pi != tree.Nil; {
		p := t.Portal(pi)
		s := 0
		if p.Nodes[1] == front {
			s = 1
		}
		if p.OnNode == t.Head {
			conn = pi
		}
		pi = p.Next[s]
	}
	if conn == tree.Nil {
		tst.Fatalf("no connecting portal")
	}

	defer cvar.ResetAll()
	cvars.TransWater.SetValue(0)
	if VisFlood(t, conn) {
		tst.Errorf("opaque water portal passes vis")
	}
	cvars.TransWater.SetValue(1)
	if !VisFlood(t, conn) {
		tst.Errorf("translucent water portal blocks vis")
	}
}

func TestClusterContents(tst *testing.T) {
	t, _, back := buildSplitTree()
	t.Node(back).Contents = tree.ContentsWater
	got := ClusterContents(t, t.Head)
	if got != tree.ContentsWater {
		tst.Errorf("ClusterContents = %v", got)
	}
}
