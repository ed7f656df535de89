// SPDX-License-Identifier: GPL-2.0-or-later

package tjunc

import (
	"sort"

	"github.com/chewxy/math32"

	"gobsp/math/vec"
	"gobsp/tree"
)

// triangle holds three positions into the superface vertex ring, sorted
// ascending.
type triangle [3]int

// triangleExists returns the position of the triangle (a, b, c) in any
// cyclic permutation.
func triangleExists(triangles []triangle, a, b, c int) (int, bool) {
	for i, tri := range triangles {
		for s := 0; s < 3; s++ {
			if tri[s] == a && tri[(s+1)%3] == b && tri[(s+2)%3] == c {
				return i, true
			}
		}
	}
	return -1, false
}

// findBestFan returns the longest chain of triangles windable around a
// common edge start, as positions into triangles. Never empty while
// triangles remain, since a triangle chains with itself.
func findBestFan(triangles []triangle, numVertices int) []int {
	var best []int

	for _, tri := range triangles {
		for perm := 0; perm < 3; perm++ {
			first := tri[perm]
			mid := tri[(perm+1)%3]
			last := tri[(perm+2)%3]

			var chain []int

			// wind around the ring collecting triangles that
			// continue from the previous shared edge
			for ; last != first; last = (last + 1) % numVertices {
				ti, ok := triangleExists(triangles, first, mid, last)
				if !ok {
					continue
				}
				chain = append(chain, ti)
				mid = last
			}

			if best == nil || len(chain) > len(best) {
				best = chain
			}
		}
	}

	return best
}

// findSeedVertex returns the vertex shared by every triangle of the fan.
func findSeedVertex(triangles []triangle, fan []int) int {
	verts := make(map[int]bool, 3)
	for _, v := range triangles[fan[0]] {
		verts[v] = true
	}

	for _, ti := range fan[1:] {
		tri := triangles[ti]
		for v := range verts {
			if v != tri[0] && v != tri[1] && v != tri[2] {
				delete(verts, v)
			}
		}
		if len(verts) == 1 {
			break
		}
	}

	for v := range verts {
		return v
	}
	return -1
}

// compressTrianglesIntoFans repeatedly extracts the largest triangle fan
// and emits it as one polygon wound from its seed vertex, falling back to
// per-triangle output once only single-triangle fans remain. The
// positions are mapped through vertices into world vertex indices.
func compressTrianglesIntoFans(triangles []triangle, vertices []uint32) [][]uint32 {
	var compiled [][]uint32

	for len(triangles) > 0 {
		fan := findBestFan(triangles, len(vertices))

		if len(fan) == 1 {
			for _, tri := range triangles {
				compiled = append(compiled, []uint32{
					vertices[tri[0]], vertices[tri[1]], vertices[tri[2]],
				})
			}
			break
		}

		seed := findSeedVertex(triangles, fan)

		// collect the fan's vertices, ordered around the ring
		// starting from the seed so the winding is preserved
		used := make(map[int]bool)
		for _, ti := range fan {
			for _, v := range triangles[ti] {
				used[v] = true
			}
		}
		ring := make([]int, 0, len(used))
		for v := range used {
			ring = append(ring, v)
		}
		n := len(vertices)
		sort.Slice(ring, func(a, b int) bool {
			ka, kb := ring[a], ring[b]
			if ka < seed {
				ka += n
			}
			if kb < seed {
				kb += n
			}
			return ka < kb
		})

		out := make([]uint32, len(ring))
		for i, v := range ring {
			out[i] = vertices[v]
		}
		compiled = append(compiled, out)

		// remove the fan's triangles, highest position first
		sort.Sort(sort.Reverse(sort.IntSlice(fan)))
		for _, ti := range fan {
			triangles = append(triangles[:ti], triangles[ti+1:]...)
		}
	}

	return compiled
}

// minimumWeightTriangulation computes the optimal triangulation of the
// convex polygon by the classic O(n^3) dynamic program minimizing total
// perimeter, rejecting triangles with a near-zero interior angle. It
// returns n-2 triangles as sorted positions into the ring.
func (fx *fixer) minimumWeightTriangulation(indices []uint32, pts [][2]float32) []triangle {
	n := len(pts)

	// T holds the weight of the cheapest triangulation below edge ij,
	// K the vertex it cuts at
	T := make([]float32, n*n)
	K := make([]int, n*n)
	for i := range K {
		K[i] = -1
	}

	dist2 := func(a, b [2]float32) float32 {
		return math32.Hypot(a[0]-b[0], a[1]-b[1])
	}

	for diagonal := 0; diagonal < n; diagonal++ {
		for i, j := 0, diagonal; j < n; i, j = i+1, j+1 {
			if j < i+2 {
				continue
			}

			T[i+j*n] = math32.MaxFloat32

			for k := i + 1; k <= j-1; k++ {
				var weight float32
				if !fx.triangleIsValid(indices[i], indices[j], indices[k], angleEpsilon) {
					weight = math32.Nextafter(math32.MaxFloat32, 0)
				} else {
					weight = dist2(pts[i], pts[j]) +
						dist2(pts[j], pts[k]) +
						dist2(pts[k], pts[i]) +
						T[i+k*n] + T[k+j*n]
				}
				if weight < T[i+j*n] {
					T[i+j*n] = weight
					K[i+j*n] = k
				}
			}
		}
	}

	// walk the cut table back into triangles
	var triangles []triangle
	queue := [][2]int{{0, n - 1}}
	for len(queue) > 0 {
		edge := queue[0]
		queue = queue[1:]

		if edge[0] == edge[1] {
			continue
		}
		c := K[edge[0]+edge[1]*n]
		if c < 0 {
			continue
		}

		tri := triangle{edge[0], edge[1], c}
		sort.Ints(tri[:])
		triangles = append(triangles, tri)

		queue = append(queue, [2]int{edge[0], c}, [2]int{c, edge[1]})
	}

	return triangles
}

// mwtFace triangulates the superface optimally and compresses the result
// into fans. The polygon is projected onto its plane for the 2-D weight
// metric.
func (fx *fixer) mwtFace(f *tree.Face, vertices []uint32) [][]uint32 {
	normal := fx.w.Planes.Get(int(f.PlaneNum)).Normal
	if f.PlaneSide != 0 {
		normal = vec.Neg(normal)
	}
	u, v := vec.TangentAndBitangent(normal)

	pts := make([][2]float32, len(vertices))
	for i, vi := range vertices {
		p := fx.w.Vertexes[vi]
		pts[i] = [2]float32{vec.Dot(p, u), vec.Dot(p, v)}
	}

	tris := fx.minimumWeightTriangulation(vertices, pts)
	fx.stats.TriMWT.Add(uint64(len(tris)))

	return compressTrianglesIntoFans(tris, vertices)
}
