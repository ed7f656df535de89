// SPDX-License-Identifier: GPL-2.0-or-later

package winding

import (
	"gobsp/geom"
	"gobsp/math/vec"
)

// Winding is an ordered convex polygon, wound clockwise when viewed from
// the front side of its plane. A valid winding has at least 3 points; an
// absent winding is nil, never a degenerate slice.
type Winding []vec.Vec3

// pointEpsilon is the distance below which two successive winding points
// collapse into one.
const pointEpsilon = 0.001

// BaseForPlane returns a quad lying on p large enough to cover the world
// out to extent on every axis.
func BaseForPlane(p geom.Plane, extent float32) Winding {
	// project an axis onto the plane to get an up vector
	up := vec.Vec3{Z: 1}
	switch p.Type() % 3 {
	case geom.PlaneZ:
		up = vec.Vec3{X: 1}
	}
	up = vec.Sub(up, p.Normal.Scale(vec.Dot(up, p.Normal)))
	up = up.Normalize().Scale(extent)

	org := p.Normal.Scale(p.Dist)
	right := vec.Cross(up, p.Normal)

	return Winding{
		vec.Add(vec.Sub(org, right), up),
		vec.Add(vec.Add(org, right), up),
		vec.Sub(vec.Add(org, right), up),
		vec.Sub(vec.Sub(org, right), up),
	}
}

func (w Winding) Copy() Winding {
	if w == nil {
		return nil
	}
	c := make(Winding, len(w))
	copy(c, w)
	return c
}

// Plane derives the plane the winding lies on, oriented to face the
// winding's front.
func (w Winding) Plane() geom.Plane {
	a := vec.Sub(w[2], w[0])
	b := vec.Sub(w[1], w[0])
	n := vec.Cross(a, b)
	normal := n.Normalize()
	return geom.Plane{
		Normal: normal,
		Dist:   vec.DoublePrecDot(normal, w[0]),
	}
}

// Area returns the polygon area.
func (w Winding) Area() float32 {
	var total float32
	for i := 2; i < len(w); i++ {
		d1 := vec.Sub(w[i-1], w[0])
		d2 := vec.Sub(w[i], w[0])
		c := vec.Cross(d1, d2)
		total += 0.5 * c.Length()
	}
	return total
}

// Center returns the average of all points.
func (w Winding) Center() vec.Vec3 {
	var c vec.Vec3
	for _, p := range w {
		c = vec.Add(c, p)
	}
	return c.Scale(1 / float32(len(w)))
}

func (w Winding) Bounds() geom.Bounds {
	b := geom.EmptyBounds()
	for _, p := range w {
		b.AddPoint(p)
	}
	return b
}

// IsTiny reports whether the winding is a sliver: fewer than 3 of its
// edges are longer than size.
func (w Winding) IsTiny(size float32) bool {
	edges := 0
	for i := range w {
		d := vec.Dist(w[i], w[(i+1)%len(w)])
		if d > size {
			edges++
			if edges == 3 {
				return false
			}
		}
	}
	return true
}

// Clip splits the winding by plane split. Points farther than epsilon in
// front go to the front fragment, farther behind to the back fragment,
// points within epsilon go to both. A winding lying entirely within
// epsilon of the plane is kept on the front side if keepOn is set and
// discarded otherwise. An absent fragment is nil.
func (w Winding) Clip(split geom.Plane, epsilon float32, keepOn bool) (Winding, Winding) {
	const (
		sideFront = 0
		sideBack  = 1
		sideOn    = 2
	)

	n := len(w)
	dists := make([]float32, n+1)
	sides := make([]uint8, n+1)
	var counts [3]int

	for i := range w {
		d := split.Distance(w[i])
		dists[i] = d
		switch {
		case d > epsilon:
			sides[i] = sideFront
		case d < -epsilon:
			sides[i] = sideBack
		default:
			sides[i] = sideOn
		}
		counts[sides[i]]++
	}
	sides[n] = sides[0]
	dists[n] = dists[0]

	if counts[sideFront] == 0 && counts[sideBack] == 0 {
		// entirely on the plane
		if keepOn {
			return w, nil
		}
		return nil, nil
	}
	if counts[sideFront] == 0 {
		return nil, w
	}
	if counts[sideBack] == 0 {
		return w, nil
	}

	front := make(Winding, 0, n+4)
	back := make(Winding, 0, n+4)

	for i := range w {
		p1 := w[i]

		switch sides[i] {
		case sideOn:
			front = append(front, p1)
			back = append(back, p1)
			continue
		case sideFront:
			front = append(front, p1)
		case sideBack:
			back = append(back, p1)
		}

		if sides[i+1] == sideOn || sides[i+1] == sides[i] {
			continue
		}

		// generate the split point
		p2 := w[(i+1)%n]
		dot := float64(dists[i]) / (float64(dists[i]) - float64(dists[i+1]))
		var mid vec.Vec3
		for j := 0; j < 3; j++ {
			// avoid roundoff on axial planes
			switch {
			case split.Normal.Idx(j) == 1:
				mid.SetIdx(j, split.Dist)
			case split.Normal.Idx(j) == -1:
				mid.SetIdx(j, -split.Dist)
			default:
				a := float64(p1.Idx(j))
				b := float64(p2.Idx(j))
				mid.SetIdx(j, float32(a+dot*(b-a)))
			}
		}
		front = append(front, mid)
		back = append(back, mid)
	}

	return front.compact(), back.compact()
}

// compact drops successive near identical points and turns degenerate
// results into absent ones.
func (w Winding) compact() Winding {
	out := w[:0]
	for _, p := range w {
		if len(out) > 0 && vec.EpsilonEqual(out[len(out)-1], p, pointEpsilon) {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && vec.EpsilonEqual(out[0], out[len(out)-1], pointEpsilon) {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil
	}
	return out
}
