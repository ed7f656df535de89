// SPDX-License-Identifier: GPL-2.0-or-later

package geom

import (
	"github.com/chewxy/math32"

	"gobsp/math/vec"
)

type PlaneType uint8

const (
	PlaneX PlaneType = iota
	PlaneY
	PlaneZ
	PlaneAnyX
	PlaneAnyY
	PlaneAnyZ
)

const (
	NormalEpsilon = 0.00001
	DistEpsilon   = 0.0001
)

// Plane is a unit normal plus the signed distance from the origin.
type Plane struct {
	Normal vec.Vec3
	Dist   float32
}

// Type classifies the plane by its dominant normal axis. Axis aligned
// planes get the exact types, all others the Any types.
func (p *Plane) Type() PlaneType {
	ax, ay, az := math32.Abs(p.Normal.X), math32.Abs(p.Normal.Y), math32.Abs(p.Normal.Z)
	if ax >= ay && ax >= az {
		if ax == 1 {
			return PlaneX
		}
		return PlaneAnyX
	}
	if ay >= ax && ay >= az {
		if ay == 1 {
			return PlaneY
		}
		return PlaneAnyY
	}
	if az == 1 {
		return PlaneZ
	}
	return PlaneAnyZ
}

// Inverse returns the plane facing the opposite direction.
func (p Plane) Inverse() Plane {
	return Plane{
		Normal: vec.Neg(p.Normal),
		Dist:   -p.Dist,
	}
}

// Distance returns the signed distance of pt from the plane.
func (p *Plane) Distance(pt vec.Vec3) float32 {
	return vec.DoublePrecDot(p.Normal, pt) - p.Dist
}

func (p *Plane) Equal(o Plane) bool {
	return vec.EpsilonEqual(p.Normal, o.Normal, NormalEpsilon) &&
		math32.Abs(p.Dist-o.Dist) <= DistEpsilon
}

// Planes is the shared deduplicated plane table. Every plane is stored
// together with its negated twin in an adjacent slot; the slot holding the
// positive orientation (dominant normal axis component > 0) always comes
// first, so Twin is just an index flip.
type Planes struct {
	planes []Plane
}

func (ps *Planes) Len() int {
	return len(ps.planes)
}

func (ps *Planes) Get(i int) Plane {
	return ps.planes[i]
}

// Twin returns the index of the negated plane of i.
func Twin(i int) int {
	return i ^ 1
}

// IsFlipped reports whether plane index i holds a negative orientation.
func IsFlipped(i int) bool {
	return i&1 == 1
}

// Add appends p and its twin and returns the index at which p itself was
// stored.
func (ps *Planes) Add(p Plane) int {
	positive, negative := p, p.Inverse()
	at := len(ps.planes)
	if positive.Normal.Idx(int(positive.Type())%3) < 0 {
		ps.planes = append(ps.planes, negative, positive)
		return at + 1
	}
	ps.planes = append(ps.planes, positive, negative)
	return at
}

// FindOrAdd returns the index of a stored plane equal to p, adding it if
// it is not present yet.
func (ps *Planes) FindOrAdd(p Plane) int {
	for i := range ps.planes {
		if ps.planes[i].Equal(p) {
			return i
		}
	}
	return ps.Add(p)
}
