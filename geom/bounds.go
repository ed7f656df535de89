package geom

import (
	"github.com/chewxy/math32"

	"gobsp/math/vec"
)

// Bounds is an axis aligned bounding box.
type Bounds struct {
	Mins, Maxs vec.Vec3
}

// EmptyBounds returns an inverted box that contains nothing.
func EmptyBounds() Bounds {
	return Bounds{
		Mins: vec.Vec3{X: math32.MaxFloat32, Y: math32.MaxFloat32, Z: math32.MaxFloat32},
		Maxs: vec.Vec3{X: -math32.MaxFloat32, Y: -math32.MaxFloat32, Z: -math32.MaxFloat32},
	}
}

func (b *Bounds) AddPoint(p vec.Vec3) {
	b.Mins.X = math32.Min(b.Mins.X, p.X)
	b.Mins.Y = math32.Min(b.Mins.Y, p.Y)
	b.Mins.Z = math32.Min(b.Mins.Z, p.Z)
	b.Maxs.X = math32.Max(b.Maxs.X, p.X)
	b.Maxs.Y = math32.Max(b.Maxs.Y, p.Y)
	b.Maxs.Z = math32.Max(b.Maxs.Z, p.Z)
}

// Grow pads the box by d on all sides.
func (b Bounds) Grow(d float32) Bounds {
	return Bounds{
		Mins: vec.Sub(b.Mins, vec.Vec3{X: d, Y: d, Z: d}),
		Maxs: vec.Add(b.Maxs, vec.Vec3{X: d, Y: d, Z: d}),
	}
}

func (b *Bounds) ContainsPoint(p vec.Vec3) bool {
	return p.X >= b.Mins.X && p.X <= b.Maxs.X &&
		p.Y >= b.Mins.Y && p.Y <= b.Maxs.Y &&
		p.Z >= b.Mins.Z && p.Z <= b.Maxs.Z
}

// Disjoint reports whether b and o do not overlap, allowing eps of slack.
func (b *Bounds) Disjoint(o Bounds, eps float32) bool {
	return b.Mins.X > o.Maxs.X+eps || b.Maxs.X < o.Mins.X-eps ||
		b.Mins.Y > o.Maxs.Y+eps || b.Maxs.Y < o.Mins.Y-eps ||
		b.Mins.Z > o.Maxs.Z+eps || b.Maxs.Z < o.Mins.Z-eps
}

// Degenerate reports whether the box has no volume on some axis.
func (b *Bounds) Degenerate() bool {
	return b.Mins.X >= b.Maxs.X || b.Mins.Y >= b.Maxs.Y || b.Mins.Z >= b.Maxs.Z
}
