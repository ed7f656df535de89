package vec

import (
	"github.com/chewxy/math32"
)

type Vec3 struct {
	X, Y, Z float32
}

func (v *Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func (v *Vec3) Idx(i int) float32 {
	switch i {
	default:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
}

func (v *Vec3) SetIdx(i int, f float32) {
	switch i {
	default:
		v.X = f
	case 1:
		v.Y = f
	case 2:
		v.Z = f
	}
}

// Length returns the length of the vector
func (v *Vec3) Length() float32 {
	return math32.Sqrt(Dot(*v, *v))
}

// Add returns a + b
func Add(a, b Vec3) Vec3 {
	return Vec3{
		X: a.X + b.X,
		Y: a.Y + b.Y,
		Z: a.Z + b.Z,
	}
}

// Sub returns a - b
func Sub(a, b Vec3) Vec3 {
	return Vec3{
		X: a.X - b.X,
		Y: a.Y - b.Y,
		Z: a.Z - b.Z,
	}
}

// Neg returns -v
func Neg(v Vec3) Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Scale returns the vector multiplied by the skalar s
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{
		X: v.X * s,
		Y: v.Y * s,
		Z: v.Z * s,
	}
}

// Normalize returns the normalized vector
func (v *Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// NormalizeLength returns the normalized vector and its original length
func (v *Vec3) NormalizeLength() (Vec3, float32) {
	l := v.Length()
	if l == 0 {
		return Vec3{}, 0
	}
	return v.Scale(1 / l), l
}

// Dot returns a dot b
func Dot(a Vec3, b Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// DoublePrecDot return a dot b calculated in double precision
func DoublePrecDot(a Vec3, b Vec3) float32 {
	p := func(x, y float32) float64 {
		return float64(x) * float64(y)
	}
	return float32(p(a.X, b.X) + p(a.Y, b.Y) + p(a.Z, b.Z))
}

// Cross returns a cross b
func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Dist returns the distance between the points a and b
func Dist(a, b Vec3) float32 {
	d := Sub(b, a)
	return d.Length()
}

// Equal returns a == b
func Equal(a Vec3, b Vec3) bool {
	return a.X == b.X && a.Y == b.Y && a.Z == b.Z
}

// EpsilonEqual returns whether a and b agree per component within eps
func EpsilonEqual(a, b Vec3, eps float32) bool {
	return math32.Abs(a.X-b.X) <= eps &&
		math32.Abs(a.Y-b.Y) <= eps &&
		math32.Abs(a.Z-b.Z) <= eps
}

// TangentAndBitangent returns two unit vectors spanning the plane
// perpendicular to n. n does not need to be normalized.
func TangentAndBitangent(n Vec3) (Vec3, Vec3) {
	// pick the smallest magnitude axis to cross against
	ax := 0
	am := math32.Abs(n.X)
	if m := math32.Abs(n.Y); m < am {
		ax, am = 1, m
	}
	if m := math32.Abs(n.Z); m < am {
		ax = 2
	}
	var axis Vec3
	axis.SetIdx(ax, 1)
	t := Cross(n, axis)
	u := t.Normalize()
	b := Cross(n, u)
	return u, b.Normalize()
}
