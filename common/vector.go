package common

import (
	"github.com/chewxy/math32"
)

// Vec2 is a two component float32 vector.
type Vec2 [2]float32

// Vec3 is a three component float32 vector.
type Vec3 [3]float32

// Vec4 is a four component float32 vector.
type Vec4 [4]float32

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Mul(b Vec3) Vec3 { return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]} }
func (a Vec3) Scale(s float32) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}
func (a Vec3) Negate() Vec3 { return Vec3{-a[0], -a[1], -a[2]} }
func (a Vec3) Dot(b Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec3) LengthSq() float32 { return a.Dot(a) }
func (a Vec3) Length() float32 { return math32.Sqrt(a.Dot(a)) }
func (a Vec3) Distance(b Vec3) float32 {
	return a.Sub(b).Length()
}

// Cross returns the cross product a x b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Normalize returns a unit-length copy of a, or a itself when it has zero length.
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])}
}

func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])}
}

// Lerp interpolates componentwise from a to b.
func (a Vec3) Lerp(b Vec3, t float32) Vec3 {
	return Vec3{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t), Lerp(a[2], b[2], t)}
}

// MaxComponent returns the largest of the three components.
func (a Vec3) MaxComponent() float32 {
	return math32.Max(a[0], math32.Max(a[1], a[2]))
}

func (a Vec4) Add(b Vec4) Vec4 {
	return Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}
func (a Vec4) Scale(s float32) Vec4 {
	return Vec4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}
func (a Vec4) Dot(b Vec4) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3] }

// Lerp interpolates componentwise from a to b.
func (a Vec4) Lerp(b Vec4, t float32) Vec4 {
	return Vec4{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t), Lerp(a[2], b[2], t), Lerp(a[3], b[3], t)}
}

// XYZ drops the fourth component.
func (a Vec4) XYZ() Vec3 { return Vec3{a[0], a[1], a[2]} }

func (a Vec2) Lerp(b Vec2, t float32) Vec2 {
	return Vec2{Lerp(a[0], b[0], t), Lerp(a[1], b[1], t)}
}
