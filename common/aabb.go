package common

import (
	"github.com/chewxy/math32"
)

// AABB is an axis-aligned bounding box with a layer mask used for filtering.
// The zero value is not empty; use EmptyAABB for a box that any Merge replaces.
type AABB struct {
	Min       Vec3   `yaml:"min"`
	Max       Vec3   `yaml:"max"`
	LayerMask uint32 `yaml:"layer_mask"`
	UserData  uint32 `yaml:"user_data"`
}

// EmptyAABB returns an inverted box that acts as the identity for Merge.
func EmptyAABB() AABB {
	return AABB{
		Min:       Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max:       Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
		LayerMask: ^uint32(0),
	}
}

// InfiniteAABB returns a box covering all of space, used for directional lights.
func InfiniteAABB() AABB {
	return AABB{
		Min:       Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
		Max:       Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		LayerMask: ^uint32(0),
	}
}

// AABBFromHalfWidth builds a box centered on center extending halfWidth along each axis.
func AABBFromHalfWidth(center, halfWidth Vec3) AABB {
	return AABB{
		Min:       center.Sub(halfWidth),
		Max:       center.Add(halfWidth),
		LayerMask: ^uint32(0),
	}
}

// MergeAABB returns the smallest box containing both a and b. The layer mask of a is kept.
func MergeAABB(a, b AABB) AABB {
	return AABB{
		Min:       a.Min.Min(b.Min),
		Max:       a.Max.Max(b.Max),
		LayerMask: a.LayerMask,
		UserData:  a.UserData,
	}
}

// AddPoint grows the box to contain p.
func (b *AABB) AddPoint(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// IsValid reports whether Min <= Max on every axis.
func (b AABB) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b AABB) HalfWidth() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Radius returns the radius of the sphere enclosing the box.
func (b AABB) Radius() float32 {
	return b.HalfWidth().Length()
}

// Corner returns one of the eight corners, selected by the low three bits of i.
func (b AABB) Corner(i int) Vec3 {
	c := b.Min
	if i&1 != 0 {
		c[0] = b.Max[0]
	}
	if i&2 != 0 {
		c[1] = b.Max[1]
	}
	if i&4 != 0 {
		c[2] = b.Max[2]
	}
	return c
}

// Transform returns the axis-aligned box enclosing the eight transformed corners of b.
func (b AABB) Transform(m Mat4) AABB {
	out := EmptyAABB()
	out.LayerMask = b.LayerMask
	out.UserData = b.UserData
	for i := 0; i < 8; i++ {
		out.AddPoint(m.TransformPoint(b.Corner(i)))
	}
	return out
}

// IntersectsAABB reports whether the boxes overlap.
func (b AABB) IntersectsAABB(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// IntersectsPoint reports whether p lies inside the box.
func (b AABB) IntersectsPoint(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// IntersectsRay performs a slab test of r against the box within [r.TMin, r.TMax].
func (b AABB) IntersectsRay(r Ray) bool {
	if b.IntersectsPoint(r.Origin) {
		return true
	}
	tmin, tmax := r.TMin, r.TMax
	for i := 0; i < 3; i++ {
		t1 := (b.Min[i] - r.Origin[i]) * r.DirectionInverse[i]
		t2 := (b.Max[i] - r.Origin[i]) * r.DirectionInverse[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}
	return tmax >= tmin
}

// IntersectsSphere reports whether the sphere touches the box.
func (b AABB) IntersectsSphere(s Sphere) bool {
	closest := s.Center.Max(b.Min).Min(b.Max)
	return closest.Sub(s.Center).LengthSq() <= s.Radius*s.Radius
}
