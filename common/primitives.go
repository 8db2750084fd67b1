package common

import (
	"github.com/chewxy/math32"
)

// Ray is a half-line with a cached reciprocal direction for slab tests.
type Ray struct {
	Origin           Vec3
	Direction        Vec3
	DirectionInverse Vec3
	TMin             float32
	TMax             float32
}

// NewRay builds a ray from an origin and a direction; the direction is used as given.
//
// Parameters:
//   - origin: ray start point
//   - direction: ray direction, normally unit length
//
// Returns:
//   - Ray: the ray with TMin 0 and TMax MaxFloat32
func NewRay(origin, direction Vec3) Ray {
	r := Ray{Origin: origin, Direction: direction, TMax: math32.MaxFloat32}
	for i := 0; i < 3; i++ {
		if direction[i] != 0 {
			r.DirectionInverse[i] = 1 / direction[i]
		} else {
			r.DirectionInverse[i] = math32.MaxFloat32
		}
	}
	return r
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3    `yaml:"center"`
	Radius float32 `yaml:"radius"`
}

// Capsule is a swept sphere between Base and Tip.
type Capsule struct {
	Base   Vec3    `yaml:"base"`
	Tip    Vec3    `yaml:"tip"`
	Radius float32 `yaml:"radius"`
}

// AABB returns the box enclosing the capsule.
func (c Capsule) AABB() AABB {
	r := Vec3{c.Radius, c.Radius, c.Radius}
	a := AABBFromHalfWidth(c.Base, r)
	b := AABBFromHalfWidth(c.Tip, r)
	return MergeAABB(a, b)
}

// ClosestPointOnLineSegment returns the point on segment ab nearest to p.
func ClosestPointOnLineSegment(a, b, p Vec3) Vec3 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom == 0 {
		return a
	}
	t := Saturate(p.Sub(a).Dot(ab) / denom)
	return a.Add(ab.Scale(t))
}

// IntersectsSphere tests two spheres.
//
// Parameters:
//   - o: the other sphere
//
// Returns:
//   - float32: signed separation, negative when penetrating
//   - Vec3: unit direction pointing from o toward s
//   - bool: true when the spheres overlap
func (s Sphere) IntersectsSphere(o Sphere) (float32, Vec3, bool) {
	dir := s.Center.Sub(o.Center)
	length := dir.Length()
	if length > 0 {
		dir = dir.Scale(1 / length)
	}
	dist := length - s.Radius - o.Radius
	return dist, dir, dist < 0
}

// IntersectsCapsule tests the sphere against the capsule's nearest segment point.
//
// Returns:
//   - float32: signed separation, negative when penetrating
//   - Vec3: unit direction pointing from the capsule toward s
//   - bool: true when they overlap
func (s Sphere) IntersectsCapsule(c Capsule) (float32, Vec3, bool) {
	p := ClosestPointOnLineSegment(c.Base, c.Tip, s.Center)
	return s.IntersectsSphere(Sphere{Center: p, Radius: c.Radius})
}

// IntersectsRay reports whether r hits the sphere within its range.
func (s Sphere) IntersectsRay(r Ray) bool {
	oc := r.Origin.Sub(s.Center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius
	if c > 0 && b > 0 {
		return false
	}
	return b*b-c >= 0
}

// RayTriangleIntersects runs the Moller-Trumbore test against triangle p0 p1 p2.
// Both faces are considered.
//
// Parameters:
//   - r: the ray, its TMin/TMax bound the accepted distance
//   - p0, p1, p2: triangle vertices
//
// Returns:
//   - float32: distance along the ray
//   - Vec2: barycentrics of p1 and p2
//   - bool: true on hit
func RayTriangleIntersects(r Ray, p0, p1, p2 Vec3) (float32, Vec2, bool) {
	const epsilon = 1e-7
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	pv := r.Direction.Cross(e2)
	det := e1.Dot(pv)
	if math32.Abs(det) < epsilon {
		return 0, Vec2{}, false
	}
	inv := 1 / det
	tv := r.Origin.Sub(p0)
	u := tv.Dot(pv) * inv
	if u < 0 || u > 1 {
		return 0, Vec2{}, false
	}
	qv := tv.Cross(e1)
	v := r.Direction.Dot(qv) * inv
	if v < 0 || u+v > 1 {
		return 0, Vec2{}, false
	}
	t := e2.Dot(qv) * inv
	if t < r.TMin || t > r.TMax {
		return 0, Vec2{}, false
	}
	return t, Vec2{u, v}, true
}

// ClosestPointOnTriangle returns the point of triangle abc nearest to p.
func ClosestPointOnTriangle(p, a, b, c Vec3) Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Scale(d1 / (d1 - d3)))
	}
	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Scale(d2 / (d2 - d6)))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return b.Add(c.Sub(b).Scale((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}
	denom := 1 / (va + vb + vc)
	return a.Add(ab.Scale(vb * denom)).Add(ac.Scale(vc * denom))
}
