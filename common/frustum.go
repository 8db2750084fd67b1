package common

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// SignedDistance returns the distance of p above the plane.
func (p Plane) SignedDistance(v Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj Mat4) Frustum {
	var f Frustum

	// row r of the column-major matrix is (m[r], m[4+r], m[8+r], m[12+r])
	row := func(r int) Vec4 {
		return Vec4{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(i int, v Vec4) {
		f.Planes[i] = Plane{Normal: v.XYZ(), Distance: v[3]}
	}
	set(FrustumLeft, r3.Add(r0))
	set(FrustumRight, r3.Add(r0.Scale(-1)))
	set(FrustumBottom, r3.Add(r1))
	set(FrustumTop, r3.Add(r1.Scale(-1)))
	// WebGPU depth is [0, 1], so the near plane is row2 alone.
	set(FrustumNear, r2)
	set(FrustumFar, r3.Add(r2.Scale(-1)))

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := p.Normal.Length()
	if length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Scale(invLen)
		p.Distance *= invLen
	}
}

// IntersectsAABB reports whether the box is at least partially inside the frustum.
// An infinite far plane (zero normal) never rejects.
func (f *Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f.Planes {
		if p.Normal == (Vec3{}) {
			continue
		}
		// positive vertex along the plane normal
		v := b.Min
		for i := 0; i < 3; i++ {
			if p.Normal[i] >= 0 {
				v[i] = b.Max[i]
			}
		}
		if p.SignedDistance(v) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether the sphere is at least partially inside the frustum.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	for _, p := range f.Planes {
		if p.Normal == (Vec3{}) {
			continue
		}
		if p.SignedDistance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}
