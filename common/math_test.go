package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3InDelta(t *testing.T, want, got Vec3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v vs %v", i, want, got)
	}
}

func TestComposeDecompose(t *testing.T) {
	s := Vec3{2, 3, 4}
	r := QuatFromAxisAngle(Vec3{0, 1, 0}.Normalize(), math32.Pi/3)
	tr := Vec3{1, -2, 5}

	m := Compose(s, r, tr)
	gs, gr, gt := m.Decompose()

	assertVec3InDelta(t, s, gs, 1e-5)
	assertVec3InDelta(t, tr, gt, 1e-6)
	assert.InDelta(t, 1, math32.Abs(gr.Dot(r)), 1e-5)
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := Compose(Vec3{1, 2, 1}, QuatFromAxisAngle(Vec3{1, 0, 0}, 0.7), Vec3{3, 4, 5})
	p := Vec3{0.5, -1, 2}

	back := m.Inverse().TransformPoint(m.TransformPoint(p))
	assertVec3InDelta(t, p, back, 1e-5)
}

func TestMulAppliesRightOperandFirst(t *testing.T) {
	translate := Mat4Translation(Vec3{10, 0, 0})
	scale := Mat4Scaling(Vec3{2, 2, 2})

	// scale then translate
	got := translate.Mul(scale).TransformPoint(Vec3{1, 0, 0})
	assertVec3InDelta(t, Vec3{12, 0, 0}, got, 0)
}

func TestQuatRotateAndSlerp(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2)
	assertVec3InDelta(t, Vec3{0, 1, 0}, q.Rotate(Vec3{1, 0, 0}), 1e-6)

	half := QuatIdentity().Slerp(q, 0.5).Normalize()
	assertVec3InDelta(t, Vec3{math32.Sqrt(0.5), math32.Sqrt(0.5), 0}, half.Rotate(Vec3{1, 0, 0}), 1e-5)

	assert.Equal(t, QuatIdentity(), QuatIdentity().Slerp(q, 0))
}

func TestAABBMergeAndTransform(t *testing.T) {
	a := AABBFromHalfWidth(Vec3{0, 0, 0}, Vec3{1, 1, 1})
	b := AABBFromHalfWidth(Vec3{5, 0, 0}, Vec3{1, 1, 1})

	m := MergeAABB(a, b)
	assert.Equal(t, Vec3{-1, -1, -1}, m.Min)
	assert.Equal(t, Vec3{6, 1, 1}, m.Max)
	assert.Equal(t, a, MergeAABB(EmptyAABB(), a))

	moved := a.Transform(Mat4Translation(Vec3{0, 10, 0}))
	assert.Equal(t, Vec3{-1, 9, -1}, moved.Min)
	assert.Equal(t, Vec3{1, 11, 1}, moved.Max)
	assert.False(t, EmptyAABB().IsValid())
}

func TestRayTests(t *testing.T) {
	r := NewRay(Vec3{0, 0, -5}, Vec3{0, 0, 1})
	box := AABBFromHalfWidth(Vec3{}, Vec3{1, 1, 1})
	assert.True(t, box.IntersectsRay(r))
	assert.False(t, box.IntersectsRay(NewRay(Vec3{0, 3, -5}, Vec3{0, 0, 1})))

	dist, bary, ok := RayTriangleIntersects(r, Vec3{-1, -1, 0}, Vec3{1, -1, 0}, Vec3{0, 1, 0})
	require.True(t, ok)
	assert.InDelta(t, 5, dist, 1e-6)
	assert.InDelta(t, 0.25, bary[0], 1e-6)
	assert.InDelta(t, 0.5, bary[1], 1e-6)
}

func TestSphereCapsule(t *testing.T) {
	s := Sphere{Center: Vec3{0, 1.5, 0}, Radius: 1}
	dist, dir, hit := s.IntersectsCapsule(Capsule{Base: Vec3{-5, 0, 0}, Tip: Vec3{5, 0, 0}, Radius: 1})
	assert.True(t, hit)
	assert.InDelta(t, -0.5, dist, 1e-6)
	assertVec3InDelta(t, Vec3{0, 1, 0}, dir, 1e-6)
}

func TestFrustumCulling(t *testing.T) {
	var proj, view Mat4
	Perspective(proj[:], math32.Pi/2, 1, 0.1, 100)
	LookAt(view[:], Vec3{0, 0, 0}, Vec3{0, 0, -1}, Vec3{0, 1, 0})
	f := ExtractFrustumFromMatrix(proj.Mul(view))

	assert.True(t, f.IntersectsAABB(AABBFromHalfWidth(Vec3{0, 0, -10}, Vec3{1, 1, 1})))
	assert.False(t, f.IntersectsAABB(AABBFromHalfWidth(Vec3{0, 0, 10}, Vec3{1, 1, 1})))
	assert.False(t, f.IntersectsSphere(Sphere{Center: Vec3{0, 0, -500}, Radius: 1}))
}

func TestPacking(t *testing.T) {
	assert.Equal(t, uint32(0xff0000ff), PackUnorm4x8(Vec4{1, 0, 0, 1}))
	assert.Equal(t, uint16(0x3c00), Float32ToHalf(1))
	assert.Equal(t, uint64(256), AlignTo(200, 256))
	assert.Equal(t, uint64(512), AlignTo(512, 256))
	assert.Equal(t, uint32(0x3c0|0x3c0<<11|0x1e0<<22), PackR11G11B10Float(Vec3{1, 1, 1}))
	assert.Equal(t, uint32(0), PackR11G11B10Float(Vec3{-1, -2, -3}))
	assert.Equal(t, uint32(1), NextPowerOfTwo(0))
	assert.Equal(t, uint32(64), NextPowerOfTwo(33))
	assert.Equal(t, uint32(64), NextPowerOfTwo(64))
}

func TestQuatBetweenAndRollPitchYaw(t *testing.T) {
	q := QuatBetween(Vec3{1, 0, 0}, Vec3{0, 1, 0})
	assertVec3InDelta(t, Vec3{0, 1, 0}, q.Rotate(Vec3{1, 0, 0}), 1e-6)
	assert.Equal(t, QuatIdentity(), QuatBetween(Vec3{0, 0, 1}, Vec3{0, 0, 1}))

	yaw := QuatFromRollPitchYaw(0, math32.Pi/2, 0)
	assertVec3InDelta(t, Vec3{1, 0, 0}, yaw.Rotate(Vec3{0, 0, 1}), 1e-6)
	back := yaw.Conjugate().Rotate(yaw.Rotate(Vec3{0.3, 0.2, 0.1}))
	assertVec3InDelta(t, Vec3{0.3, 0.2, 0.1}, back, 1e-6)
}

func TestClosestPointOnTriangle(t *testing.T) {
	a, b, c := Vec3{0, 0, 0}, Vec3{2, 0, 0}, Vec3{0, 2, 0}
	assertVec3InDelta(t, Vec3{0.5, 0.5, 0}, ClosestPointOnTriangle(Vec3{0.5, 0.5, 3}, a, b, c), 1e-6)
	assertVec3InDelta(t, a, ClosestPointOnTriangle(Vec3{-1, -1, 0}, a, b, c), 1e-6)
	assertVec3InDelta(t, Vec3{1, 1, 0}, ClosestPointOnTriangle(Vec3{3, 3, 0}, a, b, c), 1e-6)
}
