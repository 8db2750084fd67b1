package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoCubes places cubes centered at z=5 and z=10 and runs one update so their bounds exist.
func twoCubes(t *testing.T) (Scene, ecs.Entity, ecs.Entity) {
	s := newTestScene(t)
	near := s.Entity_CreateCube("near")
	far := s.Entity_CreateCube("far")
	placeTransform(s, near, common.Vec3{0, 0, 5}, common.QuatIdentity())
	placeTransform(s, far, common.Vec3{0, 0, 10}, common.QuatIdentity())
	s.Update(1.0 / 60)
	return s, near, far
}

func TestPickReturnsNearestHit(t *testing.T) {
	s, near, _ := twoCubes(t)

	hit := s.Pick(common.NewRay(common.Vec3{}, common.Vec3{0, 0, 1}), RenderTypeAll, ^uint32(0))

	require.Equal(t, near, hit.Entity)
	assert.InDelta(t, 4, hit.Distance, 1e-5)
	assertVec3InDelta(t, common.Vec3{0, 0, 4}, hit.Position, 1e-5)
	assertVec3InDelta(t, common.Vec3{0, 0, -1}, hit.Normal, 1e-5)
	assert.GreaterOrEqual(t, hit.SubsetIndex, 0)
	assertVec3InDelta(t, hit.Position, hit.Orientation.Translation(), 1e-6)
}

func TestPickHonorsLayerMask(t *testing.T) {
	s, near, far := twoCubes(t)
	s.Layers().Get(near).LayerMask = 1 << 1
	s.Update(1.0 / 60)

	hit := s.Pick(common.NewRay(common.Vec3{}, common.Vec3{0, 0, 1}), RenderTypeAll, 1)

	require.Equal(t, far, hit.Entity)
	assert.InDelta(t, 9, hit.Distance, 1e-5)
}

func TestPickMiss(t *testing.T) {
	s, _, _ := twoCubes(t)

	hit := s.Pick(common.NewRay(common.Vec3{}, common.Vec3{0, 1, 0}), RenderTypeAll, ^uint32(0))

	assert.Equal(t, ecs.InvalidEntity, hit.Entity)
	assert.Equal(t, -1, hit.SubsetIndex)
}

func TestPickScaledAndRotatedObject(t *testing.T) {
	s := newTestScene(t)
	box := s.Entity_CreateCube("box")
	placeTransform(s, box, common.Vec3{6, 0, 0}, common.QuatFromAxisAngle(common.Vec3{0, 1, 0}, 0.5))
	s.Transforms().Get(box).Scale(common.Vec3{2, 2, 2})
	s.Update(1.0 / 60)

	hit := s.Pick(common.NewRay(common.Vec3{6, 10, 0}, common.Vec3{0, -1, 0}), RenderTypeAll, ^uint32(0))

	require.Equal(t, box, hit.Entity)
	assert.InDelta(t, 8, hit.Distance, 1e-4)
	assertVec3InDelta(t, common.Vec3{0, 1, 0}, hit.Normal, 1e-4)
}

func TestIntersectSphereReportsDepth(t *testing.T) {
	s, near, _ := twoCubes(t)

	hit := s.IntersectSphere(common.Sphere{Center: common.Vec3{0, 0, 3.8}, Radius: 0.5}, RenderTypeAll, ^uint32(0))

	require.Equal(t, near, hit.Entity)
	assert.InDelta(t, 0.3, hit.Depth, 1e-5)
	assertVec3InDelta(t, common.Vec3{0, 0, 4}, hit.Position, 1e-5)
	assertVec3InDelta(t, common.Vec3{0, 0, -1}, hit.Normal, 1e-5)

	miss := s.IntersectSphere(common.Sphere{Center: common.Vec3{0, 0, 2}, Radius: 0.5}, RenderTypeAll, ^uint32(0))
	assert.Equal(t, ecs.InvalidEntity, miss.Entity)
}

func TestIntersectCapsuleReportsDepth(t *testing.T) {
	s, near, _ := twoCubes(t)

	capsule := common.Capsule{Base: common.Vec3{0, 0, 2}, Tip: common.Vec3{0, 0, 3.9}, Radius: 0.5}
	hit := s.IntersectCapsule(capsule, RenderTypeAll, ^uint32(0))

	require.Equal(t, near, hit.Entity)
	assert.InDelta(t, 0.4, hit.Depth, 1e-5)
	assertVec3InDelta(t, common.Vec3{0, 0, -1}, hit.Normal, 1e-5)
}
