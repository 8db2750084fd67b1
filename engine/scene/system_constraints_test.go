package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInverseKinematicsReachesTarget(t *testing.T) {
	s := newTestScene(t)

	shoulder := s.Entity_CreateTransform("shoulder")
	hand := s.Entity_CreateTransform("hand")
	target := s.Entity_CreateTransform("target")
	placeTransform(s, hand, common.Vec3{1, 0, 0}, common.QuatIdentity())
	placeTransform(s, target, common.Vec3{0, 1, 0}, common.QuatIdentity())
	s.Component_Attach(hand, shoulder, true)
	s.InverseKinematics().Create(hand).Target = target

	s.Update(1.0 / 60)

	got := s.Transforms().Get(hand).GetPosition()
	assert.Less(t, got.Distance(common.Vec3{0, 1, 0}), float32(1e-3))
	assert.InDelta(t, 1, got.Length(), 1e-4)
	assert.Equal(t, common.Vec3{}, s.Transforms().Get(shoulder).TranslationLocal)
}

func TestDisabledInverseKinematicsLeavesChain(t *testing.T) {
	s := newTestScene(t)

	shoulder := s.Entity_CreateTransform("shoulder")
	hand := s.Entity_CreateTransform("hand")
	target := s.Entity_CreateTransform("target")
	placeTransform(s, hand, common.Vec3{1, 0, 0}, common.QuatIdentity())
	placeTransform(s, target, common.Vec3{0, 1, 0}, common.QuatIdentity())
	s.Component_Attach(hand, shoulder, true)
	ik := s.InverseKinematics().Create(hand)
	ik.Target = target
	ik.Disabled = true

	s.Update(1.0 / 60)

	assertVec3InDelta(t, common.Vec3{1, 0, 0}, s.Transforms().Get(hand).GetPosition(), 1e-6)
}

func TestSpringKeepsBoneLength(t *testing.T) {
	s := newTestScene(t)

	bone := s.Entity_CreateTransform("bone")
	tip := s.Entity_CreateTransform("tip")
	placeTransform(s, tip, common.Vec3{0, 1, 0}, common.QuatIdentity())
	s.Component_Attach(tip, bone, true)

	spring := s.Springs().Create(bone)
	spring.GravityDir = common.Vec3{1, 0, 0}
	spring.GravityPower = 3

	for range 30 {
		s.Update(1.0 / 60)
		require.False(t, spring.Resetting)
		assert.InDelta(t, 1, spring.BoneLength, 1e-5)
		assert.InDelta(t, 1, spring.CurrentTail.Length(), 1e-4)
	}
	assert.Greater(t, spring.CurrentTail[0], float32(0.05))
	assertVec3InDelta(t, spring.CurrentTail, s.Transforms().Get(bone).World.TransformPoint(common.Vec3{0, 1, 0}), 1e-3)
}

func TestSpringWaitsForPositiveDelta(t *testing.T) {
	s := newTestScene(t)

	bone := s.Entity_CreateTransform("bone")
	spring := s.Springs().Create(bone)

	s.Update(0)
	assert.True(t, spring.Resetting)

	s.Update(1.0 / 60)
	assert.False(t, spring.Resetting)
	assert.InDelta(t, 1, spring.BoneLength, 1e-6)
}

func TestSpringTailPushedOutOfColliders(t *testing.T) {
	sphere := ColliderComponent{Shape: ColliderSphere, Sphere: common.Sphere{Radius: 1}}
	pushed, hit := collideSpringTail(common.Vec3{0, 0.5, 0}, 0.1, &sphere)
	require.True(t, hit)
	assertVec3InDelta(t, common.Vec3{0, 1.1, 0}, pushed, 1e-5)

	_, hit = collideSpringTail(common.Vec3{0, 2, 0}, 0.1, &sphere)
	assert.False(t, hit)

	plane := ColliderComponent{Shape: ColliderPlane, Radius: 2}
	plane.Plane = ColliderPlaneProxy{
		Normal:     common.Vec3{0, 1, 0},
		Projection: common.Mat4Scaling(common.Vec3{2, 1, 2}).Inverse(),
	}
	pushed, hit = collideSpringTail(common.Vec3{0.5, 0.05, 0.5}, 0.1, &plane)
	require.True(t, hit)
	assertVec3InDelta(t, common.Vec3{0.5, 0.1, 0.5}, pushed, 1e-5)

	_, hit = collideSpringTail(common.Vec3{0.5, -0.2, 0.5}, 0.1, &plane)
	assert.False(t, hit, "farther than the hit radius below the plane")

	_, hit = collideSpringTail(common.Vec3{3, 0.05, 0}, 0.1, &plane)
	assert.False(t, hit, "outside the plane extent")
}

func TestSpringPlaneColliderIsTwoSided(t *testing.T) {
	plane := ColliderComponent{Shape: ColliderPlane, Radius: 2}
	plane.Plane = ColliderPlaneProxy{
		Normal:     common.Vec3{0, 1, 0},
		Projection: common.Mat4Scaling(common.Vec3{2, 1, 2}).Inverse(),
	}

	pushed, hit := collideSpringTail(common.Vec3{0.5, -0.05, 0.5}, 0.1, &plane)
	require.True(t, hit)
	assertVec3InDelta(t, common.Vec3{0.5, -0.1, 0.5}, pushed, 1e-5)
}

func TestSpringPlaneColliderChecksHeightExtent(t *testing.T) {
	plane := ColliderComponent{Shape: ColliderPlane, Radius: 2}
	plane.Plane = ColliderPlaneProxy{
		Normal:     common.Vec3{0, 1, 0},
		Projection: common.Mat4Scaling(common.Vec3{2, 1, 2}).Inverse(),
	}

	_, hit := collideSpringTail(common.Vec3{0.5, 1.2, 0.5}, 1.5, &plane)
	assert.False(t, hit, "above the projected height of the plane")

	pushed, hit := collideSpringTail(common.Vec3{0.5, 0.8, 0.5}, 1.5, &plane)
	require.True(t, hit)
	assertVec3InDelta(t, common.Vec3{0.5, 1.5, 0.5}, pushed, 1e-5)
}

func TestSpringHitRadiusFollowsBoneScale(t *testing.T) {
	s := newTestScene(t)

	bone := s.Entity_CreateTransform("bone")
	s.Transforms().Get(bone).Scale(common.Vec3{2, 2, 2})
	tip := s.Entity_CreateTransform("tip")
	placeTransform(s, tip, common.Vec3{0, 1, 0}, common.QuatIdentity())
	s.Component_Attach(tip, bone, true)
	spring := s.Springs().Create(bone)
	spring.GravityPower = 0
	spring.HitRadius = 0.2

	// 0.5 from the resting tail: only the doubled hit radius reaches it
	ball := s.Entity_CreateTransform("ball")
	placeTransform(s, ball, common.Vec3{0, 2, 0.5}, common.QuatIdentity())
	s.Colliders().Create(ball).Radius = 0.2

	s.Update(1.0 / 60)

	require.InDelta(t, 2, spring.BoneLength, 1e-5)
	assert.Less(t, spring.CurrentTail[2], float32(-0.05))
}

func TestColliderProxiesFollowTransforms(t *testing.T) {
	s := newTestScene(t)

	ball := s.Entity_CreateTransform("ball")
	placeTransform(s, ball, common.Vec3{0, 3, 0}, common.QuatIdentity())
	s.Transforms().Get(ball).Scale(common.Vec3{2, 2, 2})
	c := s.Colliders().Create(ball)
	c.Radius = 0.5

	pill := s.Entity_CreateTransform("pill")
	placeTransform(s, pill, common.Vec3{5, 0, 0}, common.QuatIdentity())
	p := s.Colliders().Create(pill)
	p.Shape = ColliderCapsule
	p.Radius = 0.25
	p.Tail = common.Vec3{0, 2, 0}
	p.Flags = ColliderGPU

	s.Update(1.0 / 60)

	require.Len(t, s.CollidersCPU(), 1)
	require.Len(t, s.CollidersGPU(), 2)
	cpu := s.CollidersCPU()[0]
	assertVec3InDelta(t, common.Vec3{0, 3, 0}, cpu.Sphere.Center, 1e-6)
	assert.InDelta(t, 1, cpu.Sphere.Radius, 1e-6)

	capsule := s.CollidersGPU()[1].Capsule
	assertVec3InDelta(t, common.Vec3{5, 0, 0}, capsule.Base, 1e-6)
	assertVec3InDelta(t, common.Vec3{5, 2, 0}, capsule.Tip, 1e-6)
	assert.InDelta(t, 0.25, capsule.Radius, 1e-6)
}

func TestSpringRestsOnCollider(t *testing.T) {
	s := newTestScene(t)

	bone := s.Entity_CreateTransform("bone")
	tip := s.Entity_CreateTransform("tip")
	placeTransform(s, tip, common.Vec3{0, 1, 0}, common.QuatIdentity())
	s.Component_Attach(tip, bone, true)
	spring := s.Springs().Create(bone)
	spring.GravityDir = common.Vec3{1, 0, 0}
	spring.GravityPower = 20
	spring.HitRadius = 0.1

	wall := s.Entity_CreateTransform("wall")
	placeTransform(s, wall, common.Vec3{1.5, 0, 0}, common.QuatIdentity())
	s.Colliders().Create(wall).Radius = 1

	for range 120 {
		s.Update(1.0 / 60)
		assert.GreaterOrEqual(t, spring.CurrentTail.Distance(common.Vec3{1.5, 0, 0}), float32(1))
	}
}

func TestArmatureSkinningMatrices(t *testing.T) {
	s := newTestScene(t)

	rig := s.Entity_CreateTransform("rig")
	placeTransform(s, rig, common.Vec3{0, 0, 4}, common.QuatIdentity())
	bone := s.Entity_CreateTransform("bone")
	placeTransform(s, bone, common.Vec3{2, 0, 0}, common.QuatIdentity())
	s.Component_Attach(bone, rig, true)

	armature := s.Armatures().Create(rig)
	armature.BoneCollection = append(armature.BoneCollection, bone)
	armature.InverseBindMatrices = append(armature.InverseBindMatrices, common.Mat4Translation(common.Vec3{-2, 0, 0}))

	s.Update(1.0 / 60)

	require.Len(t, armature.BoneData, 1)
	want := NewShaderTransform(common.Mat4Identity())
	for r := range want.Rows {
		for c := range want.Rows[r] {
			assert.InDelta(t, want.Rows[r][c], armature.BoneData[0].Rows[r][c], 1e-6)
		}
	}
	assertVec3InDelta(t, common.Vec3{1, -1, 3}, armature.AABB.Min, 1e-6)
	assertVec3InDelta(t, common.Vec3{3, 1, 5}, armature.AABB.Max, 1e-6)
}

func TestWeatherComponentBecomesActiveWeather(t *testing.T) {
	s := newTestScene(t)

	w := s.Weathers().Create(s.Entity_CreateTransform("sky"))
	w.FogDensity = 0.5
	w.WindDirection = common.Vec3{1, 0, 0}

	s.Update(1.0 / 60)

	assert.InDelta(t, 0.5, s.Weather().FogDensity, 1e-6)
	assert.Equal(t, common.Vec3{1, 0, 0}, s.Weather().WindDirection)
}
