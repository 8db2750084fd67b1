package scene

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	s := NewScene("test", options...)
	t.Cleanup(s.Close)
	return s
}

func assertVec3InDelta(t *testing.T, want, got common.Vec3, delta float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}

// placeTransform moves e to pos and rotates it by q.
func placeTransform(s Scene, e ecs.Entity, pos common.Vec3, q common.Quat) {
	t := s.Transforms().Get(e)
	t.Translate(pos)
	t.Rotate(q)
}

func TestHierarchyComposesParentWorld(t *testing.T) {
	s := newTestScene(t)

	parent := s.Entity_CreateTransform("parent")
	child := s.Entity_CreateTransform("child")
	placeTransform(s, parent, common.Vec3{1, 0, 0}, common.QuatFromAxisAngle(common.Vec3{0, 1, 0}, 0.7))
	placeTransform(s, child, common.Vec3{0, 1, 2}, common.QuatIdentity())
	s.Component_Attach(child, parent, true)

	s.Update(1.0 / 60)

	pt := s.Transforms().Get(parent)
	ct := s.Transforms().Get(child)
	want := pt.World.Mul(ct.LocalMatrix())
	for i := range want {
		assert.InDelta(t, want[i], ct.World[i], 1e-5)
	}
	assertVec3InDelta(t, pt.World.TransformPoint(common.Vec3{0, 1, 2}), ct.GetPosition(), 1e-5)
}

// buildChain creates a root and a chain of descendants with varied local transforms.
func buildChain(s Scene, depth int) []ecs.Entity {
	chain := make([]ecs.Entity, 0, depth)
	for i := range depth {
		e := s.Entity_CreateTransform("link")
		f := float32(i + 1)
		placeTransform(s, e, common.Vec3{f * 0.5, 1, -f * 0.25}, common.QuatFromAxisAngle(common.Vec3{0, 0, 1}, 0.1*f))
		s.Transforms().Get(e).Scale(common.Vec3{1, 1.1, 1})
		if i > 0 {
			s.Component_Attach(e, chain[i-1], true)
		}
		chain = append(chain, e)
	}
	return chain
}

func TestTopDownHierarchyMatchesEdgeWalk(t *testing.T) {
	edge := newTestScene(t)
	topDown := newTestScene(t, WithTopDownHierarchy(true))

	a := buildChain(edge, 6)
	b := buildChain(topDown, 6)
	edge.Update(1.0 / 60)
	topDown.Update(1.0 / 60)

	for i := range a {
		assert.Equal(t, edge.Transforms().Get(a[i]).World, topDown.Transforms().Get(b[i]).World, "link %d", i)
	}
}

func TestTopDownLayerMaskSkipsAncestorsWithoutLayer(t *testing.T) {
	masks := make([]uint32, 0, 2)
	for _, topDown := range []bool{false, true} {
		s := newTestScene(t, WithTopDownHierarchy(topDown))

		root := s.Entity_CreateTransform("root")
		mid := s.Entity_CreateTransform("mid")
		leaf := s.Entity_CreateTransform("leaf")
		s.Layers().Get(root).LayerMask = 0x1
		s.Layers().Remove(mid)
		s.Component_Attach(mid, root, true)
		s.Component_Attach(leaf, mid, true)

		s.Update(1.0 / 60)
		masks = append(masks, s.Layers().Get(leaf).PropagationMask)
	}
	assert.Equal(t, uint32(0x1), masks[0])
	assert.Equal(t, masks[0], masks[1])
}

func TestAttachOutOfOrderKeepsParentsFirst(t *testing.T) {
	s := newTestScene(t, WithTopDownHierarchy(true))

	grandchild := s.Entity_CreateTransform("grandchild")
	child := s.Entity_CreateTransform("child")
	root := s.Entity_CreateTransform("root")
	placeTransform(s, root, common.Vec3{0, 0, 5}, common.QuatIdentity())
	placeTransform(s, child, common.Vec3{0, 2, 0}, common.QuatIdentity())
	placeTransform(s, grandchild, common.Vec3{3, 0, 0}, common.QuatIdentity())

	s.Component_Attach(grandchild, child, true)
	s.Component_Attach(child, root, true)

	ci, ok := s.Hierarchy().IndexOf(child)
	require.True(t, ok)
	gi, ok := s.Hierarchy().IndexOf(grandchild)
	require.True(t, ok)
	assert.Less(t, ci, gi)

	s.Update(1.0 / 60)
	assertVec3InDelta(t, common.Vec3{3, 2, 5}, s.Transforms().Get(grandchild).GetPosition(), 1e-5)
}

func TestBoundsMatchSerialMergeForEveryGroupSize(t *testing.T) {
	for _, n := range []int{1, SmallSubtaskGroupSize - 1, SmallSubtaskGroupSize, SmallSubtaskGroupSize + 1, 3*SmallSubtaskGroupSize + 7} {
		sched := jobsystem.NewScheduler(jobsystem.WithWorkers(4))
		t.Cleanup(sched.Close)
		s := newTestScene(t, WithScheduler(sched))
		for i := range n {
			e := s.Entity_CreateCube("cube")
			f := float32(i)
			placeTransform(s, e, common.Vec3{f, -f * 0.5, f * 2}, common.QuatIdentity())
		}
		s.Update(1.0 / 60)

		want := common.EmptyAABB()
		for i := range s.ObjectAABBs().Len() {
			want = common.MergeAABB(want, *s.ObjectAABBs().At(i))
		}
		got := s.Bounds()
		assertVec3InDelta(t, want.Min, got.Min, 1e-5)
		assertVec3InDelta(t, want.Max, got.Max, 1e-5)
		assertVec3InDelta(t, common.Vec3{-1, -float32(n-1)*0.5 - 1, -1}, got.Min, 1e-4)
	}
}

func TestManyObjectsShareOneMesh(t *testing.T) {
	s := newTestScene(t)

	cube := s.Entity_CreateCube("cube")
	for i := range 999 {
		e := s.Entity_CreateObject("instance")
		s.Objects().Get(e).MeshID = cube
		placeTransform(s, e, common.Vec3{float32(i % 10), 0, float32(i / 10)}, common.QuatIdentity())
	}
	s.Update(1.0 / 60)

	assert.Equal(t, 1000, s.InstanceCount())
	assert.Equal(t, 1, s.GeometryCount())
	mesh := s.Meshes().Get(cube)
	require.NotNil(t, mesh)
	assert.Equal(t, 1000*int(mesh.MeshletCount), s.MeshletCount())
	for i := range s.ObjectAABBs().Len() {
		assert.True(t, s.ObjectAABBs().At(i).IsValid())
	}
	assert.GreaterOrEqual(t, s.InstanceBuffer().Capacity(), 1000)
	assert.Equal(t, 2*s.MeshletCount(), s.MeshletBuffer().Capacity(), "grown once to twice the requirement")
}

func TestArenaCapacityNeverShrinks(t *testing.T) {
	s := newTestScene(t)

	var cubes []ecs.Entity
	for range 100 {
		cubes = append(cubes, s.Entity_CreateCube("cube"))
	}
	s.Update(1.0 / 60)
	instances := s.InstanceBuffer().Capacity()
	geometries := s.GeometryBuffer().Capacity()
	require.GreaterOrEqual(t, instances, 100)

	for _, e := range cubes[10:] {
		s.Entity_Remove(e, false)
	}
	s.Update(1.0 / 60)

	assert.Equal(t, 10, s.InstanceCount())
	assert.Equal(t, instances, s.InstanceBuffer().Capacity())
	assert.Equal(t, geometries, s.GeometryBuffer().Capacity())
}

func TestUpdateWithZeroDeltaKeepsTime(t *testing.T) {
	s := newTestScene(t)
	s.PutWaterRipple(common.Vec3{})

	s.Update(0)
	assert.Zero(t, s.Time())
	assert.Len(t, s.Ripples(), 1)

	s.Update(0.5)
	assert.InDelta(t, 0.5, s.Time(), 1e-6)
}

func TestMergeDrainsOtherScene(t *testing.T) {
	s := newTestScene(t)
	other := newTestScene(t)

	parent := other.Entity_CreateTransform("parent")
	child := other.Entity_CreateCube("child")
	other.Component_Attach(child, parent, true)

	s.Merge(other)

	assert.Equal(t, parent, s.Entity_FindByName("parent"))
	assert.True(t, s.Hierarchy().Contains(child))
	assert.True(t, s.Objects().Contains(child))
	assert.Zero(t, other.Names().Len())
	assert.Zero(t, other.Objects().Len())
}

func TestClearEmptiesEveryStore(t *testing.T) {
	s := newTestScene(t)
	s.Entity_CreateCube("cube")
	s.Entity_CreateLight("sun", common.Vec3{}, common.Vec3{1, 1, 1}, 1, 10, 0, 0, 0)
	s.Update(1.0 / 60)

	s.Clear()

	for _, st := range s.Library().Stores() {
		assert.Zero(t, st.Len(), st.Name())
	}
	assert.Zero(t, s.InstanceCount())
}

func TestLightCameraAndShadowBuffers(t *testing.T) {
	s := newTestScene(t)

	s.Entity_CreateLight("sun", common.Vec3{}, common.Vec3{1, 1, 1}, 2, 0, light.LightTypeDirectional, 0, 0)
	s.Entity_CreateLight("lamp", common.Vec3{0, 2, 0}, common.Vec3{1, 0, 0}, 5, 10, light.LightTypePoint, 0, 0)
	off := s.Entity_CreateLight("off", common.Vec3{}, common.Vec3{1, 1, 1}, 1, 1, light.LightTypePoint, 0, 0)
	s.Lights().Get(off).Flags |= light.FlagDisabled
	s.Entity_CreateCamera("cam", 640, 480, 0.1, 100, 1)

	s.Update(1.0 / 60)

	assert.Equal(t, 2, s.LightCount())
	lights := s.LightBuffer().Staging(0)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(lights[12:16]))
	assert.Equal(t, float32(5), math.Float32frombits(binary.LittleEndian.Uint32(lights[128+28:128+32])))

	assert.GreaterOrEqual(t, s.CameraBuffer().Capacity(), 2)

	shadow := s.ShadowBuffer().Staging(0)
	assert.NotEqual(t, make([]byte, 80), shadow[:80], "the sun writes a shadow record")
}
