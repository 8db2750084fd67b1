package scene

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCubeBuildsRenderableObject(t *testing.T) {
	s := newTestScene(t)

	e := s.Entity_CreateCube("box")

	assert.Equal(t, e, s.Entity_FindByName("box"))
	mesh := s.Meshes().Get(e)
	require.NotNil(t, mesh)
	assert.Len(t, mesh.VertexPositions, 24)
	assert.Len(t, mesh.Indices, 36)
	assert.Equal(t, e, s.Objects().Get(e).MeshID)
	assert.True(t, s.Materials().Contains(e))

	s.Update(1.0 / 60)
	aabb := s.ObjectAABBs().Get(e)
	require.NotNil(t, aabb)
	assertVec3InDelta(t, common.Vec3{-1, -1, -1}, aabb.Min, 1e-6)
	assertVec3InDelta(t, common.Vec3{1, 1, 1}, aabb.Max, 1e-6)
	assert.NotZero(t, s.Objects().Get(e).RenderTypeMask)
}

func TestFindByNameMissing(t *testing.T) {
	s := newTestScene(t)
	s.Entity_CreateTransform("a")
	assert.Equal(t, ecs.InvalidEntity, s.Entity_FindByName("b"))
}

func TestRemoveRecursiveRemovesDescendants(t *testing.T) {
	s := newTestScene(t)

	root := s.Entity_CreateTransform("root")
	child := s.Entity_CreateCube("child")
	grandchild := s.Entity_CreateTransform("grandchild")
	other := s.Entity_CreateTransform("other")
	s.Component_Attach(child, root, true)
	s.Component_Attach(grandchild, child, true)

	s.Entity_Remove(root, true)

	for _, e := range []ecs.Entity{root, child, grandchild} {
		assert.False(t, s.Names().Contains(e))
		assert.False(t, s.Transforms().Contains(e))
		assert.False(t, s.Hierarchy().Contains(e))
	}
	assert.False(t, s.Meshes().Contains(child))
	assert.True(t, s.Names().Contains(other))
}

func TestRemoveNonRecursiveLeavesDanglingChild(t *testing.T) {
	for _, topDown := range []bool{false, true} {
		s := newTestScene(t, WithTopDownHierarchy(topDown))

		root := s.Entity_CreateTransform("root")
		child := s.Entity_CreateTransform("child")
		placeTransform(s, root, common.Vec3{5, 0, 0}, common.QuatIdentity())
		placeTransform(s, child, common.Vec3{0, 4, 0}, common.QuatIdentity())
		s.Component_Attach(child, root, true)

		s.Update(1.0 / 60)
		assertVec3InDelta(t, common.Vec3{5, 4, 0}, s.Transforms().Get(child).GetPosition(), 1e-6)

		s.Entity_Remove(root, false)
		require.True(t, s.Hierarchy().Contains(child))
		assert.Equal(t, root, s.Hierarchy().Get(child).ParentID)

		s.Update(1.0 / 60)
		s.Update(1.0 / 60)
		assertVec3InDelta(t, common.Vec3{0, 4, 0}, s.Transforms().Get(child).GetPosition(), 1e-6)
	}
}

func TestAttachRejectsCycles(t *testing.T) {
	s := newTestScene(t)

	a := s.Entity_CreateTransform("a")
	b := s.Entity_CreateTransform("b")
	c := s.Entity_CreateTransform("c")
	s.Component_Attach(b, a, true)
	s.Component_Attach(c, b, true)

	assert.PanicsWithValue(t, fmt.Sprintf("scene: cannot attach entity %d to itself", a), func() {
		s.Component_Attach(a, a, true)
	})
	assert.PanicsWithValue(t, fmt.Sprintf("scene: cannot attach entity %d to its descendant %d", a, c), func() {
		s.Component_Attach(a, c, true)
	})
	assert.False(t, s.Hierarchy().Contains(a))
}

func TestAttachWorldSpaceKeepsWorldPosition(t *testing.T) {
	s := newTestScene(t)

	parent := s.Entity_CreateTransform("parent")
	child := s.Entity_CreateTransform("child")
	placeTransform(s, parent, common.Vec3{2, 0, 0}, common.QuatFromAxisAngle(common.Vec3{0, 0, 1}, 1.2))
	placeTransform(s, child, common.Vec3{5, 5, 5}, common.QuatIdentity())
	s.Update(1.0 / 60)

	s.Component_Attach(child, parent, false)
	assertVec3InDelta(t, common.Vec3{5, 5, 5}, s.Transforms().Get(child).GetPosition(), 1e-4)

	s.Update(1.0 / 60)
	assertVec3InDelta(t, common.Vec3{5, 5, 5}, s.Transforms().Get(child).GetPosition(), 1e-4)
}

func TestDetachBakesWorldIntoLocals(t *testing.T) {
	s := newTestScene(t)

	parent := s.Entity_CreateTransform("parent")
	child := s.Entity_CreateTransform("child")
	placeTransform(s, parent, common.Vec3{1, 0, 0}, common.QuatIdentity())
	placeTransform(s, child, common.Vec3{0, 1, 0}, common.QuatIdentity())
	s.Component_Attach(child, parent, true)
	s.Update(1.0 / 60)

	s.Component_Detach(child)

	assert.False(t, s.Hierarchy().Contains(child))
	ct := s.Transforms().Get(child)
	assertVec3InDelta(t, common.Vec3{1, 1, 0}, ct.TranslationLocal, 1e-6)

	s.Transforms().Get(parent).Translate(common.Vec3{10, 0, 0})
	s.Update(1.0 / 60)
	assertVec3InDelta(t, common.Vec3{1, 1, 0}, ct.GetPosition(), 1e-6)
}

func TestDetachChildren(t *testing.T) {
	s := newTestScene(t)

	parent := s.Entity_CreateTransform("parent")
	var kids []ecs.Entity
	for range 3 {
		kid := s.Entity_CreateTransform("kid")
		s.Component_Attach(kid, parent, true)
		kids = append(kids, kid)
	}

	s.Component_DetachChildren(parent)

	for _, kid := range kids {
		assert.False(t, s.Hierarchy().Contains(kid))
	}
}

func TestDuplicateRemapsInternalReferences(t *testing.T) {
	s := newTestScene(t)

	root := s.Entity_CreateCube("root")
	child := s.Entity_CreateTransform("child")
	external := s.Entity_CreateMaterial("shared")
	placeTransform(s, child, common.Vec3{0, 3, 0}, common.QuatIdentity())
	s.Component_Attach(child, root, true)
	s.Meshes().Get(root).Subsets = append(s.Meshes().Get(root).Subsets, MeshSubset{MaterialID: external})

	dup := s.Entity_Duplicate(root)

	require.NotEqual(t, root, dup)
	assert.Equal(t, "root", s.Names().Get(dup).Name)
	assert.Equal(t, dup, s.Objects().Get(dup).MeshID)

	subsets := s.Meshes().Get(dup).Subsets
	require.Len(t, subsets, 2)
	assert.Equal(t, dup, subsets[0].MaterialID)
	assert.Equal(t, external, subsets[1].MaterialID)

	var dupChild ecs.Entity
	for i := range s.Hierarchy().Len() {
		if s.Hierarchy().At(i).ParentID == dup {
			dupChild = s.Hierarchy().EntityAt(i)
		}
	}
	require.NotEqual(t, ecs.InvalidEntity, dupChild)
	assert.NotEqual(t, child, dupChild)
	assert.Equal(t, "child", s.Names().Get(dupChild).Name)
	assert.Equal(t, root, s.Hierarchy().Get(child).ParentID)

	s.Update(1.0 / 60)
	assertVec3InDelta(t, common.Vec3{0, 3, 0}, s.Transforms().Get(dupChild).GetPosition(), 1e-6)
}

func TestArchiveRoundTrip(t *testing.T) {
	src := newTestScene(t)
	box := src.Entity_CreateCube("box")
	pivot := src.Entity_CreateTransform("pivot")
	placeTransform(src, pivot, common.Vec3{1, 2, 3}, common.QuatIdentity())
	src.Component_Attach(box, pivot, true)
	src.Materials().Get(box).Roughness = 0.25

	var buf bytes.Buffer
	require.NoError(t, src.Archive(&buf))

	dst := newTestScene(t)
	created, err := dst.LoadArchive(&buf)
	require.NoError(t, err)
	assert.Len(t, created, 2)

	loadedBox := dst.Entity_FindByName("box")
	loadedPivot := dst.Entity_FindByName("pivot")
	require.NotEqual(t, ecs.InvalidEntity, loadedBox)
	require.NotEqual(t, ecs.InvalidEntity, loadedPivot)
	assert.Equal(t, loadedBox, dst.Objects().Get(loadedBox).MeshID)
	assert.Equal(t, loadedPivot, dst.Hierarchy().Get(loadedBox).ParentID)
	assert.InDelta(t, 0.25, dst.Materials().Get(loadedBox).Roughness, 1e-6)
	assert.Len(t, dst.Meshes().Get(loadedBox).Indices, 36)

	dst.Update(1.0 / 60)
	aabb := dst.ObjectAABBs().Get(loadedBox)
	require.NotNil(t, aabb)
	assertVec3InDelta(t, common.Vec3{1, 2, 3}, aabb.Center(), 1e-5)
}

func TestLoadArchiveReportsUnknownComponents(t *testing.T) {
	s := newTestScene(t)

	doc := "entities:\n  - id: 7\n    components:\n      name:\n        name: lonely\n      warp_drive:\n        speed: 9\n"
	created, err := s.LoadArchive(bytes.NewBufferString(doc))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp_drive")
	require.Len(t, created, 1)
	assert.Equal(t, created[0], s.Entity_FindByName("lonely"))
}
