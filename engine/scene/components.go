package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/chewxy/math32"
)

// entityRemapper is implemented by components that hold references to other entities.
// Duplication and archive loading call it to point those references at the new ids.
type entityRemapper interface {
	RemapEntities(remap func(ecs.Entity) ecs.Entity)
}

// NameComponent gives an entity a human readable name for lookups and scripts.
type NameComponent struct {
	Name string `yaml:"name"`
}

// LayerComponent filters an entity for rendering and queries.
type LayerComponent struct {
	LayerMask uint32 `yaml:"layer_mask"`

	// PropagationMask is the intersection of every ancestor's layer mask, rebuilt by the
	// hierarchy pass.
	PropagationMask uint32 `yaml:"-"`
}

func (l *LayerComponent) SetDefaults() {
	l.LayerMask = ^uint32(0)
	l.PropagationMask = ^uint32(0)
}

// GetLayerMask returns the own mask limited by the inherited one.
func (l *LayerComponent) GetLayerMask() uint32 {
	return l.LayerMask & l.PropagationMask
}

// TransformComponent holds the local scale, rotation and translation of an entity and the
// world matrix derived from them.
type TransformComponent struct {
	ScaleLocal       common.Vec3 `yaml:"scale"`
	RotationLocal    common.Quat `yaml:"rotation"`
	TranslationLocal common.Vec3 `yaml:"translation"`

	World common.Mat4 `yaml:"-"`
	Dirty bool        `yaml:"-"`
}

func (t *TransformComponent) SetDefaults() {
	t.ScaleLocal = common.Vec3{1, 1, 1}
	t.RotationLocal = common.QuatIdentity()
	t.TranslationLocal = common.Vec3{}
	t.World = common.Mat4Identity()
	t.Dirty = true
}

func (t *TransformComponent) SetDirty()     { t.Dirty = true }
func (t *TransformComponent) IsDirty() bool { return t.Dirty }

// LocalMatrix composes the local fields: scale first, then rotation, then translation.
func (t *TransformComponent) LocalMatrix() common.Mat4 {
	return common.Compose(t.ScaleLocal, t.RotationLocal, t.TranslationLocal)
}

// UpdateTransform rebuilds World from the local fields when they changed.
func (t *TransformComponent) UpdateTransform() {
	if t.Dirty {
		t.Dirty = false
		t.World = t.LocalMatrix()
	}
}

// UpdateTransformParented sets World to the local matrix placed under parent's world matrix.
func (t *TransformComponent) UpdateTransformParented(parent *TransformComponent) {
	t.World = parent.World.Mul(t.LocalMatrix())
}

// ApplyTransform bakes the world matrix into the local fields.
func (t *TransformComponent) ApplyTransform() {
	t.Dirty = true
	t.ScaleLocal, t.RotationLocal, t.TranslationLocal = t.World.Decompose()
}

// ClearTransform resets the local fields to identity.
func (t *TransformComponent) ClearTransform() {
	t.Dirty = true
	t.ScaleLocal = common.Vec3{1, 1, 1}
	t.RotationLocal = common.QuatIdentity()
	t.TranslationLocal = common.Vec3{}
}

func (t *TransformComponent) Translate(v common.Vec3) {
	t.Dirty = true
	t.TranslationLocal = t.TranslationLocal.Add(v)
}

// Rotate applies q after the current local rotation.
func (t *TransformComponent) Rotate(q common.Quat) {
	t.Dirty = true
	t.RotationLocal = q.Mul(t.RotationLocal).Normalize()
}

// RotateRollPitchYaw rotates by Euler angles given as (pitch, yaw, roll) radians.
func (t *TransformComponent) RotateRollPitchYaw(v common.Vec3) {
	t.Rotate(common.QuatFromRollPitchYaw(v[0], v[1], v[2]))
}

func (t *TransformComponent) Scale(v common.Vec3) {
	t.Dirty = true
	t.ScaleLocal = t.ScaleLocal.Mul(v)
}

// MatrixTransform applies m on top of the current local matrix and stores the result back
// into the local fields.
func (t *TransformComponent) MatrixTransform(m common.Mat4) {
	t.Dirty = true
	t.ScaleLocal, t.RotationLocal, t.TranslationLocal = m.Mul(t.LocalMatrix()).Decompose()
}

// Lerp interpolates the local fields between a and b.
func (t *TransformComponent) Lerp(a, b *TransformComponent, f float32) {
	t.Dirty = true
	t.ScaleLocal = a.ScaleLocal.Lerp(b.ScaleLocal, f)
	t.RotationLocal = a.RotationLocal.Slerp(b.RotationLocal, f).Normalize()
	t.TranslationLocal = a.TranslationLocal.Lerp(b.TranslationLocal, f)
}

func (t *TransformComponent) GetPosition() common.Vec3 { return t.World.Translation() }

func (t *TransformComponent) GetRotation() common.Quat {
	_, r, _ := t.World.Decompose()
	return r
}

func (t *TransformComponent) GetScale() common.Vec3 { return t.World.Scale() }

// HierarchyComponent is the edge from a child to its parent. Entities without one are roots.
type HierarchyComponent struct {
	ParentID      ecs.Entity `yaml:"parent"`
	LayerMaskBind uint32     `yaml:"layer_mask_bind"`
}

func (h *HierarchyComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	h.ParentID = remap(h.ParentID)
}

// RenderType classifies what passes an object takes part in.
const (
	RenderTypeOpaque      uint32 = 1 << 0
	RenderTypeTransparent uint32 = 1 << 1
	RenderTypeWater       uint32 = 1 << 2
	RenderTypeAll         uint32 = RenderTypeOpaque | RenderTypeTransparent | RenderTypeWater
)

// ImpostorComponent renders distant instances of a mesh as captured billboards.
// It lives on the mesh entity.
type ImpostorComponent struct {
	SwapInDistance float32 `yaml:"swap_in_distance"`

	Dirty        bool  `yaml:"-"`
	RenderDirty  bool  `yaml:"-"`
	TextureIndex int32 `yaml:"-"`
}

func (i *ImpostorComponent) SetDefaults() {
	i.SwapInDistance = 100
	i.Dirty = true
	i.TextureIndex = -1
}

func (i *ImpostorComponent) SetDirty() { i.Dirty = true }

// ObjectFlags configure how an object instance is rendered.
type ObjectFlags uint32

const (
	ObjectRenderable ObjectFlags = 1 << iota
	ObjectCastShadow
	ObjectDynamic
	ObjectRequestLightmap
	ObjectForceDoubleSided
)

// occlusionQueryRing is the number of frames of occlusion query results kept per object.
const occlusionQueryRing = 4

// ObjectComponent is a placed instance of a mesh.
type ObjectComponent struct {
	MeshID                ecs.Entity  `yaml:"mesh"`
	Flags                 ObjectFlags `yaml:"flags"`
	Color                 common.Vec4 `yaml:"color"`
	EmissiveColor         common.Vec4 `yaml:"emissive_color"`
	DrawDistance          float32     `yaml:"draw_distance"`
	LODDistanceMultiplier float32     `yaml:"lod_distance_multiplier"`
	LightmapWidth         uint32      `yaml:"lightmap_width"`
	LightmapHeight        uint32      `yaml:"lightmap_height"`

	OcclusionHistory uint32                    `yaml:"-"`
	OcclusionQueries [occlusionQueryRing]int32 `yaml:"-"`
	LOD              uint32                    `yaml:"-"`
	Center           common.Vec3               `yaml:"-"`
	Radius           float32                   `yaml:"-"`
	FadeDistance     float32                   `yaml:"-"`
	RenderTypeMask   uint32                    `yaml:"-"`
	MeshletOffset    uint32                    `yaml:"-"`
	LightmapIndex    int32                     `yaml:"-"`
	LightmapIters    uint32                    `yaml:"-"`
}

func (o *ObjectComponent) SetDefaults() {
	o.Flags = ObjectRenderable | ObjectCastShadow
	o.Color = common.Vec4{1, 1, 1, 1}
	o.DrawDistance = math32.MaxFloat32
	o.LODDistanceMultiplier = 1
	o.OcclusionHistory = ^uint32(0)
	for i := range o.OcclusionQueries {
		o.OcclusionQueries[i] = -1
	}
	o.LightmapIndex = -1
}

func (o *ObjectComponent) IsRenderable() bool      { return o.Flags&ObjectRenderable != 0 }
func (o *ObjectComponent) IsCastingShadow() bool   { return o.Flags&ObjectCastShadow != 0 }
func (o *ObjectComponent) IsDynamic() bool         { return o.Flags&ObjectDynamic != 0 }
func (o *ObjectComponent) IsRequestLightmap() bool { return o.Flags&ObjectRequestLightmap != 0 }

// IsOccluded reports whether no query in the recorded history saw the object.
func (o *ObjectComponent) IsOccluded() bool { return o.OcclusionHistory == 0 }

func (o *ObjectComponent) SetRequestLightmap(v bool) {
	if v {
		o.Flags |= ObjectRequestLightmap
	} else {
		o.Flags &^= ObjectRequestLightmap
	}
}

func (o *ObjectComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	o.MeshID = remap(o.MeshID)
}

// ArmatureComponent binds a skeleton to skinned meshes.
type ArmatureComponent struct {
	BoneCollection      []ecs.Entity  `yaml:"bones"`
	InverseBindMatrices []common.Mat4 `yaml:"inverse_bind_matrices"`

	BoneData []ShaderTransform `yaml:"-"`
	AABB     common.AABB       `yaml:"-"`
}

func (a *ArmatureComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	for i, b := range a.BoneCollection {
		a.BoneCollection[i] = remap(b)
	}
}

// RigidBodyShape selects the collision shape handed to the physics engine.
type RigidBodyShape uint32

const (
	RigidBodyBox RigidBodyShape = iota
	RigidBodySphere
	RigidBodyCapsule
	RigidBodyConvexHull
	RigidBodyTriangleMesh
)

// RigidBodyComponent describes a body simulated by the external physics engine.
type RigidBodyComponent struct {
	Shape       RigidBodyShape `yaml:"shape"`
	Mass        float32        `yaml:"mass"`
	Friction    float32        `yaml:"friction"`
	Restitution float32        `yaml:"restitution"`
	Kinematic   bool           `yaml:"kinematic"`
	HalfExtents common.Vec3    `yaml:"half_extents"`
	Radius      float32        `yaml:"radius"`
	Height      float32        `yaml:"height"`
}

func (r *RigidBodyComponent) SetDefaults() {
	r.Mass = 1
	r.Friction = 0.5
	r.HalfExtents = common.Vec3{1, 1, 1}
	r.Radius = 1
	r.Height = 1
}

// SoftBodyComponent is cloth or soft body simulation of a mesh, stored on the mesh entity.
// The physics engine writes AABB and marks it Simulated once it owns the vertices.
type SoftBodyComponent struct {
	Mass        float32 `yaml:"mass"`
	Friction    float32 `yaml:"friction"`
	Restitution float32 `yaml:"restitution"`

	Simulated bool        `yaml:"-"`
	AABB      common.AABB `yaml:"-"`
}

func (s *SoftBodyComponent) SetDefaults() {
	s.Mass = 1
	s.Friction = 0.5
}
