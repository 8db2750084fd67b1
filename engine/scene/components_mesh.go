package scene

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
)

// MeshletTriangleCount is the number of triangles one meshlet covers.
const MeshletTriangleCount = 32

// TriangleCountToMeshletCount returns how many meshlets cover n triangles.
func TriangleCountToMeshletCount(n uint32) uint32 {
	return (n + MeshletTriangleCount - 1) / MeshletTriangleCount
}

// ShaderType selects the material's shading model.
type ShaderType uint32

const (
	ShaderPBR ShaderType = iota
	ShaderUnlit
	ShaderWater
	ShaderCartoon
	ShaderHair
)

// BlendMode is the user facing blend state of a material.
type BlendMode uint32

const (
	BlendOpaque BlendMode = iota
	BlendAlpha
	BlendPremultiplied
	BlendAdditive
)

// MaterialFlags toggle material features.
type MaterialFlags uint32

const (
	MaterialCastShadow MaterialFlags = 1 << iota
	MaterialDoubleSided
	MaterialUseVertexColors
	MaterialOutline
	MaterialReceiveShadow
)

// Texture slots of a material.
const (
	TextureBaseColor = iota
	TextureNormal
	TextureSurface
	TextureEmissive
	TextureOcclusion
	TextureDisplacement
	TextureSlotCount
)

// Stencil references the engine assigns; the user reference occupies the upper four bits.
const (
	StencilEmpty uint8 = iota
	StencilDefault
	StencilCustomShader
	StencilOutline
	StencilCustomShaderOutline
)

// MaterialTexture names a texture resource; Descriptor is resolved by the renderer.
type MaterialTexture struct {
	Name       string `yaml:"name"`
	Descriptor int32  `yaml:"-"`
}

// MaterialComponent describes surface shading.
type MaterialComponent struct {
	Flags            MaterialFlags `yaml:"flags"`
	ShaderType       ShaderType    `yaml:"shader_type"`
	UserBlendMode    BlendMode     `yaml:"blend_mode"`
	CustomShaderID   int32         `yaml:"custom_shader"`
	BaseColor        common.Vec4   `yaml:"base_color"`
	EmissiveColor    common.Vec4   `yaml:"emissive_color"`
	Roughness        float32       `yaml:"roughness"`
	Metalness        float32       `yaml:"metalness"`
	Reflectance      float32       `yaml:"reflectance"`
	AlphaRef         float32       `yaml:"alpha_ref"`
	TexMulAdd        common.Vec4   `yaml:"tex_mul_add"`
	TexAnimDirection common.Vec2   `yaml:"tex_anim_direction"`
	TexAnimFrameRate float32       `yaml:"tex_anim_frame_rate"`
	UserStencilRef   uint8         `yaml:"user_stencil_ref"`

	Textures [TextureSlotCount]MaterialTexture `yaml:"textures"`

	TexAnimElapsedTime float32 `yaml:"-"`
	LayerMask          uint32  `yaml:"-"`
	StencilRef         uint8   `yaml:"-"`
	Dirty              bool    `yaml:"-"`
}

func (m *MaterialComponent) SetDefaults() {
	m.Flags = MaterialCastShadow | MaterialReceiveShadow
	m.BaseColor = common.Vec4{1, 1, 1, 1}
	m.Roughness = 0.2
	m.Reflectance = 0.02
	m.AlphaRef = 1
	m.TexMulAdd = common.Vec4{1, 1, 0, 0}
	m.CustomShaderID = -1
	m.LayerMask = ^uint32(0)
	m.Dirty = true
	for i := range m.Textures {
		m.Textures[i].Descriptor = -1
	}
}

func (m *MaterialComponent) SetDirty()     { m.Dirty = true }
func (m *MaterialComponent) IsDirty() bool { return m.Dirty }

func (m *MaterialComponent) IsCastingShadow() bool    { return m.Flags&MaterialCastShadow != 0 }
func (m *MaterialComponent) IsDoubleSided() bool      { return m.Flags&MaterialDoubleSided != 0 }
func (m *MaterialComponent) IsAlphaTestEnabled() bool { return m.AlphaRef <= 1-1.0/256 }
func (m *MaterialComponent) IsTransparent() bool      { return m.UserBlendMode != BlendOpaque }
func (m *MaterialComponent) IsOutlineEnabled() bool   { return m.Flags&MaterialOutline != 0 }
func (m *MaterialComponent) IsCustomShader() bool     { return m.CustomShaderID >= 0 }

// GetRenderTypes returns the RenderType bits of the passes this material draws in.
func (m *MaterialComponent) GetRenderTypes() uint32 {
	if m.ShaderType == ShaderWater {
		return RenderTypeTransparent | RenderTypeWater
	}
	if m.IsTransparent() {
		return RenderTypeTransparent
	}
	return RenderTypeOpaque
}

// engineStencilRef picks the engine's stencil reference from the material features.
func (m *MaterialComponent) engineStencilRef() uint8 {
	switch {
	case m.IsCustomShader() && m.IsOutlineEnabled():
		return StencilCustomShaderOutline
	case m.IsCustomShader():
		return StencilCustomShader
	case m.IsOutlineEnabled():
		return StencilOutline
	}
	return StencilDefault
}

// Record builds the GPU record of the material.
func (m *MaterialComponent) Record() ShaderMaterial {
	rec := ShaderMaterial{
		BaseColor:   m.BaseColor,
		Emissive:    m.EmissiveColor,
		TexMulAdd:   m.TexMulAdd,
		Roughness:   m.Roughness,
		Metalness:   m.Metalness,
		Reflectance: m.Reflectance,
		AlphaTest:   1 - m.AlphaRef,
		Options:     uint32(m.Flags),
		StencilRef:  m.StencilRef,
		ShaderType:  uint32(m.ShaderType),
	}
	for i := range rec.Textures {
		rec.Textures[i] = m.Textures[i].Descriptor
	}
	return rec
}

// MeshSubset is a range of the index buffer drawn with one material.
type MeshSubset struct {
	MaterialID  ecs.Entity `yaml:"material"`
	IndexOffset uint32     `yaml:"index_offset"`
	IndexCount  uint32     `yaml:"index_count"`

	MaterialIndex uint32 `yaml:"-"`
}

// MorphTarget is a set of position and normal deltas blended by Weight. Sparse targets list
// the vertex each delta belongs to.
type MorphTarget struct {
	VertexPositions        []common.Vec3 `yaml:"positions"`
	VertexNormals          []common.Vec3 `yaml:"normals"`
	SparseIndicesPositions []uint32      `yaml:"sparse_positions,omitempty"`
	SparseIndicesNormals   []uint32      `yaml:"sparse_normals,omitempty"`
	Weight                 float32       `yaml:"weight"`
}

// MeshFlags toggle mesh features.
type MeshFlags uint32

const (
	MeshDoubleSided MeshFlags = 1 << iota
	MeshDynamic
	MeshTLASForceDoubleSided
)

// BLAS geometry flags recomputed by the mesh pass.
const (
	BLASGeometryOpaque uint32 = 1 << iota
	BLASGeometryNoDuplicateAnyHit
)

// MeshComponent holds vertex data shared by any number of objects.
type MeshComponent struct {
	Flags              MeshFlags     `yaml:"flags"`
	VertexPositions    []common.Vec3 `yaml:"positions"`
	VertexNormals      []common.Vec3 `yaml:"normals"`
	VertexUVs          []common.Vec2 `yaml:"uvs,omitempty"`
	VertexColors       []uint32      `yaml:"colors,omitempty"`
	Indices            []uint32      `yaml:"indices"`
	Subsets            []MeshSubset  `yaml:"subsets"`
	SubsetsPerLOD      uint32        `yaml:"subsets_per_lod"`
	ArmatureID         ecs.Entity    `yaml:"armature"`
	MorphTargets       []MorphTarget `yaml:"morph_targets,omitempty"`
	TessellationFactor float32       `yaml:"tessellation_factor"`

	AABB               common.AABB   `yaml:"-"`
	MorphedPositions   []common.Vec3 `yaml:"-"`
	MorphedNormals     []common.Vec3 `yaml:"-"`
	DirtyMorph         bool          `yaml:"-"`
	GeometryOffset     uint32        `yaml:"-"`
	MeshletCount       uint32        `yaml:"-"`
	BLASFlags          []uint32      `yaml:"-"`
	BLASBuildRequested bool          `yaml:"-"`

	buffer      gpu.Buffer
	layout      gpu.CompositeLayout
	ibDesc      int32
	vbPosDesc   int32
	vbNorDesc   int32
	renderReady bool
}

func (m *MeshComponent) SetDefaults() {
	m.AABB = common.EmptyAABB()
	m.ibDesc, m.vbPosDesc, m.vbNorDesc = -1, -1, -1
}

func (m *MeshComponent) IsDoubleSided() bool { return m.Flags&MeshDoubleSided != 0 }
func (m *MeshComponent) IsSkinned() bool     { return m.ArmatureID != ecs.InvalidEntity }

// LODCount returns the number of detail levels the subsets are split into.
func (m *MeshComponent) LODCount() int {
	if m.SubsetsPerLOD == 0 {
		return 1
	}
	return len(m.Subsets) / int(m.SubsetsPerLOD)
}

// LODSubsets returns the subset range drawn at a detail level.
//
// Returns:
//   - int: first subset index
//   - int: subset count
func (m *MeshComponent) LODSubsets(lod int) (int, int) {
	if m.SubsetsPerLOD == 0 {
		return 0, len(m.Subsets)
	}
	n := int(m.SubsetsPerLOD)
	lod = min(lod, m.LODCount()-1)
	return lod * n, n
}

// Positions returns the morphed positions when present, else the authored ones.
func (m *MeshComponent) Positions() []common.Vec3 {
	if len(m.MorphedPositions) == len(m.VertexPositions) && len(m.MorphedPositions) > 0 {
		return m.MorphedPositions
	}
	return m.VertexPositions
}

// ComputeAABB recomputes the local bounding box from the current positions.
func (m *MeshComponent) ComputeAABB() {
	m.AABB = common.EmptyAABB()
	for _, p := range m.Positions() {
		m.AABB.AddPoint(p)
	}
}

// ComputeNormals derives smooth vertex normals from the triangle list.
func (m *MeshComponent) ComputeNormals() {
	m.VertexNormals = make([]common.Vec3, len(m.VertexPositions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		p0, p1, p2 := m.VertexPositions[i0], m.VertexPositions[i1], m.VertexPositions[i2]
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		m.VertexNormals[i0] = m.VertexNormals[i0].Add(n)
		m.VertexNormals[i1] = m.VertexNormals[i1].Add(n)
		m.VertexNormals[i2] = m.VertexNormals[i2].Add(n)
	}
	for i := range m.VertexNormals {
		m.VertexNormals[i] = m.VertexNormals[i].Normalize()
	}
}

// IndexDescriptor returns the bindless index of the index region, -1 without render data.
func (m *MeshComponent) IndexDescriptor() int32 { return m.ibDesc }

// CreateRenderData uploads indices and vertices into one composite device buffer and
// resolves the descriptors written into geometry records. Any previous buffer is released.
//
// Parameters:
//   - d: the device that owns the buffer
func (m *MeshComponent) CreateRenderData(d gpu.Device) {
	m.DeleteRenderData()
	if len(m.VertexPositions) == 0 {
		return
	}
	if len(m.VertexNormals) != len(m.VertexPositions) {
		m.ComputeNormals()
	}
	m.ComputeAABB()

	vertices := make([]byte, len(m.VertexPositions)*gpuVertexSize)
	for i := range m.VertexPositions {
		v := GPUVertex{Position: m.VertexPositions[i], Normal: m.VertexNormals[i]}
		if i < len(m.VertexUVs) {
			v.TexCoord = m.VertexUVs[i]
		}
		if i < len(m.VertexColors) {
			v.Color = m.VertexColors[i]
		} else {
			v.Color = ^uint32(0)
		}
		v.MarshalTo(vertices[i*gpuVertexSize:])
	}
	indices := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(indices[i*4:], idx)
	}

	m.layout = gpu.NewCompositeLayout(d.MinOffsetAlignment(), uint64(len(indices)), uint64(len(vertices)), 0)
	m.buffer = gpu.MustCreateBuffer(d, gpu.BufferDesc{
		Label: "MeshComponent::generalBuffer",
		Size:  max(m.layout.Size, 4),
		Usage: gpu.BufferUsageIndex | gpu.BufferUsageVertex | gpu.BufferUsageStorage | gpu.BufferUsageCopyDst,
	})
	d.WriteBuffer(m.buffer, m.layout.IndexOffset, indices)
	d.WriteBuffer(m.buffer, m.layout.VertexOffset, vertices)

	base := m.buffer.Descriptor()
	m.ibDesc = base
	m.vbPosDesc = base
	m.vbNorDesc = base
	m.renderReady = true
}

// DeleteRenderData releases the device buffer.
func (m *MeshComponent) DeleteRenderData() {
	if m.buffer != nil {
		m.buffer.Release()
	}
	m.buffer = nil
	m.renderReady = false
	m.ibDesc, m.vbPosDesc, m.vbNorDesc = -1, -1, -1
}

// morph blends every weighted morph target over the authored positions and normals.
func (m *MeshComponent) morph() {
	n := len(m.VertexPositions)
	if cap(m.MorphedPositions) < n {
		m.MorphedPositions = make([]common.Vec3, n)
	}
	m.MorphedPositions = m.MorphedPositions[:n]
	copy(m.MorphedPositions, m.VertexPositions)

	hasNormals := len(m.VertexNormals) == n
	if hasNormals {
		if cap(m.MorphedNormals) < n {
			m.MorphedNormals = make([]common.Vec3, n)
		}
		m.MorphedNormals = m.MorphedNormals[:n]
		copy(m.MorphedNormals, m.VertexNormals)
	}

	for _, t := range m.MorphTargets {
		if t.Weight == 0 {
			continue
		}
		for i, d := range t.VertexPositions {
			v := i
			if len(t.SparseIndicesPositions) > 0 {
				v = int(t.SparseIndicesPositions[i])
			}
			if v < n {
				m.MorphedPositions[v] = m.MorphedPositions[v].Add(d.Scale(t.Weight))
			}
		}
		if !hasNormals {
			continue
		}
		for i, d := range t.VertexNormals {
			v := i
			if len(t.SparseIndicesNormals) > 0 {
				v = int(t.SparseIndicesNormals[i])
			}
			if v < n {
				m.MorphedNormals[v] = m.MorphedNormals[v].Add(d.Scale(t.Weight))
			}
		}
	}
	if hasNormals {
		for i := range m.MorphedNormals {
			m.MorphedNormals[i] = m.MorphedNormals[i].Normalize()
		}
	}
	m.ComputeAABB()
}

// uploadMorph rewrites the vertex region with the morphed vertices.
func (m *MeshComponent) uploadMorph(d gpu.Device) {
	if !m.renderReady || d == nil {
		return
	}
	vertices := make([]byte, len(m.MorphedPositions)*gpuVertexSize)
	for i := range m.MorphedPositions {
		v := GPUVertex{Position: m.MorphedPositions[i], Color: ^uint32(0)}
		if i < len(m.MorphedNormals) {
			v.Normal = m.MorphedNormals[i]
		}
		if i < len(m.VertexUVs) {
			v.TexCoord = m.VertexUVs[i]
		}
		if i < len(m.VertexColors) {
			v.Color = m.VertexColors[i]
		}
		v.MarshalTo(vertices[i*gpuVertexSize:])
	}
	d.WriteBuffer(m.buffer, m.layout.VertexOffset, vertices)
}

func (m *MeshComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	m.ArmatureID = remap(m.ArmatureID)
	for i := range m.Subsets {
		m.Subsets[i].MaterialID = remap(m.Subsets[i].MaterialID)
	}
}

