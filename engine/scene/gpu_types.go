package scene

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// Record sizes in bytes. They are a layout contract with the renderer's shaders.
const (
	shaderTransformSize    = 48
	shaderMeshInstanceSize = 208
	shaderMaterialSize     = 96
	shaderGeometrySize     = 80
	shaderMeshletSize      = 16
	tlasInstanceSize       = 64
	shaderSceneSize        = 208
	gpuVertexSize          = 40
	lightRecordSize        = 64
	cameraRecordSize       = 80
	shadowRecordSize       = 80
)

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func putU32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

func putI32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func putVec3(dst []byte, v common.Vec3) {
	putF32(dst[0:4], v[0])
	putF32(dst[4:8], v[1])
	putF32(dst[8:12], v[2])
}

func putVec4(dst []byte, v common.Vec4) {
	putF32(dst[0:4], v[0])
	putF32(dst[4:8], v[1])
	putF32(dst[8:12], v[2])
	putF32(dst[12:16], v[3])
}

// ShaderTransform is the upper three rows of an affine matrix.
// Size: 48 bytes.
type ShaderTransform struct {
	Rows [3]common.Vec4
}

// NewShaderTransform packs the rows of m.
func NewShaderTransform(m common.Mat4) ShaderTransform {
	var t ShaderTransform
	for r := 0; r < 3; r++ {
		t.Rows[r] = common.Vec4{m[r], m[4+r], m[8+r], m[12+r]}
	}
	return t
}

func (t ShaderTransform) Size() int { return shaderTransformSize }

func (t ShaderTransform) MarshalTo(dst []byte) {
	putVec4(dst[0:16], t.Rows[0])
	putVec4(dst[16:32], t.Rows[1])
	putVec4(dst[32:48], t.Rows[2])
}

// ShaderMeshInstance is the per-object instance record.
// Size: 208 bytes.
type ShaderMeshInstance struct {
	UID            uint32      // offset  0: owning entity, truncated
	LayerMask      uint32      // offset  4
	GeometryOffset uint32      // offset  8: first geometry record
	GeometryCount  uint32      // offset 12
	MeshletOffset  uint32      // offset 16: first meshlet of the instance
	Color          uint32      // offset 20: packed RGBA8
	Emissive       uint32      // offset 24: packed R11G11B10 float
	LightmapIndex  int32       // offset 28: bindless texture, -1 for none
	FadeDistance   float32     // offset 32
	Center         common.Vec3 // offset 36
	Radius         float32     // offset 48
	_pad           [3]uint32   // offset 52

	Transform                 ShaderTransform // offset  64
	TransformInverseTranspose ShaderTransform // offset 112
	TransformPrev             ShaderTransform // offset 160
}

// Init resets the record to an invisible instance with identity transforms.
func (g *ShaderMeshInstance) Init() {
	*g = ShaderMeshInstance{LightmapIndex: -1}
	id := NewShaderTransform(common.Mat4Identity())
	g.Transform = id
	g.TransformInverseTranspose = id
	g.TransformPrev = id
}

func (g ShaderMeshInstance) Size() int { return shaderMeshInstanceSize }

func (g ShaderMeshInstance) MarshalTo(dst []byte) {
	putU32(dst[0:4], g.UID)
	putU32(dst[4:8], g.LayerMask)
	putU32(dst[8:12], g.GeometryOffset)
	putU32(dst[12:16], g.GeometryCount)
	putU32(dst[16:20], g.MeshletOffset)
	putU32(dst[20:24], g.Color)
	putU32(dst[24:28], g.Emissive)
	putI32(dst[28:32], g.LightmapIndex)
	putF32(dst[32:36], g.FadeDistance)
	putVec3(dst[36:48], g.Center)
	putF32(dst[48:52], g.Radius)
	clear(dst[52:64])
	g.Transform.MarshalTo(dst[64:112])
	g.TransformInverseTranspose.MarshalTo(dst[112:160])
	g.TransformPrev.MarshalTo(dst[160:208])
}

// ShaderMaterial is the per-material record.
// Size: 96 bytes.
type ShaderMaterial struct {
	BaseColor   common.Vec4 // offset  0
	Emissive    common.Vec4 // offset 16
	TexMulAdd   common.Vec4 // offset 32
	Roughness   float32     // offset 48
	Metalness   float32     // offset 52
	Reflectance float32     // offset 56
	AlphaTest   float32     // offset 60
	Options     uint32      // offset 64: low 24 bits flags, high 8 bits stencil
	StencilRef  uint8
	ShaderType  uint32                  // offset 68, ^0 marks the impostor material
	Textures    [TextureSlotCount]int32 // offset 72: bindless texture indices
}

func (g ShaderMaterial) Size() int { return shaderMaterialSize }

func (g ShaderMaterial) MarshalTo(dst []byte) {
	putVec4(dst[0:16], g.BaseColor)
	putVec4(dst[16:32], g.Emissive)
	putVec4(dst[32:48], g.TexMulAdd)
	putF32(dst[48:52], g.Roughness)
	putF32(dst[52:56], g.Metalness)
	putF32(dst[56:60], g.Reflectance)
	putF32(dst[60:64], g.AlphaTest)
	putU32(dst[64:68], g.Options&0xFFFFFF|uint32(g.StencilRef)<<24)
	putU32(dst[68:72], g.ShaderType)
	for i, t := range g.Textures {
		putI32(dst[72+i*4:76+i*4], t)
	}
}

// Geometry record flags.
const (
	GeometryDoubleSided uint32 = 1 << iota
)

// ShaderGeometry is the per-subset geometry record.
// Size: 80 bytes.
type ShaderGeometry struct {
	IndexOffset         uint32      // offset  0
	IndexCount          uint32      // offset  4
	MaterialIndex       uint32      // offset  8
	MeshletOffset       uint32      // offset 12: meshlets before this subset within the mesh
	MeshletCount        uint32      // offset 16
	IBDescriptor        int32       // offset 20
	VBPosDescriptor     int32       // offset 24
	VBNorDescriptor     int32       // offset 28
	AABBMin             common.Vec3 // offset 32
	Flags               uint32      // offset 44
	AABBMax             common.Vec3 // offset 48
	TessellationFactor  float32     // offset 60
	ImpostorSliceOffset int32       // offset 64
	_pad                [3]uint32   // offset 68
}

// Init resets the record to an empty geometry with no bound buffers.
func (g *ShaderGeometry) Init() {
	*g = ShaderGeometry{IBDescriptor: -1, VBPosDescriptor: -1, VBNorDescriptor: -1, ImpostorSliceOffset: -1}
}

func (g ShaderGeometry) Size() int { return shaderGeometrySize }

func (g ShaderGeometry) MarshalTo(dst []byte) {
	putU32(dst[0:4], g.IndexOffset)
	putU32(dst[4:8], g.IndexCount)
	putU32(dst[8:12], g.MaterialIndex)
	putU32(dst[12:16], g.MeshletOffset)
	putU32(dst[16:20], g.MeshletCount)
	putI32(dst[20:24], g.IBDescriptor)
	putI32(dst[24:28], g.VBPosDescriptor)
	putI32(dst[28:32], g.VBNorDescriptor)
	putVec3(dst[32:44], g.AABBMin)
	putU32(dst[44:48], g.Flags)
	putVec3(dst[48:60], g.AABBMax)
	putF32(dst[60:64], g.TessellationFactor)
	putI32(dst[64:68], g.ImpostorSliceOffset)
	clear(dst[68:80])
}

// ShaderMeshlet maps one meshlet to its instance, geometry and first primitive.
// Size: 16 bytes.
type ShaderMeshlet struct {
	InstanceIndex   uint32
	GeometryIndex   uint32
	PrimitiveOffset uint32
	_pad            uint32
}

func (g ShaderMeshlet) Size() int { return shaderMeshletSize }

func (g ShaderMeshlet) MarshalTo(dst []byte) {
	putU32(dst[0:4], g.InstanceIndex)
	putU32(dst[4:8], g.GeometryIndex)
	putU32(dst[8:12], g.PrimitiveOffset)
	putU32(dst[12:16], 0)
}

// TLAS instance flags.
const (
	TLASInstanceTriangleCullDisable uint8 = 1 << iota
	TLASInstanceFrontCounterClockwise
	TLASInstanceForceOpaque
)

// TLASInstance is the top level acceleration structure input for one object.
// Size: 64 bytes.
type TLASInstance struct {
	Transform              ShaderTransform // offset  0
	InstanceID             uint32          // offset 48: low 24 bits
	Mask                   uint8           // offset 48: high 8 bits
	ContributionToHitGroup uint32          // offset 52: low 24 bits
	Flags                  uint8           // offset 52: high 8 bits
	BLASAddress            uint64          // offset 56
}

func (g TLASInstance) Size() int { return tlasInstanceSize }

func (g TLASInstance) MarshalTo(dst []byte) {
	g.Transform.MarshalTo(dst[0:48])
	putU32(dst[48:52], g.InstanceID&0xFFFFFF|uint32(g.Mask)<<24)
	putU32(dst[52:56], g.ContributionToHitGroup&0xFFFFFF|uint32(g.Flags)<<24)
	binary.LittleEndian.PutUint64(dst[56:64], g.BLASAddress)
}

// ShaderScene holds the per-frame scene constants the renderer binds once.
// Size: 208 bytes.
type ShaderScene struct {
	InstanceBuffer         int32 // offset 0
	GeometryBuffer         int32
	MaterialBuffer         int32
	MeshletBuffer          int32
	TLAS                   int32 // offset 16
	EnvMapArray            int32
	ImpostorInstanceOffset uint32
	ImpostorGeometryOffset uint32

	AABBMin        common.Vec3 // offset 32
	AABBMax        common.Vec3 // offset 48
	AABBExtents    common.Vec3 // offset 64
	AABBExtentsRcp common.Vec3 // offset 80

	SunColor                common.Vec3 // offset  96
	MostImportantLightIndex uint32
	SunDirection            common.Vec3 // offset 112
	FogStart                float32
	AmbientColor            common.Vec3 // offset 128
	FogDensity              float32
	WindDirection           common.Vec3 // offset 144
	WindSpeed               float32

	DDGIGridMin     common.Vec3 // offset 160
	DDGIFrameIndex  uint32
	DDGIGridExtents common.Vec3 // offset 176

	Time       float32 // offset 192
	DeltaTime  float32
	FrameCount uint32
}

func (g ShaderScene) Size() int { return shaderSceneSize }

func (g ShaderScene) MarshalTo(dst []byte) {
	putI32(dst[0:4], g.InstanceBuffer)
	putI32(dst[4:8], g.GeometryBuffer)
	putI32(dst[8:12], g.MaterialBuffer)
	putI32(dst[12:16], g.MeshletBuffer)
	putI32(dst[16:20], g.TLAS)
	putI32(dst[20:24], g.EnvMapArray)
	putU32(dst[24:28], g.ImpostorInstanceOffset)
	putU32(dst[28:32], g.ImpostorGeometryOffset)
	putVec3(dst[32:44], g.AABBMin)
	putU32(dst[44:48], 0)
	putVec3(dst[48:60], g.AABBMax)
	putU32(dst[60:64], 0)
	putVec3(dst[64:76], g.AABBExtents)
	putU32(dst[76:80], 0)
	putVec3(dst[80:92], g.AABBExtentsRcp)
	putU32(dst[92:96], 0)
	putVec3(dst[96:108], g.SunColor)
	putU32(dst[108:112], g.MostImportantLightIndex)
	putVec3(dst[112:124], g.SunDirection)
	putF32(dst[124:128], g.FogStart)
	putVec3(dst[128:140], g.AmbientColor)
	putF32(dst[140:144], g.FogDensity)
	putVec3(dst[144:156], g.WindDirection)
	putF32(dst[156:160], g.WindSpeed)
	putVec3(dst[160:172], g.DDGIGridMin)
	putU32(dst[172:176], g.DDGIFrameIndex)
	putVec3(dst[176:188], g.DDGIGridExtents)
	putU32(dst[188:192], 0)
	putF32(dst[192:196], g.Time)
	putF32(dst[196:200], g.DeltaTime)
	putU32(dst[200:204], g.FrameCount)
	putU32(dst[204:208], 0)
}

// GPUVertex is one vertex of a mesh's composite buffer.
// Size: 40 bytes.
type GPUVertex struct {
	Position common.Vec3 // offset  0
	Normal   common.Vec3 // offset 12
	TexCoord common.Vec2 // offset 24
	Color    uint32      // offset 32: packed RGBA8
}

func (g GPUVertex) Size() int { return gpuVertexSize }

func (g GPUVertex) MarshalTo(dst []byte) {
	putVec3(dst[0:12], g.Position)
	putVec3(dst[12:24], g.Normal)
	putF32(dst[24:28], g.TexCoord[0])
	putF32(dst[28:32], g.TexCoord[1])
	putU32(dst[32:36], g.Color)
	putU32(dst[36:40], 0)
}
