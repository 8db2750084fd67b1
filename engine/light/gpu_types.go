package light

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// MaxGPULights is the maximum number of lights marshaled into the GPU light buffer per
// frame. Lights past the budget are dropped in store order.
const MaxGPULights = 1024

// GPULight is the GPU-aligned representation of a single light source.
// Size: 64 bytes (std430 aligned).
type GPULight struct {
	Position     common.Vec3 // offset  0: world-space position (point/spot)
	LightType    uint32      // offset 12: 0 = directional, 1 = point, 2 = spot
	Color        common.Vec3 // offset 16: RGB color
	Intensity    float32     // offset 28: scalar multiplier
	Direction    common.Vec3 // offset 32: normalized direction
	LightRange   float32     // offset 44: attenuation cutoff distance
	InnerCone    float32     // offset 48: cos(inner half-angle) for spot
	OuterCone    float32     // offset 52: cos(outer half-angle) for spot
	CastsShadows uint32      // offset 56: 1 = casts shadows, 0 = does not
	_pad         uint32      // offset 60: padding to 64-byte alignment
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g GPULight) Size() int {
	return int(unsafe.Sizeof(g))
}

// MarshalTo serializes the light into dst, which must hold at least 64 bytes.
func (g GPULight) MarshalTo(buf []byte) {
	putVec3(buf[0:12], g.Position)
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	putVec3(buf[16:28], g.Color)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	putVec3(buf[32:44], g.Direction)
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.LightRange))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.InnerCone))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[56:60], g.CastsShadows)
	binary.LittleEndian.PutUint32(buf[60:64], 0) // padding
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	g.MarshalTo(buf)
	return buf
}

// GPULightHeader precedes the lights in the light buffer.
// Size: 16 bytes (vec3 + u32, std430 aligned).
type GPULightHeader struct {
	AmbientColor common.Vec3 // offset 0: scene ambient RGB
	LightCount   uint32      // offset 12: number of lights following the header
}

// Size returns the size of the GPULightHeader struct in bytes.
func (h GPULightHeader) Size() int {
	return int(unsafe.Sizeof(h))
}

// MarshalTo serializes the header into dst, which must hold at least 16 bytes.
func (h GPULightHeader) MarshalTo(buf []byte) {
	putVec3(buf[0:12], h.AmbientColor)
	binary.LittleEndian.PutUint32(buf[12:16], h.LightCount)
}

// GPUShadowData is the GPU-aligned representation of directional shadow data.
// Size: 80 bytes (std430 aligned).
//
// Layout:
//
//	mat4x4<f32> light_vp       (64 bytes, offset 0)
//	vec2<f32>   texel_size     ( 8 bytes, offset 64)
//	f32         bias           ( 4 bytes, offset 72)
//	f32         normal_bias    ( 4 bytes, offset 76)
type GPUShadowData struct {
	LightVP    common.Mat4 // orthographic view-projection from the light's perspective
	TexelSize  common.Vec2 // 1 / shadow map resolution
	Bias       float32     // depth comparison bias
	NormalBias float32     // world-space normal-offset distance for shadow lookup
}

// NewDirectionalShadow builds the shadow record of a directional light with the default
// extents, centered on center.
//
// Parameters:
//   - lightDir: normalized direction the light points
//   - center: world-space center of the shadow frustum, usually the camera eye
//
// Returns:
//   - GPUShadowData: the populated record
func NewDirectionalShadow(lightDir, center common.Vec3) GPUShadowData {
	s := GPUShadowData{
		TexelSize: common.Vec2{1.0 / ShadowMapResolution, 1.0 / ShadowMapResolution},
		Bias:      DefaultShadowBias,
	}
	s.ComputeDirectionalLightVP(lightDir, center, DefaultShadowHalfExtent, DefaultShadowNear, DefaultShadowFar)
	s.ComputeNormalBias(DefaultShadowHalfExtent, DefaultShadowNormalBiasScale, ShadowMapResolution)
	return s
}

// Size returns the size of the GPUShadowData struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (s GPUShadowData) Size() int {
	return int(unsafe.Sizeof(s))
}

// ComputeDirectionalLightVP builds an orthographic view-projection matrix for a directional
// light's shadow pass and stores it in LightVP. The frustum is centered on center and looks
// along the light's direction.
//
// Parameters:
//   - lightDir: normalized direction the light points (from light toward scene)
//   - center: world-space center of the shadow frustum
//   - halfExtent: half-size of the orthographic frustum in world units
//   - near: near plane distance
//   - far: far plane distance
func (s *GPUShadowData) ComputeDirectionalLightVP(lightDir, center common.Vec3, halfExtent, near, far float32) {
	eye := center.Sub(lightDir.Scale(far * 0.5))

	// up must not be parallel to the light direction
	up := common.Vec3{0, 1, 0}
	if absF32(lightDir[1]) > 0.99 {
		up = common.Vec3{1, 0, 0}
	}

	var view common.Mat4
	common.LookAt(view[:], eye, center, up)

	var proj common.Mat4
	ortho(proj[:], -halfExtent, halfExtent, -halfExtent, halfExtent, near, far)

	s.LightVP = proj.Mul(view)
}

// ComputeNormalBias derives the world-space normal-offset bias from the shadow map
// parameters and stores it in NormalBias.
//
// Parameters:
//   - halfExtent: orthographic frustum half-size in world units
//   - scale: multiplier on the per-texel world size (typically 2.0-4.0)
//   - resolution: shadow map resolution in texels
func (s *GPUShadowData) ComputeNormalBias(halfExtent, scale float32, resolution int) {
	texelWorldSize := 2.0 * halfExtent / float32(resolution)
	s.NormalBias = texelWorldSize * scale
}

// MarshalTo serializes the shadow record into dst, which must hold at least 80 bytes.
func (s GPUShadowData) MarshalTo(buf []byte) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(s.LightVP[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(s.TexelSize[0]))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(s.TexelSize[1]))
	binary.LittleEndian.PutUint32(buf[72:76], math.Float32bits(s.Bias))
	binary.LittleEndian.PutUint32(buf[76:80], math.Float32bits(s.NormalBias))
}

// ToGPULight converts a Light into its GPU-aligned representation.
// Cone angles are converted to cosines.
//
// Parameters:
//   - l: the light to convert
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l *Light) GPULight {
	shadowVal := uint32(0)
	if l.IsCastingShadow() {
		shadowVal = 1
	}
	return GPULight{
		Position:     l.Position,
		LightType:    uint32(l.Type),
		Color:        l.Color,
		Intensity:    l.Intensity,
		Direction:    l.Direction,
		LightRange:   l.Range,
		InnerCone:    float32(math.Cos(float64(l.InnerConeAngle))),
		OuterCone:    float32(math.Cos(float64(l.OuterConeAngle))),
		CastsShadows: shadowVal,
	}
}

// MarshalLightBuffer writes a header followed by every enabled light into dst. The header
// occupies the first stride bytes so lights stay stride-aligned.
//
// Parameters:
//   - dst: destination, at least stride*(count+1) bytes
//   - stride: slot size, at least 64
//   - lights: the lights to marshal; disabled lights are skipped
//   - ambient: the scene ambient color
//
// Returns:
//   - int: number of lights written
func MarshalLightBuffer(dst []byte, stride int, lights []Light, ambient common.Vec3) int {
	written := 0
	for i := range lights {
		if !lights[i].IsEnabled() {
			continue
		}
		if written >= MaxGPULights {
			break
		}
		offset := (written + 1) * stride
		ToGPULight(&lights[i]).MarshalTo(dst[offset : offset+stride])
		written++
	}
	GPULightHeader{AmbientColor: ambient, LightCount: uint32(written)}.MarshalTo(dst[:stride])
	return written
}

func putVec3(dst []byte, v common.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}

// ortho builds an orthographic projection matrix compatible with WebGPU's
// clip-space convention: X/Y in [-1, 1], Z in [0, 1].
// Output is column-major.
func ortho(out []float32, left, right, bottom, top, near, far float32) {
	common.Identity(out)
	rl := right - left
	tb := top - bottom
	fn := far - near

	out[0] = 2.0 / rl
	out[5] = 2.0 / tb
	out[10] = -1.0 / fn // WebGPU Z: [0, 1]
	out[12] = -(right + left) / rl
	out[13] = -(top + bottom) / tb
	out[14] = -near / fn
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
