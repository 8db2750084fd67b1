package camera

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// GPUCameraUniform is the GPU-aligned representation of one camera.
// Size: 80 bytes (std430 aligned).
type GPUCameraUniform struct {
	ViewProj       common.Mat4 // offset  0: combined view-projection matrix
	CameraPosition common.Vec3 // offset 64: world-space camera position
	_pad           float32     // offset 76: padding to 80 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(g))
}

// MarshalTo serializes the uniform into dst, which must hold at least Size() bytes.
func (g GPUCameraUniform) MarshalTo(dst []byte) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	binary.LittleEndian.PutUint32(dst[76:], 0) // _pad
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	g.MarshalTo(buf)
	return buf
}
