// Package gpu holds the device abstraction the scene talks to and the frame-ringed
// structured buffers it fills every frame.
package gpu

import "fmt"

// BufferUsage is a bit set describing how a buffer is bound by the renderer.
type BufferUsage uint32

const (
	BufferUsageStorage BufferUsage = 1 << iota
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageCopySrc
	BufferUsageCopyDst
	// BufferUsageRaytracing marks acceleration-structure build input.
	BufferUsageRaytracing
)

// TextureUsage is a bit set describing how a texture is bound by the renderer.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageRenderTarget
	TextureUsageStorage
	TextureUsageCopyDst
)

// TextureFormat enumerates the fixed formats the scene requests.
type TextureFormat uint8

const (
	TextureFormatUnknown TextureFormat = iota
	TextureFormatDepth32Float
	TextureFormatRGBA8Unorm
	TextureFormatRGBA32Float
	TextureFormatR32Uint
	TextureFormatR32Float
	TextureFormatRG32Float
)

// BytesPerTexel returns the size of one texel of the format.
func (f TextureFormat) BytesPerTexel() uint64 {
	switch f {
	case TextureFormatDepth32Float, TextureFormatRGBA8Unorm, TextureFormatR32Uint, TextureFormatR32Float:
		return 4
	case TextureFormatRG32Float:
		return 8
	case TextureFormatRGBA32Float:
		return 16
	}
	return 0
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatDepth32Float:
		return "Depth32Float"
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatRGBA32Float:
		return "RGBA32Float"
	case TextureFormatR32Uint:
		return "R32Uint"
	case TextureFormatR32Float:
		return "R32Float"
	case TextureFormatRG32Float:
		return "RG32Float"
	}
	return "Unknown"
}

// Capability is an optional device feature the scene branches on.
type Capability uint8

const (
	// CapabilityRaytracing enables TLAS instance writes and BLAS flag tracking.
	CapabilityRaytracing Capability = iota
	// CapabilityPredication enables occlusion query result buffers.
	CapabilityPredication
)

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	// Size is the buffer size in bytes.
	Size uint64
	// Stride is the record size for structured buffers, 0 for raw buffers.
	Stride uint64
	Usage  BufferUsage
}

// TextureDesc describes a 2D, 2D array or cube array texture.
type TextureDesc struct {
	Label       string
	Width       uint32
	Height      uint32
	ArrayLayers uint32
	MipLevels   uint32
	Format      TextureFormat
	Usage       TextureUsage
	// Cube marks a cube array: ArrayLayers counts cubes and the texture holds 6 faces per cube.
	Cube bool
}

// Layers returns the number of 2D slices backing the texture.
func (d TextureDesc) Layers() uint32 {
	layers := max(d.ArrayLayers, 1)
	if d.Cube {
		layers *= 6
	}
	return layers
}

// ByteSize estimates the memory of the full mip chain.
func (d TextureDesc) ByteSize() uint64 {
	var total uint64
	w, h := uint64(max(d.Width, 1)), uint64(max(d.Height, 1))
	for mip := uint32(0); mip < max(d.MipLevels, 1); mip++ {
		total += w * h * d.Format.BytesPerTexel()
		w, h = max(w/2, 1), max(h/2, 1)
	}
	return total * uint64(d.Layers())
}

// Buffer is a device buffer handle.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Descriptor returns the bindless descriptor index the renderer addresses the buffer with.
	Descriptor() int32

	// Release frees the device memory. The handle must not be used afterwards.
	Release()
}

// Texture is a device texture handle.
type Texture interface {
	// Desc returns the descriptor the texture was created with.
	Desc() TextureDesc

	// Descriptor returns the bindless descriptor index the renderer addresses the texture with.
	Descriptor() int32

	// Release frees the device memory. The handle must not be used afterwards.
	Release()
}

// Device is the subset of a graphics device the scene simulation needs: resource creation,
// staging uploads and capability queries. Pipelines, shaders and command recording belong
// to the renderer and are not part of this interface.
type Device interface {
	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if the device could not allocate it
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// CreateTexture allocates a texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the device could not allocate it
	CreateTexture(desc TextureDesc) (Texture, error)

	// WriteBuffer uploads data into buf at offset. The data is copied before returning.
	//
	// Parameters:
	//   - buf: destination buffer
	//   - offset: byte offset into buf
	//   - data: bytes to upload
	WriteBuffer(buf Buffer, offset uint64, data []byte)

	// CheckCapability reports whether an optional feature is available.
	CheckCapability(c Capability) bool

	// MinOffsetAlignment returns the alignment required for sub-buffer binding offsets.
	MinOffsetAlignment() uint64

	// BufferCount returns the number of frames the renderer keeps in flight.
	BufferCount() int
}

// MustCreateBuffer creates a buffer and panics if the device fails.
//
// Parameters:
//   - d: the device
//   - desc: the buffer descriptor
//
// Returns:
//   - Buffer: the new buffer
func MustCreateBuffer(d Device, desc BufferDesc) Buffer {
	buf, err := d.CreateBuffer(desc)
	if err != nil {
		panic(fmt.Sprintf("gpu: failed to create buffer %q: %v", desc.Label, err))
	}
	return buf
}

// MustCreateTexture creates a texture and panics if the device fails.
//
// Parameters:
//   - d: the device
//   - desc: the texture descriptor
//
// Returns:
//   - Texture: the new texture
func MustCreateTexture(d Device, desc TextureDesc) Texture {
	tex, err := d.CreateTexture(desc)
	if err != nil {
		panic(fmt.Sprintf("gpu: failed to create texture %q: %v", desc.Label, err))
	}
	return tex
}
