package gpu

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
)

// Record is a fixed-layout value that can be serialized into a structured buffer slot.
type Record interface {
	// Size returns the serialized size in bytes.
	Size() int
	// MarshalTo writes the record into dst, which is at least Size() bytes long.
	MarshalTo(dst []byte)
}

// StructuredBuffer is a growable GPU buffer of fixed-stride records with one host staging
// copy per in-flight frame. Capacity never shrinks.
type StructuredBuffer struct {
	Name   string
	Stride uint64
	Usage  BufferUsage

	device   Device
	capacity int
	buffer   Buffer
	staging  Ring[[]byte]
}

// NewStructuredBuffer creates an empty structured buffer. No device memory is allocated
// until the first Ensure with a non-zero requirement.
//
// Parameters:
//   - device: the device that owns the buffer
//   - name: debug label
//   - stride: record size in bytes
//   - usage: binding usage flags
//
// Returns:
//   - *StructuredBuffer: the new buffer
func NewStructuredBuffer(device Device, name string, stride uint64, usage BufferUsage) *StructuredBuffer {
	return &StructuredBuffer{
		Name:   name,
		Stride: stride,
		Usage:  usage | BufferUsageCopyDst,
		device: device,
	}
}

// Ensure grows the buffer to twice the requirement when required exceeds the current
// capacity, recreating the device buffer and every staging copy. Existing contents are
// discarded on growth since every record is rewritten each frame.
//
// Parameters:
//   - required: record count the current frame needs
//
// Returns:
//   - bool: true if the buffer was reallocated
func (b *StructuredBuffer) Ensure(required int) bool {
	if required <= b.capacity {
		return false
	}
	if b.buffer != nil {
		b.buffer.Release()
	}
	b.capacity = required * 2
	size := uint64(b.capacity) * b.Stride
	b.buffer = MustCreateBuffer(b.device, BufferDesc{
		Label:  b.Name,
		Size:   size,
		Stride: b.Stride,
		Usage:  b.Usage,
	})
	b.staging = NewRing(b.device.BufferCount(), func(int) []byte {
		return make([]byte, size)
	})
	return true
}

// Capacity returns the number of records the buffer can hold.
func (b *StructuredBuffer) Capacity() int {
	return b.capacity
}

// Buffer returns the device buffer, nil before the first allocation.
func (b *StructuredBuffer) Buffer() Buffer {
	return b.buffer
}

// Descriptor returns the bindless index of the device buffer, -1 before the first allocation.
func (b *StructuredBuffer) Descriptor() int32 {
	if b.buffer == nil {
		return -1
	}
	return b.buffer.Descriptor()
}

// Staging returns the host copy for a frame index, nil before the first allocation.
func (b *StructuredBuffer) Staging(frame int) []byte {
	if b.staging.Len() == 0 || b.capacity == 0 {
		return nil
	}
	return b.staging.At(frame)
}

// Slot returns the stride-sized staging window of record i for a frame index.
func (b *StructuredBuffer) Slot(frame, i int) []byte {
	start := uint64(i) * b.Stride
	return b.Staging(frame)[start : start+b.Stride]
}

// Write serializes rec into slot i of the frame's staging copy. Distinct slots may be
// written concurrently.
//
// Parameters:
//   - frame: the frame index being built
//   - i: record index, below Capacity
//   - rec: the record to write
func (b *StructuredBuffer) Write(frame, i int, rec Record) {
	rec.MarshalTo(b.Slot(frame, i))
}

// Zero clears the frame's staging copy.
func (b *StructuredBuffer) Zero(frame int) {
	clear(b.Staging(frame))
}

// Flush uploads the frame's staging copy into the device buffer.
func (b *StructuredBuffer) Flush(frame int) {
	if b.buffer == nil {
		return
	}
	b.device.WriteBuffer(b.buffer, 0, b.Staging(frame))
}

// Release frees the device buffer and the staging copies and resets capacity.
func (b *StructuredBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
	}
	b.buffer = nil
	b.staging = Ring[[]byte]{}
	b.capacity = 0
}

// CompositeLayout places the index, vertex and metadata regions of a packed buffer at
// offsets that satisfy the device binding alignment.
type CompositeLayout struct {
	IndexOffset  uint64
	VertexOffset uint64
	DataOffset   uint64
	Size         uint64
}

// NewCompositeLayout computes aligned region offsets.
//
// Parameters:
//   - alignment: the device's MinOffsetAlignment
//   - indexBytes, vertexBytes, dataBytes: region sizes
//
// Returns:
//   - CompositeLayout: offsets and the total aligned size
func NewCompositeLayout(alignment, indexBytes, vertexBytes, dataBytes uint64) CompositeLayout {
	var l CompositeLayout
	l.IndexOffset = 0
	l.VertexOffset = common.AlignTo(l.IndexOffset+indexBytes, alignment)
	l.DataOffset = common.AlignTo(l.VertexOffset+vertexBytes, alignment)
	l.Size = common.AlignTo(l.DataOffset+dataBytes, alignment)
	return l
}
