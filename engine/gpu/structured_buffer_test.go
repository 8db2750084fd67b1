package gpu

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	A, B uint32
}

func (r testRecord) Size() int { return 8 }

func (r testRecord) MarshalTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], r.A)
	binary.LittleEndian.PutUint32(dst[4:8], r.B)
}

func TestEnsureGrowsByDoublingAndNeverShrinks(t *testing.T) {
	d := NewMemoryDevice(WithInFlightFrames(3))
	b := NewStructuredBuffer(d, "instances", 8, BufferUsageStorage)

	assert.False(t, b.Ensure(0))
	assert.Equal(t, 0, b.Capacity())
	assert.Nil(t, b.Staging(0))

	prev := 0
	for _, required := range []int{1, 2, 2, 5, 3, 40, 10, 0, 81} {
		b.Ensure(required)
		require.GreaterOrEqual(t, b.Capacity(), required)
		require.GreaterOrEqual(t, b.Capacity(), prev)
		prev = b.Capacity()
	}
	assert.Equal(t, 162, b.Capacity())
	assert.Len(t, b.Staging(2), 162*8)

	stats := d.Stats()
	assert.Equal(t, 1, stats.LiveBuffers)
	assert.Equal(t, 4, stats.BufferCreations)
	assert.Equal(t, uint64(162*8), stats.AllocatedBytes)
}

func TestWriteAndFlushUploadFrameCopy(t *testing.T) {
	d := NewMemoryDevice(WithInFlightFrames(2))
	b := NewStructuredBuffer(d, "materials", 8, BufferUsageStorage)
	b.Ensure(2)

	b.Write(0, 1, testRecord{A: 7, B: 9})
	b.Write(1, 1, testRecord{A: 100, B: 200})

	b.Flush(0)
	contents := d.Contents(b.Buffer())
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(contents[8:12]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(contents[12:16]))

	b.Flush(1)
	assert.Equal(t, uint32(100), binary.LittleEndian.Uint32(contents[8:12]))

	// frame indices wrap around the ring
	assert.Equal(t, b.Staging(0), b.Staging(2))

	b.Zero(1)
	assert.Equal(t, make([]byte, b.Capacity()*8), b.Staging(1))
}

func TestEnsurePanicsOnDeviceFailure(t *testing.T) {
	d := NewMemoryDevice(WithAllocationLimit(64))
	b := NewStructuredBuffer(d, "geometry", 80, BufferUsageStorage)
	assert.PanicsWithValue(t,
		`gpu: failed to create buffer "geometry": buffer "geometry" (160 bytes): out of device memory`,
		func() { b.Ensure(1) })
}

func TestReleaseResetsCapacity(t *testing.T) {
	d := NewMemoryDevice()
	b := NewStructuredBuffer(d, "meshlets", 16, BufferUsageStorage)
	b.Ensure(4)
	b.Release()
	assert.Equal(t, 0, b.Capacity())
	assert.Equal(t, int32(-1), b.Descriptor())
	assert.Equal(t, 0, d.Stats().LiveBuffers)
	assert.Equal(t, uint64(0), d.Stats().AllocatedBytes)
	assert.NotPanics(t, func() { b.Flush(0) })
}

func TestCompositeLayoutAlignment(t *testing.T) {
	l := NewCompositeLayout(256, 100, 300, 8)
	assert.Equal(t, uint64(0), l.IndexOffset)
	assert.Equal(t, uint64(256), l.VertexOffset)
	assert.Equal(t, uint64(768), l.DataOffset)
	assert.Equal(t, uint64(1024), l.Size)

	packed := NewCompositeLayout(0, 100, 300, 8)
	assert.Equal(t, uint64(100), packed.VertexOffset)
	assert.Equal(t, uint64(408), packed.Size)
}

func TestTextureDescSizes(t *testing.T) {
	desc := TextureDesc{Width: 4, Height: 4, MipLevels: 3, ArrayLayers: 2, Cube: true, Format: TextureFormatRGBA8Unorm}
	assert.Equal(t, uint32(12), desc.Layers())
	// 4x4 + 2x2 + 1x1 texels per face
	assert.Equal(t, uint64((16+4+1)*4*12), desc.ByteSize())

	d := NewMemoryDevice()
	tex := MustCreateTexture(d, desc)
	assert.Equal(t, 1, d.Stats().LiveTextures)
	tex.Release()
	tex.Release()
	assert.Equal(t, 0, d.Stats().LiveTextures)

	_, err := d.CreateTexture(TextureDesc{Label: "empty"})
	assert.Error(t, err)
}
