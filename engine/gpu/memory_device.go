package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrOutOfMemory is returned by a MemoryDevice whose allocation limit would be exceeded.
var ErrOutOfMemory = errors.New("out of device memory")

// MemoryStats is a snapshot of the allocations held by a MemoryDevice.
type MemoryStats struct {
	LiveBuffers      int
	LiveTextures     int
	BufferCreations  int
	TextureCreations int
	Uploads          int
	AllocatedBytes   uint64
}

// MemoryDevice is a headless Device backed by host memory. Buffer writes land in byte
// slices that can be read back, which makes it the device used by tests and by the CLI
// when no adapter is requested.
type MemoryDevice interface {
	Device

	// Contents returns the bytes currently held by buf.
	//
	// Parameters:
	//   - buf: a buffer created by this device
	//
	// Returns:
	//   - []byte: the live backing slice, nil for foreign buffers
	Contents(buf Buffer) []byte

	// Stats returns the current allocation counters.
	Stats() MemoryStats
}

type memoryDevice struct {
	mu                 sync.Mutex
	inFlight           int
	minOffsetAlignment uint64
	capabilities       map[Capability]bool
	limit              uint64

	nextDescriptor atomic.Int32
	stats          MemoryStats
}

type memoryBuffer struct {
	device     *memoryDevice
	desc       BufferDesc
	data       []byte
	descriptor int32
	released   bool
}

type memoryTexture struct {
	device     *memoryDevice
	desc       TextureDesc
	descriptor int32
	released   bool
}

var _ MemoryDevice = &memoryDevice{}
var _ Buffer = &memoryBuffer{}
var _ Texture = &memoryTexture{}

// NewMemoryDevice creates a headless device with 2 frames in flight, a 256 byte offset
// alignment and no optional capabilities unless options say otherwise.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - MemoryDevice: the new device
func NewMemoryDevice(options ...MemoryDeviceBuilderOption) MemoryDevice {
	d := &memoryDevice{
		inFlight:           2,
		minOffsetAlignment: 256,
		capabilities:       map[Capability]bool{},
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *memoryDevice) CreateBuffer(desc BufferDesc) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.reserve(desc.Size); err != nil {
		return nil, fmt.Errorf("buffer %q (%d bytes): %w", desc.Label, desc.Size, err)
	}
	d.stats.LiveBuffers++
	d.stats.BufferCreations++
	return &memoryBuffer{
		device:     d,
		desc:       desc,
		data:       make([]byte, desc.Size),
		descriptor: d.nextDescriptor.Add(1) - 1,
	}, nil
}

func (d *memoryDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q: zero extent %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if err := d.reserve(desc.ByteSize()); err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Label, err)
	}
	d.stats.LiveTextures++
	d.stats.TextureCreations++
	return &memoryTexture{
		device:     d,
		desc:       desc,
		descriptor: d.nextDescriptor.Add(1) - 1,
	}, nil
}

func (d *memoryDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	mb, ok := buf.(*memoryBuffer)
	if !ok || mb.released {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(mb.data[offset:], data)
	d.stats.Uploads++
}

func (d *memoryDevice) CheckCapability(c Capability) bool {
	return d.capabilities[c]
}

func (d *memoryDevice) MinOffsetAlignment() uint64 {
	return d.minOffsetAlignment
}

func (d *memoryDevice) BufferCount() int {
	return d.inFlight
}

func (d *memoryDevice) Contents(buf Buffer) []byte {
	mb, ok := buf.(*memoryBuffer)
	if !ok {
		return nil
	}
	return mb.data
}

func (d *memoryDevice) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// reserve accounts for size bytes against the allocation limit. Callers hold mu.
func (d *memoryDevice) reserve(size uint64) error {
	if d.limit > 0 && d.stats.AllocatedBytes+size > d.limit {
		return ErrOutOfMemory
	}
	d.stats.AllocatedBytes += size
	return nil
}

func (d *memoryDevice) free(size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.AllocatedBytes -= size
}

func (b *memoryBuffer) Label() string     { return b.desc.Label }
func (b *memoryBuffer) Size() uint64      { return b.desc.Size }
func (b *memoryBuffer) Descriptor() int32 { return b.descriptor }

func (b *memoryBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.device.free(b.desc.Size)
	b.device.mu.Lock()
	b.device.stats.LiveBuffers--
	b.device.mu.Unlock()
}

func (t *memoryTexture) Desc() TextureDesc  { return t.desc }
func (t *memoryTexture) Descriptor() int32 { return t.descriptor }

func (t *memoryTexture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.device.free(t.desc.ByteSize())
	t.device.mu.Lock()
	t.device.stats.LiveTextures--
	t.device.mu.Unlock()
}
