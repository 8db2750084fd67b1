// Package renderer adapts a WebGPU device to the scene's gpu.Device interface.
package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// WGPUDevice is a gpu.Device backed by a headless WebGPU adapter.
type WGPUDevice interface {
	gpu.Device

	// Release destroys the queue, device, adapter and instance.
	Release()
}

type wgpuDevice struct {
	mu     sync.Mutex
	logger *zap.Logger

	forceFallbackAdapter bool
	inFlight             int
	capabilities         map[gpu.Capability]bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	nextDescriptor atomic.Int32
}

type wgpuBuffer struct {
	buffer     *wgpu.Buffer
	desc       gpu.BufferDesc
	descriptor int32
}

type wgpuTexture struct {
	texture    *wgpu.Texture
	view       *wgpu.TextureView
	desc       gpu.TextureDesc
	descriptor int32
}

var _ WGPUDevice = &wgpuDevice{}
var _ gpu.Buffer = &wgpuBuffer{}
var _ gpu.Texture = &wgpuTexture{}

// NewWGPUDevice requests an adapter without a surface and opens a device on it.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - WGPUDevice: the opened device
//   - error: an error if no adapter or device could be acquired
func NewWGPUDevice(options ...WGPUDeviceBuilderOption) (WGPUDevice, error) {
	runtime.LockOSThread()
	w := &wgpuDevice{
		logger:       zap.NewNop(),
		inFlight:     2,
		capabilities: map[gpu.Capability]bool{gpu.CapabilityPredication: true},
		instance:     wgpu.CreateInstance(nil),
	}
	for _, opt := range options {
		opt(w)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: w.forceFallbackAdapter,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Scene Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	w.logger.Info("wgpu device ready", zap.Bool("fallback", w.forceFallbackAdapter), zap.Int("in_flight", w.inFlight))
	return w, nil
}

func (w *wgpuDevice) CreateBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf, err := w.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            bufferUsage(desc.Usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{
		buffer:     buf,
		desc:       desc,
		descriptor: w.nextDescriptor.Add(1) - 1,
	}, nil
}

func (w *wgpuDevice) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tex, err := w.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Layers(),
		},
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        textureFormat(desc.Format),
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create view for %q: %w", desc.Label, err)
	}
	return &wgpuTexture{
		texture:    tex,
		view:       view,
		desc:       desc,
		descriptor: w.nextDescriptor.Add(1) - 1,
	}, nil
}

func (w *wgpuDevice) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb.buffer == nil || len(data) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.queue.WriteBuffer(wb.buffer, offset, data); err != nil {
		w.logger.Error("buffer upload failed", zap.String("buffer", wb.desc.Label), zap.Error(err))
	}
}

func (w *wgpuDevice) CheckCapability(c gpu.Capability) bool {
	return w.capabilities[c]
}

func (w *wgpuDevice) MinOffsetAlignment() uint64 {
	return uint64(wgpu.DefaultLimits().MinStorageBufferOffsetAlignment)
}

func (w *wgpuDevice) BufferCount() int {
	return w.inFlight
}

func (w *wgpuDevice) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue != nil {
		w.queue.Release()
		w.queue = nil
	}
	if w.device != nil {
		w.device.Release()
		w.device = nil
	}
	if w.adapter != nil {
		w.adapter.Release()
		w.adapter = nil
	}
	if w.instance != nil {
		w.instance.Release()
		w.instance = nil
	}
}

func (b *wgpuBuffer) Label() string     { return b.desc.Label }
func (b *wgpuBuffer) Size() uint64      { return b.desc.Size }
func (b *wgpuBuffer) Descriptor() int32 { return b.descriptor }

func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

func (t *wgpuTexture) Desc() gpu.TextureDesc { return t.desc }
func (t *wgpuTexture) Descriptor() int32     { return t.descriptor }

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&gpu.BufferUsageStorage != 0 || u&gpu.BufferUsageRaytracing != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&gpu.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&gpu.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&gpu.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gpu.BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&gpu.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func textureUsage(u gpu.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&gpu.TextureUsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&gpu.TextureUsageRenderTarget != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&gpu.TextureUsageStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&gpu.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func textureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gpu.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case gpu.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gpu.TextureFormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case gpu.TextureFormatR32Uint:
		return wgpu.TextureFormatR32Uint
	case gpu.TextureFormatR32Float:
		return wgpu.TextureFormatR32Float
	case gpu.TextureFormatRG32Float:
		return wgpu.TextureFormatRG32Float
	}
	return wgpu.TextureFormatUndefined
}
