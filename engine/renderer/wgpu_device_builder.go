package renderer

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"go.uber.org/zap"
)

// WGPUDeviceBuilderOption is a functional option applied to a device during construction via NewWGPUDevice.
type WGPUDeviceBuilderOption func(*wgpuDevice)

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - WGPUDeviceBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) WGPUDeviceBuilderOption {
	return func(w *wgpuDevice) {
		w.forceFallbackAdapter = force
	}
}

// WithInFlightFrames sets the number of frames the renderer keeps in flight. Defaults to 2.
//
// Parameters:
//   - n: frames in flight (minimum 1)
//
// Returns:
//   - WGPUDeviceBuilderOption: option function to apply
func WithInFlightFrames(n int) WGPUDeviceBuilderOption {
	return func(w *wgpuDevice) {
		w.inFlight = max(n, 1)
	}
}

// WithRaytracing reports raytracing as available. WebGPU has no acceleration structures, so
// this only makes the scene stage TLAS instance records for an external consumer.
func WithRaytracing(enabled bool) WGPUDeviceBuilderOption {
	return func(w *wgpuDevice) {
		w.capabilities[gpu.CapabilityRaytracing] = enabled
	}
}

// WithLogger sets the logger used for device lifecycle and upload failures.
func WithLogger(l *zap.Logger) WGPUDeviceBuilderOption {
	return func(w *wgpuDevice) {
		if l != nil {
			w.logger = l
		}
	}
}
