package gpu

// MemoryDeviceBuilderOption is a functional option for configuring a MemoryDevice.
type MemoryDeviceBuilderOption func(d *memoryDevice)

// WithInFlightFrames sets how many staging copies structured buffers keep.
//
// Parameters:
//   - n: frames in flight (minimum 1)
//
// Returns:
//   - MemoryDeviceBuilderOption: option function to apply
func WithInFlightFrames(n int) MemoryDeviceBuilderOption {
	return func(d *memoryDevice) {
		d.inFlight = max(n, 1)
	}
}

// WithCapabilities enables optional capabilities on the device.
//
// Parameters:
//   - caps: capabilities to report as available
//
// Returns:
//   - MemoryDeviceBuilderOption: option function to apply
func WithCapabilities(caps ...Capability) MemoryDeviceBuilderOption {
	return func(d *memoryDevice) {
		for _, c := range caps {
			d.capabilities[c] = true
		}
	}
}

// WithMinOffsetAlignment overrides the 256 byte default binding offset alignment.
func WithMinOffsetAlignment(alignment uint64) MemoryDeviceBuilderOption {
	return func(d *memoryDevice) {
		if alignment > 0 {
			d.minOffsetAlignment = alignment
		}
	}
}

// WithAllocationLimit makes resource creation fail once live allocations would exceed limit bytes.
// A limit of 0 means unlimited.
func WithAllocationLimit(limit uint64) MemoryDeviceBuilderOption {
	return func(d *memoryDevice) {
		d.limit = limit
	}
}
