package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/profiler"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default one-second profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.tickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithPacing chooses between waiting for the tick rate between frames (true, default) and
// stepping frames back to back with the same fixed delta (false).
//
// Parameters:
//   - paced: whether Run waits for each tick
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPacing(paced bool) EngineBuilderOption {
	return func(e *engine) {
		e.paced = paced
	}
}

// WithFrameLimit makes Run return after n frames. 0 runs until cancelled.
func WithFrameLimit(n int) EngineBuilderOption {
	return func(e *engine) {
		e.frameLimit = max(n, 0)
	}
}

// WithLogger sets the logger for lifecycle events and recovered frame panics.
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithScene registers a scene at the given key during engine construction.
// Scenes are updated in ascending key order.
//
// Parameters:
//   - key: the order key (lower updates first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}
