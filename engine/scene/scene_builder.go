package scene

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the engine updates the scene.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithLogger sets the logger used for warnings and script diagnostics.
//
// Parameters:
//   - logger: the logger, nil keeps the no-op default
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScheduler shares an existing scheduler with the scene. The scene does not close a
// scheduler it did not create. Without this option the scene creates its own.
//
// Parameters:
//   - scheduler: the scheduler every Update dispatches onto
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithScheduler(scheduler jobsystem.Scheduler) SceneBuilderOption {
	return func(s *scene) {
		s.scheduler = scheduler
		s.ownsSched = false
	}
}

// WithDevice sets the graphics device the arenas and render targets are created on.
// Defaults to a headless memory device.
//
// Parameters:
//   - device: the device
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDevice(device gpu.Device) SceneBuilderOption {
	return func(s *scene) {
		s.device = device
	}
}

// WithTopDownHierarchy resolves hierarchy edges in store order, each child reading its
// parent's finished world matrix, instead of walking every ancestor chain in parallel.
// Both produce the same matrices.
//
// Parameters:
//   - enabled: true for the ordered single pass
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTopDownHierarchy(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.topDownHierarchy = enabled
	}
}

// WithPhysics sets the physics engine run concurrently with animation every frame.
//
// Parameters:
//   - physics: the physics system
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPhysics(physics PhysicsSystem) SceneBuilderOption {
	return func(s *scene) {
		s.physics = physics
	}
}

// WithAudio sets the audio engine sound components play through.
//
// Parameters:
//   - audio: the audio engine
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAudio(audio AudioEngine) SceneBuilderOption {
	return func(s *scene) {
		s.audio = audio
	}
}

// WithScripts sets the runtime playing script components execute on.
//
// Parameters:
//   - runner: the script runner
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithScripts(runner ScriptRunner) SceneBuilderOption {
	return func(s *scene) {
		s.scripts = runner
	}
}

// WithTerrain sets the terrain generator kicked off at the start of every frame.
//
// Parameters:
//   - terrain: the generator
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTerrain(terrain TerrainGenerator) SceneBuilderOption {
	return func(s *scene) {
		s.terrain = terrain
	}
}

// WithSurfelGI enables the surfel global illumination resources.
func WithSurfelGI(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.surfelGI = enabled
	}
}

// WithDDGI enables the dynamic diffuse global illumination probe volume.
func WithDDGI(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.ddgiEnabled = enabled
	}
}

// WithImpostorCaptureAngles sets how many views each impostor captures around its mesh.
//
// Parameters:
//   - n: capture angles per impostor (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithImpostorCaptureAngles(n uint32) SceneBuilderOption {
	return func(s *scene) {
		s.captureAngles = max(n, 1)
	}
}

// WithRand seeds the procedural expression and ripple randomness.
func WithRand(seed1, seed2 uint64) SceneBuilderOption {
	return func(s *scene) {
		s.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
}
