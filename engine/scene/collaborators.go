package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"go.uber.org/zap"
)

// PhysicsSystem advances rigid and soft bodies. It runs as one task concurrently with the
// animation and transform passes and may only touch rigid body, soft body and physics owned
// transform state.
type PhysicsSystem interface {
	RunPhysicsUpdateSystem(s Scene, dt float32)
}

// SoundListener is the ear position used for 3D audio.
type SoundListener struct {
	Position common.Vec3
	Front    common.Vec3
	Up       common.Vec3
}

// AudioEngine plays sound components. Calls arrive from a single task per frame.
type AudioEngine interface {
	Play(e ecs.Entity, s *SoundComponent)
	Stop(e ecs.Entity, s *SoundComponent)
	ExitLoop(e ecs.Entity, s *SoundComponent)
	SetVolume(e ecs.Entity, volume float32)
	Update3D(e ecs.Entity, listener SoundListener, emitter common.Vec3)
}

// ScriptRunner executes script source. It is only called from the frame goroutine.
type ScriptRunner interface {
	RunScript(name, source string) error
}

// TerrainGenerator streams terrain chunks around the main camera. Generate must not block.
type TerrainGenerator interface {
	Generate(s Scene, cam *camera.Camera, dt float32)
}

type nopPhysics struct{}

func (nopPhysics) RunPhysicsUpdateSystem(Scene, float32) {}

type nopTerrain struct{}

func (nopTerrain) Generate(Scene, *camera.Camera, float32) {}

type nopScripts struct{}

func (nopScripts) RunScript(string, string) error { return nil }

// LogAudioEngine is an AudioEngine without an output device. It tracks which sounds are
// playing and logs state changes at debug level.
type LogAudioEngine struct {
	mu      sync.Mutex
	logger  *zap.Logger
	playing map[ecs.Entity]bool
	volume  map[ecs.Entity]float32
}

var _ AudioEngine = &LogAudioEngine{}

// NewLogAudioEngine creates a LogAudioEngine.
//
// Parameters:
//   - logger: destination for state changes, nil for none
//
// Returns:
//   - *LogAudioEngine: the engine
func NewLogAudioEngine(logger *zap.Logger) *LogAudioEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAudioEngine{
		logger:  logger,
		playing: make(map[ecs.Entity]bool),
		volume:  make(map[ecs.Entity]float32),
	}
}

func (a *LogAudioEngine) Play(e ecs.Entity, s *SoundComponent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.playing[e] {
		a.logger.Debug("sound started", zap.Uint64("entity", uint64(e)), zap.String("file", s.Filename))
	}
	a.playing[e] = true
}

func (a *LogAudioEngine) Stop(e ecs.Entity, s *SoundComponent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playing[e] {
		a.logger.Debug("sound stopped", zap.Uint64("entity", uint64(e)), zap.String("file", s.Filename))
	}
	delete(a.playing, e)
}

func (a *LogAudioEngine) ExitLoop(e ecs.Entity, s *SoundComponent) {}

func (a *LogAudioEngine) SetVolume(e ecs.Entity, volume float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume[e] = volume
}

func (a *LogAudioEngine) Update3D(e ecs.Entity, listener SoundListener, emitter common.Vec3) {}

// IsPlaying reports whether e is currently playing.
func (a *LogAudioEngine) IsPlaying(e ecs.Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing[e]
}

// Volume returns the last volume set for e.
func (a *LogAudioEngine) Volume(e ecs.Entity) float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume[e]
}
