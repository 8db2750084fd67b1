package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/profiler"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Run when another Run call has not returned yet.
var ErrAlreadyRunning = errors.New("engine: already running")

// engine implements the Engine interface.
// Drives registered scenes from a single frame goroutine.
type engine struct {
	mu     sync.Mutex
	logger *zap.Logger

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	tickRate        time.Duration
	paced           bool
	frameLimit      int
	frames          atomic.Int64

	running     atomic.Bool
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	tickCallback func(deltaTime float32)

	scenes map[int]scene.Scene
}

// Engine advances scenes at a fixed tick rate. Each frame runs the tick callback and then
// updates every active scene in ascending key order with the same delta time.
type Engine interface {
	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The delta time passed to scenes is always 1 / fps.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the start of each frame, before any
	// scene updates. Use this for input, spawning and gameplay logic.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddScene registers a scene at the given key.
	// Scenes are updated in ascending key order.
	//
	// Parameters:
	//   - key: the order key (lower updates first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key. The scene is not closed.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes by key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Step runs one frame synchronously on the calling goroutine.
	// A panic inside a scene update is recovered and returned as an error.
	//
	// Parameters:
	//   - dt: delta time in seconds
	//
	// Returns:
	//   - error: the recovered panic, if any
	Step(dt float32) error

	// Run steps frames until ctx is done, Quit is called, the frame limit is reached or a
	// frame fails. Paced engines wait for the tick rate between frames; unpaced engines
	// step back to back with the same fixed delta.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: ctx.Err() on cancellation, the frame error on failure, nil otherwise
	Run(ctx context.Context) error

	// Frames returns how many frames have completed.
	Frames() int

	// Quit signals Run to return after the current frame.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Defaults to a paced 60Hz loop with no frame limit and a no-op logger.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:          zap.NewNop(),
		tickRateChannel: make(chan time.Duration, 1),
		tickRate:        time.Second / 60,
		paced:           true,
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger.Named("profiler")))
	}
	return e
}

// Quit signals Run to stop.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("engine started",
		zap.Duration("tick", e.tickRate),
		zap.Bool("paced", e.paced),
		zap.Int("frame_limit", e.frameLimit),
	)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if e.paced {
		ticker = time.NewTicker(e.tickRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-e.quitChannel:
			return nil
		default:
		}
		if e.frameLimit > 0 && e.Frames() >= e.frameLimit {
			e.logger.Info("frame limit reached", zap.Int("frames", e.Frames()))
			return nil
		}

		if e.paced {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.quitChannel:
				return nil
			case newRate := <-e.tickRateChannel:
				ticker.Reset(newRate)
				e.tickRate = newRate
				continue
			case <-tick:
			}
		} else {
			select {
			case newRate := <-e.tickRateChannel:
				e.tickRate = newRate
			default:
			}
		}

		if err := e.Step(float32(e.tickRate.Seconds())); err != nil {
			return err
		}
	}
}

func (e *engine) Step(dt float32) (err error) {
	frame := e.Frames()
	// Recover from panics inside a frame so the caller decides whether to keep going.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: frame %d: %v", frame, r)
			e.logger.Error("frame panicked", zap.Int("frame", frame), zap.Any("panic", r))
		}
	}()

	if e.tickCallback != nil {
		e.tickCallback(dt)
	}

	for _, s := range e.activeScenes() {
		s.Update(dt)
	}
	e.frames.Add(1)

	if e.profilingEnabled.Load() {
		e.profiler.Tick()
	}
	return nil
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	active := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) Frames() int {
	return int(e.frames.Load())
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect before the next frame.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.tickRate = newRate
		return
	}
	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
