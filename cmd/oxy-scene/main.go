// Command oxy-scene runs the scene simulation headless for a configured number of frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-scene/engine"
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/Carmen-Shannon/oxy-scene/engine/profiler"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/Carmen-Shannon/oxy-scene/engine/script"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", os.Getenv("OXY_SCENE_CONFIG"), "path to the TOML config; empty uses defaults")
	frames := flag.Int("frames", -1, "override engine.frames")
	flag.Parse()

	// 1. Load config
	cfg := config.Defaults()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if *frames >= 0 {
		cfg.Engine.Frames = *frames
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Profiling.Enabled {
		mode := profile.CPUProfile
		if cfg.Profiling.Mode == "mem" {
			mode = profile.MemProfileAllocs
		}
		p := profile.Start(mode, profile.ProfilePath(cfg.Profiling.Dir), profile.NoShutdownHook, profile.Quiet)
		defer p.Stop()
		log.Info("profiling", zap.String("mode", cfg.Profiling.Mode), zap.String("dir", cfg.Profiling.Dir))
	}

	// 3. Device and scheduler
	device, release, err := newDevice(cfg, log)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	defer release()

	schedOpts := []jobsystem.SchedulerBuilderOption{
		jobsystem.WithQueueSize(cfg.Scheduler.QueueSize),
		jobsystem.WithLogger(log.Named("jobs")),
	}
	if cfg.Scheduler.Workers > 0 {
		schedOpts = append(schedOpts, jobsystem.WithWorkers(cfg.Scheduler.Workers))
	}
	sched := jobsystem.NewScheduler(schedOpts...)
	defer sched.Close()

	// 4. Scene and scripts
	rt := script.NewRuntime(script.WithLogger(log.Named("lua")))
	defer rt.Close()

	s := scene.NewScene(cfg.Scene.Name,
		scene.WithLogger(log.Named("scene")),
		scene.WithScheduler(sched),
		scene.WithDevice(device),
		scene.WithScripts(rt),
		scene.WithAudio(scene.NewLogAudioEngine(log.Named("audio"))),
		scene.WithTopDownHierarchy(cfg.Scene.TopDownHierarchy),
		scene.WithSurfelGI(cfg.Scene.SurfelGI),
		scene.WithDDGI(cfg.Scene.DDGI),
		scene.WithImpostorCaptureAngles(uint32(cfg.Scene.ImpostorCaptureAngles)),
	)
	defer s.Close()
	rt.Bind(s)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := buildDemo(s)
	if len(cfg.Scripts.Paths) > 0 {
		if err := rt.LoadFiles(ctx, cfg.Scripts.Paths...); err != nil {
			// a broken script should not keep the rest of the scene from running
			log.Error("script load failed", zap.Error(err))
		}
	}

	// 5. Run
	eng := engine.NewEngine(
		engine.WithLogger(log.Named("engine")),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithPacing(cfg.Engine.Paced),
		engine.WithFrameLimit(cfg.Engine.Frames),
		engine.WithProfiling(cfg.Profiling.Enabled),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithLogger(log.Named("profiler")))),
		engine.WithScene(0, s),
	)
	eng.SetTickCallback(d.tick)

	err = eng.Run(ctx)
	log.Info("run finished",
		zap.Int("frames", eng.Frames()),
		zap.Float32("time", s.Time()),
		zap.Int("instances", s.InstanceCount()),
		zap.Int("meshlets", s.MeshletCount()),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}

	if cfg.Scene.Dump != "" {
		if err := dumpScene(s, cfg.Scene.Dump); err != nil {
			return err
		}
		log.Info("scene written", zap.String("path", cfg.Scene.Dump))
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// newDevice opens the configured backend. release frees it.
func newDevice(cfg *config.Config, log *zap.Logger) (gpu.Device, func(), error) {
	switch cfg.Device.Backend {
	case config.BackendWGPU:
		d, err := renderer.NewWGPUDevice(
			renderer.WithLogger(log.Named("wgpu")),
			renderer.WithInFlightFrames(cfg.Engine.InFlightFrames),
			renderer.WithRaytracing(cfg.Device.Raytracing),
			renderer.WithForceFallbackAdapter(cfg.Device.ForceFallback),
		)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Release, nil
	default:
		caps := []gpu.Capability{gpu.CapabilityPredication}
		if cfg.Device.Raytracing {
			caps = append(caps, gpu.CapabilityRaytracing)
		}
		d := gpu.NewMemoryDevice(
			gpu.WithInFlightFrames(cfg.Engine.InFlightFrames),
			gpu.WithCapabilities(caps...),
			gpu.WithMinOffsetAlignment(cfg.Device.MinOffsetAlignment),
		)
		return d, func() {
			st := d.Stats()
			log.Debug("memory device released",
				zap.Int("live_buffers", st.LiveBuffers),
				zap.Int("live_textures", st.LiveTextures),
				zap.Int("uploads", st.Uploads),
				zap.Uint64("allocated_bytes", st.AllocatedBytes),
			)
		}, nil
	}
}

func dumpScene(s scene.Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump %s: %w", path, err)
	}
	if err := s.Archive(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write dump %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close dump %s: %w", path, err)
	}
	return nil
}
