// Package config loads the TOML file that drives the oxy-scene command.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Device    DeviceConfig    `toml:"device"`
	Scene     SceneConfig     `toml:"scene"`
	Scripts   ScriptsConfig   `toml:"scripts"`
	Logging   LoggingConfig   `toml:"logging"`
	Profiling ProfilingConfig `toml:"profiling"`
}

type EngineConfig struct {
	TickRate       float64 `toml:"tick_rate"`        // updates per second
	Frames         int     `toml:"frames"`           // 0 = run until interrupted
	InFlightFrames int     `toml:"in_flight_frames"` // staging copies per structured buffer
	Paced          bool    `toml:"paced"`            // false steps frames back to back
}

type SchedulerConfig struct {
	Workers   int `toml:"workers"` // 0 = scheduler default
	QueueSize int `toml:"queue_size"`
}

type DeviceConfig struct {
	Backend            string `toml:"backend"` // "memory" or "wgpu"
	Raytracing         bool   `toml:"raytracing"`
	MinOffsetAlignment uint64 `toml:"min_offset_alignment"`
	ForceFallback      bool   `toml:"force_fallback"` // wgpu only
}

type SceneConfig struct {
	Name                  string `toml:"name"`
	TopDownHierarchy      bool   `toml:"top_down_hierarchy"`
	SurfelGI              bool   `toml:"surfel_gi"`
	DDGI                  bool   `toml:"ddgi"`
	ImpostorCaptureAngles int    `toml:"impostor_capture_angles"`
	Dump                  string `toml:"dump"` // YAML archive written after the run, empty to skip
}

type ScriptsConfig struct {
	Paths []string `toml:"paths"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ProfilingConfig struct {
	Enabled bool   `toml:"enabled"`
	Mode    string `toml:"mode"` // "cpu" or "mem"
	Dir     string `toml:"dir"`
}

const (
	BackendMemory = "memory"
	BackendWGPU   = "wgpu"
)

// Load reads the file at path over the defaults and validates the result.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Config: the merged configuration
//   - error: an error if the file cannot be read, parsed or fails validation
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes data over the defaults. name only labels errors.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Defaults()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse config %s: unknown key %q", name, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", name, err)
	}
	return cfg, nil
}

// Defaults returns the configuration used when no file overrides a value.
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate:       60,
			Frames:         600,
			InFlightFrames: 2,
			Paced:          true,
		},
		Scheduler: SchedulerConfig{
			Workers:   0,
			QueueSize: 1024,
		},
		Device: DeviceConfig{
			Backend:            BackendMemory,
			MinOffsetAlignment: 256,
		},
		Scene: SceneConfig{
			Name:                  "main",
			ImpostorCaptureAngles: 36,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Profiling: ProfilingConfig{
			Mode: "cpu",
			Dir:  ".",
		},
	}
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var err error
	if c.Engine.TickRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.tick_rate must be positive, got %v", c.Engine.TickRate))
	}
	if c.Engine.Frames < 0 {
		err = multierr.Append(err, fmt.Errorf("engine.frames must not be negative, got %d", c.Engine.Frames))
	}
	if c.Engine.InFlightFrames < 1 {
		err = multierr.Append(err, fmt.Errorf("engine.in_flight_frames must be at least 1, got %d", c.Engine.InFlightFrames))
	}
	if c.Scheduler.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("scheduler.workers must not be negative, got %d", c.Scheduler.Workers))
	}
	if c.Scheduler.QueueSize < 1 {
		err = multierr.Append(err, fmt.Errorf("scheduler.queue_size must be at least 1, got %d", c.Scheduler.QueueSize))
	}
	switch c.Device.Backend {
	case BackendMemory, BackendWGPU:
	default:
		err = multierr.Append(err, fmt.Errorf("device.backend must be %q or %q, got %q", BackendMemory, BackendWGPU, c.Device.Backend))
	}
	if a := c.Device.MinOffsetAlignment; a == 0 || a&(a-1) != 0 {
		err = multierr.Append(err, fmt.Errorf("device.min_offset_alignment must be a power of two, got %d", a))
	}
	if c.Scene.ImpostorCaptureAngles < 1 {
		err = multierr.Append(err, fmt.Errorf("scene.impostor_capture_angles must be at least 1, got %d", c.Scene.ImpostorCaptureAngles))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format must be \"json\" or \"console\", got %q", c.Logging.Format))
	}
	if c.Profiling.Enabled {
		switch c.Profiling.Mode {
		case "cpu", "mem":
		default:
			err = multierr.Append(err, fmt.Errorf("profiling.mode must be \"cpu\" or \"mem\", got %q", c.Profiling.Mode))
		}
	}
	if c.Scene.Name == "" {
		err = multierr.Append(err, errors.New("scene.name must not be empty"))
	}
	return err
}
