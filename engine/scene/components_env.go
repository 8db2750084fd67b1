package scene

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
)

// DecalComponent projects its same-entity material onto surfaces inside a unit box.
type DecalComponent struct {
	Slope float32 `yaml:"slope"`

	World     common.Mat4 `yaml:"-"`
	Position  common.Vec3 `yaml:"-"`
	Front     common.Vec3 `yaml:"-"`
	Range     float32     `yaml:"-"`
	Color     common.Vec4 `yaml:"-"`
	Emissive  float32     `yaml:"-"`
	LayerMask uint32      `yaml:"-"`
}

func (d *DecalComponent) SetDefaults() {
	d.World = common.Mat4Identity()
	d.Color = common.Vec4{1, 1, 1, 1}
	d.LayerMask = ^uint32(0)
}

// ProbeFlags toggle environment probe behavior.
type ProbeFlags uint32

const (
	ProbeDirty ProbeFlags = 1 << iota
	ProbeRealTime
)

// EnvironmentProbeComponent captures a cube map of its surroundings.
type EnvironmentProbeComponent struct {
	Flags ProbeFlags `yaml:"flags"`

	TextureIndex  int32       `yaml:"-"`
	RenderDirty   bool        `yaml:"-"`
	Position      common.Vec3 `yaml:"-"`
	Range         float32     `yaml:"-"`
	InverseMatrix common.Mat4 `yaml:"-"`
}

func (p *EnvironmentProbeComponent) SetDefaults() {
	p.Flags = ProbeDirty
	p.TextureIndex = -1
}

func (p *EnvironmentProbeComponent) SetDirty()        { p.Flags |= ProbeDirty }
func (p *EnvironmentProbeComponent) IsDirty() bool    { return p.Flags&ProbeDirty != 0 }
func (p *EnvironmentProbeComponent) IsRealTime() bool { return p.Flags&ProbeRealTime != 0 }

// ForceFieldType selects the shape of a force field.
type ForceFieldType uint32

const (
	ForceFieldPoint ForceFieldType = iota
	ForceFieldPlane
)

// ForceFieldComponent attracts or repels particles and springs.
type ForceFieldComponent struct {
	Type    ForceFieldType `yaml:"type"`
	Gravity float32        `yaml:"gravity"`
	Range   float32        `yaml:"range"`

	Position  common.Vec3 `yaml:"-"`
	Direction common.Vec3 `yaml:"-"`
}

func (f *ForceFieldComponent) SetDefaults() {
	f.Range = 10
}

// WeatherComponent holds global atmosphere and wind parameters. The first one in the scene
// becomes the active weather each frame.
type WeatherComponent struct {
	AmbientColor   common.Vec3 `yaml:"ambient"`
	HorizonColor   common.Vec3 `yaml:"horizon"`
	ZenithColor    common.Vec3 `yaml:"zenith"`
	FogStart       float32     `yaml:"fog_start"`
	FogDensity     float32     `yaml:"fog_density"`
	FogHeightStart float32     `yaml:"fog_height_start"`
	FogHeightEnd   float32     `yaml:"fog_height_end"`
	WindDirection  common.Vec3 `yaml:"wind_direction"`
	WindSpeed      float32     `yaml:"wind_speed"`
	WindRandomness float32     `yaml:"wind_randomness"`
	WindWaveSize   float32     `yaml:"wind_wave_size"`

	SunColor                common.Vec3 `yaml:"-"`
	SunDirection            common.Vec3 `yaml:"-"`
	MostImportantLightIndex uint32      `yaml:"-"`
}

func (w *WeatherComponent) SetDefaults() {
	w.AmbientColor = common.Vec3{0.2, 0.2, 0.2}
	w.HorizonColor = common.Vec3{0.6, 0.7, 0.8}
	w.ZenithColor = common.Vec3{0.2, 0.4, 0.8}
	w.FogDensity = 0.01
	w.WindSpeed = 1
	w.WindWaveSize = 1
	w.SunDirection = common.Vec3{0, 1, 0}
	w.MostImportantLightIndex = ^uint32(0)
}

// SoundFlags control sound playback.
type SoundFlags uint32

const (
	SoundPlaying SoundFlags = 1 << iota
	SoundLooped
	SoundDisable3D
)

// SoundComponent plays an audio file through the scene's audio engine.
type SoundComponent struct {
	Filename string     `yaml:"filename"`
	Flags    SoundFlags `yaml:"flags"`
	Volume   float32    `yaml:"volume"`
}

func (s *SoundComponent) SetDefaults() {
	s.Flags = SoundLooped
	s.Volume = 1
}

func (s *SoundComponent) IsPlaying() bool   { return s.Flags&SoundPlaying != 0 }
func (s *SoundComponent) IsLooped() bool    { return s.Flags&SoundLooped != 0 }
func (s *SoundComponent) IsDisable3D() bool { return s.Flags&SoundDisable3D != 0 }
func (s *SoundComponent) Play()             { s.Flags |= SoundPlaying }
func (s *SoundComponent) Stop()             { s.Flags &^= SoundPlaying }

// ScriptFlags control script execution.
type ScriptFlags uint32

const (
	ScriptPlaying ScriptFlags = 1 << iota
	ScriptPlayOnce
)

// ScriptComponent runs Lua source once per frame while playing.
type ScriptComponent struct {
	Filename string      `yaml:"filename"`
	Source   string      `yaml:"source"`
	Flags    ScriptFlags `yaml:"flags"`

	compiled string
}

func (s *ScriptComponent) IsPlaying() bool  { return s.Flags&ScriptPlaying != 0 }
func (s *ScriptComponent) IsPlayOnce() bool { return s.Flags&ScriptPlayOnce != 0 }
func (s *ScriptComponent) Play()            { s.Flags |= ScriptPlaying }
func (s *ScriptComponent) Stop()            { s.Flags &^= ScriptPlaying }

// SetPlayOnce makes the script stop after its next run.
func (s *ScriptComponent) SetPlayOnce(v bool) {
	if v {
		s.Flags |= ScriptPlayOnce
	} else {
		s.Flags &^= ScriptPlayOnce
	}
}

// HairComponent grows strands over the surface of a mesh.
type HairComponent struct {
	MeshID       ecs.Entity `yaml:"mesh"`
	StrandCount  uint32     `yaml:"strand_count"`
	SegmentCount uint32     `yaml:"segment_count"`
	Length       float32    `yaml:"length"`
	Stiffness    float32    `yaml:"stiffness"`

	LayerMask     uint32      `yaml:"-"`
	GeometryIndex uint32      `yaml:"-"`
	MeshletCount  uint32      `yaml:"-"`
	AABB          common.AABB `yaml:"-"`
}

func (h *HairComponent) SetDefaults() {
	h.StrandCount = 400
	h.SegmentCount = 1
	h.Length = 1
	h.Stiffness = 10
	h.LayerMask = ^uint32(0)
}

// UpdateCPU refreshes the bounding box and meshlet count from the base mesh.
func (h *HairComponent) UpdateCPU(world common.Mat4, mesh *MeshComponent) {
	h.MeshletCount = TriangleCountToMeshletCount(h.StrandCount * h.SegmentCount * 2)
	if mesh == nil || !mesh.AABB.IsValid() {
		h.AABB = common.EmptyAABB()
		return
	}
	grown := mesh.AABB
	pad := common.Vec3{h.Length, h.Length, h.Length}
	grown.Min = grown.Min.Sub(pad)
	grown.Max = grown.Max.Add(pad)
	h.AABB = grown.Transform(world)
}

func (h *HairComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	h.MeshID = remap(h.MeshID)
}

// EmitterFlags toggle emitter features.
type EmitterFlags uint32

const (
	EmitterPaused EmitterFlags = 1 << iota
	EmitterUnlit
)

// Particle is one simulated emitter particle.
type Particle struct {
	Position common.Vec3
	Velocity common.Vec3
	Life     float32
	MaxLife  float32
}

// EmitterComponent spawns particles at its transform.
type EmitterComponent struct {
	Flags        EmitterFlags `yaml:"flags"`
	Count        float32      `yaml:"count"`
	Life         float32      `yaml:"life"`
	Velocity     common.Vec3  `yaml:"velocity"`
	RandomFactor float32      `yaml:"random_factor"`
	Size         float32      `yaml:"size"`
	MaxParticles uint32       `yaml:"max_particles"`

	Particles     []Particle  `yaml:"-"`
	EmitAccum     float32     `yaml:"-"`
	LayerMask     uint32      `yaml:"-"`
	GeometryIndex uint32      `yaml:"-"`
	MeshletCount  uint32      `yaml:"-"`
	AABB          common.AABB `yaml:"-"`
}

func (e *EmitterComponent) SetDefaults() {
	e.Count = 10
	e.Life = 1
	e.Velocity = common.Vec3{0, 1, 0}
	e.Size = 1
	e.MaxParticles = 1000
	e.LayerMask = ^uint32(0)
	e.AABB = common.EmptyAABB()
}

func (e *EmitterComponent) IsPaused() bool { return e.Flags&EmitterPaused != 0 }
func (e *EmitterComponent) IsUnlit() bool  { return e.Flags&EmitterUnlit != 0 }

// UpdateCPU ages live particles, spawns Count particles per second at the emitter origin and
// refreshes the bounding box and meshlet count.
//
// Parameters:
//   - world: the emitter's world matrix
//   - dt: elapsed seconds, no spawning when <= 0
func (e *EmitterComponent) UpdateCPU(world common.Mat4, dt float32) {
	alive := e.Particles[:0]
	for _, p := range e.Particles {
		p.Life -= dt
		if p.Life <= 0 {
			continue
		}
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
		alive = append(alive, p)
	}
	e.Particles = alive

	if !e.IsPaused() && dt > 0 {
		e.EmitAccum += e.Count * dt
		origin := world.Translation()
		dir := world.TransformNormal(e.Velocity)
		for e.EmitAccum >= 1 && uint32(len(e.Particles)) < e.MaxParticles {
			e.EmitAccum--
			jitter := common.Vec3{rand.Float32()*2 - 1, rand.Float32()*2 - 1, rand.Float32()*2 - 1}
			e.Particles = append(e.Particles, Particle{
				Position: origin,
				Velocity: dir.Add(jitter.Scale(e.RandomFactor)),
				Life:     e.Life,
				MaxLife:  e.Life,
			})
		}
		if uint32(len(e.Particles)) >= e.MaxParticles {
			e.EmitAccum = 0
		}
	}

	e.AABB = common.EmptyAABB()
	half := common.Vec3{e.Size, e.Size, e.Size}.Scale(0.5)
	for _, p := range e.Particles {
		e.AABB.AddPoint(p.Position.Sub(half))
		e.AABB.AddPoint(p.Position.Add(half))
	}
	e.MeshletCount = TriangleCountToMeshletCount(uint32(len(e.Particles)) * 2)
}

// WaterRipple is a short lived ripple sprite on a water surface.
type WaterRipple struct {
	Position common.Vec3 `yaml:"position"`
	Rotation float32     `yaml:"rotation"`
	Scale    float32     `yaml:"scale"`
	Opacity  float32     `yaml:"opacity"`
	Fade     float32     `yaml:"fade"`
	Growth   float32     `yaml:"growth"`
}

// update ages the ripple by a frame-rate normalized step.
func (r *WaterRipple) update(step float32) {
	r.Scale += r.Growth * step
	r.Opacity -= r.Fade * step
}

func (r *WaterRipple) expired() bool { return r.Opacity <= 0 }
