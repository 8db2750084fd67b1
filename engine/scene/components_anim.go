package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/animation"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
)

// AnimationDataComponent stores the keyframes one animation sampler reads.
type AnimationDataComponent struct {
	KeyframeTimes []float32 `yaml:"times"`
	KeyframeData  []float32 `yaml:"data"`
}

// AnimationPath is the closed set of fields an animation channel can drive.
type AnimationPath uint32

const (
	PathTranslation AnimationPath = iota
	PathRotation
	PathScale
	PathWeights
	PathLightColor
	PathLightIntensity
	PathLightRange
	PathLightInnerCone
	PathLightOuterCone
	PathSoundPlay
	PathSoundStop
	PathSoundVolume
	PathEmitterEmitCount
	PathCameraFOV
	PathCameraFocalLength
	PathCameraApertureSize
	PathCameraApertureShape
	PathScriptPlay
	PathScriptStop
	PathMaterialColor
	PathMaterialEmissive
	PathMaterialRoughness
	PathMaterialMetalness
	PathMaterialReflectance
	PathMaterialTexMulAdd
	PathUnknown
)

// IsEvent reports whether the path fires discrete events instead of driving a value.
func (p AnimationPath) IsEvent() bool {
	switch p {
	case PathSoundPlay, PathSoundStop, PathScriptPlay, PathScriptStop:
		return true
	}
	return false
}

// components returns the number of floats per key the path reads.
func (p AnimationPath) components() int {
	switch p {
	case PathTranslation, PathScale, PathLightColor:
		return 3
	case PathRotation, PathMaterialColor, PathMaterialEmissive, PathMaterialTexMulAdd:
		return 4
	case PathCameraApertureShape:
		return 2
	}
	return 1
}

// AnimationChannel binds a sampler to a target field.
type AnimationChannel struct {
	Target       ecs.Entity    `yaml:"target"`
	Path         AnimationPath `yaml:"path"`
	SamplerIndex int           `yaml:"sampler"`
	// Retarget is the 1-based entry of the track's Retargets, 0 for none.
	Retarget     int           `yaml:"retarget"`

	NextEvent int `yaml:"-"`
}

// AnimationSampler selects the keyframe data and interpolation of a channel.
type AnimationSampler struct {
	Data ecs.Entity     `yaml:"data"`
	Mode animation.Mode `yaml:"mode"`
}

// AnimationRetarget maps animation authored for a source skeleton onto another one.
type AnimationRetarget struct {
	Source                  ecs.Entity  `yaml:"source"`
	DstRelativeMatrix       common.Mat4 `yaml:"dst_relative"`
	SrcRelativeParentMatrix common.Mat4 `yaml:"src_relative_parent"`
}

// AnimationFlags control playback.
type AnimationFlags uint32

const (
	AnimationPlaying AnimationFlags = 1 << iota
	AnimationLooped
)

// AnimationComponent is a playable track made of channels.
type AnimationComponent struct {
	Flags     AnimationFlags      `yaml:"flags"`
	Start     float32             `yaml:"start"`
	End       float32             `yaml:"end"`
	Timer     float32             `yaml:"timer"`
	Amount    float32             `yaml:"amount"`
	Speed     float32             `yaml:"speed"`
	Channels  []AnimationChannel  `yaml:"channels"`
	Samplers  []AnimationSampler  `yaml:"samplers"`
	Retargets []AnimationRetarget `yaml:"retargets,omitempty"`

	LastUpdateTime float32 `yaml:"-"`
}

func (a *AnimationComponent) SetDefaults() {
	a.Amount = 1
	a.Speed = 1
	a.Flags = AnimationLooped
}

func (a *AnimationComponent) IsPlaying() bool { return a.Flags&AnimationPlaying != 0 }
func (a *AnimationComponent) IsLooped() bool  { return a.Flags&AnimationLooped != 0 }
func (a *AnimationComponent) IsEnded() bool   { return !a.IsLooped() && a.Timer >= a.End }

func (a *AnimationComponent) Play()  { a.Flags |= AnimationPlaying }
func (a *AnimationComponent) Pause() { a.Flags &^= AnimationPlaying }

// Stop pauses and rewinds the track.
func (a *AnimationComponent) Stop() {
	a.Pause()
	a.Timer = a.Start
}

func (a *AnimationComponent) SetLooped(v bool) {
	if v {
		a.Flags |= AnimationLooped
	} else {
		a.Flags &^= AnimationLooped
	}
}

func (a *AnimationComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	for i := range a.Channels {
		a.Channels[i].Target = remap(a.Channels[i].Target)
	}
	for i := range a.Samplers {
		a.Samplers[i].Data = remap(a.Samplers[i].Data)
	}
	for i := range a.Retargets {
		a.Retargets[i].Source = remap(a.Retargets[i].Source)
	}
}

// ExpressionPreset names the standard facial expressions.
type ExpressionPreset int

const (
	PresetHappy ExpressionPreset = iota
	PresetAngry
	PresetSad
	PresetRelaxed
	PresetSurprised
	PresetAa
	PresetIh
	PresetOu
	PresetEe
	PresetOh
	PresetBlink
	PresetBlinkLeft
	PresetBlinkRight
	PresetLookUp
	PresetLookDown
	PresetLookLeft
	PresetLookRight
	PresetNeutral
	PresetCount
)

// ExpressionOverride says how an active expression suppresses another category.
type ExpressionOverride uint32

const (
	OverrideNone ExpressionOverride = iota
	OverrideBlock
	OverrideBlend
)

// MorphTargetBinding drives one morph target of a mesh.
type MorphTargetBinding struct {
	MeshID ecs.Entity `yaml:"mesh"`
	Index  int        `yaml:"index"`
	Weight float32    `yaml:"weight"`
}

// Expression is one named blend of morph targets.
type Expression struct {
	Name          string               `yaml:"name"`
	Weight        float32              `yaml:"weight"`
	Preset        ExpressionPreset     `yaml:"preset"`
	Binary        bool                 `yaml:"binary"`
	OverrideMouth ExpressionOverride   `yaml:"override_mouth"`
	OverrideBlink ExpressionOverride   `yaml:"override_blink"`
	OverrideLook  ExpressionOverride   `yaml:"override_look"`
	Bindings      []MorphTargetBinding `yaml:"bindings"`
}

// ExpressionComponent drives facial morph targets with procedural blinking and looking.
type ExpressionComponent struct {
	Expressions    []Expression          `yaml:"expressions"`
	Presets        [PresetCount]int      `yaml:"presets"`
	BlinkFrequency float32               `yaml:"blink_frequency"`
	BlinkLength    float32               `yaml:"blink_length"`
	BlinkCount     int                   `yaml:"blink_count"`
	LookFrequency  float32               `yaml:"look_frequency"`
	LookLength     float32               `yaml:"look_length"`

	BlinkTimer float32 `yaml:"-"`
	LookTimer  float32 `yaml:"-"`
	LookPreset int     `yaml:"-"`
}

func (e *ExpressionComponent) SetDefaults() {
	for i := range e.Presets {
		e.Presets[i] = -1
	}
	e.BlinkFrequency = 0.3
	e.BlinkLength = 0.1
	e.BlinkCount = 1
	e.LookFrequency = 0
	e.LookLength = 0.6
	e.LookPreset = -1
}

// PresetExpression returns the expression assigned to a preset, nil when unassigned.
func (e *ExpressionComponent) PresetExpression(p ExpressionPreset) *Expression {
	i := e.Presets[p]
	if i < 0 || i >= len(e.Expressions) {
		return nil
	}
	return &e.Expressions[i]
}

func (e *ExpressionComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	for i := range e.Expressions {
		for j := range e.Expressions[i].Bindings {
			b := &e.Expressions[i].Bindings[j]
			b.MeshID = remap(b.MeshID)
		}
	}
}

// MaxIKChain bounds the number of links an IK chain walks.
const MaxIKChain = 32

// InverseKinematicsComponent pulls the entity toward Target by rotating its ancestors.
type InverseKinematicsComponent struct {
	Target         ecs.Entity `yaml:"target"`
	ChainLength    uint32     `yaml:"chain_length"`
	IterationCount uint32     `yaml:"iteration_count"`
	Disabled       bool       `yaml:"disabled"`
}

func (k *InverseKinematicsComponent) SetDefaults() {
	k.ChainLength = 1
	k.IterationCount = 1
}

func (k *InverseKinematicsComponent) RemapEntities(remap func(ecs.Entity) ecs.Entity) {
	k.Target = remap(k.Target)
}

// SpringFlags toggle spring features.
type SpringFlags uint32

const (
	SpringDisabled SpringFlags = 1 << iota
	SpringStretchEnabled
	SpringGravityEnabled
)

// SpringComponent makes a bone swing toward its rest direction with drag, wind and gravity.
type SpringComponent struct {
	Flags        SpringFlags `yaml:"flags"`
	Stiffness    float32     `yaml:"stiffness"`
	DragForce    float32     `yaml:"drag"`
	WindForce    float32     `yaml:"wind"`
	HitRadius    float32     `yaml:"hit_radius"`
	GravityPower float32     `yaml:"gravity_power"`
	GravityDir   common.Vec3 `yaml:"gravity_dir"`

	Resetting   bool        `yaml:"-"`
	CurrentTail common.Vec3 `yaml:"-"`
	PrevTail    common.Vec3 `yaml:"-"`
	BoneAxis    common.Vec3 `yaml:"-"`
	BoneLength  float32     `yaml:"-"`
}

func (s *SpringComponent) SetDefaults() {
	s.Flags = SpringGravityEnabled
	s.Stiffness = 0.5
	s.DragForce = 0.5
	s.GravityDir = common.Vec3{0, -1, 0}
	s.Resetting = true
}

func (s *SpringComponent) IsDisabled() bool       { return s.Flags&SpringDisabled != 0 }
func (s *SpringComponent) IsStretchEnabled() bool { return s.Flags&SpringStretchEnabled != 0 }
func (s *SpringComponent) IsGravityEnabled() bool { return s.Flags&SpringGravityEnabled != 0 }

// Reset makes the next update re-derive the rest pose.
func (s *SpringComponent) Reset() { s.Resetting = true }

// ColliderShape selects the proxy shape of a collider.
type ColliderShape uint32

const (
	ColliderSphere ColliderShape = iota
	ColliderCapsule
	ColliderPlane
)

// ColliderFlags select who consumes a collider.
type ColliderFlags uint32

const (
	ColliderCPU ColliderFlags = 1 << iota
	ColliderGPU
)

// ColliderPlaneProxy is a bounded plane in world space.
type ColliderPlaneProxy struct {
	Origin     common.Vec3
	Normal     common.Vec3
	Projection common.Mat4
}

// ColliderComponent is a simple proxy shape springs and particles collide with.
type ColliderComponent struct {
	Shape  ColliderShape `yaml:"shape"`
	Flags  ColliderFlags `yaml:"flags"`
	Radius float32       `yaml:"radius"`
	Offset common.Vec3   `yaml:"offset"`
	Tail   common.Vec3   `yaml:"tail"`

	Sphere    common.Sphere      `yaml:"-"`
	Capsule   common.Capsule     `yaml:"-"`
	Plane     ColliderPlaneProxy `yaml:"-"`
	LayerMask uint32             `yaml:"-"`
}

func (c *ColliderComponent) SetDefaults() {
	c.Flags = ColliderCPU | ColliderGPU
	c.LayerMask = ^uint32(0)
}

func (c *ColliderComponent) IsCPUEnabled() bool { return c.Flags&ColliderCPU != 0 }
func (c *ColliderComponent) IsGPUEnabled() bool { return c.Flags&ColliderGPU != 0 }
