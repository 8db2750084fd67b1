// Package light defines the light component stored per light entity and its GPU records.
package light

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
)

// LightType identifies the kind of light source.
type LightType uint32

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with both distance and angle from the cone axis.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// Flags is a bit set of light options.
type Flags uint32

const (
	FlagCastShadow Flags = 1 << iota
	FlagVolumetrics
	FlagStatic
	FlagDisabled
)

// Light is a light source. The authoring fields are serialized; the derived fields are
// rewritten from the owning entity's world transform every frame.
type Light struct {
	Type      LightType   `yaml:"type"`
	Flags     Flags       `yaml:"flags"`
	Color     common.Vec3 `yaml:"color"`
	Intensity float32     `yaml:"intensity"`
	Range     float32     `yaml:"range"`
	// OuterConeAngle and InnerConeAngle are half-angles in radians.
	OuterConeAngle float32 `yaml:"outer_cone_angle"`
	InnerConeAngle float32 `yaml:"inner_cone_angle"`

	Position       common.Vec3 `yaml:"-"`
	Rotation       common.Quat `yaml:"-"`
	Scale          common.Vec3 `yaml:"-"`
	Direction      common.Vec3 `yaml:"-"`
	OcclusionQuery int32       `yaml:"-"`
}

// SetDefaults initializes a white point light.
func (l *Light) SetDefaults() {
	l.Type = LightTypePoint
	l.Color = common.Vec3{1, 1, 1}
	l.Intensity = 1
	l.Range = 10
	l.OuterConeAngle = math32.Pi / 4
	l.Rotation = common.QuatIdentity()
	l.Scale = common.Vec3{1, 1, 1}
	l.Direction = common.Vec3{0, 1, 0}
	l.OcclusionQuery = -1
}

// GetRange returns the attenuation range; directional lights are unbounded.
func (l *Light) GetRange() float32 {
	if l.Type == LightTypeDirectional {
		return math32.MaxFloat32
	}
	return l.Range
}

func (l *Light) IsCastingShadow() bool { return l.Flags&FlagCastShadow != 0 }
func (l *Light) IsStatic() bool        { return l.Flags&FlagStatic != 0 }
func (l *Light) IsEnabled() bool       { return l.Flags&FlagDisabled == 0 }

// SetCastShadow toggles shadow casting.
func (l *Light) SetCastShadow(v bool) {
	if v {
		l.Flags |= FlagCastShadow
	} else {
		l.Flags &^= FlagCastShadow
	}
}
