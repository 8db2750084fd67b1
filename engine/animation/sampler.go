// Package animation samples keyframe tracks. It is free of scene state: callers resolve the
// target field, sample a raw value here and blend it onto the target themselves.
package animation

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/chewxy/math32"
)

// Mode selects how values between two keyframes are produced.
type Mode uint8

const (
	// ModeStep picks the nearer keyframe.
	ModeStep Mode = iota
	// ModeLinear interpolates linearly (spherically for rotations).
	ModeLinear
	// ModeCubicSpline uses Hermite blending with per-key in/out tangents.
	// Keyframe data is laid out as [inTangent, value, outTangent] per key.
	ModeCubicSpline
)

func (m Mode) String() string {
	switch m {
	case ModeStep:
		return "STEP"
	case ModeLinear:
		return "LINEAR"
	case ModeCubicSpline:
		return "CUBICSPLINE"
	}
	return "UNKNOWN"
}

// KeySearch is the result of scanning a keyframe time array for a timer value.
type KeySearch struct {
	// Left is the key with the largest time <= timer.
	Left int
	// Right is the key with the smallest time >= timer.
	Right int
	// TimeLeft and TimeRight are the search window bounds.
	TimeLeft  float32
	TimeRight float32
	// First and Last are the overall time range of the track.
	First float32
	Last  float32
}

// FindKeys linearly scans times for the keys bracketing timer. Times need not be sorted.
// When no key lies at or before timer, Left stays 0 and TimeLeft keeps its sentinel; the same
// applies to Right.
//
// Parameters:
//   - times: keyframe times
//   - timer: the current track time
//
// Returns:
//   - KeySearch: bracketing keys and the track range
func FindKeys(times []float32, timer float32) KeySearch {
	ks := KeySearch{
		TimeLeft:  -math32.MaxFloat32,
		TimeRight: math32.MaxFloat32,
		First:     math32.MaxFloat32,
		Last:      -math32.MaxFloat32,
	}
	for k, time := range times {
		if time < ks.First {
			ks.First = time
		}
		if time > ks.Last {
			ks.Last = time
		}
		if time <= timer && time > ks.TimeLeft {
			ks.TimeLeft = time
			ks.Left = k
		}
		if time >= timer && time < ks.TimeRight {
			ks.TimeRight = time
			ks.Right = k
		}
	}
	return ks
}

// InRange reports whether timer lies within [First, Last].
func (ks KeySearch) InRange(timer float32) bool {
	return timer >= ks.First && timer <= ks.Last
}

// ClampForEvents widens the window the way event tracks expect: the left bound never precedes
// the first key and the right bound never precedes the last key.
func (ks KeySearch) ClampForEvents() KeySearch {
	ks.TimeLeft = math32.Max(ks.TimeLeft, ks.First)
	ks.TimeRight = math32.Max(ks.TimeRight, ks.Last)
	return ks
}

// StepKey returns the key a step sampler selects: Right once timer passes the window midpoint.
func (ks KeySearch) StepKey(timer float32) int {
	if common.InverseLerp(ks.TimeLeft, ks.TimeRight, timer) > 0.5 {
		return ks.Right
	}
	return ks.Left
}

// Factor returns the normalized position of timer between the Left and Right key times,
// 0 when both keys are the same.
//
// Parameters:
//   - times: keyframe times the search ran on
//   - timer: the current track time
func (ks KeySearch) Factor(times []float32, timer float32) float32 {
	if ks.Left == ks.Right {
		return 0
	}
	left, right := times[ks.Left], times[ks.Right]
	return (timer - left) / (right - left)
}

// KeyDelta returns the time between the Left and Right keys, used to scale cubic tangents.
func (ks KeySearch) KeyDelta(times []float32) float32 {
	return times[ks.Right] - times[ks.Left]
}

// Hermite evaluates the cubic Hermite basis for one component.
//
// Parameters:
//   - vLeft, vRight: values at the bracketing keys
//   - outLeft, inRight: out-tangent of the left key and in-tangent of the right key, already scaled
//   - t: normalized position in [0, 1]
//
// Returns:
//   - float32: the interpolated value
func Hermite(vLeft, outLeft, vRight, inRight, t float32) float32 {
	t2 := t * t
	t3 := t2 * t
	return (2*t3-3*t2+1)*vLeft + (t3-2*t2+t)*outLeft + (-2*t3+3*t2)*vRight + (t3-t2)*inRight
}

// Sample writes the sampled value of an n-component channel into out (len(out) >= n).
// Rotation channels should use SampleRotation instead so they are slerped.
//
// Parameters:
//   - mode: interpolation mode
//   - times: keyframe times
//   - data: keyframe data, n floats per key (3n for cubic splines)
//   - n: components per key
//   - ks: result of FindKeys for timer
//   - timer: the current track time
//   - out: destination
func Sample(mode Mode, times, data []float32, n int, ks KeySearch, timer float32, out []float32) {
	switch mode {
	case ModeLinear:
		t := ks.Factor(times, timer)
		for j := 0; j < n; j++ {
			out[j] = common.Lerp(data[ks.Left*n+j], data[ks.Right*n+j], t)
		}
	case ModeCubicSpline:
		t := ks.Factor(times, timer)
		dt := ks.KeyDelta(times)
		for j := 0; j < n; j++ {
			vLeft := data[(ks.Left*3+1)*n+j]
			outLeft := data[(ks.Left*3+2)*n+j] * dt
			inRight := data[(ks.Right*3+0)*n+j] * dt
			vRight := data[(ks.Right*3+1)*n+j]
			out[j] = Hermite(vLeft, outLeft, vRight, inRight, t)
		}
	default:
		key := ks.StepKey(timer)
		copy(out[:n], data[key*n:key*n+n])
	}
}

// SampleRotation samples a quaternion channel. Linear mode slerps, cubic mode blends
// componentwise; both normalize the result.
//
// Parameters:
//   - mode: interpolation mode
//   - times: keyframe times
//   - data: keyframe data, 4 floats per key (12 for cubic splines)
//   - ks: result of FindKeys for timer
//   - timer: the current track time
//
// Returns:
//   - common.Quat: the sampled rotation
func SampleRotation(mode Mode, times, data []float32, ks KeySearch, timer float32) common.Quat {
	var q common.Quat
	switch mode {
	case ModeLinear:
		var l, r common.Quat
		copy(l[:], data[ks.Left*4:ks.Left*4+4])
		copy(r[:], data[ks.Right*4:ks.Right*4+4])
		return l.Slerp(r, ks.Factor(times, timer)).Normalize()
	case ModeCubicSpline:
		Sample(mode, times, data, 4, ks, timer, q[:])
		return q.Normalize()
	default:
		Sample(mode, times, data, 4, ks, timer, q[:])
		return q
	}
}
