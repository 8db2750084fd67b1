package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/animation"
)

// runAnimationUpdateSystem evaluates every animation track. Tracks may write the same
// targets, so they run in store order on the frame goroutine.
func (s *scene) runAnimationUpdateSystem() {
	var scratch []float32
	for i := range s.animations.Len() {
		scratch = s.updateAnimation(s.animations.At(i), scratch)
	}
}

// updateAnimation samples every channel of a track at its timer, applies the values to their
// targets and advances the timer.
func (s *scene) updateAnimation(a *AnimationComponent, scratch []float32) []float32 {
	if !a.IsPlaying() && a.LastUpdateTime == a.Timer {
		return scratch
	}
	a.LastUpdateTime = a.Timer

	for ci := range a.Channels {
		ch := &a.Channels[ci]
		if ch.SamplerIndex < 0 || ch.SamplerIndex >= len(a.Samplers) {
			continue
		}
		sampler := a.Samplers[ch.SamplerIndex]
		data := s.animationDatas.Get(sampler.Data)
		if data == nil || len(data.KeyframeTimes) == 0 {
			continue
		}
		ks := animation.FindKeys(data.KeyframeTimes, a.Timer)

		if ch.Path.IsEvent() {
			ks = ks.ClampForEvents()
			if ch.NextEvent == ks.Left && a.Timer >= ks.TimeLeft && s.fireAnimationEvent(ch) {
				ch.NextEvent++
			}
			continue
		}
		if !ks.InRange(a.Timer) {
			continue
		}
		scratch = s.applyAnimationChannel(a, ch, sampler.Mode, data, ks, scratch)
	}

	if a.IsPlaying() {
		a.Timer += s.dt * a.Speed
	}
	if a.IsLooped() && a.Timer > a.End {
		a.Timer = a.Start
		for ci := range a.Channels {
			a.Channels[ci].NextEvent = 0
		}
	}
	return scratch
}

// fireAnimationEvent triggers the event on the channel target. It reports false when the
// target lacks the component the event drives.
func (s *scene) fireAnimationEvent(ch *AnimationChannel) bool {
	switch ch.Path {
	case PathSoundPlay, PathSoundStop:
		sound := s.sounds.Get(ch.Target)
		if sound == nil {
			return false
		}
		if ch.Path == PathSoundPlay {
			sound.Play()
		} else {
			sound.Stop()
		}
	case PathScriptPlay, PathScriptStop:
		script := s.scriptComps.Get(ch.Target)
		if script == nil {
			return false
		}
		if ch.Path == PathScriptPlay {
			script.Play()
		} else {
			script.Stop()
		}
	default:
		return false
	}
	return true
}

// sampleChannel samples n components into scratch. It returns nil when the keyframe data is
// too short for the key count.
func sampleChannel(mode animation.Mode, data *AnimationDataComponent, n int, ks animation.KeySearch, timer float32, scratch []float32) ([]float32, []float32) {
	need := len(data.KeyframeTimes) * n
	if mode == animation.ModeCubicSpline {
		need *= 3
	}
	if n == 0 || len(data.KeyframeData) < need {
		return nil, scratch
	}
	if cap(scratch) < n {
		scratch = make([]float32, n)
	}
	out := scratch[:n]
	animation.Sample(mode, data.KeyframeTimes, data.KeyframeData, n, ks, timer, out)
	return out, scratch
}

func (s *scene) applyAnimationChannel(a *AnimationComponent, ch *AnimationChannel, mode animation.Mode, data *AnimationDataComponent, ks animation.KeySearch, scratch []float32) []float32 {
	amount := common.Saturate(a.Amount)
	lerp := func(dst *float32, v float32) { *dst = common.Lerp(*dst, v, amount) }

	var v []float32
	switch ch.Path {
	case PathTranslation, PathRotation, PathScale:
		transform := s.transforms.Get(ch.Target)
		if transform == nil {
			return scratch
		}
		s.animateTransform(a, ch, mode, data, ks, transform, amount)
		return scratch

	case PathWeights:
		mesh := s.meshes.Get(ch.Target)
		if mesh == nil {
			if object := s.objects.Get(ch.Target); object != nil {
				mesh = s.meshes.Get(object.MeshID)
			}
		}
		if mesh == nil {
			return scratch
		}
		if v, scratch = sampleChannel(mode, data, len(mesh.MorphTargets), ks, a.Timer, scratch); v == nil {
			return scratch
		}
		for i := range mesh.MorphTargets {
			lerp(&mesh.MorphTargets[i].Weight, v[i])
		}
		mesh.DirtyMorph = true

	case PathLightColor, PathLightIntensity, PathLightRange, PathLightInnerCone, PathLightOuterCone:
		l := s.lights.Get(ch.Target)
		if l == nil {
			return scratch
		}
		if v, scratch = sampleChannel(mode, data, ch.Path.components(), ks, a.Timer, scratch); v == nil {
			return scratch
		}
		switch ch.Path {
		case PathLightColor:
			l.Color = l.Color.Lerp(common.Vec3{v[0], v[1], v[2]}, amount)
		case PathLightIntensity:
			lerp(&l.Intensity, v[0])
		case PathLightRange:
			lerp(&l.Range, v[0])
		case PathLightInnerCone:
			lerp(&l.InnerConeAngle, v[0])
		case PathLightOuterCone:
			lerp(&l.OuterConeAngle, v[0])
		}

	case PathSoundVolume:
		sound := s.sounds.Get(ch.Target)
		if sound == nil {
			return scratch
		}
		if v, scratch = sampleChannel(mode, data, 1, ks, a.Timer, scratch); v == nil {
			return scratch
		}
		lerp(&sound.Volume, v[0])

	case PathEmitterEmitCount:
		emitter := s.emitters.Get(ch.Target)
		if emitter == nil {
			return scratch
		}
		if v, scratch = sampleChannel(mode, data, 1, ks, a.Timer, scratch); v == nil {
			return scratch
		}
		lerp(&emitter.Count, v[0])

	case PathCameraFOV, PathCameraFocalLength, PathCameraApertureSize, PathCameraApertureShape:
		cam := s.cameras.Get(ch.Target)
		if cam == nil {
			return scratch
		}
		if v, scratch = sampleChannel(mode, data, ch.Path.components(), ks, a.Timer, scratch); v == nil {
			return scratch
		}
		switch ch.Path {
		case PathCameraFOV:
			lerp(&cam.FOV, v[0])
		case PathCameraFocalLength:
			lerp(&cam.FocalLength, v[0])
		case PathCameraApertureSize:
			lerp(&cam.ApertureSize, v[0])
		case PathCameraApertureShape:
			cam.ApertureShape = cam.ApertureShape.Lerp(common.Vec2{v[0], v[1]}, amount)
		}

	case PathMaterialColor, PathMaterialEmissive, PathMaterialRoughness, PathMaterialMetalness,
		PathMaterialReflectance, PathMaterialTexMulAdd:
		mat := s.materials.Get(ch.Target)
		if mat == nil {
			return scratch
		}
		if v, scratch = sampleChannel(mode, data, ch.Path.components(), ks, a.Timer, scratch); v == nil {
			return scratch
		}
		switch ch.Path {
		case PathMaterialColor:
			mat.BaseColor = mat.BaseColor.Lerp(common.Vec4{v[0], v[1], v[2], v[3]}, amount)
		case PathMaterialEmissive:
			mat.EmissiveColor = mat.EmissiveColor.Lerp(common.Vec4{v[0], v[1], v[2], v[3]}, amount)
		case PathMaterialRoughness:
			lerp(&mat.Roughness, v[0])
		case PathMaterialMetalness:
			lerp(&mat.Metalness, v[0])
		case PathMaterialReflectance:
			lerp(&mat.Reflectance, v[0])
		case PathMaterialTexMulAdd:
			mat.TexMulAdd = mat.TexMulAdd.Lerp(common.Vec4{v[0], v[1], v[2], v[3]}, amount)
		}
		mat.SetDirty()

	default:
		panic(fmt.Sprintf("scene: unknown animation path %d", ch.Path))
	}
	return scratch
}

// animateTransform samples a translation, rotation or scale channel, maps it through the
// channel's retarget when it has one and blends it onto the target's local fields.
func (s *scene) animateTransform(a *AnimationComponent, ch *AnimationChannel, mode animation.Mode, data *AnimationDataComponent, ks animation.KeySearch, transform *TransformComponent, amount float32) {
	sampled := *transform
	var v [4]float32
	switch ch.Path {
	case PathTranslation, PathScale:
		need := len(data.KeyframeTimes) * 3
		if mode == animation.ModeCubicSpline {
			need *= 3
		}
		if len(data.KeyframeData) < need {
			return
		}
		animation.Sample(mode, data.KeyframeTimes, data.KeyframeData, 3, ks, a.Timer, v[:3])
		if ch.Path == PathTranslation {
			sampled.TranslationLocal = common.Vec3{v[0], v[1], v[2]}
		} else {
			sampled.ScaleLocal = common.Vec3{v[0], v[1], v[2]}
		}
	case PathRotation:
		need := len(data.KeyframeTimes) * 4
		if mode == animation.ModeCubicSpline {
			need *= 3
		}
		if len(data.KeyframeData) < need {
			return
		}
		sampled.RotationLocal = animation.SampleRotation(mode, data.KeyframeTimes, data.KeyframeData, ks, a.Timer)
	}

	if ch.Retarget > 0 && ch.Retarget <= len(a.Retargets) {
		r := a.Retargets[ch.Retarget-1]
		local := r.SrcRelativeParentMatrix.Mul(sampled.LocalMatrix()).Mul(r.DstRelativeMatrix)
		sampled.ScaleLocal, sampled.RotationLocal, sampled.TranslationLocal = local.Decompose()
	}

	switch ch.Path {
	case PathTranslation:
		transform.TranslationLocal = transform.TranslationLocal.Lerp(sampled.TranslationLocal, amount)
	case PathRotation:
		transform.RotationLocal = transform.RotationLocal.Slerp(sampled.RotationLocal, amount).Normalize()
	case PathScale:
		transform.ScaleLocal = transform.ScaleLocal.Lerp(sampled.ScaleLocal, amount)
	}
	transform.SetDirty()
}
