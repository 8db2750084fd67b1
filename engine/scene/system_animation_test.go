package scene

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/animation"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addTrack creates a track with one channel driving path on target from the given keys.
func addTrack(s Scene, target ecs.Entity, path AnimationPath, mode animation.Mode, times, data []float32) *AnimationComponent {
	dataEntity := ecs.CreateEntity()
	d := s.AnimationDatas().Create(dataEntity)
	d.KeyframeTimes = times
	d.KeyframeData = data

	a := s.Animations().Create(ecs.CreateEntity())
	a.Start = times[0]
	a.End = times[len(times)-1]
	a.Channels = []AnimationChannel{{Target: target, Path: path}}
	a.Samplers = []AnimationSampler{{Data: dataEntity, Mode: mode}}
	return a
}

func TestLinearTranslationTrack(t *testing.T) {
	s := newTestScene(t)
	target := s.Entity_CreateTransform("target")
	track := addTrack(s, target, PathTranslation, animation.ModeLinear,
		[]float32{0, 2}, []float32{0, 0, 0, 10, -4, 2})
	track.Timer = 1

	s.Update(0)

	transform := s.Transforms().Get(target)
	assertVec3InDelta(t, common.Vec3{5, -2, 1}, transform.TranslationLocal, 1e-5)
	assertVec3InDelta(t, common.Vec3{5, -2, 1}, transform.GetPosition(), 1e-5)
}

func TestStepTrackNeverBlends(t *testing.T) {
	s := newTestScene(t)
	target := s.Entity_CreateTransform("target")
	track := addTrack(s, target, PathTranslation, animation.ModeStep,
		[]float32{0, 2}, []float32{0, 0, 0, 10, 0, 0})
	track.Play()
	track.SetLooped(false)

	transform := s.Transforms().Get(target)
	for range 40 {
		s.Update(0.05)
		x := transform.TranslationLocal[0]
		assert.True(t, x == 0 || x == 10, "step track produced %v", x)
	}
	assert.Equal(t, float32(10), transform.TranslationLocal[0])
}

func TestAmountBlendsOntoCurrentValue(t *testing.T) {
	s := newTestScene(t)
	l := s.Entity_CreateLight("lamp", common.Vec3{}, common.Vec3{1, 1, 1}, 2, 10, 1, 0, 0)
	track := addTrack(s, l, PathLightIntensity, animation.ModeLinear, []float32{0, 1}, []float32{6, 6})
	track.Amount = 0.5
	track.Timer = 0.5

	s.Update(0)

	assert.InDelta(t, 4, s.Lights().Get(l).Intensity, 1e-6)
}

func TestLoopedTrackWrapsToStart(t *testing.T) {
	s := newTestScene(t)
	target := s.Entity_CreateTransform("target")
	track := addTrack(s, target, PathTranslation, animation.ModeLinear,
		[]float32{0, 1}, []float32{0, 0, 0, 1, 0, 0})
	track.Play()

	for range 3 {
		s.Update(0.4)
	}
	assert.Zero(t, track.Timer)

	track.SetLooped(false)
	for range 4 {
		s.Update(0.4)
	}
	assert.Greater(t, track.Timer, track.End, "a finished track keeps counting past its end")
	assert.True(t, track.IsEnded())
}

func TestEventWithoutTargetDoesNotAdvance(t *testing.T) {
	s := newTestScene(t)
	missing := s.Entity_CreateTransform("no_sound")

	track := addTrack(s, missing, PathSoundPlay, animation.ModeStep, []float32{0.5}, nil)
	track.Start, track.End = 0, 1
	track.Play()

	for range 3 {
		s.Update(0.3)
	}
	assert.Zero(t, track.Channels[0].NextEvent)
}

func TestChannelWithoutRetargetIgnoresRetargets(t *testing.T) {
	s := newTestScene(t)
	target := s.Entity_CreateTransform("target")
	track := addTrack(s, target, PathTranslation, animation.ModeLinear,
		[]float32{0, 1}, []float32{1, 0, 0, 1, 0, 0})
	track.Retargets = []AnimationRetarget{{
		DstRelativeMatrix:       common.Mat4Identity(),
		SrcRelativeParentMatrix: common.Mat4Translation(common.Vec3{0, 5, 0}),
	}}
	track.Timer = 0.5

	s.Update(0)

	assertVec3InDelta(t, common.Vec3{1, 0, 0}, s.Transforms().Get(target).TranslationLocal, 1e-5)
}

func TestSoundEventFiresOncePerLoop(t *testing.T) {
	audio := NewLogAudioEngine(nil)
	s := newTestScene(t, WithAudio(audio))
	sound := s.Entity_CreateSound("bell", "bell.ogg", common.Vec3{})

	track := addTrack(s, sound, PathSoundPlay, animation.ModeStep, []float32{0.5}, nil)
	track.Start, track.End = 0, 1
	track.Play()

	s.Update(0.3)
	s.Update(0.3)
	assert.False(t, s.Sounds().Get(sound).IsPlaying())
	assert.False(t, audio.IsPlaying(sound))

	s.Update(0.3)
	assert.True(t, s.Sounds().Get(sound).IsPlaying())
	assert.True(t, audio.IsPlaying(sound))
	assert.Equal(t, 1, track.Channels[0].NextEvent)

	s.Sounds().Get(sound).Stop()
	s.Update(0.3)
	assert.False(t, s.Sounds().Get(sound).IsPlaying())
	assert.False(t, audio.IsPlaying(sound))
}

func TestRetargetMapsThroughRelativeMatrices(t *testing.T) {
	s := newTestScene(t)
	target := s.Entity_CreateTransform("target")
	track := addTrack(s, target, PathTranslation, animation.ModeLinear,
		[]float32{0, 1}, []float32{1, 0, 0, 1, 0, 0})
	track.Retargets = []AnimationRetarget{{
		DstRelativeMatrix:       common.Mat4Identity(),
		SrcRelativeParentMatrix: common.Mat4Translation(common.Vec3{0, 5, 0}),
	}}
	track.Channels[0].Retarget = 1
	track.Timer = 0.5

	s.Update(0)

	assertVec3InDelta(t, common.Vec3{1, 5, 0}, s.Transforms().Get(target).TranslationLocal, 1e-5)
}

func TestUnknownPathPanics(t *testing.T) {
	s := newTestScene(t)
	target := s.Entity_CreateTransform("target")
	track := addTrack(s, target, PathUnknown, animation.ModeLinear, []float32{0, 1}, []float32{0, 1})
	track.Timer = 0.5

	require.PanicsWithValue(t, fmt.Sprintf("scene: unknown animation path %d", PathUnknown), func() {
		s.Update(0)
	})
}
