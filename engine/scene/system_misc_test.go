package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingRunner struct {
	names   []string
	sources []string
	err     error
}

func (r *recordingRunner) RunScript(name, source string) error {
	r.names = append(r.names, name)
	r.sources = append(r.sources, source)
	return r.err
}

func TestScriptSeesItsEntity(t *testing.T) {
	runner := &recordingRunner{}
	s := newTestScene(t, WithScripts(runner))

	e := s.Entity_CreateTransform("scripted")
	script := s.Scripts().Create(e)
	script.Source = "print(GetEntity())"
	script.Play()

	s.Update(1.0 / 60)
	s.Update(1.0 / 60)

	require.Len(t, runner.sources, 2)
	assert.True(t, strings.HasPrefix(runner.sources[0], fmt.Sprintf("local function GetEntity() return %d; end\n", e)))
	assert.True(t, strings.HasSuffix(runner.sources[0], "print(GetEntity())"))
	assert.Equal(t, fmt.Sprintf("script#%d", e), runner.names[0])
}

func TestScriptPlayOnceStops(t *testing.T) {
	runner := &recordingRunner{}
	s := newTestScene(t, WithScripts(runner))

	script := s.Scripts().Create(s.Entity_CreateTransform("once"))
	script.Source = "x = 1"
	script.SetPlayOnce(true)
	script.Play()

	s.Update(1.0 / 60)
	s.Update(1.0 / 60)

	assert.Len(t, runner.sources, 1)
	assert.False(t, script.IsPlaying())
}

func TestScriptFailureIsLoggedAndFrameContinues(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	runner := &recordingRunner{err: errors.New("attempt to call a nil value")}
	s := newTestScene(t, WithScripts(runner), WithLogger(zap.New(core)))

	e := s.Entity_CreateCube("broken")
	script := s.Scripts().Create(e)
	script.Source = "nope()"
	script.Play()

	s.Update(1.0 / 60)

	entries := logs.FilterMessage("script failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(e), entries[0].ContextMap()["entity"])
	assert.True(t, script.IsPlaying())
	assert.Equal(t, 1, s.InstanceCount())
}

func TestScriptLoadsFileWhenSourceEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.lua")
	require.NoError(t, os.WriteFile(path, []byte("hello()"), 0o644))

	runner := &recordingRunner{}
	s := newTestScene(t, WithScripts(runner))
	script := s.Scripts().Create(s.Entity_CreateTransform("file"))
	script.Filename = path
	script.Play()

	s.Update(1.0 / 60)

	require.Len(t, runner.sources, 1)
	assert.True(t, strings.HasSuffix(runner.sources[0], "hello()"))
	assert.Equal(t, path, runner.names[0])
}

func TestScriptMissingFileStops(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	runner := &recordingRunner{}
	s := newTestScene(t, WithScripts(runner), WithLogger(zap.New(core)))
	script := s.Scripts().Create(s.Entity_CreateTransform("file"))
	script.Filename = filepath.Join(t.TempDir(), "missing.lua")
	script.Play()

	s.Update(1.0 / 60)

	assert.Empty(t, runner.sources)
	assert.False(t, script.IsPlaying())
	assert.Equal(t, 1, logs.FilterMessage("script load failed").Len())
}

func TestSoundStateReachesAudioEngine(t *testing.T) {
	audio := NewLogAudioEngine(nil)
	s := newTestScene(t, WithAudio(audio))
	e := s.Entity_CreateSound("music", "theme.ogg", common.Vec3{1, 0, 0})
	sound := s.Sounds().Get(e)

	sound.Play()
	sound.Volume = 0.25
	s.Update(1.0 / 60)
	assert.True(t, audio.IsPlaying(e))
	assert.InDelta(t, 0.25, audio.Volume(e), 1e-6)

	sound.Stop()
	s.Update(1.0 / 60)
	assert.False(t, audio.IsPlaying(e))
}

func TestFirstDirectionalLightBecomesSun(t *testing.T) {
	s := newTestScene(t)
	s.Entity_CreateLight("lamp", common.Vec3{0, 2, 0}, common.Vec3{0, 1, 0}, 1, 5, light.LightTypePoint, 0, 0)
	s.Entity_CreateLight("sun", common.Vec3{}, common.Vec3{1, 0.5, 0}, 2, 0, light.LightTypeDirectional, 0, 0)
	s.Entity_CreateLight("moon", common.Vec3{}, common.Vec3{0, 0, 1}, 1, 0, light.LightTypeDirectional, 0, 0)

	s.Update(1.0 / 60)

	w := s.Weather()
	assert.Equal(t, uint32(1), w.MostImportantLightIndex)
	assertVec3InDelta(t, common.Vec3{2, 1, 0}, w.SunColor, 1e-6)
	assertVec3InDelta(t, common.Vec3{0, 1, 0}, w.SunDirection, 1e-6)

	lamp := s.LightAABBs().At(0)
	assertVec3InDelta(t, common.Vec3{-5, -3, -5}, lamp.Min, 1e-5)
	assertVec3InDelta(t, common.Vec3{5, 7, 5}, lamp.Max, 1e-5)
}

func TestDecalFollowsTransformAndMaterial(t *testing.T) {
	s := newTestScene(t)
	e := s.Entity_CreateDecal("splat", "splat.png", "splat_n.png")
	placeTransform(s, e, common.Vec3{0, 0, 3}, common.QuatIdentity())
	s.Materials().Get(e).BaseColor = common.Vec4{1, 0, 0, 0.5}

	s.Update(1.0 / 60)

	decal := s.Decals().Get(e)
	assertVec3InDelta(t, common.Vec3{0, 0, 3}, decal.Position, 1e-6)
	assertVec3InDelta(t, common.Vec3{0, 0, -1}, decal.Front, 1e-6)
	assert.Equal(t, common.Vec4{1, 0, 0, 0.5}, decal.Color)
	aabb := s.DecalAABBs().Get(e)
	assertVec3InDelta(t, common.Vec3{-1, -1, 2}, aabb.Min, 1e-6)
	assertVec3InDelta(t, common.Vec3{1, 1, 4}, aabb.Max, 1e-6)
}

func TestProbesClaimDistinctSlots(t *testing.T) {
	s := newTestScene(t)
	a := s.Entity_CreateEnvironmentProbe("a", common.Vec3{})
	b := s.Entity_CreateEnvironmentProbe("b", common.Vec3{4, 0, 0})

	s.Update(1.0 / 60)

	pa, pb := s.Probes().Get(a), s.Probes().Get(b)
	assert.GreaterOrEqual(t, pa.TextureIndex, int32(0))
	assert.GreaterOrEqual(t, pb.TextureIndex, int32(0))
	assert.NotEqual(t, pa.TextureIndex, pb.TextureIndex)
	assert.True(t, pa.RenderDirty)
	assert.False(t, pa.IsDirty())
	assertVec3InDelta(t, common.Vec3{4, 0, 0}, pb.Position, 1e-6)
	assert.NotNil(t, s.Textures().EnvMapArray)
	freed := pa.TextureIndex

	s.Entity_Remove(a, false)
	c := s.Entity_CreateEnvironmentProbe("c", common.Vec3{})
	s.Update(1.0 / 60)
	assert.Equal(t, freed, s.Probes().Get(c).TextureIndex)
}

func TestForceFieldPointsAlongNegativeY(t *testing.T) {
	s := newTestScene(t)
	e := s.Entity_CreateForce("wind", common.Vec3{1, 2, 3})
	s.Transforms().Get(e).Rotate(common.QuatFromAxisAngle(common.Vec3{0, 0, 1}, 3.14159265))

	s.Update(1.0 / 60)

	f := s.Forces().Get(e)
	assertVec3InDelta(t, common.Vec3{1, 2, 3}, f.Position, 1e-5)
	assertVec3InDelta(t, common.Vec3{0, 1, 0}, f.Direction, 1e-5)
}

func TestGlobalIlluminationTargetsFollowOptions(t *testing.T) {
	s := newTestScene(t, WithSurfelGI(true), WithDDGI(true))
	s.Entity_CreateCube("box")

	s.Update(1.0 / 60)
	first := s.Textures().SurfelGI
	require.NotNil(t, first[0])
	require.NotNil(t, first[1])
	require.NotNil(t, s.Textures().DDGIDepth)

	s.Update(1.0 / 60)
	second := s.Textures().SurfelGI
	assert.Same(t, first[0], second[1])
	assert.Same(t, first[1], second[0])
}

func TestWaterRipplesAgeOut(t *testing.T) {
	s := newTestScene(t)
	s.PutWaterRipple(common.Vec3{1, 0, 1})
	require.Len(t, s.Ripples(), 1)

	for range 600 {
		s.Update(1.0 / 60)
	}
	assert.Empty(t, s.Ripples())
}
