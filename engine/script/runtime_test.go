package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newTestRuntime returns a runtime bound to a fresh scene, both closed with the test.
func newTestRuntime(t *testing.T, options ...RuntimeBuilderOption) (*luaRuntime, scene.Scene) {
	t.Helper()
	r := NewRuntime(options...).(*luaRuntime)
	s := scene.NewScene("script-test", scene.WithScripts(r))
	r.Bind(s)
	t.Cleanup(func() {
		s.Close()
		r.Close()
	})
	return r, s
}

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestRunScriptDrivesScene(t *testing.T) {
	r, s := newTestRuntime(t)

	require.NoError(t, r.RunScript("setup", `
		local e = scene.Entity_CreateCube("box")
		scene.Transform_Translate(e, 1, 2, 3)
	`))
	s.Update(1.0 / 60)

	e := s.Entity_FindByName("box")
	require.NotEqual(t, ecs.InvalidEntity, e)
	assert.Equal(t, common.Vec3{1, 2, 3}, s.Transforms().Get(e).GetPosition())
	assert.Equal(t, 1, s.InstanceCount())
}

func TestNotEnoughArgumentsIsLoggedAndRaised(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r, _ := newTestRuntime(t, WithLogger(zap.New(core)))

	err := r.RunScript("bad", "scene.Entity_Remove()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Entity_Remove(Entity entity, opt bool recursive) not enough arguments!")

	entries := logs.FilterMessage("script api error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Entity_Remove(Entity entity, opt bool recursive) not enough arguments!", entries[0].ContextMap()["error"])

	assert.NoError(t, r.RunScript("next", "x = 1"), "the VM stays usable after a raised error")
}

func TestBindingErrorsCanBeCaughtInLua(t *testing.T) {
	r, _ := newTestRuntime(t)

	require.NoError(t, r.RunScript("guarded", `
		local ok, err = pcall(scene.Transform_Translate, 12345, 1, 2, 3)
		caught = not ok
		message = tostring(err)
	`))

	assert.Equal(t, lua.LTrue, r.vm.GetGlobal("caught"))
	assert.Contains(t, r.vm.GetGlobal("message").String(), "entity has no transform!")
}

func TestWrongArgumentTypeIsRaised(t *testing.T) {
	r, _ := newTestRuntime(t)

	err := r.RunScript("typed", `scene.Transform_Translate("box", 1, 2, 3)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 1 is not an entity!")
}

func TestUnboundRuntimeRaises(t *testing.T) {
	r := NewRuntime()
	t.Cleanup(r.Close)

	err := r.RunScript("orphan", `scene.Entity_CreateCube("box")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scene bound!")
}

func TestRunScriptRecompilesChangedSource(t *testing.T) {
	r, _ := newTestRuntime(t)

	require.NoError(t, r.RunScript("counter", "counter = 1"))
	assert.Equal(t, lua.LNumber(1), r.vm.GetGlobal("counter"))

	require.NoError(t, r.RunScript("counter", "counter = 2"))
	assert.Equal(t, lua.LNumber(2), r.vm.GetGlobal("counter"))
	assert.Len(t, r.cache, 1)
}

func TestRunScriptReportsSyntaxErrors(t *testing.T) {
	r, _ := newTestRuntime(t)

	err := r.RunScript("broken", "local = = 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile broken")
	assert.Empty(t, r.cache)
}

func TestLoadFilesRunsInOrderAndCombinesErrors(t *testing.T) {
	dir := t.TempDir()
	a := writeScript(t, dir, "a.lua", "order = 'a'")
	bad := writeScript(t, dir, "bad.lua", "this is not lua")
	b := writeScript(t, dir, "b.lua", "order = order .. 'b'")
	missing := filepath.Join(dir, "missing.lua")

	r, _ := newTestRuntime(t, WithCompileConcurrency(2))
	err := r.LoadFiles(context.Background(), a, bad, missing, b)

	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "compile "+bad)
	assert.ErrorIs(t, errs[1], os.ErrNotExist)
	assert.Equal(t, lua.LString("ab"), r.vm.GetGlobal("order"))
}

func TestLoadFilesHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.lua", "loaded = true")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newTestRuntime(t)
	err := r.LoadFiles(ctx, path)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, lua.LNil, r.vm.GetGlobal("loaded"))
}

func TestPrintWritesThroughLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r, _ := newTestRuntime(t, WithLogger(zap.New(core)))

	require.NoError(t, r.RunScript("hello", `print("hello", 42)`))

	entries := logs.FilterMessage("lua").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello\t42", entries[0].ContextMap()["output"])
}

func TestPickBinding(t *testing.T) {
	r, s := newTestRuntime(t)
	box := s.Entity_CreateCube("box")
	s.Transforms().Get(box).Translate(common.Vec3{0, 0, 5})
	s.Update(1.0 / 60)

	require.NoError(t, r.RunScript("pick", "hit, x, y, z, dist = scene.Pick(0, 0, 0, 0, 0, 1)"))

	assert.Equal(t, lua.LNumber(box), r.vm.GetGlobal("hit"))
	assert.InDelta(t, 4, float64(r.vm.GetGlobal("dist").(lua.LNumber)), 1e-4)
	assert.InDelta(t, 4, float64(r.vm.GetGlobal("z").(lua.LNumber)), 1e-4)
}

func TestScriptComponentRunsEveryFrame(t *testing.T) {
	_, s := newTestRuntime(t)
	e := s.Entity_CreateTransform("mover")
	component := s.Scripts().Create(e)
	component.Source = "scene.Transform_Translate(GetEntity(), 1, 0, 0)"
	component.Play()

	s.Update(1.0 / 60)
	s.Update(1.0 / 60)

	assert.Equal(t, common.Vec3{2, 0, 0}, s.Transforms().Get(e).GetPosition())
}

func TestEntityRemoveDefaultsToRecursive(t *testing.T) {
	r, s := newTestRuntime(t)

	require.NoError(t, r.RunScript("tree", `
		local root = scene.Entity_CreateTransform("root")
		local leaf = scene.Entity_CreateTransform("leaf")
		scene.Component_Attach(leaf, root)
		scene.Entity_Remove(root)
	`))

	assert.Equal(t, ecs.InvalidEntity, s.Entity_FindByName("root"))
	assert.Equal(t, ecs.InvalidEntity, s.Entity_FindByName("leaf"))
}

func TestSoundAndLightBindings(t *testing.T) {
	r, s := newTestRuntime(t)
	bell := s.Entity_CreateSound("bell", "bell.ogg", common.Vec3{})

	require.NoError(t, r.RunScript("fx", `
		local lamp = scene.Entity_CreateLight("lamp", 0, 3, 0, 1, 0.5, 0, 2, 8)
		scene.Light_SetIntensity(lamp, 6)
		scene.Sound_Play(scene.Entity_FindByName("bell"))
	`))

	lamp := s.Entity_FindByName("lamp")
	require.NotEqual(t, ecs.InvalidEntity, lamp)
	l := s.Lights().Get(lamp)
	assert.Equal(t, common.Vec3{1, 0.5, 0}, l.Color)
	assert.Equal(t, float32(6), l.Intensity)
	assert.Equal(t, float32(8), l.Range)
	assert.True(t, s.Sounds().Get(bell).IsPlaying())
}
