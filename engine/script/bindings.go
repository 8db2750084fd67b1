package script

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Signatures double as the prefix of every diagnostic a binding raises.
const (
	sigFindByName      = "Entity_FindByName(string name)"
	sigCreateTransform = "Entity_CreateTransform(string name)"
	sigCreateCube      = "Entity_CreateCube(string name)"
	sigCreateLight     = "Entity_CreateLight(string name, float x, y, z, float r, g, b, float intensity, float range)"
	sigRemove          = "Entity_Remove(Entity entity, opt bool recursive)"
	sigDuplicate       = "Entity_Duplicate(Entity entity)"
	sigAttach          = "Component_Attach(Entity entity, Entity parent, opt bool childInLocalSpace)"
	sigDetach          = "Component_Detach(Entity entity)"
	sigGetPosition     = "Transform_GetPosition(Entity entity)"
	sigTranslate       = "Transform_Translate(Entity entity, float x, y, z)"
	sigRotate          = "Transform_RotateRollPitchYaw(Entity entity, float x, y, z)"
	sigScale           = "Transform_Scale(Entity entity, float x, y, z)"
	sigLightColor      = "Light_SetColor(Entity entity, float r, g, b)"
	sigLightIntensity  = "Light_SetIntensity(Entity entity, float intensity)"
	sigSoundPlay       = "Sound_Play(Entity entity)"
	sigSoundStop       = "Sound_Stop(Entity entity)"
	sigAnimPlay        = "Animation_Play(Entity entity)"
	sigAnimStop        = "Animation_Stop(Entity entity)"
	sigAnimLooped      = "Animation_SetLooped(Entity entity, bool looped)"
	sigPick            = "Pick(float ox, oy, oz, float dx, dy, dz, opt uint layerMask)"
	sigRipple          = "PutWaterRipple(float x, y, z)"
)

func (r *luaRuntime) sceneFuncs() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"Entity_FindByName":            r.entityFindByName,
		"Entity_CreateTransform":       r.entityCreateTransform,
		"Entity_CreateCube":            r.entityCreateCube,
		"Entity_CreateLight":           r.entityCreateLight,
		"Entity_Remove":                r.entityRemove,
		"Entity_Duplicate":             r.entityDuplicate,
		"Component_Attach":             r.componentAttach,
		"Component_Detach":             r.componentDetach,
		"Transform_GetPosition":        r.transformGetPosition,
		"Transform_Translate":          r.transformTranslate,
		"Transform_RotateRollPitchYaw": r.transformRotate,
		"Transform_Scale":              r.transformScale,
		"Light_SetColor":               r.lightSetColor,
		"Light_SetIntensity":           r.lightSetIntensity,
		"Sound_Play":                   r.soundPlay,
		"Sound_Stop":                   r.soundStop,
		"Animation_Play":               r.animationPlay,
		"Animation_Stop":               r.animationStop,
		"Animation_SetLooped":          r.animationSetLooped,
		"Pick":                         r.pick,
		"PutWaterRipple":               r.putWaterRipple,
		"GetTime":                      r.getTime,
	}
}

// raise logs msg and aborts the calling script with it.
func (r *luaRuntime) raise(L *lua.LState, msg string) int {
	r.logger.Error("script api error", zap.String("error", msg))
	L.RaiseError("%s", msg)
	return 0
}

// prelude checks the bound scene and the argument count. It raises and returns nil on failure.
func (r *luaRuntime) prelude(L *lua.LState, sig string, argc int) scene.Scene {
	if r.scene == nil {
		r.raise(L, sig+" no scene bound!")
		return nil
	}
	if L.GetTop() < argc {
		r.raise(L, sig+" not enough arguments!")
		return nil
	}
	return r.scene
}

func (r *luaRuntime) entityArg(L *lua.LState, sig string, n int) ecs.Entity {
	v, ok := L.Get(n).(lua.LNumber)
	if !ok || v < 0 {
		r.raise(L, fmt.Sprintf("%s argument %d is not an entity!", sig, n))
		return ecs.InvalidEntity
	}
	return ecs.Entity(v)
}

func (r *luaRuntime) numberArg(L *lua.LState, sig string, n int) float32 {
	v, ok := L.Get(n).(lua.LNumber)
	if !ok {
		r.raise(L, fmt.Sprintf("%s argument %d is not a number!", sig, n))
		return 0
	}
	return float32(v)
}

func (r *luaRuntime) stringArg(L *lua.LState, sig string, n int) string {
	v, ok := L.Get(n).(lua.LString)
	if !ok {
		r.raise(L, fmt.Sprintf("%s argument %d is not a string!", sig, n))
		return ""
	}
	return string(v)
}

func (r *luaRuntime) vec3Arg(L *lua.LState, sig string, n int) common.Vec3 {
	return common.Vec3{r.numberArg(L, sig, n), r.numberArg(L, sig, n+1), r.numberArg(L, sig, n+2)}
}

// optBoolArg returns def when argument n is absent or nil.
func optBoolArg(L *lua.LState, n int, def bool) bool {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return def
	}
	return lua.LVAsBool(L.Get(n))
}

func pushEntity(L *lua.LState, e ecs.Entity) int {
	L.Push(lua.LNumber(e))
	return 1
}

func pushVec3(L *lua.LState, v common.Vec3) int {
	L.Push(lua.LNumber(v[0]))
	L.Push(lua.LNumber(v[1]))
	L.Push(lua.LNumber(v[2]))
	return 3
}

func (r *luaRuntime) entityFindByName(L *lua.LState) int {
	s := r.prelude(L, sigFindByName, 1)
	return pushEntity(L, s.Entity_FindByName(r.stringArg(L, sigFindByName, 1)))
}

func (r *luaRuntime) entityCreateTransform(L *lua.LState) int {
	s := r.prelude(L, sigCreateTransform, 1)
	return pushEntity(L, s.Entity_CreateTransform(r.stringArg(L, sigCreateTransform, 1)))
}

func (r *luaRuntime) entityCreateCube(L *lua.LState) int {
	s := r.prelude(L, sigCreateCube, 1)
	return pushEntity(L, s.Entity_CreateCube(r.stringArg(L, sigCreateCube, 1)))
}

func (r *luaRuntime) entityCreateLight(L *lua.LState) int {
	s := r.prelude(L, sigCreateLight, 9)
	name := r.stringArg(L, sigCreateLight, 1)
	pos := r.vec3Arg(L, sigCreateLight, 2)
	color := r.vec3Arg(L, sigCreateLight, 5)
	intensity := r.numberArg(L, sigCreateLight, 8)
	rng := r.numberArg(L, sigCreateLight, 9)
	return pushEntity(L, s.Entity_CreateLight(name, pos, color, intensity, rng, light.LightTypePoint, 0, 0))
}

func (r *luaRuntime) entityRemove(L *lua.LState) int {
	s := r.prelude(L, sigRemove, 1)
	s.Entity_Remove(r.entityArg(L, sigRemove, 1), optBoolArg(L, 2, true))
	return 0
}

func (r *luaRuntime) entityDuplicate(L *lua.LState) int {
	s := r.prelude(L, sigDuplicate, 1)
	return pushEntity(L, s.Entity_Duplicate(r.entityArg(L, sigDuplicate, 1)))
}

func (r *luaRuntime) componentAttach(L *lua.LState) int {
	s := r.prelude(L, sigAttach, 2)
	e := r.entityArg(L, sigAttach, 1)
	parent := r.entityArg(L, sigAttach, 2)
	if e == parent {
		return r.raise(L, sigAttach+" entity cannot be its own parent!")
	}
	s.Component_Attach(e, parent, optBoolArg(L, 3, false))
	return 0
}

func (r *luaRuntime) componentDetach(L *lua.LState) int {
	s := r.prelude(L, sigDetach, 1)
	s.Component_Detach(r.entityArg(L, sigDetach, 1))
	return 0
}

func (r *luaRuntime) transform(L *lua.LState, s scene.Scene, sig string) *scene.TransformComponent {
	t := s.Transforms().Get(r.entityArg(L, sig, 1))
	if t == nil {
		r.raise(L, sig+" entity has no transform!")
	}
	return t
}

func (r *luaRuntime) transformGetPosition(L *lua.LState) int {
	s := r.prelude(L, sigGetPosition, 1)
	return pushVec3(L, r.transform(L, s, sigGetPosition).GetPosition())
}

func (r *luaRuntime) transformTranslate(L *lua.LState) int {
	s := r.prelude(L, sigTranslate, 4)
	r.transform(L, s, sigTranslate).Translate(r.vec3Arg(L, sigTranslate, 2))
	return 0
}

func (r *luaRuntime) transformRotate(L *lua.LState) int {
	s := r.prelude(L, sigRotate, 4)
	r.transform(L, s, sigRotate).RotateRollPitchYaw(r.vec3Arg(L, sigRotate, 2))
	return 0
}

func (r *luaRuntime) transformScale(L *lua.LState) int {
	s := r.prelude(L, sigScale, 4)
	r.transform(L, s, sigScale).Scale(r.vec3Arg(L, sigScale, 2))
	return 0
}

func (r *luaRuntime) light(L *lua.LState, s scene.Scene, sig string) *light.Light {
	l := s.Lights().Get(r.entityArg(L, sig, 1))
	if l == nil {
		r.raise(L, sig+" entity has no light!")
	}
	return l
}

func (r *luaRuntime) lightSetColor(L *lua.LState) int {
	s := r.prelude(L, sigLightColor, 4)
	r.light(L, s, sigLightColor).Color = r.vec3Arg(L, sigLightColor, 2)
	return 0
}

func (r *luaRuntime) lightSetIntensity(L *lua.LState) int {
	s := r.prelude(L, sigLightIntensity, 2)
	r.light(L, s, sigLightIntensity).Intensity = r.numberArg(L, sigLightIntensity, 2)
	return 0
}

func (r *luaRuntime) sound(L *lua.LState, s scene.Scene, sig string) *scene.SoundComponent {
	snd := s.Sounds().Get(r.entityArg(L, sig, 1))
	if snd == nil {
		r.raise(L, sig+" entity has no sound!")
	}
	return snd
}

func (r *luaRuntime) soundPlay(L *lua.LState) int {
	s := r.prelude(L, sigSoundPlay, 1)
	r.sound(L, s, sigSoundPlay).Play()
	return 0
}

func (r *luaRuntime) soundStop(L *lua.LState) int {
	s := r.prelude(L, sigSoundStop, 1)
	r.sound(L, s, sigSoundStop).Stop()
	return 0
}

func (r *luaRuntime) animation(L *lua.LState, s scene.Scene, sig string) *scene.AnimationComponent {
	a := s.Animations().Get(r.entityArg(L, sig, 1))
	if a == nil {
		r.raise(L, sig+" entity has no animation!")
	}
	return a
}

func (r *luaRuntime) animationPlay(L *lua.LState) int {
	s := r.prelude(L, sigAnimPlay, 1)
	r.animation(L, s, sigAnimPlay).Play()
	return 0
}

func (r *luaRuntime) animationStop(L *lua.LState) int {
	s := r.prelude(L, sigAnimStop, 1)
	r.animation(L, s, sigAnimStop).Stop()
	return 0
}

func (r *luaRuntime) animationSetLooped(L *lua.LState) int {
	s := r.prelude(L, sigAnimLooped, 2)
	r.animation(L, s, sigAnimLooped).SetLooped(lua.LVAsBool(L.Get(2)))
	return 0
}

// pick returns entity, position x y z and distance of the nearest hit, entity 0 on a miss.
func (r *luaRuntime) pick(L *lua.LState) int {
	s := r.prelude(L, sigPick, 6)
	origin := r.vec3Arg(L, sigPick, 1)
	dir := r.vec3Arg(L, sigPick, 4)
	layerMask := ^uint32(0)
	if L.GetTop() >= 7 {
		v, ok := L.Get(7).(lua.LNumber)
		if !ok {
			return r.raise(L, sigPick+" argument 7 is not a number!")
		}
		layerMask = uint32(v)
	}
	if dir.LengthSq() == 0 {
		return r.raise(L, sigPick+" direction is zero!")
	}
	hit := s.Pick(common.NewRay(origin, dir.Normalize()), scene.RenderTypeAll, layerMask)
	pushEntity(L, hit.Entity)
	pushVec3(L, hit.Position)
	L.Push(lua.LNumber(hit.Distance))
	return 5
}

func (r *luaRuntime) putWaterRipple(L *lua.LState) int {
	s := r.prelude(L, sigRipple, 3)
	s.PutWaterRipple(r.vec3Arg(L, sigRipple, 1))
	return 0
}

func (r *luaRuntime) getTime(L *lua.LState) int {
	s := r.prelude(L, "GetTime()", 0)
	L.Push(lua.LNumber(s.Time()))
	return 1
}
