package main

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/chewxy/math32"
)

const (
	gridSize      = 8
	gridSpacing   = 2.5
	lampRadius    = 6
	rippleEvery   = 1.0
	spinnerScript = "scene.Transform_RotateRollPitchYaw(GetEntity(), 0, 0.02, 0)"
)

// demo is the built-in scene the command runs when no scripts replace it.
type demo struct {
	s       scene.Scene
	orbit   camera.CameraController
	lamp    ecs.Entity
	elapsed float32
	ripple  float32
}

// buildDemo fills s with a floor, a grid of instanced cubes sharing one mesh, a sun, an
// orbiting lamp, a spring tail, a looping sound and a scripted spinner.
func buildDemo(s scene.Scene) *demo {
	floor := s.Entity_CreatePlane("floor")
	s.Transforms().Get(floor).Scale(common.Vec3{20, 1, 20})

	cube := s.Entity_CreateCube("cube")
	half := float32(gridSize-1) * gridSpacing / 2
	for i := range gridSize * gridSize {
		e := cube
		if i > 0 {
			e = s.Entity_CreateObject("cube_instance")
			s.Objects().Get(e).MeshID = cube
		}
		x := float32(i%gridSize)*gridSpacing - half
		z := float32(i/gridSize)*gridSpacing - half
		s.Transforms().Get(e).Translate(common.Vec3{x, 1, z})
	}

	sun := s.Entity_CreateLight("sun", common.Vec3{}, common.Vec3{1, 0.95, 0.85}, 3, 0, light.LightTypeDirectional, 0, 0)
	s.Transforms().Get(sun).Rotate(common.QuatFromAxisAngle(common.Vec3{1, 0, 0}, -math32.Pi/3))
	lamp := s.Entity_CreateLight("lamp", common.Vec3{lampRadius, 3, 0}, common.Vec3{1, 0.4, 0.1}, 8, 10, light.LightTypePoint, 0, 0)

	tail := s.Entity_CreateTransform("tail")
	s.Transforms().Get(tail).Translate(common.Vec3{0, 4, 0})
	tip := s.Entity_CreateTransform("tail_tip")
	s.Transforms().Get(tip).Translate(common.Vec3{0, 1, 0})
	s.Component_Attach(tip, tail, true)
	spring := s.Springs().Create(tail)
	spring.GravityDir = common.Vec3{1, -1, 0}.Normalize()
	spring.GravityPower = 0.5

	hum := s.Entity_CreateSound("hum", "hum.ogg", common.Vec3{0, 1, 0})
	s.Sounds().Get(hum).Play()

	spinner := s.Entity_CreateCube("spinner")
	s.Transforms().Get(spinner).Translate(common.Vec3{0, 3, 0})
	sc := s.Scripts().Create(spinner)
	sc.Source = spinnerScript
	sc.Play()

	s.Camera().CreatePerspective(1920, 1080, 0.1, 500, math32.Pi/4)

	return &demo{
		s: s,
		orbit: camera.NewCameraController(
			camera.WithRadius(30),
			camera.WithElevation(0.5),
			camera.WithOrbitSpeed(0.2),
		),
		lamp: lamp,
	}
}

// tick runs before the scene update of every frame.
func (d *demo) tick(dt float32) {
	d.elapsed += dt

	d.orbit.Update(dt)
	cam := d.s.Camera()
	cam.TransformCamera(d.orbit.World())
	cam.UpdateCamera()

	if t := d.s.Transforms().Get(d.lamp); t != nil {
		t.TranslationLocal = common.Vec3{
			math32.Cos(d.elapsed) * lampRadius,
			3,
			math32.Sin(d.elapsed) * lampRadius,
		}
		t.SetDirty()
	}

	d.ripple += dt
	if d.ripple >= rippleEvery {
		d.ripple -= rippleEvery
		d.s.PutWaterRipple(common.Vec3{math32.Sin(d.elapsed * 3), 0, math32.Cos(d.elapsed * 2)})
	}
}
