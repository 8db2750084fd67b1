package scene

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"go.uber.org/zap"
)

var unitBox = common.AABB{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}

func (s *scene) layerMaskOf(e ecs.Entity) uint32 {
	if layer := s.layers.Get(e); layer != nil {
		return layer.GetLayerMask()
	}
	return ^uint32(0)
}

func (s *scene) worldOf(e ecs.Entity) common.Mat4 {
	if t := s.transforms.Get(e); t != nil {
		return t.World
	}
	return common.Mat4Identity()
}

func (s *scene) runCameraUpdateSystem() {
	s.scheduler.Dispatch(&s.ctx, s.cameras.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		cam := s.cameras.At(i)
		if t := s.transforms.Get(s.cameras.EntityAt(i)); t != nil {
			cam.TransformCamera(t.World)
		}
		cam.UpdateCamera()
	})
}

// runDecalUpdateSystem places every decal box and copies the color of the decal's own
// material.
func (s *scene) runDecalUpdateSystem() {
	s.scheduler.Dispatch(&s.ctx, s.decals.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		decal := s.decals.At(i)
		e := s.decals.EntityAt(i)

		decal.World = s.worldOf(e)
		decal.Position = decal.World.Translation()
		decal.Front = decal.World.TransformNormal(common.Vec3{0, 0, -1}).Normalize()
		decal.Range = decal.World.MaxScale() * 2
		decal.LayerMask = s.layerMaskOf(e)

		aabb := s.aabbDecals.Get(e)
		*aabb = unitBox.Transform(decal.World)
		aabb.LayerMask = decal.LayerMask

		if mat := s.materials.Get(e); mat != nil {
			decal.Color = mat.BaseColor
			decal.Emissive = mat.EmissiveColor[3]
		}
	})
}

// runProbeUpdateSystem creates the environment map array on first use, assigns cube slots
// and places every probe.
func (s *scene) runProbeUpdateSystem() {
	if s.probes.Len() == 0 {
		return
	}
	if s.textures.EnvMapArray == nil {
		s.textures.EnvMapDepth = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
			Label:       "Scene::envmapDepth",
			Width:       envmapResolution,
			Height:      envmapResolution,
			ArrayLayers: 1,
			Format:      gpu.TextureFormatDepth32Float,
			Usage:       gpu.TextureUsageRenderTarget,
			Cube:        true,
		})
		s.textures.EnvMapArray = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
			Label:       "Scene::envmapArray",
			Width:       envmapResolution,
			Height:      envmapResolution,
			ArrayLayers: envmapCount,
			MipLevels:   envmapMips,
			Format:      gpu.TextureFormatRGBA8Unorm,
			Usage:       gpu.TextureUsageRenderTarget | gpu.TextureUsageSampled,
			Cube:        true,
		})
	}

	for i, owner := range s.probeSlots {
		if owner != ecs.InvalidEntity && !s.probes.Contains(owner) {
			s.probeSlots[i] = ecs.InvalidEntity
		}
	}
	for i := range s.probes.Len() {
		probe := s.probes.At(i)
		if probe.TextureIndex < 0 {
			probe.TextureIndex = allocateSlot(s.probeSlots[:], s.probes.EntityAt(i))
		}
	}

	s.scheduler.Dispatch(&s.ctx, s.probes.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		probe := s.probes.At(i)
		e := s.probes.EntityAt(i)

		if probe.IsDirty() || probe.IsRealTime() {
			probe.Flags &^= ProbeDirty
			probe.RenderDirty = true
		}
		world := s.worldOf(e)
		probe.Position = world.Translation()
		probe.Range = world.MaxScale()
		probe.InverseMatrix = world.Inverse()

		aabb := s.aabbProbes.Get(e)
		*aabb = unitBox.Transform(world)
		aabb.LayerMask = s.layerMaskOf(e)
	})
}

func (s *scene) runForceUpdateSystem() {
	s.scheduler.Dispatch(&s.ctx, s.forces.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		force := s.forces.At(i)
		world := s.worldOf(s.forces.EntityAt(i))
		force.Position = world.Translation()
		force.Direction = world.TransformNormal(common.Vec3{0, -1, 0}).Normalize()
	})
}

// runLightUpdateSystem places every light and writes its bounds. The enabled directional
// light with the lowest store index becomes the sun of the active weather.
func (s *scene) runLightUpdateSystem() {
	s.scheduler.Dispatch(&s.ctx, s.lights.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		l := s.lights.At(i)
		e := s.lights.EntityAt(i)

		if t := s.transforms.Get(e); t != nil {
			l.Scale, l.Rotation, l.Position = t.World.Decompose()
			l.Direction = t.World.TransformNormal(common.Vec3{0, 1, 0}).Normalize()
		}

		aabb := s.aabbLights.Get(e)
		switch l.Type {
		case light.LightTypeDirectional:
			*aabb = common.InfiniteAABB()
			if l.IsEnabled() {
				s.claimSun(uint32(i), l)
			}
		default:
			r := l.GetRange()
			*aabb = common.AABBFromHalfWidth(l.Position, common.Vec3{r, r, r})
		}
		aabb.LayerMask = s.layerMaskOf(e)
	})
}

func (s *scene) claimSun(index uint32, l *light.Light) {
	s.mostImportantMu.Lock()
	defer s.mostImportantMu.Unlock()
	if index >= s.weather.MostImportantLightIndex {
		return
	}
	s.weather.MostImportantLightIndex = index
	s.weather.SunColor = l.Color.Scale(l.Intensity)
	s.weather.SunDirection = l.Direction
}

// runParticleUpdateSystem claims a geometry slot and meshlets for every hair and emitter
// and writes their instance records after the object instances.
func (s *scene) runParticleUpdateSystem() {
	frame := s.frameIndex
	dt := s.dt
	objects := s.objects.Len()
	hairs := s.hairs.Len()

	s.scheduler.Dispatch(&s.ctx, hairs, SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		hair := s.hairs.At(i)
		e := s.hairs.EntityAt(i)
		world := s.worldOf(e)

		hair.LayerMask = s.layerMaskOf(e)
		hair.UpdateCPU(world, s.meshes.Get(hair.MeshID))
		s.writeParticleRecords(frame, objects+i, e, world, hair.LayerMask, hair.MeshletCount, hair.AABB, &hair.GeometryIndex)
	})

	s.scheduler.Dispatch(&s.ctx, s.emitters.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		emitter := s.emitters.At(i)
		e := s.emitters.EntityAt(i)
		world := s.worldOf(e)

		emitter.LayerMask = s.layerMaskOf(e)
		if mat := s.materials.Get(e); mat != nil {
			mat.Flags |= MaterialUseVertexColors
			if emitter.IsUnlit() {
				mat.ShaderType = ShaderUnlit
			} else {
				mat.ShaderType = ShaderPBR
			}
		}
		emitter.UpdateCPU(world, dt)
		s.writeParticleRecords(frame, objects+hairs+i, e, world, emitter.LayerMask, emitter.MeshletCount, emitter.AABB, &emitter.GeometryIndex)
	})
}

func (s *scene) writeParticleRecords(frame, instanceIndex int, e ecs.Entity, world common.Mat4, layerMask, meshletCount uint32, aabb common.AABB, geometryIndex *uint32) {
	*geometryIndex = s.geometryAllocator.Add(1) - 1
	meshletOffset := s.meshletAllocator.Add(meshletCount) - meshletCount

	var geometry ShaderGeometry
	geometry.Init()
	geometry.MeshletCount = meshletCount
	if idx, ok := s.materials.IndexOf(e); ok {
		geometry.MaterialIndex = uint32(idx)
	}
	if aabb.IsValid() {
		geometry.AABBMin = aabb.Min
		geometry.AABBMax = aabb.Max
	}
	s.geometryArena.Write(frame, int(*geometryIndex), geometry)

	var instance ShaderMeshInstance
	instance.Init()
	instance.UID = uint32(e)
	instance.LayerMask = layerMask
	instance.GeometryOffset = *geometryIndex
	instance.GeometryCount = 1
	instance.MeshletOffset = meshletOffset
	instance.Transform = NewShaderTransform(world)
	instance.TransformInverseTranspose = NewShaderTransform(world.Inverse().Transpose())
	instance.TransformPrev = instance.Transform
	if aabb.IsValid() {
		instance.Center = aabb.Center()
		instance.Radius = aabb.Radius()
	}
	s.instanceArena.Write(frame, instanceIndex, instance)
}

// runSoundUpdateSystem forwards sound state to the audio engine. The listener is the first
// camera component, else the main camera.
func (s *scene) runSoundUpdateSystem() {
	if s.sounds.Len() == 0 {
		return
	}
	listener := SoundListener{Position: s.cam.Eye, Front: s.cam.At, Up: s.cam.Up}
	if s.cameras.Len() > 0 {
		if t := s.transforms.Get(s.cameras.EntityAt(0)); t != nil {
			var c camera.Camera
			c.TransformCamera(t.World)
			listener = SoundListener{Position: c.Eye, Front: c.At, Up: c.Up}
		}
	}

	for i := range s.sounds.Len() {
		sound := s.sounds.At(i)
		e := s.sounds.EntityAt(i)
		if !sound.IsDisable3D() {
			s.audio.Update3D(e, listener, s.worldOf(e).Translation())
		}
		if sound.IsPlaying() {
			s.audio.Play(e, sound)
		} else {
			s.audio.Stop(e, sound)
		}
		if !sound.IsLooped() {
			s.audio.ExitLoop(e, sound)
		}
		s.audio.SetVolume(e, sound.Volume)
	}
}

// runScriptUpdateSystem runs every playing script once. Each script sees a GetEntity
// function returning its own entity. Failures are logged and do not stop the frame.
func (s *scene) runScriptUpdateSystem() {
	for i := range s.scriptComps.Len() {
		script := s.scriptComps.At(i)
		e := s.scriptComps.EntityAt(i)
		if !script.IsPlaying() {
			continue
		}
		if script.compiled == "" {
			source := script.Source
			if source == "" && script.Filename != "" {
				data, err := os.ReadFile(script.Filename)
				if err != nil {
					s.logger.Error("script load failed",
						zap.Uint64("entity", uint64(e)),
						zap.String("file", script.Filename),
						zap.Error(err))
					script.Stop()
					continue
				}
				source = string(data)
			}
			script.compiled = fmt.Sprintf("local function GetEntity() return %d; end\n", e) + source
		}

		name := script.Filename
		if name == "" {
			name = fmt.Sprintf("script#%d", e)
		}
		if err := s.scripts.RunScript(name, script.compiled); err != nil {
			s.logger.Error("script failed",
				zap.Uint64("entity", uint64(e)),
				zap.String("script", name),
				zap.Error(err))
		}
		if script.IsPlayOnce() {
			script.Stop()
		}
	}
}
