package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
)

// Update advances the scene by one frame.
func (s *scene) Update(dt float32) {
	s.dt = dt
	s.raytracing = s.device.CheckCapability(gpu.CapabilityRaytracing)
	frame := s.frameIndex
	ctx := &s.ctx

	s.runScriptUpdateSystem()

	if dt > 0 {
		s.terrain.Generate(s, &s.cam, dt)
	}

	s.syncBoundsStores()

	objectCount := s.objects.Len()
	hairCount := s.hairs.Len()
	emitterCount := s.emitters.Len()
	hasImpostors := s.impostors.Len() > 0

	s.instanceCount = objectCount + hairCount + emitterCount
	s.impostorInstanceOffset = uint32(s.instanceCount)
	if hasImpostors {
		s.instanceCount++
	}
	s.instanceArena.Ensure(s.instanceCount)

	s.materialCount = s.materials.Len()
	s.impostorMaterialOffset = uint32(s.materialCount)
	if hasImpostors {
		s.materialCount++
	}
	s.materialArena.Ensure(s.materialCount)

	if s.raytracing {
		s.tlasArena.Ensure(objectCount)
	}

	if objectCount > s.queryHeapCapacity {
		s.queryHeapCapacity = objectCount * 2
	}
	s.queryHeapIndex = (s.queryHeapIndex + 1) % occlusionQueryRing
	s.queryAllocator.Store(0)
	s.lightmapRefreshNeeded.Store(false)

	if len(s.matrixObjects) != objectCount {
		s.matrixObjectsPrev = make([]common.Mat4, objectCount)
		for i := range s.matrixObjectsPrev {
			s.matrixObjectsPrev[i] = common.Mat4Identity()
		}
	} else {
		s.matrixObjects, s.matrixObjectsPrev = s.matrixObjectsPrev, s.matrixObjects
	}
	s.matrixObjects = resizeMatrices(s.matrixObjects, objectCount)

	s.geometryAllocator.Store(0)
	s.meshletAllocator.Store(0)
	s.scheduler.Dispatch(ctx, s.meshes.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		mesh := s.meshes.At(int(args.JobIndex))
		n := uint32(len(mesh.Subsets))
		mesh.GeometryOffset = s.geometryAllocator.Add(n) - n
	})

	s.scheduler.Execute(ctx, func(jobsystem.JobArgs) {
		if s.raytracing {
			s.tlasArena.Zero(frame)
		}
	})
	s.scheduler.Execute(ctx, func(jobsystem.JobArgs) {
		s.instanceArena.Zero(frame)
	})
	s.scheduler.Execute(ctx, func(jobsystem.JobArgs) {
		s.physics.RunPhysicsUpdateSystem(s, dt)
	})

	// Animation overlaps physics but stays on this goroutine, so nested dispatches never
	// happen inside a worker.
	s.runAnimationUpdateSystem()

	s.runTransformUpdateSystem()
	s.scheduler.Wait(ctx)

	s.runHierarchyUpdateSystem()
	s.scheduler.Wait(ctx)

	s.impostorGeometryOffset = s.geometryAllocator.Load() + uint32(hairCount+emitterCount)
	s.geometryCount = int(s.impostorGeometryOffset)
	if hasImpostors {
		s.geometryCount++
	}
	s.geometryArena.Ensure(s.geometryCount)

	s.runExpressionUpdateSystem()
	s.runMeshUpdateSystem()
	s.runMaterialUpdateSystem()
	s.scheduler.Wait(ctx)

	// Springs read the weather wind and the collider proxies and write bone world matrices
	// the armatures read, so this chain runs in order before the armature dispatch.
	s.runWeatherUpdateSystem()
	s.runInverseKinematicsUpdateSystem()
	s.runColliderUpdateSystem()
	s.runSpringUpdateSystem()
	s.runArmatureUpdateSystem()
	s.scheduler.Wait(ctx)

	s.runObjectUpdateSystem()
	s.runCameraUpdateSystem()
	s.runDecalUpdateSystem()
	s.runProbeUpdateSystem()
	s.runForceUpdateSystem()
	s.runLightUpdateSystem()
	s.runParticleUpdateSystem()
	s.scheduler.Execute(ctx, func(jobsystem.JobArgs) {
		s.runSoundUpdateSystem()
	})
	s.scheduler.Execute(ctx, func(jobsystem.JobArgs) {
		s.runImpostorUpdateSystem()
	})
	s.scheduler.Wait(ctx)

	s.bounds = common.EmptyAABB()
	for _, b := range s.parallelBounds {
		s.bounds = common.MergeAABB(s.bounds, b)
	}

	s.meshletCount = int(s.meshletAllocator.Load())
	s.meshletArena.Ensure(s.meshletCount)
	s.writeMeshlets()

	s.allocateLightmaps()
	s.bvhUpdateRequested = !s.raytracing && s.lightmapRefreshNeeded.Load()

	s.runRippleUpdateSystem()
	s.updateSurfelGI()
	s.updateDDGI()
	s.updateImpostorBuffer()
	s.writeSceneConstants()
	s.writeLights()
	s.writeCameras()
	s.writeShadow()

	s.instanceArena.Flush(frame)
	s.materialArena.Flush(frame)
	s.geometryArena.Flush(frame)
	s.meshletArena.Flush(frame)
	s.sceneArena.Flush(frame)
	s.lightArena.Flush(frame)
	s.cameraArena.Flush(frame)
	s.shadowArena.Flush(frame)
	if s.raytracing {
		s.tlasArena.Flush(frame)
	}

	if dt > 0 {
		s.time += dt
	}
	s.frameCount++
	s.frameIndex = (s.frameIndex + 1) % max(s.device.BufferCount(), 1)
}

func resizeMatrices(m []common.Mat4, n int) []common.Mat4 {
	if cap(m) < n {
		return make([]common.Mat4, n)
	}
	return m[:n]
}

// syncBoundsStores gives every object, light, probe and decal the parallel bounds entry the
// updaters write, so parallel passes only ever Get from those stores.
func (s *scene) syncBoundsStores() {
	syncBounds(s.objects, s.aabbObjects)
	syncBounds(s.lights, s.aabbLights)
	syncBounds(s.probes, s.aabbProbes)
	syncBounds(s.decals, s.aabbDecals)
}

type entityStore interface {
	Entities() []ecs.Entity
	Contains(e ecs.Entity) bool
}

func syncBounds(owners entityStore, bounds *ecs.ComponentManager[common.AABB]) {
	for _, e := range owners.Entities() {
		if !bounds.Contains(e) {
			*bounds.Create(e) = common.EmptyAABB()
		}
	}
	for i := bounds.Len() - 1; i >= 0; i-- {
		if e := bounds.EntityAt(i); !owners.Contains(e) {
			bounds.Remove(e)
		}
	}
}

// writeSceneConstants fills the per-frame constant record.
func (s *scene) writeSceneConstants() {
	c := ShaderScene{
		InstanceBuffer:          s.instanceArena.Descriptor(),
		GeometryBuffer:          s.geometryArena.Descriptor(),
		MaterialBuffer:          s.materialArena.Descriptor(),
		MeshletBuffer:           s.meshletArena.Descriptor(),
		TLAS:                    -1,
		EnvMapArray:             -1,
		ImpostorInstanceOffset:  s.impostorInstanceOffset,
		ImpostorGeometryOffset:  s.impostorGeometryOffset,
		SunColor:                s.weather.SunColor,
		MostImportantLightIndex: s.weather.MostImportantLightIndex,
		SunDirection:            s.weather.SunDirection,
		FogStart:                s.weather.FogStart,
		AmbientColor:            s.weather.AmbientColor,
		FogDensity:              s.weather.FogDensity,
		WindDirection:           s.weather.WindDirection,
		WindSpeed:               s.weather.WindSpeed,
		Time:                    s.time,
		DeltaTime:               s.dt,
		FrameCount:              s.frameCount,
	}
	if s.raytracing {
		c.TLAS = s.tlasArena.Descriptor()
	}
	if s.textures.EnvMapArray != nil {
		c.EnvMapArray = s.textures.EnvMapArray.Descriptor()
	}
	if s.bounds.IsValid() {
		c.AABBMin = s.bounds.Min
		c.AABBMax = s.bounds.Max
		c.AABBExtents = s.bounds.Max.Sub(s.bounds.Min)
		for i := range 3 {
			if c.AABBExtents[i] != 0 {
				c.AABBExtentsRcp[i] = 1 / c.AABBExtents[i]
			}
		}
	}
	if s.ddgi.Valid {
		c.DDGIGridMin = s.ddgi.GridMin
		c.DDGIFrameIndex = s.ddgi.FrameIndex
		c.DDGIGridExtents = s.ddgi.GridMax.Sub(s.ddgi.GridMin)
	}
	s.shaderScene = c
	s.sceneArena.Ensure(1)
	s.sceneArena.Write(s.frameIndex, 0, c)
}

// writeLights fills the light buffer: a header slot, then every enabled light in store order.
func (s *scene) writeLights() {
	s.lightArena.Ensure(min(s.lights.Len(), light.MaxGPULights) + 1)
	staging := s.lightArena.Staging(s.frameIndex)
	clear(staging)
	s.lightCount = light.MarshalLightBuffer(staging, lightRecordSize, s.lights.Values(), s.weather.AmbientColor)
}

// writeCameras writes the main camera followed by every camera component.
func (s *scene) writeCameras() {
	s.cameraArena.Ensure(s.cameras.Len() + 1)
	s.cameraArena.Write(s.frameIndex, 0, s.cam.Uniform())
	for i := range s.cameras.Len() {
		s.cameraArena.Write(s.frameIndex, i+1, s.cameras.At(i).Uniform())
	}
}

// writeShadow centers the sun's shadow frustum on the main camera target. Without a sun
// the slot is cleared.
func (s *scene) writeShadow() {
	s.shadowArena.Ensure(1)
	if int(s.weather.MostImportantLightIndex) >= s.lights.Len() {
		s.shadowArena.Zero(s.frameIndex)
		return
	}
	s.shadowArena.Write(s.frameIndex, 0, light.NewDirectionalShadow(s.weather.SunDirection, s.cam.At))
}
