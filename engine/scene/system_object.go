package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/chewxy/math32"
)

// runObjectUpdateSystem derives the bounds, level of detail and render types of every
// object, writes its instance and acceleration structure records and reduces the scene
// bounds per dispatch group.
func (s *scene) runObjectUpdateSystem() {
	n := s.objects.Len()
	groups := jobsystem.DispatchGroupCount(n, SmallSubtaskGroupSize)
	if cap(s.parallelBounds) < groups {
		s.parallelBounds = make([]common.AABB, groups)
	}
	s.parallelBounds = s.parallelBounds[:groups]

	readSlot := (s.queryHeapIndex + 1) % occlusionQueryRing
	results := s.occlusionResults[readSlot]

	jobsystem.DispatchShared(s.scheduler, &s.ctx, n, SmallSubtaskGroupSize, func(args jobsystem.JobArgs, groupBounds *common.AABB) {
		i := int(args.JobIndex)
		aabb := s.updateObject(i, results)

		if args.IsFirstJobInGroup {
			*groupBounds = aabb
		} else {
			*groupBounds = common.MergeAABB(*groupBounds, aabb)
		}
		if args.IsLastJobInGroup {
			s.parallelBounds[args.GroupID] = *groupBounds
		}
	})
}

// updateObject updates object i and returns its world bounds, empty when it has no mesh.
func (s *scene) updateObject(i int, results []uint64) common.AABB {
	frame := s.frameIndex
	object := s.objects.At(i)
	e := s.objects.EntityAt(i)
	aabb := s.aabbObjects.Get(e)
	*aabb = common.EmptyAABB()

	object.OcclusionHistory <<= 1
	q := object.OcclusionQueries[(s.queryHeapIndex+1)%occlusionQueryRing]
	if q < 0 || int(q) >= len(results) || results[q] != 0 {
		object.OcclusionHistory |= 1
	}
	object.OcclusionQueries[s.queryHeapIndex] = -1

	layerMask := ^uint32(0)
	if layer := s.layers.Get(e); layer != nil {
		layerMask = layer.GetLayerMask()
	}
	aabb.LayerMask = layerMask
	object.RenderTypeMask = 0
	object.MeshletOffset = 0

	mesh := s.meshes.Get(object.MeshID)
	transform := s.transforms.Get(e)
	if mesh == nil || transform == nil {
		s.matrixObjects[i] = common.Mat4Identity()
		return *aabb
	}

	world := transform.World
	if mesh.AABB.IsValid() {
		*aabb = mesh.AABB.Transform(world)
	}
	if mesh.IsSkinned() {
		if armature := s.armatures.Get(mesh.ArmatureID); armature != nil && armature.AABB.IsValid() {
			*aabb = armature.AABB
		}
	}
	if sb := s.softbodies.Get(object.MeshID); sb != nil && sb.Simulated {
		if sb.AABB.IsValid() {
			*aabb = sb.AABB
		}
		world = common.Mat4Identity()
	}
	aabb.LayerMask = layerMask

	for _, subset := range mesh.Subsets {
		if mat := s.materials.Get(subset.MaterialID); mat != nil {
			object.RenderTypeMask |= mat.GetRenderTypes()
		} else {
			object.RenderTypeMask |= RenderTypeOpaque
		}
	}

	object.FadeDistance = object.DrawDistance
	if impostor := s.impostors.Get(object.MeshID); impostor != nil {
		object.FadeDistance = math32.Min(object.DrawDistance, impostor.SwapInDistance)
	}

	if aabb.IsValid() {
		object.Center = aabb.Center()
		object.Radius = aabb.Radius()
	} else {
		object.Center = world.Translation()
		object.Radius = 0
	}

	object.LOD = 0
	if lods := mesh.LODCount(); lods > 1 {
		d2 := s.cam.Eye.Sub(object.Center).LengthSq()
		r2 := object.Radius * object.Radius
		if d2 > r2 {
			lod := uint32(math32.Max((math32.Sqrt(d2)-object.Radius)*object.LODDistanceMultiplier, 0))
			object.LOD = min(lod, uint32(lods-1))
		}
	}

	object.MeshletOffset = s.meshletAllocator.Add(mesh.MeshletCount) - mesh.MeshletCount
	if object.IsRenderable() && s.queryHeapCapacity > 0 {
		if id := s.queryAllocator.Add(1) - 1; int(id) < s.queryHeapCapacity {
			object.OcclusionQueries[s.queryHeapIndex] = int32(id)
		}
	}

	first, count := mesh.LODSubsets(int(object.LOD))
	emissive := object.EmissiveColor.XYZ().Scale(object.EmissiveColor[3])
	instance := ShaderMeshInstance{
		UID:                       uint32(e),
		LayerMask:                 layerMask,
		GeometryOffset:            mesh.GeometryOffset + uint32(first),
		GeometryCount:             uint32(count),
		MeshletOffset:             object.MeshletOffset,
		Color:                     common.PackUnorm4x8(object.Color),
		Emissive:                  common.PackR11G11B10Float(emissive),
		LightmapIndex:             object.LightmapIndex,
		FadeDistance:              object.FadeDistance,
		Center:                    object.Center,
		Radius:                    object.Radius,
		Transform:                 NewShaderTransform(world),
		TransformInverseTranspose: NewShaderTransform(world.Inverse().Transpose()),
		TransformPrev:             NewShaderTransform(s.matrixObjectsPrev[i]),
	}
	s.matrixObjects[i] = world
	s.instanceArena.Write(frame, i, instance)

	if s.raytracing {
		var flags uint8
		if mesh.IsDoubleSided() || mesh.Flags&MeshTLASForceDoubleSided != 0 || object.Flags&ObjectForceDoubleSided != 0 {
			flags |= TLASInstanceTriangleCullDisable
		}
		if determinant3(world) > 0 {
			flags |= TLASInstanceFrontCounterClockwise
		}
		s.tlasArena.Write(frame, i, TLASInstance{
			Transform:   NewShaderTransform(world),
			InstanceID:  uint32(i),
			Mask:        uint8(layerMask),
			Flags:       flags,
			BLASAddress: uint64(mesh.IndexDescriptor() + 1),
		})
	}

	if s.dt > 0 && object.IsRequestLightmap() {
		s.lightmapRefreshNeeded.Store(true)
	}
	return *aabb
}

// determinant3 returns the determinant of the upper 3x3 block.
func determinant3(m common.Mat4) float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}

// writeMeshlets expands every instance into its meshlet records once the meshlet arena is
// sized for the frame.
func (s *scene) writeMeshlets() {
	frame := s.frameIndex
	s.scheduler.Dispatch(&s.ctx, s.objects.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		object := s.objects.At(i)
		mesh := s.meshes.Get(object.MeshID)
		if mesh == nil || s.transforms.Get(s.objects.EntityAt(i)) == nil {
			return
		}
		offset := int(object.MeshletOffset)
		for j, subset := range mesh.Subsets {
			count := int(TriangleCountToMeshletCount(subset.IndexCount / 3))
			for m := range count {
				s.meshletArena.Write(frame, offset, ShaderMeshlet{
					InstanceIndex:   uint32(i),
					GeometryIndex:   mesh.GeometryOffset + uint32(j),
					PrimitiveOffset: uint32(m * MeshletTriangleCount),
				})
				offset++
			}
		}
	})
	s.scheduler.Wait(&s.ctx)
}

// allocateLightmaps creates the render target of every object that requested a lightmap
// and has none yet. Width and height round down to half the next power of two.
func (s *scene) allocateLightmaps() {
	if s.dt <= 0 {
		return
	}
	for i := range s.objects.Len() {
		object := s.objects.At(i)
		e := s.objects.EntityAt(i)
		if !object.IsRequestLightmap() {
			continue
		}
		if _, ok := s.lightmaps[e]; ok {
			continue
		}
		w := max(common.NextPowerOfTwo(object.LightmapWidth+1)/2, 1)
		h := max(common.NextPowerOfTwo(object.LightmapHeight+1)/2, 1)
		tex := gpu.MustCreateTexture(s.device, gpu.TextureDesc{
			Label:  "ObjectComponent::lightmap",
			Width:  w,
			Height: h,
			Format: gpu.TextureFormatRGBA32Float,
			Usage:  gpu.TextureUsageRenderTarget | gpu.TextureUsageSampled,
		})
		s.lightmaps[e] = tex
		object.LightmapIndex = tex.Descriptor()
		object.LightmapIters = 0
	}
	for e, tex := range s.lightmaps {
		if !s.objects.Contains(e) {
			tex.Release()
			delete(s.lightmaps, e)
		}
	}
}
