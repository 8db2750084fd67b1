package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/chewxy/math32"
)

// runMeshUpdateSystem blends morph targets, writes one geometry record per subset and
// tracks the acceleration structure flags of every mesh.
func (s *scene) runMeshUpdateSystem() {
	frame := s.frameIndex
	s.scheduler.Dispatch(&s.ctx, s.meshes.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		mesh := s.meshes.At(int(args.JobIndex))
		s.updateMesh(frame, mesh)
	})
}

func (s *scene) updateMesh(frame int, mesh *MeshComponent) {
	rebuild := false
	if mesh.DirtyMorph {
		mesh.morph()
		mesh.uploadMorph(s.device)
		mesh.DirtyMorph = false
		rebuild = true
	}

	doubleSided := mesh.IsDoubleSided()
	if len(mesh.BLASFlags) != len(mesh.Subsets) {
		mesh.BLASFlags = make([]uint32, len(mesh.Subsets))
		rebuild = true
	}

	var meshletOffset uint32
	for i := range mesh.Subsets {
		subset := &mesh.Subsets[i]
		mat := s.materials.Get(subset.MaterialID)

		if idx, ok := s.materials.IndexOf(subset.MaterialID); ok {
			subset.MaterialIndex = uint32(idx)
		} else {
			subset.MaterialIndex = 0
		}

		flags := BLASGeometryOpaque
		if mat != nil {
			if mat.IsAlphaTestEnabled() || mat.IsTransparent() || !mat.IsCastingShadow() {
				flags = BLASGeometryNoDuplicateAnyHit
			}
			if mat.IsDoubleSided() {
				doubleSided = true
			}
		}
		if mesh.BLASFlags[i] != flags {
			mesh.BLASFlags[i] = flags
			rebuild = true
		}

		meshletCount := TriangleCountToMeshletCount(subset.IndexCount / 3)
		var geometry ShaderGeometry
		geometry.Init()
		geometry.IndexOffset = subset.IndexOffset
		geometry.IndexCount = subset.IndexCount
		geometry.MaterialIndex = subset.MaterialIndex
		geometry.MeshletOffset = meshletOffset
		geometry.MeshletCount = meshletCount
		geometry.IBDescriptor = mesh.ibDesc
		geometry.VBPosDescriptor = mesh.vbPosDesc
		geometry.VBNorDescriptor = mesh.vbNorDesc
		geometry.TessellationFactor = mesh.TessellationFactor
		if mesh.AABB.IsValid() {
			geometry.AABBMin = mesh.AABB.Min
			geometry.AABBMax = mesh.AABB.Max
		}
		if doubleSided {
			geometry.Flags |= GeometryDoubleSided
		}
		s.geometryArena.Write(frame, int(mesh.GeometryOffset)+i, geometry)
		meshletOffset += meshletCount
	}
	mesh.MeshletCount = meshletOffset

	if doubleSided {
		mesh.Flags |= MeshTLASForceDoubleSided
	} else {
		mesh.Flags &^= MeshTLASForceDoubleSided
	}
	if rebuild {
		mesh.BLASBuildRequested = true
	}
}

// runMaterialUpdateSystem animates texture offsets, resolves stencil references and writes
// one material record per material.
func (s *scene) runMaterialUpdateSystem() {
	frame := s.frameIndex
	dt := s.dt
	s.scheduler.Dispatch(&s.ctx, s.materials.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		mat := s.materials.At(i)
		e := s.materials.EntityAt(i)

		mat.LayerMask = ^uint32(0)
		if layer := s.layers.Get(e); layer != nil {
			mat.LayerMask = layer.LayerMask
		}

		if mat.TexAnimFrameRate > 0 {
			mat.TexAnimElapsedTime += dt * mat.TexAnimFrameRate
			if mat.TexAnimElapsedTime >= 1 {
				mat.TexAnimElapsedTime = 0
				mat.TexMulAdd[2] = math32.Mod(mat.TexMulAdd[2]+mat.TexAnimDirection[0], 1)
				mat.TexMulAdd[3] = math32.Mod(mat.TexMulAdd[3]+mat.TexAnimDirection[1], 1)
				mat.SetDirty()
			}
		}

		mat.StencilRef = mat.engineStencilRef() | mat.UserStencilRef<<4
		mat.Dirty = false
		s.materialArena.Write(frame, i, mat.Record())
	})
}

// runImpostorUpdateSystem creates the impostor render targets, hands out capture slots and
// writes the shared impostor material, geometry and instance records.
func (s *scene) runImpostorUpdateSystem() {
	if s.impostors.Len() == 0 {
		return
	}
	frame := s.frameIndex

	if s.textures.ImpostorArray == nil {
		s.textures.ImpostorDepth = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
			Label:  "Scene::impostorDepthStencil",
			Width:  impostorTextureDim,
			Height: impostorTextureDim,
			Format: gpu.TextureFormatDepth32Float,
			Usage:  gpu.TextureUsageRenderTarget,
		})
		s.textures.ImpostorArray = gpu.MustCreateTexture(s.device, gpu.TextureDesc{
			Label:       "Scene::impostorArray",
			Width:       impostorTextureDim,
			Height:      impostorTextureDim,
			ArrayLayers: maxImpostorCount * s.captureAngles * 3,
			Format:      gpu.TextureFormatRGBA8Unorm,
			Usage:       gpu.TextureUsageRenderTarget | gpu.TextureUsageSampled,
		})
	}

	for i, owner := range s.impostorSlots {
		if owner != ecs.InvalidEntity && !s.impostors.Contains(owner) {
			s.impostorSlots[i] = ecs.InvalidEntity
		}
	}

	for i := range s.impostors.Len() {
		impostor := s.impostors.At(i)
		e := s.impostors.EntityAt(i)
		if impostor.TextureIndex < 0 {
			impostor.TextureIndex = allocateSlot(s.impostorSlots[:], e)
		}
		if impostor.Dirty {
			impostor.Dirty = false
			impostor.RenderDirty = true
		}
	}

	material := ShaderMaterial{
		BaseColor:  common.Vec4{1, 1, 1, 1},
		TexMulAdd:  common.Vec4{1, 1, 0, 0},
		ShaderType: ^uint32(0),
	}
	for i := range material.Textures {
		material.Textures[i] = -1
	}
	material.Textures[TextureBaseColor] = s.textures.ImpostorArray.Descriptor()
	s.materialArena.Write(frame, int(s.impostorMaterialOffset), material)

	var geometry ShaderGeometry
	geometry.Init()
	geometry.MaterialIndex = s.impostorMaterialOffset
	geometry.IndexCount = uint32(s.objects.Len()) * 6
	if s.impostorBuffer != nil {
		geometry.IBDescriptor = s.impostorBuffer.Descriptor()
		geometry.VBPosDescriptor = s.impostorBuffer.Descriptor()
		geometry.ImpostorSliceOffset = int32(s.impostorLayout.DataOffset)
	}
	s.geometryArena.Write(frame, int(s.impostorGeometryOffset), geometry)

	var instance ShaderMeshInstance
	instance.Init()
	instance.LayerMask = ^uint32(0)
	instance.GeometryOffset = s.impostorGeometryOffset
	instance.GeometryCount = 1
	s.instanceArena.Write(frame, int(s.impostorInstanceOffset), instance)
}

// allocateSlot claims the first free slot for e, -1 when all are taken.
func allocateSlot(slots []ecs.Entity, e ecs.Entity) int32 {
	for i, owner := range slots {
		if owner == e {
			return int32(i)
		}
	}
	for i, owner := range slots {
		if owner == ecs.InvalidEntity {
			slots[i] = e
			return int32(i)
		}
	}
	return -1
}

// updateImpostorBuffer sizes the composite buffer the renderer fills with impostor quads:
// six indices, four vertices and one draw record per object.
func (s *scene) updateImpostorBuffer() {
	if s.impostors.Len() == 0 {
		return
	}
	objects := uint64(s.objects.Len())
	indexStride := uint64(4)
	if objects*4 < 655536 {
		indexStride = 2
	}
	required := objects * (indexStride*6 + 16*4 + 8)
	if required <= s.impostorSize {
		return
	}
	s.impostorSize = required * 2
	if s.impostorBuffer != nil {
		s.impostorBuffer.Release()
	}
	capacity := objects * 2
	s.impostorLayout = gpu.NewCompositeLayout(
		s.device.MinOffsetAlignment(),
		capacity*indexStride*6,
		capacity*16*4,
		capacity*8,
	)
	s.impostorBuffer = gpu.MustCreateBuffer(s.device, gpu.BufferDesc{
		Label: "Scene::impostorBuffer",
		Size:  s.impostorLayout.Size,
		Usage: gpu.BufferUsageIndex | gpu.BufferUsageVertex | gpu.BufferUsageStorage,
	})
}
