package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
)

// newNamedEntity creates an entity carrying a name and, when placed, a layer and a
// transform at pos.
func (s *scene) newNamedEntity(name string, placed bool, pos common.Vec3) ecs.Entity {
	e := ecs.CreateEntity()
	s.names.Create(e).Name = name
	if placed {
		s.layers.Create(e)
		t := s.transforms.Create(e)
		t.Translate(pos)
		t.UpdateTransform()
	}
	return e
}

func (s *scene) Entity_CreateTransform(name string) ecs.Entity {
	return s.newNamedEntity(name, true, common.Vec3{})
}

func (s *scene) Entity_CreateMaterial(name string) ecs.Entity {
	e := s.newNamedEntity(name, false, common.Vec3{})
	s.materials.Create(e)
	return e
}

func (s *scene) Entity_CreateObject(name string) ecs.Entity {
	e := s.newNamedEntity(name, true, common.Vec3{})
	s.objects.Create(e)
	return e
}

func (s *scene) Entity_CreateMesh(name string) ecs.Entity {
	e := s.newNamedEntity(name, false, common.Vec3{})
	s.meshes.Create(e)
	return e
}

func (s *scene) Entity_CreateLight(name string, pos, color common.Vec3, intensity, rng float32, typ light.LightType, outerConeAngle, innerConeAngle float32) ecs.Entity {
	e := s.newNamedEntity(name, true, pos)
	l := s.lights.Create(e)
	l.Type = typ
	l.Color = color
	l.Intensity = intensity
	l.Range = rng
	l.OuterConeAngle = outerConeAngle
	l.InnerConeAngle = innerConeAngle
	l.Position = pos
	return e
}

func (s *scene) Entity_CreateForce(name string, pos common.Vec3) ecs.Entity {
	e := s.newNamedEntity(name, true, pos)
	s.forces.Create(e)
	return e
}

func (s *scene) Entity_CreateEnvironmentProbe(name string, pos common.Vec3) ecs.Entity {
	e := s.newNamedEntity(name, true, pos)
	s.probes.Create(e)
	return e
}

// Entity_CreateDecal creates a decal with its own alpha blended material using the named
// base color and normal map textures.
func (s *scene) Entity_CreateDecal(name, textureName, normalMapName string) ecs.Entity {
	e := s.newNamedEntity(name, true, common.Vec3{})
	s.decals.Create(e)
	mat := s.materials.Create(e)
	mat.UserBlendMode = BlendAlpha
	mat.Textures[TextureBaseColor].Name = textureName
	mat.Textures[TextureNormal].Name = normalMapName
	return e
}

func (s *scene) Entity_CreateCamera(name string, width, height, near, far, fov float32) ecs.Entity {
	e := s.newNamedEntity(name, true, common.Vec3{})
	s.cameras.Create(e).CreatePerspective(width, height, near, far, fov)
	return e
}

func (s *scene) Entity_CreateEmitter(name string, pos common.Vec3) ecs.Entity {
	e := s.newNamedEntity(name, true, pos)
	s.emitters.Create(e)
	mat := s.materials.Create(e)
	mat.UserBlendMode = BlendAlpha
	mat.Flags |= MaterialUseVertexColors
	return e
}

func (s *scene) Entity_CreateHair(name string, pos common.Vec3) ecs.Entity {
	e := s.newNamedEntity(name, true, pos)
	s.hairs.Create(e)
	s.materials.Create(e).ShaderType = ShaderHair
	return e
}

func (s *scene) Entity_CreateSound(name, filename string, pos common.Vec3) ecs.Entity {
	e := s.newNamedEntity(name, true, pos)
	s.sounds.Create(e).Filename = filename
	return e
}

// cubeFaces lists the normal and two tangents of each cube face, with u x v == normal.
var cubeFaces = [6][3]common.Vec3{
	{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}},
}

var quadUVs = [4]common.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

// appendQuad adds the quad center ± u ± v facing n.
func appendQuad(mesh *MeshComponent, center, n, u, v common.Vec3) {
	base := uint32(len(mesh.VertexPositions))
	corners := [4]common.Vec3{
		center.Sub(u).Sub(v),
		center.Add(u).Sub(v),
		center.Add(u).Add(v),
		center.Sub(u).Add(v),
	}
	for i, c := range corners {
		mesh.VertexPositions = append(mesh.VertexPositions, c)
		mesh.VertexNormals = append(mesh.VertexNormals, n)
		mesh.VertexUVs = append(mesh.VertexUVs, quadUVs[i])
	}
	mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
}

// createPrimitive builds an object that instances its own mesh and material.
func (s *scene) createPrimitive(name string, build func(mesh *MeshComponent)) ecs.Entity {
	e := s.newNamedEntity(name, true, common.Vec3{})
	s.materials.Create(e)
	mesh := s.meshes.Create(e)
	build(mesh)
	mesh.Subsets = []MeshSubset{{MaterialID: e, IndexCount: uint32(len(mesh.Indices))}}
	mesh.CreateRenderData(s.device)
	s.objects.Create(e).MeshID = e
	return e
}

func (s *scene) Entity_CreateCube(name string) ecs.Entity {
	return s.createPrimitive(name, func(mesh *MeshComponent) {
		for _, f := range cubeFaces {
			appendQuad(mesh, f[0], f[0], f[1], f[2])
		}
	})
}

func (s *scene) Entity_CreatePlane(name string) ecs.Entity {
	return s.createPrimitive(name, func(mesh *MeshComponent) {
		f := cubeFaces[2]
		appendQuad(mesh, common.Vec3{}, f[0], f[1], f[2])
	})
}

// children returns the direct children of parent in hierarchy order.
func (s *scene) children(parent ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	for i := range s.hierarchy.Len() {
		if s.hierarchy.At(i).ParentID == parent {
			out = append(out, s.hierarchy.EntityAt(i))
		}
	}
	return out
}

func (s *scene) Entity_Remove(e ecs.Entity, recursive bool) {
	if recursive {
		for _, child := range s.children(e) {
			s.Entity_Remove(child, true)
		}
	}
	if mesh := s.meshes.Get(e); mesh != nil {
		mesh.DeleteRenderData()
	}
	s.library.RemoveEntity(e)
}

func (s *scene) Entity_FindByName(name string) ecs.Entity {
	for i := range s.names.Len() {
		if s.names.At(i).Name == name {
			return s.names.EntityAt(i)
		}
	}
	return ecs.InvalidEntity
}

// isDescendant reports whether e lies below ancestor in the hierarchy.
func (s *scene) isDescendant(e, ancestor ecs.Entity) bool {
	for depth := 0; depth < MaxHierarchyDepth; depth++ {
		h := s.hierarchy.Get(e)
		if h == nil {
			return false
		}
		if h.ParentID == ancestor {
			return true
		}
		e = h.ParentID
	}
	return false
}

func (s *scene) Component_Attach(e, parent ecs.Entity, childAlreadyInLocalSpace bool) {
	if e == parent {
		panic(fmt.Sprintf("scene: cannot attach entity %d to itself", e))
	}
	if s.isDescendant(parent, e) {
		panic(fmt.Sprintf("scene: cannot attach entity %d to its descendant %d", e, parent))
	}
	if s.hierarchy.Contains(e) {
		s.Component_Detach(e)
	}

	h := s.hierarchy.Create(e)
	h.ParentID = parent
	h.LayerMaskBind = ^uint32(0)
	if layer := s.layers.Get(e); layer != nil {
		h.LayerMaskBind = layer.LayerMask
	}
	s.sortHierarchy()

	t := s.transforms.Get(e)
	if t == nil {
		t = s.transforms.Create(e)
	}
	pt := s.transforms.Get(parent)
	if pt == nil {
		return
	}
	if !childAlreadyInLocalSpace {
		t.MatrixTransform(pt.World.Inverse())
		t.UpdateTransform()
	}
	t.UpdateTransformParented(pt)
}

// sortHierarchy restores parent-before-child order with a stable insertion sort by depth.
// Attach appends at the end, so usually only the new edge and the subtree it adopted move.
func (s *scene) sortHierarchy() {
	n := s.hierarchy.Len()
	depths := make([]int, n)
	for i := range n {
		depths[i] = s.hierarchyDepth(s.hierarchy.EntityAt(i))
	}
	for i := 1; i < n; i++ {
		d := depths[i]
		j := i
		for j > 0 && depths[j-1] > d {
			j--
		}
		if j == i {
			continue
		}
		s.hierarchy.MoveItem(i, j)
		copy(depths[j+1:i+1], depths[j:i])
		depths[j] = d
	}
}

func (s *scene) hierarchyDepth(e ecs.Entity) int {
	depth := 0
	for depth < MaxHierarchyDepth {
		h := s.hierarchy.Get(e)
		if h == nil {
			break
		}
		depth++
		e = h.ParentID
	}
	return depth
}

func (s *scene) Component_Detach(e ecs.Entity) {
	if !s.hierarchy.Contains(e) {
		return
	}
	if t := s.transforms.Get(e); t != nil {
		t.ApplyTransform()
	}
	if layer := s.layers.Get(e); layer != nil {
		layer.PropagationMask = ^uint32(0)
	}
	s.hierarchy.Remove(e)
}

func (s *scene) Component_DetachChildren(parent ecs.Entity) {
	for _, child := range s.children(parent) {
		s.Component_Detach(child)
	}
}
