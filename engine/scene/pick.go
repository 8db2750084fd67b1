package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/chewxy/math32"
)

// PickResult is the nearest triangle a ray hit.
type PickResult struct {
	Entity       ecs.Entity
	Position     common.Vec3
	Normal       common.Vec3
	Distance     float32
	SubsetIndex  int
	VertexIDs    [3]uint32
	Barycentrics common.Vec2
	// Orientation is a frame at the hit: columns tangent, normal, bitangent and position.
	Orientation common.Mat4
}

// CollisionResult is the deepest triangle contact of a sphere or capsule query.
type CollisionResult struct {
	Entity   ecs.Entity
	Position common.Vec3
	// Normal points from the surface toward the query shape.
	Normal common.Vec3
	Depth  float32
}

// candidate is an object that passed the bounds, layer and render type filters.
type candidate struct {
	entity ecs.Entity
	mesh   *MeshComponent
	world  common.Mat4
}

// forEachCandidate calls fn for every object whose bounds pass test and whose masks match.
func (s *scene) forEachCandidate(renderTypeMask, layerMask uint32, test func(common.AABB) bool, fn func(c candidate)) {
	for i := range s.objects.Len() {
		object := s.objects.At(i)
		e := s.objects.EntityAt(i)
		if object.RenderTypeMask&renderTypeMask == 0 {
			continue
		}
		aabb := s.aabbObjects.Get(e)
		if aabb == nil || aabb.LayerMask&layerMask == 0 || !test(*aabb) {
			continue
		}
		mesh := s.meshes.Get(object.MeshID)
		transform := s.transforms.Get(e)
		if mesh == nil || transform == nil {
			continue
		}
		fn(candidate{entity: e, mesh: mesh, world: transform.World})
	}
}

// forEachTriangle visits the triangles of the first detail level.
func forEachTriangle(mesh *MeshComponent, fn func(subset int, i0, i1, i2 uint32)) {
	positions := mesh.Positions()
	first, count := mesh.LODSubsets(0)
	for si := first; si < first+count; si++ {
		subset := mesh.Subsets[si]
		end := min(int(subset.IndexOffset+subset.IndexCount), len(mesh.Indices))
		for j := int(subset.IndexOffset); j+2 < end; j += 3 {
			i0, i1, i2 := mesh.Indices[j], mesh.Indices[j+1], mesh.Indices[j+2]
			if int(max(i0, i1, i2)) >= len(positions) {
				continue
			}
			fn(si, i0, i1, i2)
		}
	}
}

func (s *scene) Pick(ray common.Ray, renderTypeMask, layerMask uint32) PickResult {
	result := PickResult{
		Entity:      ecs.InvalidEntity,
		Distance:    math32.MaxFloat32,
		SubsetIndex: -1,
	}

	s.forEachCandidate(renderTypeMask, layerMask, func(b common.AABB) bool {
		return b.IntersectsRay(ray)
	}, func(c candidate) {
		inv := c.world.Inverse()
		local := common.NewRay(inv.TransformPoint(ray.Origin), inv.TransformNormal(ray.Direction).Normalize())
		normalMatrix := inv.Transpose()
		positions := c.mesh.Positions()

		forEachTriangle(c.mesh, func(subset int, i0, i1, i2 uint32) {
			p0, p1, p2 := positions[i0], positions[i1], positions[i2]
			t, bary, hit := common.RayTriangleIntersects(local, p0, p1, p2)
			if !hit {
				return
			}
			pos := c.world.TransformPoint(local.Origin.Add(local.Direction.Scale(t)))
			dist := pos.Distance(ray.Origin)
			if dist >= result.Distance {
				return
			}
			result.Entity = c.entity
			result.Position = pos
			result.Normal = normalMatrix.TransformNormal(p1.Sub(p0).Cross(p2.Sub(p0))).Normalize()
			result.Distance = dist
			result.SubsetIndex = subset
			result.VertexIDs = [3]uint32{i0, i1, i2}
			result.Barycentrics = bary
		})
	})

	if result.Entity != ecs.InvalidEntity {
		n := result.Normal
		t := n.Cross(result.Position.Sub(ray.Origin))
		// head-on hits have no preferred tangent
		for _, axis := range []common.Vec3{{0, 1, 0}, {1, 0, 0}} {
			if t.LengthSq() > 1e-12 {
				break
			}
			t = n.Cross(axis)
		}
		t = t.Normalize()
		b := t.Cross(n).Normalize()
		p := result.Position
		result.Orientation = common.Mat4{
			t[0], t[1], t[2], 0,
			n[0], n[1], n[2], 0,
			b[0], b[1], b[2], 0,
			p[0], p[1], p[2], 1,
		}
	}
	return result
}

// IntersectSphere tests the sphere against the world space triangles of every candidate.
func (s *scene) IntersectSphere(sphere common.Sphere, renderTypeMask, layerMask uint32) CollisionResult {
	result := CollisionResult{Entity: ecs.InvalidEntity}
	s.forEachCandidate(renderTypeMask, layerMask, func(b common.AABB) bool {
		return b.IntersectsSphere(sphere)
	}, func(c candidate) {
		positions := c.mesh.Positions()
		forEachTriangle(c.mesh, func(_ int, i0, i1, i2 uint32) {
			p0 := c.world.TransformPoint(positions[i0])
			p1 := c.world.TransformPoint(positions[i1])
			p2 := c.world.TransformPoint(positions[i2])
			s.collideTriangle(&result, c.entity, sphere, p0, p1, p2)
		})
	})
	return result
}

// IntersectCapsule tests the capsule against every candidate by placing a sphere on the
// capsule segment at the point nearest each triangle.
func (s *scene) IntersectCapsule(capsule common.Capsule, renderTypeMask, layerMask uint32) CollisionResult {
	result := CollisionResult{Entity: ecs.InvalidEntity}
	bounds := capsule.AABB()
	axis := capsule.Tip.Sub(capsule.Base).Normalize()
	s.forEachCandidate(renderTypeMask, layerMask, func(b common.AABB) bool {
		return b.IntersectsAABB(bounds)
	}, func(c candidate) {
		positions := c.mesh.Positions()
		forEachTriangle(c.mesh, func(_ int, i0, i1, i2 uint32) {
			p0 := c.world.TransformPoint(positions[i0])
			p1 := c.world.TransformPoint(positions[i1])
			p2 := c.world.TransformPoint(positions[i2])

			reference := p0
			n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
			if denom := n.Dot(axis); math32.Abs(denom) > 1e-6 {
				t := n.Dot(p0.Sub(capsule.Base)) / denom
				reference = common.ClosestPointOnTriangle(capsule.Base.Add(axis.Scale(t)), p0, p1, p2)
			}
			center := common.ClosestPointOnLineSegment(capsule.Base, capsule.Tip, reference)
			s.collideTriangle(&result, c.entity, common.Sphere{Center: center, Radius: capsule.Radius}, p0, p1, p2)
		})
	})
	return result
}

// collideTriangle keeps the deeper of result and the sphere's contact with triangle p0 p1 p2.
func (s *scene) collideTriangle(result *CollisionResult, e ecs.Entity, sphere common.Sphere, p0, p1, p2 common.Vec3) {
	closest := common.ClosestPointOnTriangle(sphere.Center, p0, p1, p2)
	d := sphere.Center.Sub(closest)
	dist := d.Length()
	depth := sphere.Radius - dist
	if depth <= 0 || depth <= result.Depth {
		return
	}
	normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	if dist > 0 {
		normal = d.Scale(1 / dist)
	}
	*result = CollisionResult{Entity: e, Position: closest, Normal: normal, Depth: depth}
}
