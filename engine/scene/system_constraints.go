package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/chewxy/math32"
)

// runInverseKinematicsUpdateSystem rotates the ancestors of every IK effector toward its
// target. Chains are solved on a copy of the transforms so a solver never reads a
// half-updated chain of another one; the resolved world matrices are copied back.
func (s *scene) runInverseKinematicsUpdateSystem() {
	if s.inverseKinematic.Len() == 0 {
		return
	}
	temp := ecs.NewComponentManager[TransformComponent]("transform_ik")
	for i := range s.transforms.Len() {
		*temp.Create(s.transforms.EntityAt(i)) = *s.transforms.At(i)
	}

	solved := false
	for i := range s.inverseKinematic.Len() {
		ik := s.inverseKinematic.At(i)
		if ik.Disabled {
			continue
		}
		if s.solveIK(temp, s.inverseKinematic.EntityAt(i), ik) {
			solved = true
		}
	}
	if !solved {
		return
	}

	resolveHierarchyTopDown(s.hierarchy, temp, s.layers)
	for i := range temp.Len() {
		if t := s.transforms.Get(temp.EntityAt(i)); t != nil {
			t.World = temp.At(i).World
		}
	}
}

// solveIK runs cyclic coordinate descent over the effector's ancestor chain.
//
// Returns:
//   - bool: true when any link was rotated
func (s *scene) solveIK(temp *ecs.ComponentManager[TransformComponent], e ecs.Entity, ik *InverseKinematicsComponent) bool {
	effector := temp.Get(e)
	target := temp.Get(ik.Target)
	edge := s.hierarchy.Get(e)
	if effector == nil || target == nil || edge == nil {
		return false
	}
	targetPos := target.World.Translation()
	chainLength := min(int(ik.ChainLength), MaxIKChain)

	solved := false
	for range max(ik.IterationCount, 1) {
		var stack [MaxIKChain]ecs.Entity
		parent := edge.ParentID
		for link := 0; link < chainLength; link++ {
			pt := temp.Get(parent)
			if pt == nil {
				break
			}
			stack[link] = parent

			pivot := pt.World.Translation()
			toEffector := effector.World.Translation().Sub(pivot).Normalize()
			toTarget := targetPos.Sub(pivot).Normalize()
			q := common.QuatBetween(toEffector, toTarget)

			pt.ApplyTransform()
			pt.Rotate(q)
			pt.UpdateTransform()
			grand := s.hierarchy.Get(parent)
			if grand != nil {
				if gpt := temp.Get(grand.ParentID); gpt != nil {
					pt.MatrixTransform(gpt.World.Inverse())
					pt.UpdateTransformParented(gpt)
				}
			}

			for k := link - 1; k >= 0; k-- {
				h := s.hierarchy.Get(stack[k])
				kt := temp.Get(stack[k])
				if h == nil || kt == nil {
					continue
				}
				if kp := temp.Get(h.ParentID); kp != nil {
					kt.UpdateTransformParented(kp)
				}
			}
			if ep := temp.Get(edge.ParentID); ep != nil {
				effector.UpdateTransformParented(ep)
			}
			solved = true

			if grand == nil {
				break
			}
			parent = grand.ParentID
		}
	}
	return solved
}

// runColliderUpdateSystem places every collider proxy in world space and splits them into
// the CPU and GPU lists.
func (s *scene) runColliderUpdateSystem() {
	s.collidersCPU = s.collidersCPU[:0]
	s.collidersGPU = s.collidersGPU[:0]
	for i := range s.colliders.Len() {
		c := s.colliders.At(i)
		e := s.colliders.EntityAt(i)

		world := common.Mat4Identity()
		if t := s.transforms.Get(e); t != nil {
			world = t.World
		}
		c.LayerMask = ^uint32(0)
		if layer := s.layers.Get(e); layer != nil {
			c.LayerMask = layer.GetLayerMask()
		}

		radius := c.Radius * world.MaxScale()
		offset := world.TransformPoint(c.Offset)
		tail := world.TransformPoint(c.Tail)

		switch c.Shape {
		case ColliderSphere:
			c.Sphere = common.Sphere{Center: offset, Radius: radius}
		case ColliderCapsule:
			c.Capsule = common.Capsule{Base: offset, Tip: tail, Radius: radius}
		case ColliderPlane:
			c.Plane.Origin = offset
			c.Plane.Normal = world.TransformNormal(common.Vec3{0, 1, 0}).Normalize()
			c.Plane.Projection = world.
				Mul(common.Mat4Translation(c.Offset)).
				Mul(common.Mat4Scaling(common.Vec3{c.Radius, 1, c.Radius})).
				Inverse()
		}

		if c.IsCPUEnabled() {
			s.collidersCPU = append(s.collidersCPU, *c)
		}
		if c.IsGPUEnabled() {
			s.collidersGPU = append(s.collidersGPU, *c)
		}
	}
}

// runSpringUpdateSystem integrates every spring bone. Springs run in store order because a
// child spring reads the world matrix its parent spring just wrote.
func (s *scene) runSpringUpdateSystem() {
	dt := s.dt
	if dt > 0 {
		s.springTime += dt
	}
	for i := range s.springs.Len() {
		spring := s.springs.At(i)
		e := s.springs.EntityAt(i)
		if spring.IsDisabled() {
			continue
		}
		transform := s.transforms.Get(e)
		if transform == nil {
			continue
		}
		var parent *TransformComponent
		if h := s.hierarchy.Get(e); h != nil {
			parent = s.transforms.Get(h.ParentID)
		}
		if parent != nil {
			transform.UpdateTransformParented(parent)
		}
		root := transform.World.Translation()

		if spring.Resetting && dt > 0 {
			s.resetSpring(e, spring, transform, parent, root)
		}
		if spring.BoneLength == 0 {
			continue
		}

		axis := transform.World.TransformNormal(spring.BoneAxis).Normalize()
		inertia := spring.CurrentTail.Sub(spring.PrevTail).Scale(1 - spring.DragForce)
		stiffness := axis.Scale(spring.Stiffness)
		var external common.Vec3
		if spring.WindForce != 0 {
			wind := s.weather.WindDirection
			phase := math32.Sin(s.springTime*s.weather.WindSpeed + spring.CurrentTail.Dot(wind))
			external = external.Add(wind.Scale(phase * spring.WindForce))
		}
		if spring.IsGravityEnabled() {
			external = external.Add(spring.GravityDir.Scale(spring.GravityPower))
		}
		next := spring.CurrentTail.Add(inertia).Add(stiffness.Add(external).Scale(dt))
		if !spring.IsStretchEnabled() {
			next = root.Add(next.Sub(root).Normalize().Scale(spring.BoneLength))
		}

		layerMask := ^uint32(0)
		if layer := s.layers.Get(e); layer != nil {
			layerMask = layer.GetLayerMask()
		}
		hitRadius := spring.HitRadius * transform.World.MaxScale()
		for _, c := range s.collidersCPU {
			if c.LayerMask&layerMask == 0 {
				continue
			}
			if pushed, hit := collideSpringTail(next, hitRadius, &c); hit {
				next = pushed
				if !spring.IsStretchEnabled() {
					next = root.Add(next.Sub(root).Normalize().Scale(spring.BoneLength))
				}
			}
		}

		spring.PrevTail = spring.CurrentTail
		spring.CurrentTail = next

		q := common.QuatBetween(axis, next.Sub(root).Normalize())
		tmp := *transform
		tmp.ApplyTransform()
		tmp.Rotate(q)
		tmp.UpdateTransform()
		transform.World = tmp.World
	}
}

// resetSpring derives the rest pose: the tail is the first child's position, else the bone
// mirrored past its parent, else one unit up.
func (s *scene) resetSpring(e ecs.Entity, spring *SpringComponent, transform, parent *TransformComponent, root common.Vec3) {
	spring.Resetting = false
	tail := root.Add(common.Vec3{0, 1, 0})
	found := false
	for i := range s.hierarchy.Len() {
		if s.hierarchy.At(i).ParentID != e {
			continue
		}
		if ct := s.transforms.Get(s.hierarchy.EntityAt(i)); ct != nil {
			tail = ct.World.Translation()
			found = true
			break
		}
	}
	if !found && parent != nil {
		tail = root.Add(root.Sub(parent.World.Translation()))
	}
	spring.BoneAxis = transform.World.Inverse().TransformNormal(tail.Sub(root)).Normalize()
	spring.BoneLength = tail.Sub(root).Length()
	spring.CurrentTail = tail
	spring.PrevTail = tail
}

// collideSpringTail pushes a tail sphere out of a collider. Planes are two-sided and only
// collide inside their projected extent.
//
// Returns:
//   - common.Vec3: the resolved tail position
//   - bool: true when the tail touched the collider
func collideSpringTail(tail common.Vec3, hitRadius float32, c *ColliderComponent) (common.Vec3, bool) {
	ball := common.Sphere{Center: tail, Radius: hitRadius}
	switch c.Shape {
	case ColliderSphere:
		if dist, dir, hit := ball.IntersectsSphere(c.Sphere); hit {
			return tail.Sub(dir.Scale(dist)), true
		}
	case ColliderCapsule:
		if dist, dir, hit := ball.IntersectsCapsule(c.Capsule); hit {
			return tail.Sub(dir.Scale(dist)), true
		}
	case ColliderPlane:
		dir := c.Plane.Normal
		d := dir.Dot(tail.Sub(c.Plane.Origin))
		if d < 0 {
			dir = dir.Negate()
			d = -d
		}
		if d >= hitRadius {
			return tail, false
		}
		clip := c.Plane.Projection.TransformCoord(tail)
		u := clip[0]*0.5 + 0.5
		v := clip[1]*-0.5 + 0.5
		w := clip[2]*0.5 + 0.5
		if u < 0 || u > 1 || v < 0 || v > 1 || w < 0 || w > 1 {
			return tail, false
		}
		return tail.Add(dir.Scale(hitRadius - d)), true
	}
	return tail, false
}

// runArmatureUpdateSystem computes the skinning matrix of every bone relative to its
// armature and the world bounds of the skeleton.
func (s *scene) runArmatureUpdateSystem() {
	s.scheduler.Dispatch(&s.ctx, s.armatures.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		i := int(args.JobIndex)
		armature := s.armatures.At(i)
		e := s.armatures.EntityAt(i)

		r := common.Mat4Identity()
		if t := s.transforms.Get(e); t != nil {
			r = t.World.Inverse()
		}
		if len(armature.BoneData) != len(armature.BoneCollection) {
			armature.BoneData = make([]ShaderTransform, len(armature.BoneCollection))
		}
		armature.AABB = common.EmptyAABB()
		one := common.Vec3{1, 1, 1}
		for b, bone := range armature.BoneCollection {
			bt := s.transforms.Get(bone)
			if bt == nil {
				armature.BoneData[b] = NewShaderTransform(common.Mat4Identity())
				continue
			}
			bind := common.Mat4Identity()
			if b < len(armature.InverseBindMatrices) {
				bind = armature.InverseBindMatrices[b]
			}
			armature.BoneData[b] = NewShaderTransform(r.Mul(bt.World).Mul(bind))
			p := bt.World.Translation()
			armature.AABB.AddPoint(p.Sub(one))
			armature.AABB.AddPoint(p.Add(one))
		}
	})
}

// runWeatherUpdateSystem makes the first weather component the active weather.
func (s *scene) runWeatherUpdateSystem() {
	if s.weathers.Len() > 0 {
		s.weather = *s.weathers.At(0)
	}
	s.weather.MostImportantLightIndex = ^uint32(0)
}
