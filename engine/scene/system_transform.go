package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"go.uber.org/zap"
)

// runTransformUpdateSystem rebuilds the world matrix of every dirty transform.
func (s *scene) runTransformUpdateSystem() {
	s.scheduler.Dispatch(&s.ctx, s.transforms.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		s.transforms.At(int(args.JobIndex)).UpdateTransform()
	})
}

// runHierarchyUpdateSystem resolves the world matrix and inherited layer mask of every
// entity that has a parent.
func (s *scene) runHierarchyUpdateSystem() {
	if s.topDownHierarchy {
		s.scheduler.Execute(&s.ctx, func(jobsystem.JobArgs) {
			resolveHierarchyTopDown(s.hierarchy, s.transforms, s.layers)
		})
		return
	}
	s.scheduler.Dispatch(&s.ctx, s.hierarchy.Len(), SmallSubtaskGroupSize, func(args jobsystem.JobArgs) {
		s.resolveHierarchyEdge(int(args.JobIndex), s.transforms)
	})
}

// resolveHierarchyEdge walks the ancestors of one child and composes the chain root first,
// so every edge produces the same rounding as the top-down pass.
func (s *scene) resolveHierarchyEdge(i int, transforms *ecs.ComponentManager[TransformComponent]) {
	child := s.hierarchy.EntityAt(i)
	transform := transforms.Get(child)
	layer := s.layers.Get(child)
	if layer != nil {
		layer.PropagationMask = ^uint32(0)
	}

	var chain [MaxHierarchyDepth]*TransformComponent
	depth := 0
	parent := s.hierarchy.At(i).ParentID
	for parent != ecs.InvalidEntity {
		if depth == MaxHierarchyDepth {
			s.depthWarning.Do(func() {
				s.logger.Warn("hierarchy deeper than supported, ancestors ignored",
					zap.Uint64("entity", uint64(child)), zap.Int("max_depth", MaxHierarchyDepth))
			})
			break
		}
		if t := transforms.Get(parent); t != nil {
			chain[depth] = t
			depth++
		}
		if layer != nil {
			if pl := s.layers.Get(parent); pl != nil {
				layer.PropagationMask &= pl.LayerMask
			}
		}
		h := s.hierarchy.Get(parent)
		if h == nil {
			break
		}
		parent = h.ParentID
	}

	if transform == nil {
		return
	}
	if depth == 0 {
		// no ancestor left, the child is a root
		transform.World = transform.LocalMatrix()
		transform.SetDirty()
		return
	}
	world := chain[depth-1].LocalMatrix()
	for j := depth - 2; j >= 0; j-- {
		world = world.Mul(chain[j].LocalMatrix())
	}
	transform.World = world.Mul(transform.LocalMatrix())
}

// resolveHierarchyTopDown resolves every edge in store order. Parents precede their
// children in the hierarchy store, so each parent world is final when its child reads it.
//
// Parameters:
//   - hierarchy: the parent-before-child ordered edges
//   - transforms: the transforms to resolve
//   - layers: the layers whose propagation masks are rebuilt
func resolveHierarchyTopDown(
	hierarchy *ecs.ComponentManager[HierarchyComponent],
	transforms *ecs.ComponentManager[TransformComponent],
	layers *ecs.ComponentManager[LayerComponent],
) {
	// inherited holds the AND of every ancestor layer mask, seen through the child itself.
	inherited := make(map[ecs.Entity]uint32, hierarchy.Len())
	for i := range hierarchy.Len() {
		child := hierarchy.EntityAt(i)
		parent := hierarchy.At(i).ParentID

		mask, ok := inherited[parent]
		if !ok {
			mask = ^uint32(0)
			if pl := layers.Get(parent); pl != nil {
				mask = pl.LayerMask
			}
		}
		through := mask
		if layer := layers.Get(child); layer != nil {
			layer.PropagationMask = mask
			through &= layer.LayerMask
		}
		inherited[child] = through

		transform := transforms.Get(child)
		if transform == nil {
			continue
		}
		pt, owner := nearestTransformedAncestor(hierarchy, transforms, parent)
		if pt == nil {
			transform.World = transform.LocalMatrix()
			transform.SetDirty()
			continue
		}
		if hierarchy.Contains(owner) {
			transform.UpdateTransformParented(pt)
		} else {
			// roots contribute their local matrix, as in the ancestor walk
			transform.World = pt.LocalMatrix().Mul(transform.LocalMatrix())
		}
	}
}

// nearestTransformedAncestor skips ancestors without a transform.
func nearestTransformedAncestor(
	hierarchy *ecs.ComponentManager[HierarchyComponent],
	transforms *ecs.ComponentManager[TransformComponent],
	parent ecs.Entity,
) (*TransformComponent, ecs.Entity) {
	for depth := 0; parent != ecs.InvalidEntity && depth < MaxHierarchyDepth; depth++ {
		if t := transforms.Get(parent); t != nil {
			return t, parent
		}
		h := hierarchy.Get(parent)
		if h == nil {
			return nil, ecs.InvalidEntity
		}
		parent = h.ParentID
	}
	return nil, ecs.InvalidEntity
}
