// Package ecs provides the entity identifiers and dense component storage the scene is built on.
package ecs

import (
	"sync/atomic"
)

// Entity is an opaque identifier. All data lives in component managers keyed by Entity.
type Entity uint64

// InvalidEntity is the reserved "none" value.
const InvalidEntity Entity = 0

var nextEntity atomic.Uint64

// CreateEntity returns a new entity id, unique for the lifetime of the process and never InvalidEntity.
// Safe for concurrent use.
//
// Returns:
//   - Entity: the new id
func CreateEntity() Entity {
	return Entity(nextEntity.Add(1))
}

// IsValid reports whether e is not InvalidEntity.
func (e Entity) IsValid() bool {
	return e != InvalidEntity
}
