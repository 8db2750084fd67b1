package ecs

import (
	"fmt"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"
)

// ComponentManager stores components of one kind in a dense array with a parallel entity array
// and an entity-to-index map. Removal swaps the last element into the freed slot, so indices
// are only stable until the next Create or Remove.
//
// Pointers returned by Create, Get and At point into the dense array and are invalidated by
// the next Create that grows it. ComponentManager is not synchronized; concurrent writers must
// touch distinct indices.
type ComponentManager[T any] struct {
	name       string
	components []T
	entities   []Entity
	lookup     map[Entity]int
	keepSorted bool
}

var _ Store = &ComponentManager[struct{}]{}

// NewComponentManager creates an empty manager.
//
// Parameters:
//   - name: the component kind name, used in diagnostics and archives
//
// Returns:
//   - *ComponentManager[T]: the new manager
func NewComponentManager[T any](name string) *ComponentManager[T] {
	return &ComponentManager[T]{
		name:   name,
		lookup: make(map[Entity]int),
	}
}

// Name returns the component kind name.
func (m *ComponentManager[T]) Name() string {
	return m.name
}

// SetKeepSorted makes Remove preserve the relative order of the remaining components.
// Used by stores whose order carries meaning, such as parent-before-child hierarchies.
func (m *ComponentManager[T]) SetKeepSorted(keep bool) {
	m.keepSorted = keep
}

// Defaulter is implemented by components whose zero value is not a usable default.
// Create calls SetDefaults on the new component before returning it.
type Defaulter interface {
	SetDefaults()
}

// Create default-constructs a component for e and returns a pointer to it.
// Panics if e is invalid or already has a component of this kind.
//
// Parameters:
//   - e: the owning entity
//
// Returns:
//   - *T: pointer to the new component
func (m *ComponentManager[T]) Create(e Entity) *T {
	if e == InvalidEntity {
		panic(fmt.Sprintf("ecs: cannot create %s component for the invalid entity", m.name))
	}
	if _, ok := m.lookup[e]; ok {
		panic(fmt.Sprintf("ecs: %s component already exists for entity %d", m.name, e))
	}
	var zero T
	m.lookup[e] = len(m.components)
	m.components = append(m.components, zero)
	m.entities = append(m.entities, e)
	c := &m.components[len(m.components)-1]
	if d, ok := any(c).(Defaulter); ok {
		d.SetDefaults()
	}
	return c
}

// Get returns the component of e, or nil if e has none.
func (m *ComponentManager[T]) Get(e Entity) *T {
	if i, ok := m.lookup[e]; ok {
		return &m.components[i]
	}
	return nil
}

// Contains reports whether e has a component of this kind.
func (m *ComponentManager[T]) Contains(e Entity) bool {
	_, ok := m.lookup[e]
	return ok
}

// IndexOf returns the dense index of e's component.
//
// Returns:
//   - int: the index, -1 when absent
//   - bool: true when present
func (m *ComponentManager[T]) IndexOf(e Entity) (int, bool) {
	i, ok := m.lookup[e]
	if !ok {
		return -1, false
	}
	return i, true
}

// Remove deletes e's component by moving the last element into its slot, or by
// RemoveKeepSorted when the manager keeps its order. No-op if e has no component.
func (m *ComponentManager[T]) Remove(e Entity) {
	if m.keepSorted {
		m.RemoveKeepSorted(e)
		return
	}
	i, ok := m.lookup[e]
	if !ok {
		return
	}
	last := len(m.components) - 1
	if i != last {
		m.components[i] = m.components[last]
		m.entities[i] = m.entities[last]
		m.lookup[m.entities[i]] = i
	}
	var zero T
	m.components[last] = zero
	m.components = m.components[:last]
	m.entities = m.entities[:last]
	delete(m.lookup, e)
}

// RemoveKeepSorted deletes e's component and shifts the following elements down,
// preserving relative order. O(n).
func (m *ComponentManager[T]) RemoveKeepSorted(e Entity) {
	i, ok := m.lookup[e]
	if !ok {
		return
	}
	copy(m.components[i:], m.components[i+1:])
	copy(m.entities[i:], m.entities[i+1:])
	last := len(m.components) - 1
	var zero T
	m.components[last] = zero
	m.components = m.components[:last]
	m.entities = m.entities[:last]
	delete(m.lookup, e)
	for j := i; j < len(m.entities); j++ {
		m.lookup[m.entities[j]] = j
	}
}

// MoveItem moves the element at index from to index to, shifting the elements in between.
//
// Parameters:
//   - from: current index of the element
//   - to: destination index
func (m *ComponentManager[T]) MoveItem(from, to int) {
	if from == to || from < 0 || to < 0 || from >= len(m.components) || to >= len(m.components) {
		return
	}
	c := m.components[from]
	e := m.entities[from]
	lo, hi := from, to
	if from < to {
		copy(m.components[from:to], m.components[from+1:to+1])
		copy(m.entities[from:to], m.entities[from+1:to+1])
	} else {
		copy(m.components[to+1:from+1], m.components[to:from])
		copy(m.entities[to+1:from+1], m.entities[to:from])
		lo, hi = to, from
	}
	m.components[to] = c
	m.entities[to] = e
	for j := lo; j <= hi; j++ {
		m.lookup[m.entities[j]] = j
	}
}

// Len returns the number of components.
func (m *ComponentManager[T]) Len() int {
	return len(m.components)
}

// At returns the component at dense index i.
func (m *ComponentManager[T]) At(i int) *T {
	return &m.components[i]
}

// EntityAt returns the owner of the component at dense index i.
func (m *ComponentManager[T]) EntityAt(i int) Entity {
	return m.entities[i]
}

// Entities returns the dense entity array. The slice must not be modified.
func (m *ComponentManager[T]) Entities() []Entity {
	return m.entities
}

// Values returns the dense component array, index-aligned with Entities.
func (m *ComponentManager[T]) Values() []T {
	return m.components
}

// Clear removes every component.
func (m *ComponentManager[T]) Clear() {
	m.components = nil
	m.entities = nil
	m.lookup = make(map[Entity]int)
}

// Merge appends every component of other to m and empties other.
// Panics if both managers hold a component for the same entity.
//
// Parameters:
//   - other: the manager to drain
func (m *ComponentManager[T]) Merge(other *ComponentManager[T]) {
	for i, e := range other.entities {
		*m.Create(e) = other.components[i]
	}
	other.Clear()
}

// MergeStore implements Store by merging a manager of the same component type.
func (m *ComponentManager[T]) MergeStore(other Store) {
	o, ok := other.(*ComponentManager[T])
	if !ok {
		panic(fmt.Sprintf("ecs: cannot merge %s store into %s", other.Name(), m.name))
	}
	m.Merge(o)
}

// Snapshot returns a deep copy of e's component, suitable for restoring onto another entity.
//
// Returns:
//   - any: the copied T, nil when absent
//   - bool: true when e has a component
func (m *ComponentManager[T]) Snapshot(e Entity) (any, bool) {
	c := m.Get(e)
	if c == nil {
		return nil, false
	}
	var out T
	if err := copier.CopyWithOption(&out, c, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("ecs: failed to snapshot %s component of entity %d: %v", m.name, e, err))
	}
	return out, true
}

// Restore creates a component for e from a value produced by Snapshot.
func (m *ComponentManager[T]) Restore(e Entity, v any) {
	c, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("ecs: cannot restore %T into %s store", v, m.name))
	}
	*m.Create(e) = c
}

// MarshalEntity encodes a deep copy of e's component as a YAML node.
//
// Returns:
//   - *yaml.Node: the encoded component, nil when absent
//   - error: an error if the component could not be encoded
func (m *ComponentManager[T]) MarshalEntity(e Entity) (*yaml.Node, error) {
	v, ok := m.Snapshot(e)
	if !ok {
		return nil, nil
	}
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %s component of entity %d: %w", m.name, e, err)
	}
	return &node, nil
}

// UnmarshalEntity creates a component for e and decodes node over its defaults.
//
// Returns:
//   - any: pointer to the new component (*T)
//   - error: an error if node does not decode into T; no component is left behind
func (m *ComponentManager[T]) UnmarshalEntity(e Entity, node *yaml.Node) (any, error) {
	c := m.Create(e)
	if err := node.Decode(c); err != nil {
		m.Remove(e)
		return nil, fmt.Errorf("decode %s component of entity %d: %w", m.name, e, err)
	}
	return c, nil
}
