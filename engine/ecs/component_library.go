package ecs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Store is the type-erased view of a ComponentManager used for whole-entity operations
// (removal, merge, clear, duplication) that must visit every component kind.
type Store interface {
	// Name returns the component kind name.
	Name() string

	// Len returns the number of components held.
	Len() int

	// Entities returns the owners in dense order.
	Entities() []Entity

	// Contains reports whether e has a component in this store.
	Contains(e Entity) bool

	// Remove deletes e's component. No-op if absent.
	Remove(e Entity)

	// Clear removes every component.
	Clear()

	// MergeStore drains another store of the same component type into this one.
	MergeStore(other Store)

	// Snapshot returns a deep copy of e's component.
	Snapshot(e Entity) (any, bool)

	// Restore creates a component for e from a Snapshot value.
	Restore(e Entity, v any)

	// MarshalEntity encodes e's component as YAML, nil when absent.
	MarshalEntity(e Entity) (*yaml.Node, error)

	// UnmarshalEntity creates e's component from YAML and returns a pointer to it.
	UnmarshalEntity(e Entity, node *yaml.Node) (any, error)
}

// ComponentLibrary is the registry of every component store owned by a scene, in registration order.
type ComponentLibrary struct {
	stores []Store
	byName map[string]Store
}

// NewComponentLibrary creates an empty library.
func NewComponentLibrary() *ComponentLibrary {
	return &ComponentLibrary{byName: make(map[string]Store)}
}

// Register creates a ComponentManager for T and adds it to the library.
// Panics if the name is already registered.
//
// Parameters:
//   - l: the library
//   - name: unique component kind name
//
// Returns:
//   - *ComponentManager[T]: the registered manager
func Register[T any](l *ComponentLibrary, name string) *ComponentManager[T] {
	m := NewComponentManager[T](name)
	l.Add(m)
	return m
}

// Add registers an existing store.
func (l *ComponentLibrary) Add(s Store) {
	if _, ok := l.byName[s.Name()]; ok {
		panic(fmt.Sprintf("ecs: component store %q registered twice", s.Name()))
	}
	l.stores = append(l.stores, s)
	l.byName[s.Name()] = s
}

// Stores returns every registered store in registration order.
func (l *ComponentLibrary) Stores() []Store {
	return l.stores
}

// Get returns the store registered under name, or nil.
func (l *ComponentLibrary) Get(name string) Store {
	return l.byName[name]
}

// RemoveEntity removes e from every store.
func (l *ComponentLibrary) RemoveEntity(e Entity) {
	for _, s := range l.stores {
		s.Remove(e)
	}
}

// Clear empties every store.
func (l *ComponentLibrary) Clear() {
	for _, s := range l.stores {
		s.Clear()
	}
}

// Merge drains every store of other into the store of the same name in l.
// Stores that only exist in other are skipped.
func (l *ComponentLibrary) Merge(other *ComponentLibrary) {
	for _, s := range other.stores {
		if dst := l.byName[s.Name()]; dst != nil {
			dst.MergeStore(s)
		}
	}
}

// Has reports whether any store holds a component for e.
func (l *ComponentLibrary) Has(e Entity) bool {
	for _, s := range l.stores {
		if s.Contains(e) {
			return true
		}
	}
	return false
}
