package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testComponent struct {
	Value  int
	Values []float32
}

func TestCreateEntityIsUniqueAndValid(t *testing.T) {
	a := CreateEntity()
	b := CreateEntity()
	assert.True(t, a.IsValid())
	assert.NotEqual(t, a, b)
}

func TestComponentManagerCreateGetRemove(t *testing.T) {
	m := NewComponentManager[testComponent]("test")
	e1, e2, e3 := CreateEntity(), CreateEntity(), CreateEntity()

	m.Create(e1).Value = 1
	m.Create(e2).Value = 2
	m.Create(e3).Value = 3

	require.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.Get(e2).Value)
	assert.Nil(t, m.Get(CreateEntity()))

	m.Remove(e1)
	assert.False(t, m.Contains(e1))
	assert.Equal(t, 2, m.Len())

	// e3 was moved into slot 0
	idx, ok := m.IndexOf(e3)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, e3, m.EntityAt(0))
	assert.Equal(t, 3, m.At(0).Value)

	m.Remove(e1)
	assert.Equal(t, 2, m.Len())

	_, ok = m.IndexOf(e1)
	assert.False(t, ok)
}

func TestComponentManagerCreateDuplicatePanics(t *testing.T) {
	m := NewComponentManager[testComponent]("test")
	e := CreateEntity()
	m.Create(e)
	assert.Panics(t, func() { m.Create(e) })
	assert.Panics(t, func() { m.Create(InvalidEntity) })
}

func TestComponentManagerKeepSortedAndMove(t *testing.T) {
	m := NewComponentManager[testComponent]("test")
	es := []Entity{CreateEntity(), CreateEntity(), CreateEntity(), CreateEntity()}
	for i, e := range es {
		m.Create(e).Value = i
	}

	m.RemoveKeepSorted(es[1])
	assert.Equal(t, []Entity{es[0], es[2], es[3]}, m.Entities())

	m.MoveItem(2, 0)
	assert.Equal(t, []Entity{es[3], es[0], es[2]}, m.Entities())
	for i, e := range m.Entities() {
		idx, ok := m.IndexOf(e)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}

	m.MoveItem(0, 2)
	assert.Equal(t, []Entity{es[0], es[2], es[3]}, m.Entities())
	assert.Equal(t, 3, m.Get(es[3]).Value)
}

func TestComponentManagerMergeAndSnapshot(t *testing.T) {
	a := NewComponentManager[testComponent]("test")
	b := NewComponentManager[testComponent]("test")
	e1, e2 := CreateEntity(), CreateEntity()
	a.Create(e1).Value = 1
	c := b.Create(e2)
	c.Value = 2
	c.Values = []float32{1, 2, 3}

	snap, ok := b.Snapshot(e2)
	require.True(t, ok)

	a.Merge(b)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, a.Get(e2).Value)

	e3 := CreateEntity()
	a.Restore(e3, snap)
	a.Get(e3).Values[0] = 42
	assert.Equal(t, float32(1), a.Get(e2).Values[0], "snapshot must not alias the source slice")
}

func TestComponentLibraryRemoveEntity(t *testing.T) {
	lib := NewComponentLibrary()
	ints := Register[int](lib, "ints")
	strs := Register[string](lib, "strings")
	e := CreateEntity()
	*ints.Create(e) = 5
	*strs.Create(e) = "five"

	require.True(t, lib.Has(e))
	lib.RemoveEntity(e)
	assert.False(t, lib.Has(e))
	assert.Panics(t, func() { Register[int](lib, "ints") })
}

type defaultedComponent struct {
	Mask uint32
}

func (c *defaultedComponent) SetDefaults() {
	c.Mask = ^uint32(0)
}

func TestCreateAppliesDefaults(t *testing.T) {
	m := NewComponentManager[defaultedComponent]("layer")
	e := CreateEntity()
	assert.Equal(t, ^uint32(0), m.Create(e).Mask)

	other := NewComponentManager[defaultedComponent]("layer")
	e2 := CreateEntity()
	other.Create(e2).Mask = 4
	m.Merge(other)
	assert.Equal(t, uint32(4), m.Get(e2).Mask)
}

func TestSetKeepSortedRemovePreservesOrder(t *testing.T) {
	m := NewComponentManager[int]("hierarchy")
	m.SetKeepSorted(true)
	es := []Entity{CreateEntity(), CreateEntity(), CreateEntity(), CreateEntity()}
	for i, e := range es {
		*m.Create(e) = i
	}

	m.Remove(es[1])
	assert.Equal(t, []Entity{es[0], es[2], es[3]}, m.Entities())
	assert.Equal(t, []int{0, 2, 3}, m.Values())
	i, ok := m.IndexOf(es[3])
	require.True(t, ok)
	assert.Equal(t, 2, i)
}

type namedComponent struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
	Mask  uint32 `yaml:"-"`
}

func (c *namedComponent) SetDefaults() {
	c.Mask = 7
}

func TestMarshalEntityRoundTripKeepsDefaultsForSkippedFields(t *testing.T) {
	m := NewComponentManager[namedComponent]("named")
	src := CreateEntity()
	c := m.Create(src)
	c.Name, c.Count, c.Mask = "crate", 3, 1

	node, err := m.MarshalEntity(src)
	require.NoError(t, err)
	require.NotNil(t, node)

	dst := CreateEntity()
	v, err := m.UnmarshalEntity(dst, node)
	require.NoError(t, err)
	got := v.(*namedComponent)
	assert.Equal(t, "crate", got.Name)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, uint32(7), got.Mask)

	missing, err := m.MarshalEntity(CreateEntity())
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
