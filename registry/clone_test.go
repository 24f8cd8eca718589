package registry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/pkg/types"
)

var doorPage = pageDef{loc: locA, age: "City", name: "Hall", objects: []objDef{
	{name: "Door", value: 7, refs: []string{"Handle"}},
	{name: "Handle", value: 8},
	{name: "Tree", class: classShared, value: 9},
}}

func TestClone_Identity(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())
	openPage(t, r, doorPage)
	door := mustFind(t, r, idFor(locA, classNode, "Door"))

	c1 := r.CloneKey(door)
	c2 := r.CloneKey(door)
	require.NotSame(t, c1, c2)
	assert.Equal(t, uint32(1), c1.Uoid().CloneID)
	assert.Equal(t, uint32(2), c2.Uoid().CloneID)
	assert.Equal(t, uint32(1), c1.Uoid().ClonePlayerID)

	assert.Same(t, door, door.Clone(1, 0))
	assert.Same(t, c1, door.Clone(1, 1))
	assert.Same(t, c1, c2.Clone(1, 1), "cloning a clone clones its original")
	assert.Same(t, door, c1.Original())
	assert.Len(t, door.Clones(), 2)
	assert.Same(t, c1, mustFind(t, r, c1.Uoid()))
}

func TestClone_IsolatedObjects(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())
	openPage(t, r, doorPage)
	door := mustFind(t, r, idFor(locA, classNode, "Door"))
	handle := mustFind(t, r, idFor(locA, classNode, "Handle"))

	c1 := r.CloneKey(door)
	c2 := r.CloneKey(door)
	o1, err := c1.Resolve()
	require.NoError(t, err)
	o2, err := c2.Resolve()
	require.NoError(t, err)
	require.NotSame(t, o1, o2)
	assert.Equal(t, uint32(7), asNode(o1).Value)

	h1 := asNode(o1).Refs[0]
	h2 := asNode(o2).Refs[0]
	assert.True(t, h1.IsClone(), "references inside a clone root resolve to clones")
	assert.Equal(t, c1.Uoid().CloneID, h1.Uoid().CloneID)
	assert.Equal(t, c2.Uoid().CloneID, h2.Uoid().CloneID)
	assert.Same(t, handle, h1.Original())
	assert.NotSame(t, h1, h2)
	assert.Equal(t, Loaded, h1.State())
	assert.NotSame(t, h1.Object(), h2.Object())

	assert.Equal(t, Unloaded, door.State(), "originals are untouched")
	assert.Equal(t, Unloaded, handle.State())
	assert.Len(t, handle.Clones(), 2)

	_, _, active := r.CloneContext()
	assert.False(t, active)
	assert.Equal(t, 4.0, testutil.ToFloat64(r.metrics.ClonesCreated))
}

func TestClone_SharedObjects(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())
	openPage(t, r, doorPage)
	tree := mustFind(t, r, idFor(locA, classShared, "Tree"))

	o1, err := r.CloneKey(tree).Resolve()
	require.NoError(t, err)
	o2, err := r.CloneKey(tree).Resolve()
	require.NoError(t, err)
	assert.Same(t, o1, o2)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.ObjectsRead))
}

func TestClone_NestedRootRejected(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())
	openPage(t, r, doorPage)
	door := mustFind(t, r, idFor(locA, classNode, "Door"))
	root := door.Clone(1, 1)
	other := door.Clone(2, 5)

	r.clone = cloneContext{owner: 1, instance: 1, loc: locA, root: root, active: true}
	_, err := r.ReadObject(other)
	r.clone = cloneContext{}

	require.ErrorIs(t, err, types.ErrNestedCloneRoot)
	assert.Equal(t, Unloaded, other.State())
}

func TestClone_ReleasedClonesLeaveOriginal(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())
	p := openPage(t, r, doorPage)
	door := mustFind(t, r, idFor(locA, classNode, "Door"))

	c := r.CloneKey(door)
	c.AddReference()
	assert.True(t, p.IsActive())

	c.RemoveReference()
	assert.False(t, p.IsActive())
	assert.Empty(t, door.Clones())
	assert.True(t, c.Detached())
}

func TestClone_SharedObjectReleasedWithLastClone(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())
	p := openPage(t, r, pageDef{loc: locA, age: "City", name: "Park", objects: []objDef{
		{name: "Tree", class: classShared, value: 5, refs: []string{"Leaf"}},
		{name: "Leaf", value: 6},
	}})
	tree := mustFind(t, r, idFor(locA, classShared, "Tree"))

	c1 := r.CloneKey(tree)
	c2 := r.CloneKey(tree)
	o1, err := c1.Resolve()
	require.NoError(t, err)
	o2, err := c2.Resolve()
	require.NoError(t, err)
	require.Same(t, o1, o2)
	shared := asNode(o1)
	require.Len(t, shared.Refs, 1)
	leaf := shared.Refs[0]
	require.Equal(t, 1, leaf.Refs())

	c2.AddReference()
	assert.Zero(t, r.UnloadUnused(), "an unbound clone releases nothing")
	assert.Equal(t, Unloaded, c1.State())
	assert.Equal(t, Loaded, c2.State())
	assert.Same(t, o1, c2.Object())
	assert.Len(t, shared.Refs, 1)
	assert.Equal(t, 1, leaf.Refs())
	assert.False(t, leaf.Detached())
	assert.True(t, p.IsActive())

	c2.RemoveReference()
	assert.Equal(t, 2, r.UnloadUnused(), "the shared object and its leaf")
	assert.Equal(t, Unloaded, c2.State())
	assert.Empty(t, shared.Refs)
	assert.Zero(t, leaf.Refs())
	assert.True(t, leaf.Detached())
	assert.False(t, p.IsActive())
}
