package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

func TestKeyAndCreatableStreams(t *testing.T) {
	f := newTestFactory()
	r := newTestRegistry(t, f)
	_, err := r.NewPage(locA, "Garden", "Shed")
	require.NoError(t, err)
	obj := f.Create(classNode)
	asNode(obj).Value = 5
	k, err := r.NewKey("Thing", obj, locA, uoid.Always)
	require.NoError(t, err)

	s := stream.NewMemory(nil)
	require.NoError(t, r.WriteKey(s, nil))
	require.NoError(t, r.WriteKey(s, k))
	require.NoError(t, r.WriteCreatable(s, nil))
	require.NoError(t, r.WriteCreatable(s, obj))
	require.NoError(t, stream.Rewind(s))

	got, err := r.ReadKey(s)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = r.ReadKey(s)
	require.NoError(t, err)
	assert.Same(t, k, got)

	created, err := r.ReadCreatable(s)
	require.NoError(t, err)
	assert.Nil(t, created)
	created, err = r.ReadCreatable(s)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, classNode, created.ClassTag())
	assert.Equal(t, uint32(5), asNode(created).Value)
	assert.True(t, s.AtEOF())
}

func TestReadCreatable_Errors(t *testing.T) {
	r := newTestRegistry(t, newTestFactory())

	_, err := r.ReadCreatable(stream.NewReader([]byte{0x99, 0x00}))
	require.ErrorIs(t, err, types.ErrUnknownClass)

	_, err = r.ReadCreatable(stream.NewReader([]byte{0x01}))
	require.Error(t, err)

	_, err = r.ReadKey(stream.NewReader([]byte{0x01, 0x00}))
	require.Error(t, err)
}

func TestReadKeyNotify_RegistersReceiver(t *testing.T) {
	f := newTestFactory()
	r := newTestRegistry(t, f)
	openPage(t, r, pageDef{loc: locA, age: "Garden", name: "Shed", objects: []objDef{{name: "Rake", value: 2}}})
	rake := mustFind(t, r, idFor(locA, classNode, "Rake"))

	s := stream.NewMemory(nil)
	require.NoError(t, r.WriteKey(s, rake))
	require.NoError(t, stream.Rewind(s))

	recv := &recorder{}
	got, err := r.ReadKeyNotify(s, recv, 4, RefActive)
	require.NoError(t, err)
	assert.Same(t, rake, got)
	assert.Equal(t, Loaded, rake.State(), "active refs outside a read load at once")
	assert.Equal(t, 1, rake.Refs())
	require.Len(t, recv.msgs, 1)
	assert.Equal(t, 4, recv.msgs[0].Context)
}
