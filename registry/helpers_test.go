package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

const (
	classNode   uoid.ClassTag = 0x0001
	classShared uoid.ClassTag = 0x0002
	classRoom   uoid.ClassTag = 0x0003
	classBroken uoid.ClassTag = 0x0004
)

// testFactory builds node objects and records the order records finish
// reading in.
type testFactory struct {
	versions map[uoid.ClassTag]uint16
	loaded   []string
	created  int
}

func newTestFactory() *testFactory {
	return &testFactory{versions: map[uoid.ClassTag]uint16{
		classNode:   3,
		classShared: 1,
		classRoom:   1,
		classBroken: 1,
	}}
}

func (f *testFactory) ClassVersion(tag uoid.ClassTag) uint16 { return f.versions[tag] }

func (f *testFactory) Create(tag uoid.ClassTag) Object {
	switch tag {
	case classNode, classRoom:
		f.created++
		return &node{class: tag, f: f}
	case classShared:
		f.created++
		return &sharedNode{node: &node{class: tag, f: f}}
	case classBroken:
		f.created++
		return &node{class: tag, f: f, broken: true}
	}
	return nil
}

// node is a test object: a value and a list of references to other keys.
// References read back are registered as active notifications.
type node struct {
	class  uoid.ClassTag
	f      *testFactory
	broken bool

	Value uint32
	Refs  []*Key

	key      *Key
	received []*RefMsg
}

func (n *node) ClassTag() uoid.ClassTag { return n.class }
func (n *node) SetKey(k *Key)           { n.key = k }
func (n *node) Receive(msg *RefMsg)     { n.received = append(n.received, msg) }

func (n *node) ReadPayload(s stream.Stream, r *Registry) error {
	if n.broken {
		return errBrokenPayload
	}
	d := stream.NewDecoder(s)
	n.Value = d.U32()
	count := d.U32()
	if err := d.Err(); err != nil {
		return err
	}
	for i := range int(count) {
		k, err := r.ReadKeyNotify(s, n, i, RefActive)
		if err != nil {
			return err
		}
		n.Refs = append(n.Refs, k)
	}
	if n.key != nil {
		n.f.loaded = append(n.f.loaded, n.key.Name())
	}
	return nil
}

func (n *node) Release(r *Registry) {
	for _, k := range n.Refs {
		if k != nil {
			k.RemoveNotification(n)
		}
	}
	n.Refs = nil
}

func (n *node) WritePayload(s stream.Stream, r *Registry) error {
	e := stream.NewEncoder(s)
	e.U32(n.Value)
	e.U32(uint32(len(n.Refs)))
	if err := e.Err(); err != nil {
		return err
	}
	for _, k := range n.Refs {
		if err := r.WriteKey(s, k); err != nil {
			return err
		}
	}
	return nil
}

type sharedNode struct {
	*node
}

func (sharedNode) Shareable() bool { return true }

type brokenPayloadError struct{}

func (brokenPayloadError) Error() string { return "broken payload" }

var errBrokenPayload error = brokenPayloadError{}

// recorder is a standalone Receiver.
type recorder struct {
	msgs []*RefMsg
}

func (r *recorder) Receive(msg *RefMsg) { r.msgs = append(r.msgs, msg) }

var (
	locA = uoid.Location{Sequence: 100}
	locB = uoid.Location{Sequence: 200}
)

func newTestRegistry(t *testing.T, f *testFactory, mutate ...func(*Options)) *Registry {
	t.Helper()
	opts := DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	r := New(f, opts)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// pageDef describes a page to export: objects in insertion order, with
// references by name to earlier or later objects of the same page.
type pageDef struct {
	loc     uoid.Location
	age     string
	name    string
	objects []objDef
}

type objDef struct {
	name  string
	class uoid.ClassTag
	value uint32
	refs  []string
	mask  uoid.LoadMask
}

// writePage exports def through a scratch registry and returns the file
// path.
func writePage(t *testing.T, dir string, def pageDef) string {
	t.Helper()
	f := newTestFactory()
	r := New(f, DefaultOptions())
	defer r.Close()

	p, err := r.NewPage(def.loc, def.age, def.name)
	require.NoError(t, err)

	byName := make(map[string]*Key)
	nodes := make(map[string]*node)
	for _, o := range def.objects {
		class := o.class
		if class == 0 {
			class = classNode
		}
		mask := o.mask
		if mask == 0 {
			mask = uoid.Always
		}
		obj := f.Create(class)
		n := asNode(obj)
		n.Value = o.value
		k, err := r.NewKey(o.name, obj, def.loc, mask)
		require.NoError(t, err)
		byName[o.name] = k
		nodes[o.name] = n
	}
	for _, o := range def.objects {
		for _, ref := range o.refs {
			k, ok := byName[ref]
			require.True(t, ok, "unknown ref %q", ref)
			nodes[o.name].Refs = append(nodes[o.name].Refs, k)
		}
	}

	path := filepath.Join(dir, def.age+"_"+def.name+".prp")
	require.NoError(t, p.Write(path, r))
	return path
}

func asNode(obj Object) *node {
	switch o := obj.(type) {
	case *node:
		return o
	case *sharedNode:
		return o.node
	}
	return nil
}

func idFor(loc uoid.Location, class uoid.ClassTag, name string) uoid.Uoid {
	return uoid.Uoid{Location: loc, LoadMask: uoid.Always, Class: class, Name: name}
}

func mustFind(t *testing.T, r *Registry, id uoid.Uoid) *Key {
	t.Helper()
	k, err := r.FindKey(id)
	require.NoError(t, err)
	require.NotNil(t, k, "key %s not found", id)
	return k
}
