package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/registry"
	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

const (
	classRoom uoid.ClassTag = 0x0001
	classProp uoid.ClassTag = 0x0002
)

// worldFactory builds rooms and props. Both hold a weight and references to
// other objects, which they hold through active notifications.
type worldFactory struct{}

func (worldFactory) ClassVersion(tag uoid.ClassTag) uint16 {
	switch tag {
	case classRoom:
		return 4
	case classProp:
		return 2
	}
	return 0
}

func (worldFactory) Create(tag uoid.ClassTag) registry.Object {
	switch tag {
	case classRoom, classProp:
		return &thing{class: tag}
	}
	return nil
}

type thing struct {
	class  uoid.ClassTag
	Weight uint32
	Refs   []*registry.Key
}

func (t *thing) ClassTag() uoid.ClassTag  { return t.class }
func (t *thing) Receive(*registry.RefMsg) {}

func (t *thing) ReadPayload(s stream.Stream, r *registry.Registry) error {
	d := stream.NewDecoder(s)
	t.Weight = d.U32()
	n := d.U32()
	if err := d.Err(); err != nil {
		return err
	}
	for i := range int(n) {
		k, err := r.ReadKeyNotify(s, t, i, registry.RefActive)
		if err != nil {
			return err
		}
		t.Refs = append(t.Refs, k)
	}
	return nil
}

func (t *thing) WritePayload(s stream.Stream, r *registry.Registry) error {
	e := stream.NewEncoder(s)
	e.U32(t.Weight)
	e.U32(uint32(len(t.Refs)))
	if err := e.Err(); err != nil {
		return err
	}
	for _, k := range t.Refs {
		if err := r.WriteKey(s, k); err != nil {
			return err
		}
	}
	return nil
}

func (t *thing) Release(*registry.Registry) {
	for _, k := range t.Refs {
		if k != nil {
			k.RemoveNotification(t)
		}
	}
	t.Refs = nil
}

// host stands in for the engine object that owns a paged-in room.
type host struct {
	msgs []*registry.RefMsg
}

func (h *host) Receive(msg *registry.RefMsg) { h.msgs = append(h.msgs, msg) }

var dockLoc = uoid.Location{Sequence: 0x0101}

func idOf(loc uoid.Location, class uoid.ClassTag, name string) uoid.Uoid {
	return uoid.Uoid{Location: loc, LoadMask: uoid.Always, Class: class, Name: name}
}

// world is the on-disk layout buildWorld produces.
type world struct {
	dir    string
	dock   string
	common string
}

// buildWorld exports two pages: the global fixed page holding a lantern and
// the dock room whose barrel hangs that lantern.
//
//	Global/Common.prp  Lantern(prop)
//	Harbor/Dock.prp    Dock(room) -> Barrel, Anchor
//	                   Barrel(prop) -> Lantern
func buildWorld(t *testing.T) world {
	t.Helper()
	dir := t.TempDir()
	w := world{
		dir:    dir,
		dock:   filepath.Join(dir, "Harbor", "Dock.prp"),
		common: filepath.Join(dir, "Global", "Common.prp"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(w.dock), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(w.common), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Harbor", "notes.txt"), []byte("not a page"), 0o644))

	r := registry.New(worldFactory{}, registry.DefaultOptions())
	defer r.Close()

	common, err := r.NewPage(uoid.GlobalFixed, "Global", "Common")
	require.NoError(t, err)
	dock, err := r.NewPage(dockLoc, "Harbor", "Dock")
	require.NoError(t, err)

	lantern, err := r.NewKey("Lantern", &thing{class: classProp, Weight: 3}, uoid.GlobalFixed, uoid.Always)
	require.NoError(t, err)
	barrel, err := r.NewKey("Barrel", &thing{class: classProp, Weight: 40, Refs: []*registry.Key{lantern}}, dockLoc, uoid.Always)
	require.NoError(t, err)
	anchor, err := r.NewKey("Anchor", &thing{class: classProp, Weight: 900}, dockLoc, uoid.Always)
	require.NoError(t, err)
	_, err = r.NewKey("Dock", &thing{class: classRoom, Refs: []*registry.Key{barrel, anchor}}, dockLoc, uoid.Always)
	require.NoError(t, err)

	require.NoError(t, common.Write(w.common, r))
	require.NoError(t, dock.Write(w.dock, r))
	return w
}
