package registry

import (
	"fmt"

	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// LoadState is the load progress of a key's object.
type LoadState uint8

const (
	Unloaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("LoadState(%d)", uint8(s))
	}
}

// Key is a reference-counted, lazily resolved handle to one object.
//
// Keys read from a page index are static; keys created at runtime through
// NewKey are dynamic. A key whose catalog has dropped it is detached: it still
// answers queries but can no longer load.
type Key struct {
	id     uoid.Uoid
	fold   string
	offset uint32
	length uint32

	state LoadState
	obj   Object
	refs  int
	share *binding // object shared with sibling clones

	notifies []notification

	catalog *Catalog
	reg     *Registry

	clones   []*Key // on originals
	original *Key   // on clones

	static  bool
	passive bool
	queued  bool
	slot    int // index in catalog.static
}

func newKey(id uoid.Uoid, reg *Registry) *Key {
	return &Key{id: id, fold: id.Fold(), reg: reg, slot: -1}
}

// Uoid returns the identifier the key was created with.
func (k *Key) Uoid() uoid.Uoid { return k.id }

// Name returns the object name.
func (k *Key) Name() string { return k.id.Name }

// Class returns the object class.
func (k *Key) Class() uoid.ClassTag { return k.id.Class }

// Offset returns the absolute file offset of the object's record.
func (k *Key) Offset() uint32 { return k.offset }

// Length returns the record length in bytes.
func (k *Key) Length() uint32 { return k.length }

// State returns the load state of the key's object.
func (k *Key) State() LoadState { return k.state }

// Object returns the loaded object, or nil.
func (k *Key) Object() Object {
	if k.state == Unloaded {
		return nil
	}
	return k.obj
}

// Refs returns the current reference count.
func (k *Key) Refs() int { return k.refs }

// Eligible reports whether the key may be unloaded. Eligible keys stay loaded
// until an explicit unload pass.
func (k *Key) Eligible() bool { return k.refs == 0 }

// IsPassive reports whether k is a placeholder synthesized without reading
// its page index.
func (k *Key) IsPassive() bool { return k.passive }

// IsStatic reports whether k was read from a page index.
func (k *Key) IsStatic() bool { return k.static }

// IsClone reports whether k was made by Clone.
func (k *Key) IsClone() bool { return k.original != nil }

// Original returns the key a clone was made from, or k itself.
func (k *Key) Original() *Key {
	if k.original != nil {
		return k.original
	}
	return k
}

// Clones returns the clones currently attached to an original.
func (k *Key) Clones() []*Key { return append([]*Key(nil), k.clones...) }

// Detached reports whether the key has left its catalog.
func (k *Key) Detached() bool { return k.catalog == nil }

// Page returns the page the key belongs to, or nil when detached.
func (k *Key) Page() *Page {
	if k.catalog == nil {
		return nil
	}
	return k.catalog.page
}

func (k *Key) String() string { return k.id.String() }

// AddReference increments the reference count. The first reference marks
// the key used in its catalog.
func (k *Key) AddReference() {
	k.refs++
	if k.refs != 1 || k.catalog == nil {
		return
	}
	c := k.catalog
	if c.MarkUsed(k) && c.page != nil {
		c.page.refreshActive()
	}
}

// RemoveReference decrements the reference count. Dropping the last
// reference marks the key unused; static keys become eligible, dynamic keys
// and clones leave their catalog. Calling it at zero is a no-op.
func (k *Key) RemoveReference() {
	if k.refs == 0 {
		return
	}
	k.refs--
	if k.refs != 0 || k.catalog == nil {
		return
	}
	c := k.catalog
	if c.MarkUnused(k) && c.page != nil {
		c.page.refreshActive()
	}
}

// Resolve returns the live object, loading it if needed. A key excluded by
// the load mask resolves to nil without error.
func (k *Key) Resolve() (Object, error) {
	switch k.state {
	case Loaded, Loading:
		return k.obj, nil
	}
	if k.catalog == nil || k.reg == nil {
		return nil, fmt.Errorf("resolve %s: %w", k.id, types.ErrDetached)
	}
	return k.reg.ReadObject(k)
}

// detach severs k (and its clones) from its catalog.
func (k *Key) detach() {
	k.catalog = nil
	k.slot = -1
	k.queued = false
	k.orphan()
	for _, c := range k.clones {
		c.catalog = nil
		c.orphan()
	}
}

// orphan hands a detached key that still holds its object to the next
// unload pass, which no longer reaches it through a catalog.
func (k *Key) orphan() {
	if k.state == Unloaded || k.reg == nil {
		return
	}
	k.reg.detached = append(k.reg.detached, k)
}
