package registry

import (
	"cmp"
	"slices"
	"strings"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// Catalog holds the keys of one class on one page.
//
// Static keys come from the page index and keep their on-disk order; removed
// static keys leave nil holes. Dynamic keys are kept sorted by folded name.
// While a catalog is locked by an iteration, removals leave tombstones and
// inserts are deferred, so slot indexes stay stable until Repack.
type Catalog struct {
	class uoid.ClassTag
	page  *Page

	static   []*Key
	dynamic  []*Key
	deferred []*Key
	passive  map[string]*Key

	flags     uint8
	locks     int
	holes     bool
	refStatic int
	refClones int
	live      int // dynamic keys, deferred included
}

func newCatalog(p *Page, class uoid.ClassTag) *Catalog {
	return &Catalog{class: class, page: p}
}

// Class returns the class tag of every key in the catalog.
func (c *Catalog) Class() uoid.ClassTag { return c.class }

// Len returns the number of live keys, passive placeholders excluded.
func (c *Catalog) Len() int {
	n := c.live
	for _, k := range c.static {
		if k != nil {
			n++
		}
	}
	return n
}

// Active reports whether any key in the catalog is in use.
func (c *Catalog) Active() bool {
	return c.refStatic > 0 || c.live > 0 || c.refClones > 0
}

// Locked reports whether an iteration is in progress.
func (c *Catalog) Locked() bool { return c.locks > 0 }

// Find returns the key named name, compared case-insensitively, or nil.
func (c *Catalog) Find(name string) *Key {
	fold := format.FoldName(name)
	if k := c.findStatic(fold); k != nil {
		return k
	}
	if k := searchSorted(c.dynamic, fold, c.holes); k != nil {
		return k
	}
	for _, k := range c.deferred {
		if k.fold == fold {
			return k
		}
	}
	return nil
}

func (c *Catalog) findStatic(fold string) *Key {
	if c.flags&format.GroupFlagSorted != 0 {
		return searchSorted(c.static, fold, c.holes)
	}
	for _, k := range c.static {
		if k != nil && k.fold == fold {
			return k
		}
	}
	return nil
}

func searchSorted(keys []*Key, fold string, holes bool) *Key {
	if holes {
		for _, k := range keys {
			if k != nil && k.fold == fold {
				return k
			}
		}
		return nil
	}
	i, ok := slices.BinarySearchFunc(keys, fold, func(k *Key, f string) int {
		return strings.Compare(k.fold, f)
	})
	if !ok {
		return nil
	}
	return keys[i]
}

// Insert adds a dynamic key in sorted position, or defers it while locked.
// It reports whether the catalog became active.
func (c *Catalog) Insert(k *Key) bool {
	was := c.Active()
	k.catalog = c
	k.static = false
	k.slot = -1
	if c.locks > 0 {
		c.deferred = append(c.deferred, k)
	} else {
		c.insertSorted(k)
	}
	c.live++
	return !was && c.Active()
}

func (c *Catalog) insertSorted(k *Key) {
	i, _ := slices.BinarySearchFunc(c.dynamic, k.fold, func(e *Key, f string) int {
		if e == nil {
			return -1
		}
		return strings.Compare(e.fold, f)
	})
	c.dynamic = slices.Insert(c.dynamic, i, k)
}

// MarkUsed records that k gained its first reference. It reports whether
// the catalog became active.
func (c *Catalog) MarkUsed(k *Key) bool {
	was := c.Active()
	switch {
	case k.passive:
		return false
	case k.original != nil:
		c.refClones++
	case k.static:
		c.refStatic++
	default:
		// dynamic keys are live from Insert on
		return false
	}
	return !was && c.Active()
}

// MarkUnused records that k lost its last reference. Static keys stay put;
// dynamic keys are erased (tombstoned while locked); clones leave their
// original's clone list. It reports whether the catalog became inactive.
func (c *Catalog) MarkUnused(k *Key) bool {
	was := c.Active()
	switch {
	case k.passive:
		if c.passive[k.fold] == k {
			delete(c.passive, k.fold)
		}
		k.catalog = nil
		return false
	case k.original != nil:
		c.refClones--
		c.dropClone(k)
	case k.static:
		c.refStatic--
	default:
		c.removeDynamic(k)
	}
	return was && !c.Active()
}

// Remove deletes k from the catalog regardless of its reference count. It
// reports whether the catalog became inactive.
func (c *Catalog) Remove(k *Key) bool {
	if k.catalog != c {
		return false
	}
	was := c.Active()
	switch {
	case k.passive:
		return c.MarkUnused(k)
	case k.original != nil:
		if k.refs > 0 {
			c.refClones--
		}
		c.dropClone(k)
	case k.static:
		if k.refs > 0 {
			c.refStatic--
		}
		if k.slot >= 0 && k.slot < len(c.static) && c.static[k.slot] == k {
			c.static[k.slot] = nil
			c.holes = true
		}
		k.detach()
		c.repackIfUnlocked()
	default:
		c.removeDynamic(k)
	}
	return was && !c.Active()
}

func (c *Catalog) dropClone(k *Key) {
	orig := k.original
	if i := slices.Index(orig.clones, k); i >= 0 {
		orig.clones = slices.Delete(orig.clones, i, i+1)
	}
	k.catalog = nil
	k.orphan()
}

func (c *Catalog) removeDynamic(k *Key) {
	if i := slices.Index(c.deferred, k); i >= 0 {
		c.deferred = slices.Delete(c.deferred, i, i+1)
	} else if i := slices.Index(c.dynamic, k); i >= 0 {
		c.dynamic[i] = nil
		c.holes = true
	} else {
		return
	}
	c.live--
	k.detach()
	c.repackIfUnlocked()
}

func (c *Catalog) repackIfUnlocked() {
	if c.locks == 0 {
		c.Repack()
	}
}

// Iterate visits every static then dynamic key until fn returns false. It
// reports whether the walk completed. fn may add or release keys; changes
// become structural once the outermost iteration ends.
func (c *Catalog) Iterate(fn func(*Key) bool) bool {
	c.locks++
	defer func() {
		c.locks--
		c.repackIfUnlocked()
	}()

	for i := 0; i < len(c.static); i++ {
		if k := c.static[i]; k != nil && !fn(k) {
			return false
		}
	}
	for i := 0; i < len(c.dynamic); i++ {
		if k := c.dynamic[i]; k != nil && !fn(k) {
			return false
		}
	}
	return true
}

// Repack compacts holes and merges deferred inserts. It does nothing while
// the catalog is locked.
func (c *Catalog) Repack() {
	if c.locks > 0 {
		return
	}
	if c.holes {
		c.static = slices.DeleteFunc(c.static, func(k *Key) bool { return k == nil })
		c.dynamic = slices.DeleteFunc(c.dynamic, func(k *Key) bool { return k == nil })
		c.holes = false
	}
	for i, k := range c.static {
		k.slot = i
	}
	for _, k := range c.deferred {
		c.insertSorted(k)
	}
	c.deferred = nil
}

// Sorted returns every live key in find order: by folded name, static keys
// before dynamic ones on ties.
func (c *Catalog) Sorted() []*Key {
	out := make([]*Key, 0, c.Len())
	for _, k := range c.static {
		if k != nil {
			out = append(out, k)
		}
	}
	for _, k := range c.dynamic {
		if k != nil {
			out = append(out, k)
		}
	}
	out = append(out, c.deferred...)
	slices.SortStableFunc(out, func(a, b *Key) int { return cmp.Compare(a.fold, b.fold) })
	return out
}

// PrepForWrite promotes dynamic keys to static, sorts the catalog by folded
// name and assigns object ids 1..n. The catalog must not be locked.
func (c *Catalog) PrepForWrite() {
	keys := c.Sorted()
	c.static = keys
	c.dynamic = nil
	c.deferred = nil
	c.holes = false
	c.live = 0
	c.refStatic = 0
	c.flags |= format.GroupFlagSorted
	for i, k := range keys {
		k.static = true
		k.slot = i
		k.id.ObjectID = uint32(i + 1)
		if k.refs > 0 {
			c.refStatic++
		}
	}
}

// passiveKey returns the placeholder for id, creating it on first use.
func (c *Catalog) passiveKey(id uoid.Uoid, reg *Registry) *Key {
	fold := id.Fold()
	if k, ok := c.passive[fold]; ok {
		return k
	}
	if c.passive == nil {
		c.passive = make(map[string]*Key)
	}
	k := newKey(id, reg)
	k.passive = true
	k.catalog = c
	c.passive[fold] = k
	return k
}

// adoptPassive replaces static keys with placeholders handed out before the
// index was read, so holders of a placeholder see the real key.
func (c *Catalog) adoptPassive() {
	for fold, pk := range c.passive {
		k := c.findStatic(fold)
		if k == nil {
			continue
		}
		pk.id.LoadMask = k.id.LoadMask
		pk.id.ObjectID = k.id.ObjectID
		pk.id.Location = k.id.Location
		pk.offset, pk.length = k.offset, k.length
		pk.static, pk.passive = true, false
		pk.slot = k.slot
		c.static[k.slot] = pk
		if pk.refs > 0 {
			c.refStatic++
		}
		delete(c.passive, fold)
	}
}

// detachAll detaches every key, clones and placeholders included.
func (c *Catalog) detachAll() {
	for _, k := range c.static {
		if k != nil {
			k.detach()
		}
	}
	for _, k := range c.dynamic {
		if k != nil {
			k.detach()
		}
	}
	for _, k := range c.deferred {
		k.detach()
	}
	for _, k := range c.passive {
		k.detach()
	}
	c.static, c.dynamic, c.deferred, c.passive = nil, nil, nil, nil
	c.refStatic, c.refClones, c.live = 0, 0, 0
}
