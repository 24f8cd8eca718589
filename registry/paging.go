package registry

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// PageInRoom loads the page at loc and the object graph of its anchor: the
// first key of anchorClass. Every key on the page is pinned while the anchor
// loads, then released, so only what recv (through its active notification
// on the anchor) and the loaded objects still reference stays in use.
func (r *Registry) PageInRoom(loc uoid.Location, anchorClass uoid.ClassTag, recv Receiver) (*Key, error) {
	p := r.FindPage(loc)
	if p == nil {
		return nil, fmt.Errorf("page in %s: %w", loc, types.ErrNotFound)
	}
	if err := p.LoadKeys(); err != nil {
		return nil, fmt.Errorf("page in %s: %w", loc, err)
	}

	var pinned []*Key
	p.IterateKeys(func(k *Key) bool {
		k.AddReference()
		pinned = append(pinned, k)
		return true
	})
	defer func() {
		for _, k := range pinned {
			k.RemoveReference()
		}
	}()

	var anchor *Key
	if c := p.Catalog(anchorClass); c != nil {
		c.Iterate(func(k *Key) bool {
			anchor = k
			return false
		})
	}
	if anchor == nil {
		return nil, fmt.Errorf("page in %s: no anchor of class 0x%04X: %w",
			p, uint16(anchorClass), types.ErrNotFound)
	}
	if err := anchor.RegisterNotification(recv, NotifyActive, 0); err != nil {
		return anchor, err
	}
	r.log.Debug("room paged in",
		zap.String("page", p.String()),
		zap.String("anchor", anchor.id.String()),
		zap.Int("keys", len(pinned)))
	return anchor, nil
}

// PageOutRoom drops recv's notifications on the page at loc and unloads
// whatever became eligible. The page's catalogs are dropped when nothing on
// it remains in use. It returns the number of objects released.
func (r *Registry) PageOutRoom(loc uoid.Location, recv Receiver) (int, error) {
	p := r.FindPage(loc)
	if p == nil {
		return 0, fmt.Errorf("page out %s: %w", loc, types.ErrNotFound)
	}
	var keys []*Key
	p.IterateKeys(func(k *Key) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		k.RemoveNotification(recv)
	}
	n := 0
	for {
		pass := r.unloadPage(p) + r.unloadDetached()
		if pass == 0 {
			break
		}
		n += pass
	}
	if p.idle() {
		p.UnloadKeys()
	}
	r.log.Debug("room paged out", zap.String("page", p.String()), zap.Int("objects", n))
	return n, nil
}

// heldGroup pins every key of one age. It starts with two references: the
// group's own and the first pin.
type heldGroup struct {
	age   string
	refs  int
	keys  []*Key
	pages []*Page
}

func (g *heldGroup) release() {
	for _, k := range g.keys {
		k.RemoveReference()
	}
	for _, p := range g.pages {
		p.held--
	}
	g.keys, g.pages = nil, nil
	g.refs = 0
}

// forget drops the group's hold on a page being removed.
func (g *heldGroup) forget(p *Page) {
	i := slices.Index(g.pages, p)
	if i < 0 {
		return
	}
	g.pages = slices.Delete(g.pages, i, i+1)
	p.held--
	g.keys = slices.DeleteFunc(g.keys, func(k *Key) bool {
		if k.Page() != p {
			return false
		}
		k.RemoveReference()
		return true
	})
}

// LoadAgeKeys loads the index of every page of age and holds a reference on
// each key until the matching DropAgeKeys. Repeated pins only count.
func (r *Registry) LoadAgeKeys(age string) error {
	fold := format.FoldName(age)
	if g, ok := r.held[fold]; ok {
		g.refs++
		return nil
	}

	g := &heldGroup{age: age, refs: 2}
	for _, p := range r.pages {
		if format.FoldName(p.age) != fold || p.status != StatusOK {
			continue
		}
		if err := p.LoadKeys(); err != nil {
			g.release()
			return fmt.Errorf("load age %s: %w", age, err)
		}
		p.held++
		g.pages = append(g.pages, p)
		p.IterateKeys(func(k *Key) bool {
			k.AddReference()
			g.keys = append(g.keys, k)
			return true
		})
	}
	r.held[fold] = g
	r.log.Debug("age keys held",
		zap.String("age", age), zap.Int("pages", len(g.pages)), zap.Int("keys", len(g.keys)))
	return nil
}

// DropAgeKeys releases one pin on age. The held references are released
// when only the group's own reference remains. It reports whether the age
// was held.
func (r *Registry) DropAgeKeys(age string) bool {
	fold := format.FoldName(age)
	g, ok := r.held[fold]
	if !ok {
		return false
	}
	g.refs--
	if g.refs <= 1 {
		g.release()
		delete(r.held, fold)
		r.log.Debug("age keys released", zap.String("age", age))
	}
	return true
}

// AgeHeld reports whether age currently has pinned keys.
func (r *Registry) AgeHeld(age string) bool {
	_, ok := r.held[format.FoldName(age)]
	return ok
}
