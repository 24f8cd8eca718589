package registry

import (
	"github.com/joshuapare/pagekit/registry/uoid"
)

// cloneContext is set while a clone root is being read. References to
// objects on the root's page read during that time become clones for the
// same owner and instance.
type cloneContext struct {
	owner    uint32
	instance uint32
	loc      uoid.Location
	root     *Key
	active   bool
}

// binding counts the clones bound to one shared object.
type binding struct {
	n int
}

func (c *cloneContext) matches(k *Key) bool {
	return c.active && c.owner == k.id.ClonePlayerID && c.instance == k.id.CloneID
}

// apply redirects id to a clone when the context covers it.
func (c *cloneContext) apply(id uoid.Uoid) uoid.Uoid {
	if !c.active || id.IsClone() || !id.Location.Equal(c.loc) {
		return id
	}
	return id.CloneFor(c.owner, c.instance)
}

// Clone returns the clone of k for (owner, instance), creating it on first
// use. Instance zero returns k itself; cloning a clone clones its original.
func (k *Key) Clone(owner, instance uint32) *Key {
	if instance == 0 {
		return k
	}
	if k.original != nil {
		return k.original.Clone(owner, instance)
	}
	for _, c := range k.clones {
		if c.id.ClonePlayerID == owner && c.id.CloneID == instance {
			return c
		}
	}

	c := newKey(k.id.CloneFor(owner, instance), k.reg)
	c.offset, c.length = k.offset, k.length
	c.catalog = k.catalog
	c.original = k
	k.clones = append(k.clones, c)
	if k.reg != nil {
		k.reg.metrics.ClonesCreated.Inc()
	}
	return c
}

// sharedSibling returns a loaded sibling clone whose object can be reused
// by clone k, if the class allows sharing.
func (r *Registry) sharedSibling(k *Key) *Key {
	blank := r.factory.Create(k.id.Class)
	if blank == nil {
		return nil
	}
	sh, ok := blank.(Shareable)
	if !ok || !sh.Shareable() {
		return nil
	}
	for _, c := range k.original.clones {
		if c != k && c.state == Loaded && c.obj != nil {
			return c
		}
	}
	return nil
}

// CloneKey clones orig for the local owner with a fresh instance id.
func (r *Registry) CloneKey(orig *Key) *Key {
	r.nextInstance++
	return orig.Clone(r.opts.LocalOwnerID, r.nextInstance)
}

// CloneContext reports the active clone owner and instance, if any.
func (r *Registry) CloneContext() (owner, instance uint32, active bool) {
	return r.clone.owner, r.clone.instance, r.clone.active
}
