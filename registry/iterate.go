package registry

import "slices"

func (r *Registry) lockIteration() { r.iterLocks++ }

func (r *Registry) unlockIteration() {
	r.iterLocks--
	if r.iterLocks == 0 && r.activeDirty {
		r.rebuildActive()
	}
}

// IterateLocked reports whether a page iteration is in progress.
func (r *Registry) IterateLocked() bool { return r.iterLocks > 0 }

// IteratePages visits the active pages in location order until fn returns
// false. The active set is frozen for the duration; changes made by fn are
// applied when the outermost iteration ends.
func (r *Registry) IteratePages(fn func(*Page) bool) bool {
	if r.iterLocks == 0 && r.activeDirty {
		r.rebuildActive()
	}
	r.lockIteration()
	defer r.unlockIteration()

	for _, p := range slices.Clone(r.active) {
		if !fn(p) {
			return false
		}
	}
	return true
}

// IterateAllPages visits every registered page in registration order.
func (r *Registry) IterateAllPages(fn func(*Page) bool) bool {
	r.lockIteration()
	defer r.unlockIteration()

	for _, p := range slices.Clone(r.pages) {
		if !fn(p) {
			return false
		}
	}
	return true
}

// IterateKeys visits every key of every page whose index is loaded.
func (r *Registry) IterateKeys(fn func(*Key) bool) bool {
	return r.IterateAllPages(func(p *Page) bool {
		if !p.keysLoaded {
			return true
		}
		return p.IterateKeys(fn)
	})
}
