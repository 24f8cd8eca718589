// Package namecache memoizes the decoding of stored object names.
//
// Entries are keyed on the raw Windows-1252 bytes of a page index name and
// hold the UTF-8 name with its case fold. Pages of one age repeat the same
// names, so index loads mostly hit.
//
// Eviction is CLOCK (second chance): a hit sets the entry's reference bit,
// and the hand clears bits until it finds an entry that was not used since
// its last pass. The cache is package-level and safe for concurrent use.
package namecache

import (
	"sync"

	"github.com/joshuapare/pagekit/internal/format"
)

const defaultCapacity = 8192

type slot struct {
	raw  string
	name string
	fold string
	used bool
}

type clock struct {
	mu     sync.Mutex
	limit  int
	slots  []slot
	index  map[string]int
	hand   int
	hits   uint64
	misses uint64
}

func newClock(limit int) *clock {
	return &clock{limit: limit, index: make(map[string]int)}
}

func (c *clock) get(raw []byte) (name, fold string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[string(raw)]
	if !ok {
		c.misses++
		return "", "", false
	}
	c.hits++
	c.slots[i].used = true
	return c.slots[i].name, c.slots[i].fold, true
}

func (c *clock) put(raw []byte, name, fold string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit == 0 {
		return
	}
	if i, ok := c.index[string(raw)]; ok {
		c.slots[i].name, c.slots[i].fold = name, fold
		c.slots[i].used = true
		return
	}
	s := slot{raw: string(raw), name: name, fold: fold}
	if len(c.slots) < c.limit {
		c.index[s.raw] = len(c.slots)
		c.slots = append(c.slots, s)
		return
	}
	i := c.victim()
	delete(c.index, c.slots[i].raw)
	c.slots[i] = s
	c.index[s.raw] = i
}

// victim advances the hand to the first slot without a reference bit,
// clearing bits on the way. At most one full turn is needed.
func (c *clock) victim() int {
	for {
		i := c.hand
		c.hand = (c.hand + 1) % len(c.slots)
		if !c.slots[i].used {
			return i
		}
		c.slots[i].used = false
	}
}

func (c *clock) resize(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limit
	if len(c.slots) <= limit {
		return
	}
	// keep the most recently referenced entries
	kept := make([]slot, 0, limit)
	for _, s := range c.slots {
		if s.used && len(kept) < limit {
			kept = append(kept, s)
		}
	}
	for _, s := range c.slots {
		if !s.used && len(kept) < limit {
			kept = append(kept, s)
		}
	}
	c.rebuild(kept)
}

func (c *clock) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuild(nil)
	c.hits, c.misses = 0, 0
}

func (c *clock) rebuild(slots []slot) {
	c.slots = slots
	c.hand = 0
	c.index = make(map[string]int, len(slots))
	for i, s := range slots {
		c.index[s.raw] = i
	}
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Entries  int
	Capacity int
	Hits     uint64
	Misses   uint64
}

func (c *clock) stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.slots), Capacity: c.limit, Hits: c.hits, Misses: c.misses}
}

var shared = newClock(defaultCapacity)

// Decode returns the UTF-8 name and case fold for raw stored name bytes,
// decoding and remembering them on a miss.
func Decode(raw []byte) (name, fold string, err error) {
	if name, fold, ok := shared.get(raw); ok {
		return name, fold, nil
	}
	name, err = format.DecodeName(raw)
	if err != nil {
		return "", "", err
	}
	fold = format.FoldName(name)
	shared.put(raw, name, fold)
	return name, fold, nil
}

// Lookup reports the cached decoding of raw, if any.
func Lookup(raw []byte) (name, fold string, ok bool) {
	return shared.get(raw)
}

// Store records a decoding.
func Store(raw []byte, name, fold string) {
	shared.put(raw, name, fold)
}

// SetCapacity bounds the number of entries. Zero disables caching.
func SetCapacity(n int) {
	shared.resize(max(n, 0))
}

// Reset drops every entry and zeroes the counters.
func Reset() {
	shared.clear()
}

// Len returns the number of cached entries.
func Len() int {
	return shared.stats().Entries
}

// Snapshot returns the current counters.
func Snapshot() Stats {
	return shared.stats()
}
