package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/internal/metrics"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// DefaultPagePattern matches page files below a directory.
const DefaultPagePattern = "**/*.prp"

// Options configures a Registry.
type Options struct {
	// LoadMask selects which objects materialize; see uoid.LoadMask.
	LoadMask uoid.LoadMask

	// PassiveKeys makes FindKey hand out placeholder keys for pages whose
	// index has not been read, instead of reading it.
	PassiveKeys bool

	// UseMmap backs page streams with read-only mappings.
	UseMmap bool

	// RenameDuplicates lets NewKey retry a taken name with numeric suffixes
	// (name1, name2, ...). When false, duplicates fail with ErrDuplicateName.
	RenameDuplicates  bool
	MaxRenameAttempts int

	// LocalOwnerID is the clone owner used by CloneKey.
	LocalOwnerID uint32

	// Release suppresses stack traces on authoring errors.
	Release bool

	// PagePattern is the doublestar glob AddPages uses.
	PagePattern string

	// Verification policy applied by VerifyPages.
	DeleteBadPages bool
	WarnNewerPages bool
	DeepVerify     bool

	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		LoadMask:          uoid.Always,
		UseMmap:           true,
		MaxRenameAttempts: 16,
		LocalOwnerID:      1,
		PagePattern:       DefaultPagePattern,
		WarnNewerPages:    true,
	}
}

// Registry resolves identifiers to objects across a set of pages.
type Registry struct {
	factory Factory
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics

	pages       []*Page
	active      []*Page // pages with any key in use, by location
	activeDirty bool
	lastFound   *Page
	iterLocks   int

	readDepth int
	draining  bool
	queue     []*Key
	detached  []*Key // left their catalog while still loaded

	clone        cloneContext
	nextInstance uint32

	held   map[string]*heldGroup
	closed bool
}

// New creates an empty registry.
func New(factory Factory, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PagePattern == "" {
		opts.PagePattern = DefaultPagePattern
	}
	if opts.LoadMask == 0 {
		opts.LoadMask = uoid.Always
	}
	return &Registry{
		factory: factory,
		opts:    opts,
		log:     opts.Logger,
		metrics: metrics.New(opts.Registerer),
		held:    make(map[string]*heldGroup),
	}
}

// Factory returns the factory objects are created with.
func (r *Registry) Factory() Factory { return r.factory }

// Options returns the options the registry was created with, defaults
// applied.
func (r *Registry) Options() Options { return r.opts }

// Logger returns the registry's logger.
func (r *Registry) Logger() *zap.Logger { return r.log }

// Pages returns every registered page in registration order.
func (r *Registry) Pages() []*Page { return slices.Clone(r.pages) }

// ActivePages returns the pages with any key in use, ordered by location.
func (r *Registry) ActivePages() []*Page {
	if r.activeDirty && r.iterLocks == 0 {
		r.rebuildActive()
	}
	return slices.Clone(r.active)
}

// AddPage opens the page at path and registers it. Pages that fail header
// checks are registered with their status so VerifyPages can act on them.
func (r *Registry) AddPage(path string) (*Page, error) {
	p, err := OpenPage(path, r.factory, PageOptions{UseMmap: r.opts.UseMmap, Logger: r.log})
	if err != nil {
		return nil, err
	}
	p.reg = r
	r.pages = append(r.pages, p)
	r.updatePageGauge()
	if p.status != StatusOK {
		r.log.Info("page registered with problems",
			zap.String("page", p.String()),
			zap.String("path", path),
			zap.Stringer("status", p.status))
	}
	return p, nil
}

// AddPages registers every file below dir matching the configured pattern.
// Files that are not pages are logged and skipped.
func (r *Registry) AddPages(dir string) (int, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), r.opts.PagePattern, doublestar.WithFilesOnly())
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	slices.Sort(matches)

	added := 0
	for _, m := range matches {
		path := filepath.Join(dir, filepath.FromSlash(m))
		if _, err := r.AddPage(path); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return added, err
			}
			r.log.Warn("skipping page", zap.String("path", path), zap.Error(err))
			continue
		}
		added++
	}
	return added, nil
}

// NewPage registers an empty page for export at loc.
func (r *Registry) NewPage(loc uoid.Location, age, name string) (*Page, error) {
	if p := r.FindPage(loc); p != nil {
		return nil, fmt.Errorf("new page %s|%s: %s used by %s: %w",
			age, name, loc, p, types.ErrDuplicateLocation)
	}
	p := newExportPage(loc, age, name, r)
	r.pages = append(r.pages, p)
	r.updatePageGauge()
	return p, nil
}

// RemovePage unregisters p, dropping its keys and closing its stream. With
// deleteFile the page file is removed too.
func (r *Registry) RemovePage(p *Page, deleteFile bool) error {
	i := slices.Index(r.pages, p)
	if i < 0 {
		return fmt.Errorf("remove page %s: %w", p, types.ErrNotFound)
	}
	for _, g := range r.held {
		g.forget(p)
	}
	p.UnloadKeys()
	err := p.forceCloseStream()
	r.pages = slices.Delete(r.pages, i, i+1)
	if r.lastFound == p {
		r.lastFound = nil
	}
	if j := slices.Index(r.active, p); j >= 0 {
		r.active = slices.Delete(r.active, j, j+1)
	}
	p.reg = nil
	r.updatePageGauge()

	if deleteFile && p.path != "" {
		if rerr := os.Remove(p.path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			return fmt.Errorf("remove page file: %w", rerr)
		}
		r.log.Info("page file deleted", zap.String("page", p.String()), zap.String("path", p.path))
	}
	return err
}

// FindPage returns the page at loc, or nil.
func (r *Registry) FindPage(loc uoid.Location) *Page {
	if r.lastFound != nil && r.lastFound.loc.Equal(loc) {
		return r.lastFound
	}
	for _, p := range r.pages {
		if p.loc.Equal(loc) {
			r.lastFound = p
			return p
		}
	}
	return nil
}

// FindPageByName returns the page with the given age and page names,
// compared case-insensitively, or nil.
func (r *Registry) FindPageByName(age, page string) *Page {
	for _, p := range r.pages {
		if strings.EqualFold(p.age, age) && strings.EqualFold(p.name, page) {
			return p
		}
	}
	return nil
}

// FindKey returns the key named by id, or nil when no such object exists.
// Clone identifiers resolve through their original. Errors are reserved for
// pages whose index cannot be read.
func (r *Registry) FindKey(id uoid.Uoid) (*Key, error) {
	if id.IsClone() {
		orig, err := r.FindKey(id.Original())
		if orig == nil || err != nil {
			return nil, err
		}
		return orig.Clone(id.ClonePlayerID, id.CloneID), nil
	}

	p := r.FindPage(id.Location)
	if p == nil {
		return nil, nil
	}
	if !p.keysLoaded {
		if p.status != StatusOK {
			return nil, fmt.Errorf("find %s: %s is %s: %w", id, p, p.status, types.ErrPageNotLoadable)
		}
		if r.opts.PassiveKeys {
			if c := p.catalogFor(id.Class, false); c != nil {
				if k := c.Find(id.Name); k != nil {
					return k, nil
				}
			}
			return p.catalogFor(id.Class, true).passiveKey(id, r), nil
		}
		if err := p.LoadKeys(); err != nil {
			return nil, err
		}
	}
	c := p.catalogFor(id.Class, false)
	if c == nil {
		return nil, nil
	}
	return c.Find(id.Name), nil
}

// NewKey registers obj under name on the page at loc and returns its key
// holding one reference. A name already taken in the class fails with
// ErrDuplicateName unless RenameDuplicates is set.
func (r *Registry) NewKey(name string, obj Object, loc uoid.Location, mask uoid.LoadMask) (*Key, error) {
	if obj == nil {
		return nil, fmt.Errorf("new key %q: nil object: %w", name, types.ErrUnknownClass)
	}
	p := r.FindPage(loc)
	if p == nil {
		return nil, fmt.Errorf("new key %q: page %s: %w", name, loc, types.ErrNotFound)
	}
	if err := p.LoadKeys(); err != nil {
		return nil, err
	}
	if _, err := format.EncodeName(name); err != nil {
		return nil, fmt.Errorf("new key %q: %w", name, err)
	}

	class := obj.ClassTag()
	c := p.catalogFor(class, true)
	final, err := r.uniqueName(c, name)
	if err != nil {
		return nil, err
	}

	k := newKey(uoid.Uoid{Location: p.loc, LoadMask: mask, Class: class, Name: final}, r)
	k.obj = obj
	k.state = Loaded
	k.refs = 1
	if keyed, ok := obj.(Keyed); ok {
		keyed.SetKey(k)
	}
	if c.Insert(k) {
		p.refreshActive()
	}
	return k, nil
}

func (r *Registry) uniqueName(c *Catalog, name string) (string, error) {
	if c.Find(name) == nil {
		return name, nil
	}
	if !r.opts.RenameDuplicates {
		r.metrics.DuplicateNames.WithLabelValues("rejected").Inc()
		r.log.Error("duplicate object name",
			zap.String("name", name),
			zap.Uint16("class", uint16(c.class)),
			zap.String("page", c.page.String()))
		return "", fmt.Errorf("new key %q in %s: %w", name, c.page, types.ErrDuplicateName)
	}
	for i := 1; i <= r.opts.MaxRenameAttempts; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if c.Find(candidate) != nil {
			continue
		}
		r.metrics.DuplicateNames.WithLabelValues("renamed").Inc()
		fields := []zap.Field{
			zap.String("name", name),
			zap.String("renamed", candidate),
			zap.String("page", c.page.String()),
		}
		if r.opts.Release {
			r.log.Warn("duplicate object name renamed", fields...)
		} else {
			r.log.Error("duplicate object name renamed", append(fields, zap.Stack("stack"))...)
		}
		return candidate, nil
	}
	r.metrics.DuplicateNames.WithLabelValues("exhausted").Inc()
	r.log.Error("duplicate object name could not be renamed",
		zap.String("name", name), zap.Int("attempts", r.opts.MaxRenameAttempts))
	return "", fmt.Errorf("new key %q in %s after %d renames: %w",
		name, c.page, r.opts.MaxRenameAttempts, types.ErrDuplicateName)
}

// Close releases held key groups and closes every page stream. The registry
// must not be used afterwards.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for age, g := range r.held {
		g.release()
		delete(r.held, age)
	}
	r.queue = nil
	r.detached = nil
	var errs []error
	for _, p := range r.pages {
		if err := p.forceCloseStream(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) pageActivityChanged(p *Page) {
	if r.iterLocks > 0 {
		r.activeDirty = true
		return
	}
	r.rebuildActive()
}

func (r *Registry) rebuildActive() {
	r.active = r.active[:0]
	for _, p := range r.pages {
		if p.active {
			r.active = append(r.active, p)
		}
	}
	slices.SortStableFunc(r.active, func(a, b *Page) int { return a.loc.Compare(b.loc) })
	r.activeDirty = false
}

func (r *Registry) updatePageGauge() {
	counts := make(map[PageStatus]int)
	for _, p := range r.pages {
		counts[p.status]++
	}
	for _, s := range []PageStatus{StatusNotVerified, StatusOK, StatusCorrupt, StatusTooNew, StatusOutOfDate} {
		r.metrics.Pages.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}
