package registry

import (
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// PageStatus is the verification state of a page.
type PageStatus uint8

const (
	StatusNotVerified PageStatus = iota
	StatusOK
	StatusCorrupt
	StatusTooNew
	StatusOutOfDate
)

func (s PageStatus) String() string {
	switch s {
	case StatusNotVerified:
		return "not-verified"
	case StatusOK:
		return "ok"
	case StatusCorrupt:
		return "corrupt"
	case StatusTooNew:
		return "too-new"
	case StatusOutOfDate:
		return "out-of-date"
	default:
		return fmt.Sprintf("PageStatus(%d)", uint8(s))
	}
}

// PageOptions configures OpenPage.
type PageOptions struct {
	// UseMmap backs page streams with a read-only mapping instead of file reads.
	UseMmap bool
	Logger  *zap.Logger
}

// Page is one page file: header, data section and index.
type Page struct {
	path string
	loc  uoid.Location
	age  string
	name string

	major         uint32
	classVersions []format.ClassVersion
	checksum      uint32
	dataStart     uint32
	indexStart    uint32
	size          int64
	id            uuid.UUID
	digest        [format.DigestSize]byte
	status        PageStatus

	catalogs   []*Catalog // sorted by class
	keysLoaded bool
	active     bool
	held       int

	stream    stream.Stream
	openCount int
	useMmap   bool

	reg *Registry
	log *zap.Logger
}

// OpenPage reads the header of the page at path and classifies it against
// the class versions of this engine. Problems found in a well-formed header
// (checksum, versions) are reported through Status, not as errors.
func OpenPage(path string, versions ClassVersioner, opts PageOptions) (*Page, error) {
	s, err := stream.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer s.Close()

	fixed := make([]byte, format.FixedHeaderSize)
	if err := stream.ReadExact(s, fixed); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrNotPage, path, err)
	}
	n, err := format.HeaderLen(fixed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrNotPage, path, err)
	}
	if int64(n) > s.Size() {
		return nil, fmt.Errorf("%w: %s: header ends at 0x%X past end of file", types.ErrCorrupt, path, n)
	}
	raw := make([]byte, n)
	copy(raw, fixed)
	if err := stream.ReadExact(s, raw[format.FixedHeaderSize:]); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrNotPage, path, err)
	}
	h, err := format.ParseHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrNotPage, path, err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	p := &Page{
		path:          path,
		loc:           uoid.Location{Sequence: h.LocSequence, Flags: uoid.LocFlags(h.LocFlags)},
		age:           h.Age,
		name:          h.Page,
		major:         h.Major,
		classVersions: h.ClassVersions,
		checksum:      h.Checksum,
		dataStart:     h.DataStart,
		indexStart:    h.IndexStart,
		size:          s.Size(),
		id:            uuid.UUID(h.PageID),
		digest:        h.Digest,
		useMmap:       opts.UseMmap,
		log:           log,
	}
	p.status = p.classify(versions)
	return p, nil
}

func newExportPage(loc uoid.Location, age, name string, reg *Registry) *Page {
	return &Page{
		loc:        loc,
		age:        age,
		name:       name,
		major:      format.MajorVersion,
		id:         uuid.New(),
		status:     StatusOK,
		keysLoaded: true,
		useMmap:    reg.opts.UseMmap,
		reg:        reg,
		log:        reg.log,
	}
}

// classify applies the checksum, major version and per-class minor version
// checks in that order. A too-new class wins over an out-of-date one.
func (p *Page) classify(versions ClassVersioner) PageStatus {
	if int64(p.checksum) != p.size-int64(p.dataStart) || int64(p.indexStart) > p.size {
		return StatusCorrupt
	}
	switch {
	case p.major > format.MajorVersion:
		return StatusTooNew
	case p.major < format.MajorVersion:
		return StatusOutOfDate
	}
	if versions == nil {
		return StatusOK
	}
	status := StatusOK
	for _, cv := range p.classVersions {
		cur := versions.ClassVersion(uoid.ClassTag(cv.Class))
		switch {
		case cv.Minor > cur:
			return StatusTooNew
		case cv.Minor < cur:
			status = StatusOutOfDate
		}
	}
	return status
}

func (p *Page) Path() string { return p.path }
func (p *Page) Location() uoid.Location { return p.loc }
func (p *Page) Age() string { return p.age }
func (p *Page) Name() string { return p.name }
func (p *Page) Major() uint32 { return p.major }
func (p *Page) Checksum() uint32 { return p.checksum }
func (p *Page) DataStart() uint32 { return p.dataStart }
func (p *Page) IndexStart() uint32 { return p.indexStart }
func (p *Page) Size() int64 { return p.size }
func (p *Page) ID() uuid.UUID { return p.id }
func (p *Page) Digest() [32]byte { return p.digest }
func (p *Page) Status() PageStatus { return p.status }
func (p *Page) KeysLoaded() bool { return p.keysLoaded }
func (p *Page) IsActive() bool { return p.active }
func (p *Page) IsHeld() bool { return p.held > 0 }
func (p *Page) StreamOpenCount() int { return p.openCount }
func (p *Page) hasFile() bool { return p.path != "" && p.size > 0 }

// idle reports whether the page's catalogs may be dropped.
func (p *Page) idle() bool {
	return !p.active && p.held == 0 && !p.loc.IsGlobalFixed() && p.hasFile()
}
func (p *Page) Catalogs() []*Catalog { return slices.Clone(p.catalogs) }
func (p *Page) Catalog(c uoid.ClassTag) *Catalog { return p.catalogFor(c, false) }

// ClassVersions returns the class-version table recorded in the header.
func (p *Page) ClassVersions() []format.ClassVersion { return slices.Clone(p.classVersions) }

func (p *Page) String() string {
	return fmt.Sprintf("%s|%s %s", p.age, p.name, p.loc)
}

func (p *Page) catalogFor(class uoid.ClassTag, create bool) *Catalog {
	i, ok := slices.BinarySearchFunc(p.catalogs, class, func(c *Catalog, t uoid.ClassTag) int {
		return int(c.class) - int(t)
	})
	if ok {
		return p.catalogs[i]
	}
	if !create {
		return nil
	}
	c := newCatalog(p, class)
	p.catalogs = slices.Insert(p.catalogs, i, c)
	return c
}

// refreshActive recomputes whether any catalog is in use and tells the
// registry when that changes.
func (p *Page) refreshActive() {
	active := false
	for _, c := range p.catalogs {
		if c.Active() {
			active = true
			break
		}
	}
	if active == p.active {
		return
	}
	p.active = active
	if p.reg != nil {
		p.reg.pageActivityChanged(p)
	}
}

// OpenStream returns the page stream, opening it on first use. Every call
// must be paired with CloseStream.
func (p *Page) OpenStream() (stream.Stream, error) {
	if p.openCount > 0 {
		p.openCount++
		return p.stream, nil
	}
	if p.path == "" {
		return nil, fmt.Errorf("open stream %s: page has no file: %w", p, types.ErrNotFound)
	}
	var (
		s   stream.Stream
		err error
	)
	if p.useMmap {
		s, err = stream.OpenMapped(p.path)
	} else {
		s, err = stream.OpenFile(p.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", p, err)
	}
	p.stream = s
	p.openCount = 1
	return s, nil
}

// CloseStream releases one OpenStream. The last release closes the file.
func (p *Page) CloseStream() error {
	if p.openCount == 0 {
		return nil
	}
	p.openCount--
	if p.openCount > 0 {
		return nil
	}
	s := p.stream
	p.stream = nil
	return s.Close()
}

func (p *Page) forceCloseStream() error {
	if p.openCount == 0 {
		return nil
	}
	p.openCount = 1
	return p.CloseStream()
}

// withStream runs fn with the page stream open and restores the prior
// position afterwards, so a read already in progress is undisturbed.
func (p *Page) withStream(fn func(s stream.Stream) error) (err error) {
	s, err := p.OpenStream()
	if err != nil {
		return err
	}
	pos := s.Tell()
	defer func() {
		if _, serr := s.Seek(pos, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
		if cerr := p.CloseStream(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// LoadKeys reads the page index into catalogs. It is a no-op once loaded and
// refused for pages that failed verification. Placeholders handed out before
// the load are adopted as the real keys.
func (p *Page) LoadKeys() error {
	if p.keysLoaded {
		return nil
	}
	if p.status != StatusOK {
		return fmt.Errorf("load keys %s (%s): %w", p, p.status, types.ErrPageNotLoadable)
	}
	var groups []indexGroup
	err := p.withStream(func(s stream.Stream) error {
		if _, err := s.Seek(int64(p.indexStart), io.SeekStart); err != nil {
			return err
		}
		var err error
		groups, err = decodeIndex(s, p)
		return err
	})
	if err != nil {
		p.log.Error("page index unreadable", zap.String("page", p.String()), zap.Error(err))
		return err
	}

	n := 0
	for _, g := range groups {
		c := p.catalogFor(g.class, true)
		for _, k := range g.keys {
			k.catalog = c
		}
		c.static = g.keys
		c.flags = g.flags
		c.holes = false
		c.adoptPassive()
		n += len(g.keys)
	}
	p.keysLoaded = true
	if p.reg != nil {
		p.reg.metrics.KeysIndexed.Add(float64(n))
	}
	p.log.Debug("page keys loaded", zap.String("page", p.String()), zap.Int("keys", n))
	p.refreshActive()
	return nil
}

// UnloadKeys drops every catalog. Keys become detached; objects already
// handed out stay valid.
func (p *Page) UnloadKeys() {
	for _, c := range p.catalogs {
		c.detachAll()
	}
	p.catalogs = nil
	p.keysLoaded = !p.hasFile()
	p.refreshActive()
}

// IterateKeys visits every key of every catalog until fn returns false.
func (p *Page) IterateKeys(fn func(*Key) bool) bool {
	for _, c := range slices.Clone(p.catalogs) {
		if !c.Iterate(fn) {
			return false
		}
	}
	return true
}

// VerifyDigest recomputes the BLAKE3 digest of the data section and compares
// it with the header.
func (p *Page) VerifyDigest() (bool, error) {
	var sum [format.DigestSize]byte
	err := p.withStream(func(s stream.Stream) error {
		if _, err := s.Seek(int64(p.dataStart), io.SeekStart); err != nil {
			return err
		}
		h := blake3.New()
		if _, err := io.CopyN(h, s, int64(p.indexStart)-int64(p.dataStart)); err != nil {
			return err
		}
		copy(sum[:], h.Sum(nil))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("verify digest %s: %w", p, err)
	}
	return sum == p.digest, nil
}
