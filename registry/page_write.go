package registry

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/internal/writer"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/stream"
)

// Write exports the page to path and makes that file the page's backing
// store.
//
// Every catalog is prepared for export (dynamic keys promoted, sorted, ids
// assigned), then payloads are written in index order: live objects through
// WritePayload, unloaded ones copied raw from the current file, everything
// else as an empty record. The header is written last, once the index offset
// and data digest are known, and the file is committed by rename.
func (p *Page) Write(path string, r *Registry) (err error) {
	if r == nil {
		return fmt.Errorf("write %s: %w", p, types.ErrDetached)
	}
	if p.openCount > 0 {
		return fmt.Errorf("write %s: %w", p, types.ErrPageBusy)
	}
	if err := p.LoadKeys(); err != nil {
		return err
	}
	for _, c := range p.catalogs {
		if c.Locked() {
			return fmt.Errorf("write %s: catalog 0x%04X is being iterated: %w",
				p, uint16(c.class), types.ErrPageBusy)
		}
	}

	var cats []*Catalog
	for _, c := range p.catalogs {
		c.PrepForWrite()
		if len(c.static) > 0 {
			cats = append(cats, c)
		}
	}

	hdr := format.Header{
		Major:       format.MajorVersion,
		LocSequence: p.loc.Sequence,
		LocFlags:    uint16(p.loc.Flags),
		PageID:      [format.PageIDSize]byte(p.id),
		Age:         p.age,
		Page:        p.name,
	}
	for _, c := range cats {
		hdr.ClassVersions = append(hdr.ClassVersions, format.ClassVersion{
			Class: uint16(c.class),
			Minor: r.factory.ClassVersion(c.class),
		})
	}
	hdrSize, err := hdr.Size()
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	hdr.DataStart = uint32(hdrSize)

	af, err := writer.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	defer func() {
		if err != nil {
			af.Abort()
		}
	}()
	out, err := stream.WrapFile(af.File())
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := stream.WriteExact(out, make([]byte, hdrSize)); err != nil {
		return fmt.Errorf("write %s header placeholder: %w", p, err)
	}

	var src stream.Stream
	if p.hasFile() {
		if src, err = p.OpenStream(); err != nil {
			return err
		}
		defer p.CloseStream()
	}

	spans := make(map[*Key]span)
	for _, c := range cats {
		for _, k := range c.static {
			start := out.Tell()
			switch {
			case k.state == Loaded && k.obj != nil:
				if err := k.obj.WritePayload(out, r); err != nil {
					return fmt.Errorf("write %s object %s: %w", p, k.id, err)
				}
			case src != nil && k.length > 0:
				if err := p.copyRecord(src, out, k); err != nil {
					return err
				}
			}
			end := out.Tell()
			if end > math.MaxUint32 {
				return fmt.Errorf("write %s: data section exceeds 4GiB: %w", p, format.ErrBadLayout)
			}
			spans[k] = span{offset: uint32(start), length: uint32(end - start)}
		}
	}

	indexStart := out.Tell()
	enc := stream.NewEncoder(out)
	encodeIndex(enc, cats, spans)
	if err := enc.Err(); err != nil {
		return fmt.Errorf("write %s index: %w", p, err)
	}
	size := out.Tell()
	if size > math.MaxUint32 {
		return fmt.Errorf("write %s: page exceeds 4GiB: %w", p, format.ErrBadLayout)
	}

	if _, err := out.Seek(int64(hdr.DataStart), io.SeekStart); err != nil {
		return err
	}
	h := blake3.New()
	if _, err := io.CopyN(h, out, indexStart-int64(hdr.DataStart)); err != nil {
		return fmt.Errorf("write %s digest: %w", p, err)
	}
	copy(hdr.Digest[:], h.Sum(nil))
	hdr.IndexStart = uint32(indexStart)
	hdr.Checksum = uint32(size - int64(hdr.DataStart))

	raw, err := hdr.Encode()
	if err != nil {
		return fmt.Errorf("write %s header: %w", p, err)
	}
	if err := stream.Rewind(out); err != nil {
		return err
	}
	if err := stream.WriteExact(out, raw); err != nil {
		return fmt.Errorf("write %s header: %w", p, err)
	}
	if err := af.Commit(); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	for k, sp := range spans {
		k.offset, k.length = sp.offset, sp.length
		for _, c := range k.clones {
			c.offset, c.length = sp.offset, sp.length
			c.id.ObjectID = k.id.ObjectID
		}
	}
	p.path = path
	p.size = size
	p.major = hdr.Major
	p.classVersions = hdr.ClassVersions
	p.checksum = hdr.Checksum
	p.dataStart = hdr.DataStart
	p.indexStart = hdr.IndexStart
	p.digest = hdr.Digest
	p.status = StatusOK
	p.keysLoaded = true

	r.metrics.PageWrites.Inc()
	r.metrics.PageWriteBytes.Observe(float64(size))
	r.log.Info("page written",
		zap.String("page", p.String()),
		zap.String("path", path),
		zap.Int64("size", size),
		zap.Int("keys", len(spans)))
	return nil
}

// copyRecord copies k's payload bytes from the current file. A record whose
// range falls outside the data section is written empty.
func (p *Page) copyRecord(src, out stream.Stream, k *Key) error {
	if err := buf.CheckRange(int64(p.dataStart), int64(p.indexStart), int64(k.offset), int64(k.length)); err != nil {
		p.log.Warn("dropping unreadable record on write",
			zap.String("key", k.id.String()), zap.Error(err))
		return nil
	}
	if _, err := src.Seek(int64(k.offset), io.SeekStart); err != nil {
		return err
	}
	if _, err := io.CopyN(out, src, int64(k.length)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("copy record %s: %w", k.id, err)
	}
	return nil
}
