package registry

import (
	"fmt"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// Index section layout, starting at the header's IndexStart:
//
//	u32   name count
//	      names (u16 length + Windows-1252 bytes)
//	u32   group count
//	      per group: class u16, flags u8, key count u32,
//	      keys × (load mask u8, object id u32, name index u32,
//	              data offset u32, data length u32)

type indexName struct {
	name string
	fold string
}

type indexGroup struct {
	class uoid.ClassTag
	flags uint8
	keys  []*Key
}

type span struct {
	offset uint32
	length uint32
}

func corruptIndex(p *Page, err error) error {
	return fmt.Errorf("%w: %s index: %w", types.ErrCorrupt, p.path, err)
}

// decodeIndex reads the index at the current position of s. Every count is
// checked against the bytes left in the file before anything is allocated.
func decodeIndex(s stream.Stream, p *Page) ([]indexGroup, error) {
	d := stream.NewDecoder(s)
	remaining := func() int { return int(s.Size() - s.Tell()) }

	nameCount := d.U32()
	if err := d.Err(); err != nil {
		return nil, corruptIndex(p, err)
	}
	if _, err := buf.CheckListBounds(remaining(), 0, int(nameCount), format.NameLenSize); err != nil {
		return nil, corruptIndex(p, fmt.Errorf("name table: %w", err))
	}
	names := make([]indexName, nameCount)
	for i := range names {
		names[i].name, names[i].fold = d.Name()
	}

	groupCount := d.U32()
	if err := d.Err(); err != nil {
		return nil, corruptIndex(p, err)
	}
	if _, err := buf.CheckListBounds(remaining(), 0, int(groupCount), format.GroupHeaderSize); err != nil {
		return nil, corruptIndex(p, fmt.Errorf("groups: %w", err))
	}

	groups := make([]indexGroup, 0, groupCount)
	for range groupCount {
		g := indexGroup{class: uoid.ClassTag(d.U16()), flags: d.U8()}
		count := d.U32()
		if err := d.Err(); err != nil {
			return nil, corruptIndex(p, err)
		}
		if _, err := buf.CheckListBounds(remaining(), 0, int(count), format.KeyEntrySize); err != nil {
			return nil, corruptIndex(p, fmt.Errorf("class 0x%04X keys: %w", uint16(g.class), err))
		}
		g.keys = make([]*Key, count)
		for i := range g.keys {
			mask := uoid.LoadMask(d.U8())
			objID := d.U32()
			nameIdx := d.U32()
			off, length := d.U32(), d.U32()
			if d.Err() != nil {
				break
			}
			if int(nameIdx) >= len(names) {
				return nil, corruptIndex(p, fmt.Errorf("name index %d of %d", nameIdx, len(names)))
			}
			k := newKey(uoid.Uoid{
				Location: p.loc,
				LoadMask: mask,
				Class:    g.class,
				ObjectID: objID,
				Name:     names[nameIdx].name,
			}, p.reg)
			k.fold = names[nameIdx].fold
			k.offset, k.length = off, length
			k.static = true
			k.slot = i
			g.keys[i] = k
		}
		groups = append(groups, g)
	}
	if err := d.Err(); err != nil {
		return nil, corruptIndex(p, err)
	}
	return groups, nil
}

// encodeIndex writes the static keys of cats with the record spans assigned
// during the write.
func encodeIndex(e *stream.Encoder, cats []*Catalog, spans map[*Key]span) {
	var names []string
	nameIdx := make(map[string]uint32)
	groups := 0
	for _, c := range cats {
		if len(c.static) == 0 {
			continue
		}
		groups++
		for _, k := range c.static {
			if _, ok := nameIdx[k.id.Name]; !ok {
				nameIdx[k.id.Name] = uint32(len(names))
				names = append(names, k.id.Name)
			}
		}
	}

	e.U32(uint32(len(names)))
	for _, n := range names {
		e.Name(n)
	}
	e.U32(uint32(groups))
	for _, c := range cats {
		if len(c.static) == 0 {
			continue
		}
		e.U16(uint16(c.class))
		e.U8(c.flags)
		e.U32(uint32(len(c.static)))
		for _, k := range c.static {
			sp := spans[k]
			e.U8(uint8(k.id.LoadMask))
			e.U32(k.id.ObjectID)
			e.U32(nameIdx[k.id.Name])
			e.U32(sp.offset)
			e.U32(sp.length)
		}
	}
}
