package printer

import (
	"encoding/hex"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/joshuapare/pagekit/registry"
)

// jsonPage represents a page in JSON format.
type jsonPage struct {
	Age        string        `json:"age"`
	Name       string        `json:"name"`
	Location   string        `json:"location"`
	Sequence   uint32        `json:"sequence"`
	Path       string        `json:"path,omitempty"`
	ID         string        `json:"id"`
	Status     string        `json:"status"`
	Major      uint32        `json:"major"`
	DataStart  uint32        `json:"data_start"`
	IndexStart uint32        `json:"index_start"`
	Size       int64         `json:"size"`
	Digest     string        `json:"digest"`
	Classes    []jsonCatalog `json:"classes,omitempty"`
}

// jsonCatalog represents the keys of one class.
type jsonCatalog struct {
	Class uint16    `json:"class"`
	Name  string    `json:"name"`
	Minor *uint16   `json:"minor,omitempty"`
	Keys  []jsonKey `json:"keys"`
}

// jsonKey represents a key in JSON format.
type jsonKey struct {
	Name     string `json:"name"`
	ObjectID uint32 `json:"object_id"`
	LoadMask uint8  `json:"load_mask"`
	Clone    string `json:"clone,omitempty"`
	Offset   uint32 `json:"offset,omitempty"`
	Length   uint32 `json:"length,omitempty"`
	State    string `json:"state,omitempty"`
	Refs     *int   `json:"refs,omitempty"`
}

func (p *Printer) buildPage(pg *registry.Page) jsonPage {
	digest := pg.Digest()
	out := jsonPage{
		Age:        pg.Age(),
		Name:       pg.Name(),
		Location:   pg.Location().String(),
		Sequence:   pg.Location().Sequence,
		Path:       pg.Path(),
		ID:         pg.ID().String(),
		Status:     pg.Status().String(),
		Major:      pg.Major(),
		DataStart:  pg.DataStart(),
		IndexStart: pg.IndexStart(),
		Size:       pg.Size(),
		Digest:     hex.EncodeToString(digest[:]),
	}
	if !p.opts.ShowKeys || !pg.KeysLoaded() {
		return out
	}
	for _, c := range pg.Catalogs() {
		jc := jsonCatalog{
			Class: uint16(c.Class()),
			Name:  p.className(c.Class()),
			Keys:  []jsonKey{},
		}
		if minor, ok := classMinor(pg, c.Class()); ok {
			jc.Minor = &minor
		}
		for _, k := range c.Sorted() {
			jc.Keys = append(jc.Keys, p.buildKey(k))
		}
		out.Classes = append(out.Classes, jc)
	}
	return out
}

func (p *Printer) buildKey(k *registry.Key) jsonKey {
	id := k.Uoid()
	jk := jsonKey{
		Name:     id.Name,
		ObjectID: id.ObjectID,
		LoadMask: uint8(id.LoadMask),
	}
	if id.IsClone() {
		jk.Clone = fmt.Sprintf("%d:%d", id.ClonePlayerID, id.CloneID)
	}
	if p.opts.ShowRecords {
		jk.Offset, jk.Length = k.Offset(), k.Length()
	}
	if p.opts.ShowState {
		refs := k.Refs()
		jk.State = k.State().String()
		jk.Refs = &refs
	}
	return jk
}

func (p *Printer) printPageJSON(pg *registry.Page) error {
	return p.writeJSON(p.buildPage(pg))
}

func (p *Printer) printPagesJSON(pages []*registry.Page) error {
	out := make([]jsonPage, 0, len(pages))
	for _, pg := range pages {
		out = append(out, p.buildPage(pg))
	}
	return p.writeJSON(out)
}

func (p *Printer) printKeyJSON(k *registry.Key) error {
	return p.writeJSON(p.buildKey(k))
}

func (p *Printer) writeJSON(v any) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.writer, "%s\n", data)
	return err
}
