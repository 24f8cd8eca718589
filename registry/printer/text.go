package printer

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/pagekit/registry"
)

// printPageText prints a page in human-readable text format.
func (p *Printer) printPageText(pg *registry.Page, depth int) error {
	indent := strings.Repeat(" ", depth*p.opts.IndentSize)
	inner := indent + strings.Repeat(" ", p.opts.IndentSize)

	if _, err := fmt.Fprintf(p.writer, "%s[%s|%s] %s\n", indent, pg.Age(), pg.Name(), pg.Location()); err != nil {
		return err
	}
	fmt.Fprintf(p.writer, "%sStatus: %s\n", inner, pg.Status())
	if pg.Path() != "" {
		fmt.Fprintf(p.writer, "%sPath: %s\n", inner, pg.Path())
	}
	fmt.Fprintf(p.writer, "%sID: %s\n", inner, pg.ID())
	fmt.Fprintf(p.writer, "%sMajor: %d, Data: 0x%X, Index: 0x%X, Size: %d\n",
		inner, pg.Major(), pg.DataStart(), pg.IndexStart(), pg.Size())
	digest := pg.Digest()
	fmt.Fprintf(p.writer, "%sDigest: %s\n", inner, hex.EncodeToString(digest[:]))

	if !p.opts.ShowKeys || !pg.KeysLoaded() {
		return nil
	}
	for _, c := range pg.Catalogs() {
		fmt.Fprintf(p.writer, "%sClass %s", inner, p.className(c.Class()))
		if minor, ok := classMinor(pg, c.Class()); ok {
			fmt.Fprintf(p.writer, " (v%d)", minor)
		}
		fmt.Fprintf(p.writer, ": %d keys\n", c.Len())
		for _, k := range c.Sorted() {
			if err := p.printKeyText(k, depth+2); err != nil {
				return err
			}
		}
	}
	return nil
}

// printKeyText prints a key on one line.
func (p *Printer) printKeyText(k *registry.Key, depth int) error {
	indent := strings.Repeat(" ", depth*p.opts.IndentSize)
	id := k.Uoid()

	var b strings.Builder
	fmt.Fprintf(&b, "%s%q #%d", indent, id.Name, id.ObjectID)
	if id.IsClone() {
		fmt.Fprintf(&b, " clone %d:%d", id.ClonePlayerID, id.CloneID)
	}
	if p.opts.ShowRecords {
		fmt.Fprintf(&b, " @0x%X+%d", k.Offset(), k.Length())
	}
	if p.opts.ShowState {
		fmt.Fprintf(&b, " [%s refs=%d]", k.State(), k.Refs())
	}
	b.WriteByte('\n')
	_, err := io.WriteString(p.writer, b.String())
	return err
}
