// Package printer dumps pages and their key catalogs as text or JSON.
package printer

import (
	"fmt"
	"io"

	"github.com/joshuapare/pagekit/registry"
	"github.com/joshuapare/pagekit/registry/uoid"
)

const DefaultIndentSize = 2

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs JSON format.
	FormatJSON Format = "json"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// IndentSize is the number of spaces per indent level (text format only).
	// Default: 2
	IndentSize int

	// ShowKeys lists the keys of every catalog. The page index is read when
	// needed; pages that failed verification are printed without keys.
	// Default: true
	ShowKeys bool

	// ShowRecords includes record offsets and lengths.
	// Default: false
	ShowRecords bool

	// ShowState includes load state and reference counts.
	// Default: false
	ShowState bool

	// ClassNames labels class tags in the output.
	ClassNames map[uoid.ClassTag]string
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:     FormatText,
		IndentSize: DefaultIndentSize,
		ShowKeys:   true,
	}
}

// Printer handles formatted output of pages.
type Printer struct {
	opts   Options
	writer io.Writer
}

// New creates a Printer writing to w.
//
// Example:
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	p.PrintRegistry(reg)
func New(w io.Writer, opts Options) *Printer {
	if opts.IndentSize <= 0 {
		opts.IndentSize = DefaultIndentSize
	}
	return &Printer{writer: w, opts: opts}
}

// PrintPage prints one page header and, with ShowKeys, its catalogs.
func (p *Printer) PrintPage(pg *registry.Page) error {
	if err := p.prepare(pg); err != nil {
		return err
	}
	switch p.opts.Format {
	case FormatJSON:
		return p.printPageJSON(pg)
	default:
		return p.printPageText(pg, 0)
	}
}

// PrintRegistry prints every registered page in registration order.
func (p *Printer) PrintRegistry(r *registry.Registry) error {
	pages := r.Pages()
	for _, pg := range pages {
		if err := p.prepare(pg); err != nil {
			return err
		}
	}
	switch p.opts.Format {
	case FormatJSON:
		return p.printPagesJSON(pages)
	default:
		for _, pg := range pages {
			if err := p.printPageText(pg, 0); err != nil {
				return err
			}
		}
		return nil
	}
}

// PrintKey prints a single key.
func (p *Printer) PrintKey(k *registry.Key) error {
	switch p.opts.Format {
	case FormatJSON:
		return p.printKeyJSON(k)
	default:
		return p.printKeyText(k, 0)
	}
}

func (p *Printer) prepare(pg *registry.Page) error {
	if !p.opts.ShowKeys || pg.Status() != registry.StatusOK {
		return nil
	}
	if err := pg.LoadKeys(); err != nil {
		return fmt.Errorf("print %s: %w", pg, err)
	}
	return nil
}

func (p *Printer) className(c uoid.ClassTag) string {
	if name, ok := p.opts.ClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}

// classMinor returns the minor version the page recorded for c.
func classMinor(pg *registry.Page, c uoid.ClassTag) (uint16, bool) {
	for _, cv := range pg.ClassVersions() {
		if uoid.ClassTag(cv.Class) == c {
			return cv.Minor, true
		}
	}
	return 0, false
}
