package uoid

import (
	"fmt"

	"github.com/joshuapare/pagekit/registry/stream"
)

// LocFlags describe how a page behaves.
type LocFlags uint16

const (
	LocalOnly LocFlags = 1 << iota // never shared with other clients
	Volatile                       // may change between sessions
	Reserved                       // engine-owned sequence range
	BuiltIn                        // shipped with the engine
	Itinerant                      // travels with its owner; ignored by Equal
)

// Location addresses one page.
type Location struct {
	Sequence uint32
	Flags    LocFlags
}

var (
	// GlobalFixed is the always-resident page. It is never paged out.
	GlobalFixed = Location{Sequence: 0}
	// Invalid marks an unset location.
	Invalid = Location{Sequence: 0xFFFFFFFF}
)

// IsValid reports whether l is not the Invalid sentinel.
func (l Location) IsValid() bool { return l.Sequence != Invalid.Sequence }

// IsGlobalFixed reports whether l is the always-resident page.
func (l Location) IsGlobalFixed() bool { return l.Sequence == GlobalFixed.Sequence }

// Has reports whether every bit of f is set.
func (l Location) Has(f LocFlags) bool { return l.Flags&f == f }

// Equal compares sequence and flags, ignoring Itinerant.
func (l Location) Equal(o Location) bool {
	return l.Sequence == o.Sequence && l.Flags&^Itinerant == o.Flags&^Itinerant
}

// Compare orders locations by raw sequence, then by flags.
func (l Location) Compare(o Location) int {
	switch {
	case l.Sequence < o.Sequence:
		return -1
	case l.Sequence > o.Sequence:
		return 1
	}
	lf, of := l.Flags&^Itinerant, o.Flags&^Itinerant
	switch {
	case lf < of:
		return -1
	case lf > of:
		return 1
	}
	return 0
}

func (l Location) String() string {
	if !l.IsValid() {
		return "loc(invalid)"
	}
	if l.Flags == 0 {
		return fmt.Sprintf("loc(%d)", l.Sequence)
	}
	return fmt.Sprintf("loc(%d,0x%X)", l.Sequence, uint16(l.Flags))
}

// Encode writes the sequence and flags.
func (l Location) Encode(e *stream.Encoder) {
	e.U32(l.Sequence)
	e.U16(uint16(l.Flags))
}

// Decode reads a location written by Encode.
func (l *Location) Decode(d *stream.Decoder) {
	l.Sequence = d.U32()
	l.Flags = LocFlags(d.U16())
}
