package uoid

import (
	"fmt"
	"strings"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/registry/stream"
)

// ClassTag identifies the concrete type of an object.
type ClassTag uint16

// NilClass is the reserved tag meaning "no object".
const NilClass ClassTag = 0x8000

// LoadMask selects which build variants materialize an object. An object
// loads iff its mask and the registry's mask share a bit.
type LoadMask uint8

// Always loads under every registry mask.
const Always LoadMask = 0xFF

// Loads reports whether an object with mask m loads under registry mask r.
func (m LoadMask) Loads(r LoadMask) bool { return m&r != 0 }

const (
	contentsCloneIDs = 1 << 0
	contentsLoadMask = 1 << 1
)

// Uoid is the stable identifier of one object.
type Uoid struct {
	Location      Location
	LoadMask      LoadMask
	Class         ClassTag
	ObjectID      uint32 // export-time index within the class group, 1-based
	Name          string
	CloneID       uint32
	ClonePlayerID uint32
}

// IsClone reports whether u names a clone.
func (u Uoid) IsClone() bool { return u.CloneID != 0 }

// Original returns u with the clone fields cleared.
func (u Uoid) Original() Uoid {
	u.CloneID = 0
	u.ClonePlayerID = 0
	return u
}

// CloneFor returns the identifier of u's clone for (owner, instance).
func (u Uoid) CloneFor(owner, instance uint32) Uoid {
	u.ClonePlayerID = owner
	u.CloneID = instance
	return u
}

// IsValid reports whether u names anything.
func (u Uoid) IsValid() bool { return u.Location.IsValid() && u.Class != NilClass }

// Fold returns the case-folded name used for comparisons.
func (u Uoid) Fold() string { return format.FoldName(u.Name) }

// Equal compares location, class, case-folded name and clone ids. The load
// mask and object id are not part of identity.
func (u Uoid) Equal(o Uoid) bool {
	if !u.Location.Equal(o.Location) || u.Class != o.Class ||
		u.CloneID != o.CloneID || u.ClonePlayerID != o.ClonePlayerID {
		return false
	}
	if u.Name == o.Name {
		return true
	}
	return strings.EqualFold(u.Name, o.Name) || u.Fold() == o.Fold()
}

func (u Uoid) String() string {
	if u.IsClone() {
		return fmt.Sprintf("%s;%s;0x%04X;%s;clone(%d,%d)",
			u.Name, u.Location, uint16(u.Class), u.objIDString(), u.ClonePlayerID, u.CloneID)
	}
	return fmt.Sprintf("%s;%s;0x%04X;%s", u.Name, u.Location, uint16(u.Class), u.objIDString())
}

func (u Uoid) objIDString() string {
	if u.ObjectID == 0 {
		return "-"
	}
	return fmt.Sprintf("#%d", u.ObjectID)
}

// Encode writes u in its binary form. The load mask is written only when it
// is not Always; clone ids only for clones.
func (u Uoid) Encode(e *stream.Encoder) {
	var contents uint8
	if u.IsClone() {
		contents |= contentsCloneIDs
	}
	if u.LoadMask != Always {
		contents |= contentsLoadMask
	}
	e.U8(contents)
	u.Location.Encode(e)
	if contents&contentsLoadMask != 0 {
		e.U8(uint8(u.LoadMask))
	}
	e.U16(uint16(u.Class))
	e.U32(u.ObjectID)
	e.Name(u.Name)
	if contents&contentsCloneIDs != 0 {
		e.U32(u.CloneID)
		e.U32(u.ClonePlayerID)
	}
}

// Decode reads an identifier written by Encode.
func (u *Uoid) Decode(d *stream.Decoder) {
	contents := d.U8()
	u.Location.Decode(d)
	u.LoadMask = Always
	if contents&contentsLoadMask != 0 {
		u.LoadMask = LoadMask(d.U8())
	}
	u.Class = ClassTag(d.U16())
	u.ObjectID = d.U32()
	u.Name, _ = d.Name()
	u.CloneID, u.ClonePlayerID = 0, 0
	if contents&contentsCloneIDs != 0 {
		u.CloneID = d.U32()
		u.ClonePlayerID = d.U32()
	}
}
