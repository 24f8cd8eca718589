// Package format houses the low-level layout of page files: the fixed header,
// the class-version table and the index section. Higher layers read and write
// pages through these helpers so the byte layout lives in one place.
package format

// PageMagic is the four-byte signature at the start of every page file.
// Layout:
//
//	0x00  'P' 'G' 'K' 'T'
var PageMagic = []byte{'P', 'G', 'K', 'T'}

const (
	// MajorVersion is the page format major version written by this engine.
	// Pages with a greater major are too new to load; smaller ones are out of date.
	MajorVersion uint32 = 6

	// MaxNameLen bounds every length-prefixed name (u16 length field).
	MaxNameLen = 0xFFFF
)

// ============================================================================
// Page Header Constants
// ============================================================================
// Fixed header fields. The variable tail (age name, page name, class-version
// table) follows at FixedHeaderSize and ends exactly at DataStart.
const (
	MagicOffset       = 0x00 // [4]byte "PGKT"
	MagicSize         = 4
	MajorOffset       = 0x04 // u32
	ChecksumOffset    = 0x08 // u32, file size minus data start
	DataStartOffset   = 0x0C // u32, absolute offset of the data section
	IndexStartOffset  = 0x10 // u32, absolute offset of the index section
	LocSequenceOffset = 0x14 // u32
	LocFlagsOffset    = 0x18 // u16
	ClassCountOffset  = 0x1A // u16, entries in the class-version table
	PageIDOffset      = 0x1C // [16]byte UUID
	PageIDSize        = 16
	DigestOffset      = 0x2C // [32]byte BLAKE3-256 of the data section
	DigestSize        = 32

	// FixedHeaderSize is the size of the fixed portion of the header.
	FixedHeaderSize = DigestOffset + DigestSize // 0x4C

	// NameLenSize is the length prefix for every stored name.
	NameLenSize = 2

	// ClassVersionEntrySize is one (class u16, minor u16) table entry.
	ClassVersionEntrySize = 4
)

// ============================================================================
// Index Section Constants
// ============================================================================
const (
	// NameCountSize prefixes the index name table.
	NameCountSize = 4

	// GroupCountSize prefixes the list of class groups.
	GroupCountSize = 4

	// GroupHeaderSize is class u16 + flags u8 + key count u32.
	GroupHeaderSize = 7

	// KeyEntrySize is load mask u8 + object id u32 + name index u32 +
	// data offset u32 + data length u32.
	KeyEntrySize = 17

	// GroupFlagSorted marks a group whose keys were sorted by folded name at
	// export time, enabling binary search on the static subset.
	GroupFlagSorted = 0x01
)
