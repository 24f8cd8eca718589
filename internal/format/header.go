package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/pagekit/internal/buf"
)

// ClassVersion records the minor version a class was written with.
type ClassVersion struct {
	Class uint16
	Minor uint16
}

// Header is the decoded page header. The diagram below shows the fixed part;
// the variable tail holds the age and page names followed by the class-version
// table, and ends exactly at DataStart.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'P' 'G' 'K' 'T'
//	 0x004   4    Major version
//	 0x008   4    Checksum (file size - data start)
//	 0x00C   4    Data section start (absolute)
//	 0x010   4    Index section start (absolute)
//	 0x014   4    Location sequence number
//	 0x018   2    Location flags
//	 0x01A   2    Class-version table entries
//	 0x01C  16    Page id (UUID)
//	 0x02C  32    BLAKE3-256 digest of the data section
//	 0x04C   -    age name, page name, class-version table
type Header struct {
	Major         uint32
	Checksum      uint32
	DataStart     uint32
	IndexStart    uint32
	LocSequence   uint32
	LocFlags      uint16
	PageID        [PageIDSize]byte
	Digest        [DigestSize]byte
	Age           string
	Page          string
	ClassVersions []ClassVersion
}

// Size returns the encoded size of h, which is also the DataStart a writer
// must record for it.
func (h *Header) Size() (int, error) {
	age, err := EncodeName(h.Age)
	if err != nil {
		return 0, fmt.Errorf("page header age: %w", err)
	}
	page, err := EncodeName(h.Page)
	if err != nil {
		return 0, fmt.Errorf("page header name: %w", err)
	}
	return FixedHeaderSize + 2*NameLenSize + len(age) + len(page) +
		len(h.ClassVersions)*ClassVersionEntrySize, nil
}

// Encode serializes h. The caller is expected to have set DataStart to the
// value returned by Size.
func (h *Header) Encode() ([]byte, error) {
	if len(h.ClassVersions) > 0xFFFF {
		return nil, fmt.Errorf("page header: %d class versions: %w", len(h.ClassVersions), ErrBadLayout)
	}
	age, err := EncodeName(h.Age)
	if err != nil {
		return nil, fmt.Errorf("page header age: %w", err)
	}
	page, err := EncodeName(h.Page)
	if err != nil {
		return nil, fmt.Errorf("page header name: %w", err)
	}

	out := make([]byte, FixedHeaderSize, FixedHeaderSize+2*NameLenSize+len(age)+len(page)+
		len(h.ClassVersions)*ClassVersionEntrySize)
	copy(out[MagicOffset:], PageMagic)
	PutU32(out, MajorOffset, h.Major)
	PutU32(out, ChecksumOffset, h.Checksum)
	PutU32(out, DataStartOffset, h.DataStart)
	PutU32(out, IndexStartOffset, h.IndexStart)
	PutU32(out, LocSequenceOffset, h.LocSequence)
	PutU16(out, LocFlagsOffset, h.LocFlags)
	PutU16(out, ClassCountOffset, uint16(len(h.ClassVersions)))
	copy(out[PageIDOffset:], h.PageID[:])
	copy(out[DigestOffset:], h.Digest[:])

	out = AppendName(out, age)
	out = AppendName(out, page)
	for _, cv := range h.ClassVersions {
		out = AppendClassVersion(out, cv)
	}
	return out, nil
}

// HeaderLen validates the fixed portion of a header and returns the full
// header length (its DataStart). Readers use it to learn how many bytes to
// read before calling ParseHeader.
func HeaderLen(b []byte) (int, error) {
	if len(b) < FixedHeaderSize {
		return 0, fmt.Errorf("page header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:MagicSize], PageMagic) {
		return 0, fmt.Errorf("page header: %w", ErrSignatureMismatch)
	}
	dataStart := int(ReadU32(b, DataStartOffset))
	if dataStart < FixedHeaderSize {
		return 0, fmt.Errorf("page header: data start 0x%X: %w", dataStart, ErrBadLayout)
	}
	return dataStart, nil
}

// ParseHeader decodes a complete header. b must hold at least DataStart bytes.
func ParseHeader(b []byte) (Header, error) {
	end, err := HeaderLen(b)
	if err != nil {
		return Header{}, err
	}
	if len(b) < end {
		return Header{}, fmt.Errorf("page header tail: %w", ErrTruncated)
	}

	h := Header{
		Major:       ReadU32(b, MajorOffset),
		Checksum:    ReadU32(b, ChecksumOffset),
		DataStart:   ReadU32(b, DataStartOffset),
		IndexStart:  ReadU32(b, IndexStartOffset),
		LocSequence: ReadU32(b, LocSequenceOffset),
		LocFlags:    ReadU16(b, LocFlagsOffset),
	}
	copy(h.PageID[:], b[PageIDOffset:PageIDOffset+PageIDSize])
	copy(h.Digest[:], b[DigestOffset:DigestOffset+DigestSize])
	if h.IndexStart < h.DataStart {
		return Header{}, fmt.Errorf("page header: index 0x%X before data 0x%X: %w",
			h.IndexStart, h.DataStart, ErrBadLayout)
	}

	tail := b[FixedHeaderSize:end]
	pos := 0
	if h.Age, pos, err = readName(tail, pos); err != nil {
		return Header{}, fmt.Errorf("page header age: %w", err)
	}
	if h.Page, pos, err = readName(tail, pos); err != nil {
		return Header{}, fmt.Errorf("page header name: %w", err)
	}

	count := int(ReadU16(b, ClassCountOffset))
	if _, err := buf.CheckListBounds(len(tail), pos, count, ClassVersionEntrySize); err != nil {
		return Header{}, fmt.Errorf("page header class table: %w", err)
	}
	h.ClassVersions = make([]ClassVersion, count)
	for i := range h.ClassVersions {
		h.ClassVersions[i] = ClassVersion{
			Class: ReadU16(tail, pos),
			Minor: ReadU16(tail, pos+2),
		}
		pos += ClassVersionEntrySize
	}
	return h, nil
}

func readName(b []byte, pos int) (string, int, error) {
	n16, ok := buf.U16At(b, pos)
	if !ok {
		return "", pos, ErrTruncated
	}
	n := int(n16)
	data, ok := buf.Slice(b, pos+NameLenSize, n)
	if !ok {
		return "", pos, ErrTruncated
	}
	name, err := DecodeName(data)
	if err != nil {
		return "", pos, err
	}
	return name, pos + NameLenSize + n, nil
}
