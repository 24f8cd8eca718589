package verify

import (
	"bytes"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/internal/format"
)

// ValidationError describes one failed check.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants runs every check and returns the first failure.
func AllInvariants(data []byte) error {
	if err := PageHeader(data); err != nil {
		return err
	}
	if err := Checksum(data); err != nil {
		return err
	}
	if err := IndexStructure(data); err != nil {
		return err
	}
	return Digest(data)
}

// PageHeader validates the fixed header and the section offsets.
func PageHeader(data []byte) error {
	if len(data) < format.FixedHeaderSize {
		return &ValidationError{
			Type:    "PageHeader",
			Message: fmt.Sprintf("file too small: %d bytes (need %d)", len(data), format.FixedHeaderSize),
			Offset:  -1,
		}
	}
	if !bytes.Equal(data[:format.MagicSize], format.PageMagic) {
		return &ValidationError{
			Type:    "PageHeader",
			Message: fmt.Sprintf("invalid magic: got %q, expected %q", data[:format.MagicSize], format.PageMagic),
			Offset:  format.MagicOffset,
		}
	}
	if major := format.ReadU32(data, format.MajorOffset); major != format.MajorVersion {
		return &ValidationError{
			Type:    "PageHeader",
			Message: fmt.Sprintf("unexpected major version: %d (expected %d)", major, format.MajorVersion),
			Offset:  format.MajorOffset,
		}
	}

	dataStart := int(format.ReadU32(data, format.DataStartOffset))
	indexStart := int(format.ReadU32(data, format.IndexStartOffset))
	if dataStart < format.FixedHeaderSize || dataStart > len(data) {
		return &ValidationError{
			Type:    "PageHeader",
			Message: fmt.Sprintf("data start 0x%X outside [0x%X, 0x%X]", dataStart, format.FixedHeaderSize, len(data)),
			Offset:  format.DataStartOffset,
		}
	}
	if indexStart < dataStart || indexStart > len(data) {
		return &ValidationError{
			Type:    "PageHeader",
			Message: fmt.Sprintf("index start 0x%X outside [0x%X, 0x%X]", indexStart, dataStart, len(data)),
			Offset:  format.IndexStartOffset,
		}
	}
	if _, err := format.ParseHeader(data); err != nil {
		return &ValidationError{
			Type:    "PageHeader",
			Message: err.Error(),
			Offset:  format.FixedHeaderSize,
		}
	}
	return nil
}

// Checksum validates that the stored checksum equals the file size minus
// the data start.
func Checksum(data []byte) error {
	if len(data) < format.FixedHeaderSize {
		return &ValidationError{Type: "Checksum", Message: "file too small", Offset: -1}
	}
	stored := format.ReadU32(data, format.ChecksumOffset)
	dataStart := format.ReadU32(data, format.DataStartOffset)
	calculated := uint32(len(data)) - dataStart
	if int(dataStart) > len(data) || stored != calculated {
		return &ValidationError{
			Type:    "Checksum",
			Message: fmt.Sprintf("checksum mismatch: stored=0x%08X calculated=0x%08X", stored, calculated),
			Offset:  format.ChecksumOffset,
			Details: map[string]any{
				"stored":     stored,
				"calculated": calculated,
			},
		}
	}
	return nil
}

// Digest validates the BLAKE3-256 digest of the data section.
func Digest(data []byte) error {
	if err := PageHeader(data); err != nil {
		return err
	}
	dataStart := format.ReadU32(data, format.DataStartOffset)
	indexStart := format.ReadU32(data, format.IndexStartOffset)
	sum := blake3.Sum256(data[dataStart:indexStart])
	if !bytes.Equal(sum[:], data[format.DigestOffset:format.DigestOffset+format.DigestSize]) {
		return &ValidationError{
			Type:    "Digest",
			Message: "data section digest mismatch",
			Offset:  format.DigestOffset,
			Details: map[string]any{"calculated": sum},
		}
	}
	return nil
}

// IndexStructure walks the index section and validates every count, name
// reference and record range. Groups flagged sorted must be in strictly
// ascending folded-name order.
func IndexStructure(data []byte) error {
	if err := PageHeader(data); err != nil {
		return err
	}
	dataStart := int(format.ReadU32(data, format.DataStartOffset))
	indexStart := int(format.ReadU32(data, format.IndexStartOffset))

	w := walker{data: data, pos: indexStart}
	nameCount, ok := w.u32()
	if !ok {
		return w.fail("truncated name count")
	}
	if _, err := buf.CheckListBounds(len(data), w.pos, int(nameCount), format.NameLenSize); err != nil {
		return w.fail(fmt.Sprintf("name table: %v", err))
	}
	folds := make([]string, nameCount)
	for i := range folds {
		n, ok := w.u16()
		if !ok {
			return w.fail("truncated name length")
		}
		raw, ok := buf.Slice(data, w.pos, int(n))
		if !ok {
			return w.fail(fmt.Sprintf("name %d runs past end of file", i))
		}
		name, err := format.DecodeName(raw)
		if err != nil {
			return w.fail(err.Error())
		}
		folds[i] = format.FoldName(name)
		w.pos += int(n)
	}

	groupCount, ok := w.u32()
	if !ok {
		return w.fail("truncated group count")
	}
	if _, err := buf.CheckListBounds(len(data), w.pos, int(groupCount), format.GroupHeaderSize); err != nil {
		return w.fail(fmt.Sprintf("groups: %v", err))
	}
	for g := 0; g < int(groupCount); g++ {
		groupPos := w.pos
		class, _ := w.u16()
		flags, _ := w.u8()
		count, _ := w.u32()
		if _, err := buf.CheckListBounds(len(data), w.pos, int(count), format.KeyEntrySize); err != nil {
			return &ValidationError{
				Type:    "IndexStructure",
				Message: fmt.Sprintf("class 0x%04X: %v", class, err),
				Offset:  groupPos,
			}
		}
		prev := ""
		for i := 0; i < int(count); i++ {
			entry := w.pos
			w.pos++ // load mask
			w.pos += 4
			nameIdx, _ := w.u32()
			off, _ := w.u32()
			length, _ := w.u32()
			if int(nameIdx) >= len(folds) {
				return &ValidationError{
					Type:    "IndexStructure",
					Message: fmt.Sprintf("name index %d of %d", nameIdx, len(folds)),
					Offset:  entry,
				}
			}
			if err := buf.CheckRange(int64(dataStart), int64(indexStart), int64(off), int64(length)); err != nil {
				return &ValidationError{
					Type:    "IndexStructure",
					Message: fmt.Sprintf("record outside data section: %v", err),
					Offset:  entry,
					Details: map[string]any{"offset": off, "length": length},
				}
			}
			fold := folds[nameIdx]
			if flags&format.GroupFlagSorted != 0 && i > 0 && fold <= prev {
				return &ValidationError{
					Type:    "IndexStructure",
					Message: fmt.Sprintf("class 0x%04X not sorted: %q after %q", class, fold, prev),
					Offset:  entry,
				}
			}
			prev = fold
		}
	}
	if w.pos != len(data) {
		return &ValidationError{
			Type:    "IndexStructure",
			Message: fmt.Sprintf("%d trailing bytes after index", len(data)-w.pos),
			Offset:  w.pos,
		}
	}
	return nil
}

type walker struct {
	data []byte
	pos  int
}

func (w *walker) u8() (uint8, bool) {
	if w.pos >= len(w.data) {
		return 0, false
	}
	v := w.data[w.pos]
	w.pos++
	return v, true
}

func (w *walker) u16() (uint16, bool) {
	v, ok := buf.U16At(w.data, w.pos)
	if ok {
		w.pos += 2
	}
	return v, ok
}

func (w *walker) u32() (uint32, bool) {
	v, ok := buf.U32At(w.data, w.pos)
	if ok {
		w.pos += 4
	}
	return v, ok
}

func (w *walker) fail(msg string) error {
	return &ValidationError{Type: "IndexStructure", Message: msg, Offset: w.pos}
}
