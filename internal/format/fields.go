package format

import "encoding/binary"

var le = binary.LittleEndian

// In-place access to fixed-width fields. Offsets come from the layout
// constants and are trusted: decoders check the buffer length once before
// reading fields.

func PutU16(b []byte, off int, v uint16) { le.PutUint16(b[off:], v) }
func PutU32(b []byte, off int, v uint32) { le.PutUint32(b[off:], v) }
func ReadU16(b []byte, off int) uint16   { return le.Uint16(b[off:]) }
func ReadU32(b []byte, off int) uint32   { return le.Uint32(b[off:]) }

// AppendClassVersion appends one class-version table entry.
func AppendClassVersion(out []byte, cv ClassVersion) []byte {
	out = le.AppendUint16(out, cv.Class)
	return le.AppendUint16(out, cv.Minor)
}

// AppendName appends an encoded name with its u16 length prefix.
func AppendName(out, encoded []byte) []byte {
	out = le.AppendUint16(out, uint16(len(encoded)))
	return append(out, encoded...)
}
