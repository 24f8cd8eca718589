// Package buf contains bounds and endian helpers shared by the page decoders.
package buf

import "encoding/binary"

// U16At reads the little-endian uint16 at off. ok is false when the value
// does not fit inside b.
func U16At(b []byte, off int) (v uint16, ok bool) {
	s, ok := Slice(b, off, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(s), true
}

// U32At reads the little-endian uint32 at off. ok is false when the value
// does not fit inside b.
func U32At(b []byte, off int) (v uint32, ok bool) {
	s, ok := Slice(b, off, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(s), true
}
