// Package stream provides the seekable byte streams pages are read from and
// written to, plus a little-endian codec for object payloads.
//
// Three backings exist:
//
//   - File wraps an *os.File and is used when writing pages or when mmap is
//     disabled.
//   - Memory is a growable in-memory buffer, used for scratch payloads and
//     tests.
//   - OpenMapped returns a read-only Memory over an mmap'd page file.
//
// Object payloads are read and written through Decoder and Encoder, which
// keep the first error and turn every later call into a no-op:
//
//	d := stream.NewDecoder(s)
//	count := d.U32()
//	name, _ := d.Name()
//	if err := d.Err(); err != nil {
//	    return err
//	}
package stream

import (
	"errors"
	"io"
)

// Stream is the file capability pages and objects are read through.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Tell returns the current absolute position.
	Tell() int64
	// Size returns the current length of the stream.
	Size() int64
	// AtEOF reports whether the position is at or past the end.
	AtEOF() bool
}

// ErrReadOnly is returned by writes to a read-only stream.
var ErrReadOnly = errors.New("stream: read-only")

// ErrClosed is returned by operations on a closed stream.
var ErrClosed = errors.New("stream: closed")

// Rewind seeks s back to the start.
func Rewind(s Stream) error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// ReadExact reads exactly len(p) bytes at the current position.
func ReadExact(s Stream, p []byte) error {
	_, err := io.ReadFull(s, p)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteExact writes all of p at the current position.
func WriteExact(s Stream, p []byte) error {
	n, err := s.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

func seekTarget(pos, size, offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = pos + offset
	case io.SeekEnd:
		abs = size + offset
	default:
		return 0, errors.New("stream: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("stream: negative position")
	}
	return abs, nil
}
