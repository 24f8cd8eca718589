package stream

import (
	"fmt"
	"io"
	"os"
)

// File is a Stream backed by an *os.File. The position and size are tracked
// locally so Tell and AtEOF never touch the file descriptor.
type File struct {
	f        *os.File
	pos      int64
	size     int64
	readOnly bool
}

// OpenFile opens path for reading.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &File{f: f, size: info.Size(), readOnly: true}, nil
}

// WrapFile adopts an already-open read/write file, positioned at its start.
// Closing the stream closes f.
func WrapFile(f *os.File) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &File{f: f, size: info.Size()}, nil
}

func (s *File) Read(p []byte) (int, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	n, err := s.f.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *File) Write(p []byte) (int, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	if s.readOnly {
		return 0, ErrReadOnly
	}
	n, err := s.f.Write(p)
	s.pos += int64(n)
	if s.pos > s.size {
		s.size = s.pos
	}
	return n, err
}

func (s *File) Seek(offset int64, whence int) (int64, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	abs, err := seekTarget(s.pos, s.size, offset, whence)
	if err != nil {
		return s.pos, err
	}
	if _, err := s.f.Seek(abs, io.SeekStart); err != nil {
		return s.pos, err
	}
	s.pos = abs
	return abs, nil
}

// Truncate resizes the file, clamping the position to the new size.
func (s *File) Truncate(size int64) error {
	if s.f == nil {
		return ErrClosed
	}
	if s.readOnly {
		return ErrReadOnly
	}
	if err := s.f.Truncate(size); err != nil {
		return err
	}
	s.size = size
	if s.pos > size {
		_, err := s.Seek(size, io.SeekStart)
		return err
	}
	return nil
}

func (s *File) Tell() int64 { return s.pos }
func (s *File) Size() int64 { return s.size }
func (s *File) AtEOF() bool { return s.pos >= s.size }

// Close closes the underlying file. Calling Close twice is a no-op.
func (s *File) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
