package stream

import (
	"io"

	"github.com/joshuapare/pagekit/internal/mmfile"
)

// Memory is a Stream over a byte slice. Writable memory streams grow as
// needed; mapped ones are read-only and release their mapping on Close.
type Memory struct {
	data     []byte
	pos      int64
	readOnly bool
	region   *mmfile.Region
	closed   bool
}

// NewMemory returns a writable stream seeded with a copy of data.
func NewMemory(data []byte) *Memory {
	return &Memory{data: append([]byte(nil), data...)}
}

// NewReader returns a read-only stream over data without copying it.
func NewReader(data []byte) *Memory {
	return &Memory{data: data, readOnly: true}
}

// OpenMapped maps path read-only.
func OpenMapped(path string) (*Memory, error) {
	region, err := mmfile.Open(path)
	if err != nil {
		return nil, err
	}
	return &Memory{data: region.Bytes(), readOnly: true, region: region}, nil
}

// Bytes returns the stream contents. The slice aliases the stream.
func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) Read(p []byte) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if m.readOnly {
		return 0, ErrReadOnly
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		if end > int64(cap(m.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(m.data))))
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}
	copy(m.data[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *Memory) Seek(offset int64, whence int) (int64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	abs, err := seekTarget(m.pos, int64(len(m.data)), offset, whence)
	if err != nil {
		return m.pos, err
	}
	m.pos = abs
	return abs, nil
}

// Truncate resizes a writable stream, zero-filling when it grows.
func (m *Memory) Truncate(size int64) error {
	if m.readOnly {
		return ErrReadOnly
	}
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
	} else {
		m.data = append(m.data, make([]byte, size-int64(len(m.data)))...)
	}
	if m.pos > size {
		m.pos = size
	}
	return nil
}

func (m *Memory) Tell() int64 { return m.pos }
func (m *Memory) Size() int64 { return int64(len(m.data)) }
func (m *Memory) AtEOF() bool { return m.pos >= int64(len(m.data)) }

// Close releases a mapping, if any. Calling Close twice is a no-op.
func (m *Memory) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.data = nil
	if m.region != nil {
		return m.region.Close()
	}
	return nil
}
