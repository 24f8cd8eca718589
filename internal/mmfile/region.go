package mmfile

// Region is a read-only view of a whole page file.
type Region struct {
	data    []byte
	release func() error
	closed  bool
}

// Bytes returns the file contents. The slice is invalid after Close.
func (r *Region) Bytes() []byte { return r.data }

// Len returns the file size in bytes.
func (r *Region) Len() int { return len(r.data) }

// Close releases the region. Calling Close twice is a no-op.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.data = nil
	if r.release == nil {
		return nil
	}
	return r.release()
}
