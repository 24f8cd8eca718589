package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/registry/namecache"
)

// Decoder reads little-endian values from a stream. The first failure is
// kept; later reads return zero values.
type Decoder struct {
	r       io.Reader
	err     error
	scratch [4]byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: r} }

// Err returns the first error encountered.
func (d *Decoder) Err() error { return d.err }

// Fail records err unless an earlier error is already held.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) fill(p []byte) bool {
	if d.err != nil {
		return false
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return false
	}
	return true
}

func (d *Decoder) U8() uint8 {
	if !d.fill(d.scratch[:1]) {
		return 0
	}
	return d.scratch[0]
}

func (d *Decoder) U16() uint16 {
	if !d.fill(d.scratch[:2]) {
		return 0
	}
	v, _ := buf.U16At(d.scratch[:], 0)
	return v
}

func (d *Decoder) U32() uint32 {
	if !d.fill(d.scratch[:4]) {
		return 0
	}
	v, _ := buf.U32At(d.scratch[:], 0)
	return v
}

func (d *Decoder) Bool() bool { return d.U8() != 0 }

// Bytes reads n raw bytes.
func (d *Decoder) Bytes(n int) []byte {
	if n < 0 {
		d.Fail(fmt.Errorf("stream: negative length %d", n))
		return nil
	}
	p := make([]byte, n)
	if !d.fill(p) {
		return nil
	}
	return p
}

// Name reads a length-prefixed Windows-1252 name and returns it with its fold.
func (d *Decoder) Name() (name, fold string) {
	n := d.U16()
	raw := d.Bytes(int(n))
	if d.err != nil {
		return "", ""
	}
	name, fold, err := namecache.Decode(raw)
	if err != nil {
		d.Fail(err)
		return "", ""
	}
	return name, fold
}

// Encoder writes little-endian values to a stream with the same sticky error
// discipline as Decoder.
type Encoder struct {
	w       io.Writer
	err     error
	scratch [4]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// Err returns the first error encountered.
func (e *Encoder) Err() error { return e.err }

// Fail records err unless an earlier error is already held.
func (e *Encoder) Fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) put(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	e.err = err
}

func (e *Encoder) U8(v uint8) {
	e.scratch[0] = v
	e.put(e.scratch[:1])
}

func (e *Encoder) U16(v uint16) {
	format.PutU16(e.scratch[:], 0, v)
	e.put(e.scratch[:2])
}

func (e *Encoder) U32(v uint32) {
	format.PutU32(e.scratch[:], 0, v)
	e.put(e.scratch[:4])
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

// Bytes writes p verbatim.
func (e *Encoder) Bytes(p []byte) { e.put(p) }

// Name writes s as a length-prefixed Windows-1252 name.
func (e *Encoder) Name(s string) {
	if e.err != nil {
		return
	}
	raw, err := format.EncodeName(s)
	if err != nil {
		e.err = err
		return
	}
	e.U16(uint16(len(raw)))
	e.put(raw)
}
