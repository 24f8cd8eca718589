package registry

import (
	"fmt"

	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// ReadKey reads a key reference (presence flag, then identifier) written by
// WriteKey. While a clone root is being read, references to objects on the
// root's page resolve to clones of the same owner and instance. An absent
// or unknown reference yields nil.
func (r *Registry) ReadKey(s stream.Stream) (*Key, error) {
	d := stream.NewDecoder(s)
	if !d.Bool() {
		return nil, d.Err()
	}
	var id uoid.Uoid
	id.Decode(d)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	return r.FindKey(r.clone.apply(id))
}

// ReadKeyNotify reads a key reference and registers recv on it. Active refs
// queue the load when called from inside a read.
func (r *Registry) ReadKeyNotify(s stream.Stream, recv Receiver, context int, kind RefKind) (*Key, error) {
	k, err := r.ReadKey(s)
	if k == nil || err != nil {
		return nil, err
	}
	return k, r.SendRef(k, recv, context, kind)
}

// WriteKey writes a key reference; nil writes an absent reference.
func (r *Registry) WriteKey(s stream.Stream, k *Key) error {
	e := stream.NewEncoder(s)
	e.Bool(k != nil)
	if k != nil {
		k.id.Encode(e)
	}
	return e.Err()
}

// ReadCreatable reads a class tag followed by that class's payload. The nil
// class yields a nil object.
func (r *Registry) ReadCreatable(s stream.Stream) (Object, error) {
	d := stream.NewDecoder(s)
	class := uoid.ClassTag(d.U16())
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("read creatable: %w", err)
	}
	if class == uoid.NilClass {
		return nil, nil
	}
	obj := r.factory.Create(class)
	if obj == nil {
		return nil, fmt.Errorf("read creatable 0x%04X: %w", uint16(class), types.ErrUnknownClass)
	}
	if err := obj.ReadPayload(s, r); err != nil {
		return nil, fmt.Errorf("read creatable 0x%04X: %w", uint16(class), err)
	}
	return obj, nil
}

// WriteCreatable writes obj's class tag and payload; nil writes the nil class.
func (r *Registry) WriteCreatable(s stream.Stream, obj Object) error {
	e := stream.NewEncoder(s)
	if obj == nil {
		e.U16(uint16(uoid.NilClass))
		return e.Err()
	}
	e.U16(uint16(obj.ClassTag()))
	if err := e.Err(); err != nil {
		return err
	}
	return obj.WritePayload(s, r)
}
