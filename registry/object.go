package registry

import (
	"github.com/joshuapare/pagekit/registry/stream"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// Object is a live record materialized from page data.
type Object interface {
	ClassTag() uoid.ClassTag
	// ReadPayload decodes the object from s, positioned at its record.
	ReadPayload(s stream.Stream, r *Registry) error
	// WritePayload encodes the object at the current position of s.
	WritePayload(s stream.Stream, r *Registry) error
}

// ClassVersioner reports the current minor version of each class.
type ClassVersioner interface {
	ClassVersion(tag uoid.ClassTag) uint16
}

// Factory creates blank objects by class tag.
type Factory interface {
	ClassVersioner
	// Create returns a blank object of the class, or nil for unknown tags.
	Create(tag uoid.ClassTag) Object
}

// Keyed objects are told which key they were loaded through.
type Keyed interface {
	SetKey(k *Key)
}

// Shareable objects may be shared between clones of one original instead of
// being read once per clone.
type Shareable interface {
	Shareable() bool
}

// Releaser objects drop the references they hold when they are unloaded.
type Releaser interface {
	Release(r *Registry)
}

// Receiver is notified when a key it registered on has loaded.
type Receiver interface {
	Receive(msg *RefMsg)
}

// RefKind tags the relationship a notification establishes.
type RefKind uint8

const (
	RefActive  RefKind = iota // holds a reference and forces the load
	RefPassive                // observes without forcing
)

func (k RefKind) String() string {
	if k == RefActive {
		return "active"
	}
	return "passive"
}

// RefMsg is delivered to a Receiver once its key has loaded.
type RefMsg struct {
	Key     *Key
	Object  Object
	Context int
	Kind    RefKind
}

// NotifyFlags select how RegisterNotification treats the key.
type NotifyFlags uint8

const (
	NotifyActive  NotifyFlags = 1 << iota // take a reference and force a load
	NotifyPassive                         // only observe
)
