package registry

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/pkg/types"
	"github.com/joshuapare/pagekit/registry/stream"
)

// ReadObject materializes k's object from its page.
//
// Loads requested while a read is in progress are queued; the outermost
// ReadObject drains the queue breadth-first before returning, so dependents
// registered by an object load after it and before its caller resumes.
//
// Reading a clone whose owner and instance differ from an active clone root
// fails with ErrNestedCloneRoot. Records that cannot be read fail with
// ErrUnreadable and leave the key unloaded; other keys are unaffected.
func (r *Registry) ReadObject(k *Key) (Object, error) {
	switch k.state {
	case Loaded, Loading:
		return k.obj, nil
	}
	if !k.id.LoadMask.Loads(r.opts.LoadMask) || k.passive {
		return nil, nil
	}
	p := k.Page()
	if p == nil {
		return nil, fmt.Errorf("read %s: %w", k.id, types.ErrDetached)
	}
	if p.status != StatusOK {
		return nil, fmt.Errorf("read %s: %s is %s: %w", k.id, p, p.status, types.ErrPageNotLoadable)
	}

	if k.original != nil {
		if r.clone.active && !r.clone.matches(k) {
			r.log.Error("nested clone root",
				zap.String("key", k.id.String()),
				zap.String("root", r.clone.root.id.String()))
			return nil, fmt.Errorf("read %s inside clone root %s: %w",
				k.id, r.clone.root.id, types.ErrNestedCloneRoot)
		}
		if sib := r.sharedSibling(k); sib != nil {
			r.bind(k, sib)
			return k.obj, nil
		}
	}

	outermost := r.readDepth == 0 && !r.draining
	if outermost {
		// keep one handle open across the whole batch
		if _, err := p.OpenStream(); err != nil {
			return nil, fmt.Errorf("read %s: %w", k.id, err)
		}
		defer p.CloseStream()
	}

	root := k.original != nil && !r.clone.active
	if root {
		r.clone = cloneContext{
			owner:    k.id.ClonePlayerID,
			instance: k.id.CloneID,
			loc:      k.id.Location,
			root:     k,
			active:   true,
		}
	}
	r.readDepth++
	obj, err := r.readRecord(p, k)
	r.readDepth--
	if root {
		r.clone = cloneContext{}
	}

	if outermost {
		r.drain()
	}
	return obj, err
}

func (r *Registry) readRecord(p *Page, k *Key) (Object, error) {
	var obj Object
	err := p.withStream(func(s stream.Stream) error {
		if err := buf.CheckRange(int64(p.dataStart), int64(p.indexStart), int64(k.offset), int64(k.length)); err != nil {
			return r.unreadable(k, "range", err)
		}
		if _, err := s.Seek(int64(k.offset), io.SeekStart); err != nil {
			return r.unreadable(k, "seek", err)
		}
		obj = r.factory.Create(k.id.Class)
		if obj == nil {
			return r.unreadable(k, "class", types.ErrUnknownClass)
		}
		if keyed, ok := obj.(Keyed); ok {
			keyed.SetKey(k)
		}

		k.obj, k.state = obj, Loading
		if err := obj.ReadPayload(s, r); err != nil {
			k.obj, k.state = nil, Unloaded
			return r.unreadable(k, "payload", err)
		}
		if used := s.Tell() - int64(k.offset); used > int64(k.length) {
			k.obj, k.state = nil, Unloaded
			return r.unreadable(k, "overrun",
				fmt.Errorf("payload read %d bytes of a %d byte record", used, k.length))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.state = Loaded
	k.queued = false
	r.metrics.ObjectsRead.Inc()
	k.deliverNotifications()
	return obj, nil
}

func (r *Registry) unreadable(k *Key, reason string, err error) error {
	r.metrics.ReadFailures.WithLabelValues(reason).Inc()
	r.log.Warn("object record unreadable",
		zap.String("key", k.id.String()),
		zap.String("reason", reason),
		zap.Uint32("offset", k.offset),
		zap.Uint32("length", k.length),
		zap.Error(err))
	return fmt.Errorf("%w: %s: %w", types.ErrUnreadable, k.id, err)
}

// bind shares sib's object with clone k without reading.
func (r *Registry) bind(k, sib *Key) {
	if sib.share == nil {
		sib.share = &binding{n: 1}
	}
	sib.share.n++
	k.share = sib.share
	k.obj, k.state = sib.obj, Loaded
	k.queued = false
	k.deliverNotifications()
}

// drain loads queued keys in the order they were queued. Keys queued by
// those loads join the back of the queue.
func (r *Registry) drain() {
	if r.draining {
		return
	}
	r.draining = true
	defer func() { r.draining = false }()

	for len(r.queue) > 0 {
		k := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		if !k.queued {
			continue
		}
		k.queued = false
		if _, err := r.ReadObject(k); err != nil {
			r.log.Debug("queued load failed", zap.String("key", k.id.String()), zap.Error(err))
		}
	}
	r.queue = nil
}

// Load loads k now, or queues it when a read is already in progress.
func (r *Registry) Load(k *Key) error {
	if k.state != Unloaded || k.queued {
		return nil
	}
	if r.readDepth > 0 || r.draining {
		k.queued = true
		r.queue = append(r.queue, k)
		return nil
	}
	_, err := r.ReadObject(k)
	return err
}

// QueueLen returns the number of loads waiting for the current read.
func (r *Registry) QueueLen() int { return len(r.queue) }

// AddViaNotify takes an active reference on k for recv and loads it.
func (r *Registry) AddViaNotify(k *Key, recv Receiver, context int) error {
	return k.RegisterNotification(recv, NotifyActive, context)
}

// SendRef delivers k's object to recv once it has loaded. Active refs hold
// a reference and force the load; passive refs only observe.
func (r *Registry) SendRef(k *Key, recv Receiver, context int, kind RefKind) error {
	flags := NotifyPassive
	if kind == RefActive {
		flags = NotifyActive
	}
	return k.RegisterNotification(recv, flags, context)
}

// Unload releases the object of an eligible key. A clone sharing its object
// with siblings only unbinds; the object is released with the last one. It
// reports whether an object was released.
func (r *Registry) Unload(k *Key) bool {
	if k.state != Loaded || k.refs > 0 {
		return false
	}
	obj := k.obj
	k.obj, k.state = nil, Unloaded
	if b := k.share; b != nil {
		k.share = nil
		b.n--
		if b.n > 0 {
			return false
		}
	}
	r.metrics.ObjectsUnloaded.Inc()
	if rel, ok := obj.(Releaser); ok {
		rel.Release(r)
	}
	return true
}

// UnloadUnused releases every eligible object and drops the catalogs of
// pages that are inactive, unheld and not the global fixed page. Passes repeat
// while released objects free further keys. It returns the number of objects
// released.
func (r *Registry) UnloadUnused() int {
	n := 0
	for {
		pass := 0
		r.IterateAllPages(func(p *Page) bool {
			pass += r.unloadPage(p)
			return true
		})
		pass += r.unloadDetached()
		if pass == 0 {
			break
		}
		n += pass
	}

	var idle []*Page
	r.IterateAllPages(func(p *Page) bool {
		if p.idle() && p.keysLoaded {
			idle = append(idle, p)
		}
		return true
	})
	for _, p := range idle {
		p.UnloadKeys()
	}
	if n > 0 || len(idle) > 0 {
		r.log.Debug("unload pass", zap.Int("objects", n), zap.Int("pages", len(idle)))
	}
	return n
}

func (r *Registry) unloadPage(p *Page) int {
	n := 0
	p.IterateKeys(func(k *Key) bool {
		if r.Unload(k) {
			n++
		}
		for _, c := range k.Clones() {
			if r.Unload(c) {
				n++
			}
		}
		return true
	})
	return n
}

// unloadDetached releases eligible keys that left their catalog while
// loaded. Keys still referenced wait for a later pass.
func (r *Registry) unloadDetached() int {
	pending := r.detached
	r.detached = nil
	n := 0
	var waiting []*Key
	for _, k := range pending {
		if r.Unload(k) {
			n++
			continue
		}
		if k.state != Unloaded {
			waiting = append(waiting, k)
		}
	}
	// releases above may have detached more keys
	r.detached = append(waiting, r.detached...)
	return n
}
