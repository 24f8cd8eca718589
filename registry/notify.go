package registry

type notification struct {
	recv      Receiver
	flags     NotifyFlags
	context   int
	delivered bool
}

func (n *notification) kind() RefKind {
	if n.flags&NotifyActive != 0 {
		return RefActive
	}
	return RefPassive
}

// RegisterNotification asks for recv to be told when k has loaded. Loaded
// keys notify at once. NotifyActive takes a reference that is held until
// RemoveNotification and forces the load, queuing it when a read is already
// in progress.
func (k *Key) RegisterNotification(recv Receiver, flags NotifyFlags, context int) error {
	k.notifies = append(k.notifies, notification{recv: recv, flags: flags, context: context})
	if flags&NotifyActive != 0 {
		k.AddReference()
	}
	if k.state == Loaded {
		k.deliverNotifications()
		return nil
	}
	if flags&NotifyActive != 0 && k.reg != nil {
		return k.reg.Load(k)
	}
	return nil
}

// RemoveNotification drops every registration made by recv, releasing the
// references active registrations took. It reports whether any was found.
func (k *Key) RemoveNotification(recv Receiver) bool {
	found := false
	kept := k.notifies[:0]
	var released int
	for _, n := range k.notifies {
		if n.recv != recv {
			kept = append(kept, n)
			continue
		}
		found = true
		if n.flags&NotifyActive != 0 {
			released++
		}
	}
	clear(k.notifies[len(kept):])
	k.notifies = kept
	for ; released > 0; released-- {
		k.RemoveReference()
	}
	return found
}

// PendingNotifications returns the number of registrations not yet delivered.
func (k *Key) PendingNotifications() int {
	n := 0
	for i := range k.notifies {
		if !k.notifies[i].delivered {
			n++
		}
	}
	return n
}

func (k *Key) deliverNotifications() {
	// receivers may register more notifications on k while being told
	for i := 0; i < len(k.notifies); i++ {
		n := &k.notifies[i]
		if n.delivered {
			continue
		}
		n.delivered = true
		recv, msg := n.recv, &RefMsg{Key: k, Object: k.obj, Context: n.context, Kind: n.kind()}
		if n.flags&NotifyActive == 0 {
			// passive registrations are one-shot
			k.notifies = append(k.notifies[:i], k.notifies[i+1:]...)
			i--
		}
		recv.Receive(msg)
	}
}
