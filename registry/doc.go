// Package registry resolves object identifiers to live objects stored in
// paged files.
//
// # Overview
//
// A Registry owns a set of Pages. Each page is one file holding a header, a
// data section of serialized object payloads and an index. The index groups
// keys by class into Catalogs; every Key names one object by its uoid.Uoid and
// records where the payload lives.
//
//	[header] [data: payload payload ...] [index: names, class groups]
//
// Page headers are read when a page is added; indexes are read lazily the
// first time a key on the page is looked up.
//
// # Resolving objects
//
//	reg := registry.New(myFactory, registry.DefaultOptions())
//	defer reg.Close()
//	if _, err := reg.AddPages("/data/pages"); err != nil {
//	    return err
//	}
//	key, err := reg.FindKey(id)
//	if err != nil || key == nil {
//	    return err // nil key: no such object
//	}
//	obj, err := key.Resolve()
//
// Resolve reads the object through the Factory and returns once the object
// and the references it registered during its own read have loaded. Objects
// whose load mask excludes the registry's mask resolve to nil without error.
//
// # Lifetime
//
// Keys are reference counted with AddReference and RemoveReference. A key
// whose count is zero is eligible for unload, but nothing is evicted until an
// explicit pass (Unload, UnloadUnused, PageOutRoom) runs. Keys created at
// runtime with NewKey are erased from their catalog when their count drops to
// zero.
//
// # Clones
//
// Clones are per-player copies of an original object. While a clone root is
// being read, references to objects on the same page are redirected to clones
// with the same owner and instance, so a whole object graph is duplicated.
//
// # Threading
//
// A Registry is not safe for concurrent use. Loads triggered while another
// read is in progress are queued and run after the outermost read returns.
package registry
