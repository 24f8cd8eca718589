// Package uoid defines the identifiers the registry resolves: Location, the
// address of a page, and Uoid, the stable name of one object.
//
// Both are plain values. A Uoid names an object by (location, class, name);
// clone identifiers add an owner and instance id and always resolve back to
// the original through Original.
//
//	id := uoid.Uoid{
//	    Location: uoid.Location{Sequence: 0x2A},
//	    Class:    0x0001,
//	    Name:     "LinkInPointDefault",
//	    LoadMask: uoid.Always,
//	}
//	clone := id.CloneFor(7, 1) // owner 7, instance 1
//	clone.Original().Equal(id) // true
package uoid
