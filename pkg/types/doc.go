// Package types holds the public error taxonomy shared by the page registry
// and its collaborators.
//
// Errors carry an ErrKind so callers can branch on intent rather than text:
//
//	obj, err := key.Resolve()
//	var te *types.Error
//	if errors.As(err, &te) && te.Kind == types.ErrKindVersion {
//	    // page is too new or out of date; surface to the operator
//	}
//
// Absent objects (load-mask exclusion, unknown identifiers) are reported as a
// nil object with a nil error, never as an Error.
package types
