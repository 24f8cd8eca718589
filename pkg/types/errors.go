package types

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat     ErrKind = iota // malformed header or signature
	ErrKindCorrupt                   // structural corruption (checksum, offsets)
	ErrKindVersion                   // page written by a newer or older engine
	ErrKindNotFound                  // missing page or key
	ErrKindDuplicate                 // object name already used in its catalog
	ErrKindClone                     // clone context misuse
	ErrKindState                     // invalid operation for current state
	ErrKindUnreadable                // one object record could not be read
)

// String implements the Stringer interface for ErrKind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindFormat:
		return "format"
	case ErrKindCorrupt:
		return "corrupt"
	case ErrKindVersion:
		return "version"
	case ErrKindNotFound:
		return "not-found"
	case ErrKindDuplicate:
		return "duplicate"
	case ErrKindClone:
		return "clone"
	case ErrKindState:
		return "state"
	case ErrKindUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels returned by the registry. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrNotPage indicates the file lacks a valid page header.
	ErrNotPage = &Error{Kind: ErrKindFormat, Msg: "not a page file (bad header)"}
	// ErrCorrupt indicates a checksum or layout mismatch.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt page"}
	// ErrTooNew indicates a page written by a newer engine; the file is kept.
	ErrTooNew = &Error{Kind: ErrKindVersion, Msg: "page is newer than this engine"}
	// ErrOutOfDate indicates a page written by an older engine.
	ErrOutOfDate = &Error{Kind: ErrKindVersion, Msg: "page is out of date"}
	// ErrPageNotLoadable indicates a load from a page that failed verification.
	ErrPageNotLoadable = &Error{Kind: ErrKindState, Msg: "page failed verification"}
	// ErrNotFound indicates a missing page or key.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrDuplicateName indicates an object name already present in its catalog.
	ErrDuplicateName = &Error{Kind: ErrKindDuplicate, Msg: "duplicate object name"}
	// ErrDuplicateLocation indicates two pages claiming one location.
	ErrDuplicateLocation = &Error{Kind: ErrKindDuplicate, Msg: "page location already registered"}
	// ErrNestedCloneRoot indicates a second clone root read while one is active.
	ErrNestedCloneRoot = &Error{Kind: ErrKindClone, Msg: "nested clone root"}
	// ErrUnreadable indicates one object record could not be materialized.
	ErrUnreadable = &Error{Kind: ErrKindUnreadable, Msg: "object record unreadable"}
	// ErrUnknownClass indicates the factory has no type for a class tag.
	ErrUnknownClass = &Error{Kind: ErrKindUnreadable, Msg: "unknown class tag"}
	// ErrReadOnly indicates a write to a read-only stream.
	ErrReadOnly = &Error{Kind: ErrKindState, Msg: "stream is read-only"}
	// ErrDetached indicates a key no longer attached to a registry.
	ErrDetached = &Error{Kind: ErrKindState, Msg: "key is detached"}
	// ErrPageBusy indicates a page write while its stream is open.
	ErrPageBusy = &Error{Kind: ErrKindState, Msg: "page stream is open"}
)
