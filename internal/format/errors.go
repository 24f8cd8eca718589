package format

import "errors"

var (
	// ErrSignatureMismatch indicates the file does not start with PageMagic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadLayout indicates header offsets that cannot describe a page.
	ErrBadLayout = errors.New("format: inconsistent section offsets")
	// ErrNameEncoding indicates a name outside the Windows-1252 repertoire.
	ErrNameEncoding = errors.New("format: name not representable")
	// ErrNameTooLong indicates a name longer than MaxNameLen encoded bytes.
	ErrNameTooLong = errors.New("format: name too long")
)
