package format

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
)

// Names are stored in Windows-1252, the legacy code page page files were
// authored in. Decoding always succeeds; encoding fails for runes outside the
// code page.

// DecodeName converts stored name bytes into UTF-8.
func DecodeName(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if isASCII(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode Windows-1252 name: %w", err)
	}
	return string(decoded), nil
}

// EncodeName converts a UTF-8 name into its stored Windows-1252 form.
func EncodeName(name string) ([]byte, error) {
	if isASCII([]byte(name)) {
		if len(name) > MaxNameLen {
			return nil, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
		}
		return []byte(name), nil
	}
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNameEncoding, name, err)
	}
	if len(encoded) > MaxNameLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(encoded))
	}
	return encoded, nil
}

// FoldName returns the case-folded form used for every case-insensitive name
// comparison. Two names are the same object name iff their folds are equal.
func FoldName(name string) string {
	if isASCII([]byte(name)) && !hasUpper(name) {
		return name
	}
	return cases.Fold().String(name)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func hasUpper(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}
