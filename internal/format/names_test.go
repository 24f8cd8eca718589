package format

import (
	"errors"
	"testing"
)

func TestNameRoundTrip(t *testing.T) {
	cases := []string{"", "Alpha", "Café", "naïve Room"}
	for _, name := range cases {
		enc, err := EncodeName(name)
		if err != nil {
			t.Fatalf("EncodeName(%q): %v", name, err)
		}
		dec, err := DecodeName(enc)
		if err != nil {
			t.Fatalf("DecodeName(%q): %v", name, err)
		}
		if dec != name {
			t.Fatalf("round trip %q -> %q", name, dec)
		}
	}
}

func TestEncodeNameWindows1252(t *testing.T) {
	enc, err := EncodeName("é")
	if err != nil {
		t.Fatalf("EncodeName: %v", err)
	}
	if len(enc) != 1 || enc[0] != 0xE9 {
		t.Fatalf("expected single byte 0xE9, got % x", enc)
	}
}

func TestEncodeNameUnsupported(t *testing.T) {
	if _, err := EncodeName("日本"); !errors.Is(err, ErrNameEncoding) {
		t.Fatalf("expected ErrNameEncoding, got %v", err)
	}
}

func TestFoldName(t *testing.T) {
	if FoldName("Bee") != FoldName("bEE") {
		t.Fatalf("ASCII fold mismatch")
	}
	if FoldName("ÄLPHA") != FoldName("älpha") {
		t.Fatalf("Latin-1 fold mismatch")
	}
	if FoldName("alpha") != "alpha" {
		t.Fatalf("lowercase ASCII must fold to itself")
	}
}
