package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
}

func TestCheckListBounds(t *testing.T) {
	if end, err := CheckListBounds(100, 4, 8, 12); err != nil || end != 100 {
		t.Fatalf("CheckListBounds exact fit = %d, %v", end, err)
	}
	if _, err := CheckListBounds(100, 4, 9, 12); err == nil {
		t.Fatalf("expected bounds error")
	}
	if _, err := CheckListBounds(100, 0, math.MaxInt/2, 17); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := CheckListBounds(100, 0, -1, 4); err == nil {
		t.Fatalf("expected negative count error")
	}
}

func TestCheckRange(t *testing.T) {
	if err := CheckRange(0x50, 0x100, 0x50, 0xB0); err != nil {
		t.Fatalf("full data section should be valid: %v", err)
	}
	if err := CheckRange(0x50, 0x100, 0x40, 4); err == nil {
		t.Fatalf("offset before data start should fail")
	}
	if err := CheckRange(0x50, 0x100, 0xF0, 0x20); err == nil {
		t.Fatalf("range past end should fail")
	}
	if err := CheckRange(0, math.MaxInt64, math.MaxInt64-1, 4); err == nil {
		t.Fatalf("overflowing range should fail")
	}
}

func TestSlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
}
