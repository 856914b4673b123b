package capture

import (
	"bytes"
	"testing"
	"unsafe"
)

func TestCopyRegion_CopiesOwnedBytes(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	got, err := copyRegion(unsafe.Pointer(&src[0]), 5, len(src))
	if err != nil {
		t.Fatalf("copyRegion: %v", err)
	}
	if !bytes.Equal(got, src[:5]) {
		t.Fatalf("copied %v, want %v", got, src[:5])
	}

	// The result must be an owned copy, not a view.
	src[0] = 0xFF
	if got[0] != 1 {
		t.Fatal("copyRegion returned a view into the source")
	}
}

func TestCopyRegion_RejectsNilPointer(t *testing.T) {
	if _, err := copyRegion(nil, 4, 4); err == nil {
		t.Fatal("expected error for nil pointer")
	}
}

func TestCopyRegion_RejectsOverlongRead(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	if _, err := copyRegion(unsafe.Pointer(&src[0]), 5, 4); err == nil {
		t.Fatal("expected error for read past declared valid region")
	}
}

func TestCopyRegion_RejectsNegativeLength(t *testing.T) {
	src := []byte{1}
	if _, err := copyRegion(unsafe.Pointer(&src[0]), -1, 1); err == nil {
		t.Fatal("expected error for negative length")
	}
	if _, err := copyRegion(unsafe.Pointer(&src[0]), 1, -1); err == nil {
		t.Fatal("expected error for negative valid length")
	}
}

func TestCopyRegion_ZeroLength(t *testing.T) {
	src := []byte{1}
	got, err := copyRegion(unsafe.Pointer(&src[0]), 0, 1)
	if err != nil {
		t.Fatalf("copyRegion zero length: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %d bytes", len(got))
	}
}
