package capture

import (
	"fmt"
	"unsafe"
)

// copyRegion copies length bytes from a mapped or locked native buffer
// into an owned slice. validFor is the number of bytes the pointer is
// declared valid for; a read past it is refused instead of trusting
// the caller. Both engines extract frame bytes exclusively through
// this routine, so the raw pointer never escapes it.
func copyRegion(p unsafe.Pointer, length, validFor int) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("copyRegion: nil source pointer")
	}
	if length < 0 || validFor < 0 {
		return nil, fmt.Errorf("copyRegion: negative length (%d of %d)", length, validFor)
	}
	if length > validFor {
		return nil, fmt.Errorf("copyRegion: read of %d bytes exceeds valid region of %d", length, validFor)
	}
	out := make([]byte, length)
	copy(out, unsafe.Slice((*byte)(p), length))
	return out, nil
}
