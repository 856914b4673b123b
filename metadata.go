package capture

// Point mirrors the Win32 POINT layout.
type Point struct {
	X int32
	Y int32
}

// Rect mirrors the Win32 RECT layout.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// MoveRect mirrors DXGI_OUTDUPL_MOVE_RECT: a region that moved from
// SourcePoint to Destination since the previous frame.
type MoveRect struct {
	SourcePoint Point
	Destination Rect
}

// ChangeMetadata holds the per-frame moved/dirty region lists of a
// screen session. The lists persist across frames and only grow:
// capacity follows the largest required size the platform has reported
// and is never shrunk, so steady-state frames allocate nothing.
type ChangeMetadata struct {
	// MoveRects and DirtyRects are sized to capacity; only the first
	// MovedCount / DirtyCount entries are valid for the latest frame.
	MoveRects  []MoveRect
	DirtyRects []Rect

	// MovedCount and DirtyCount are the occupancy of the latest frame.
	MovedCount uint32
	DirtyCount uint32

	capacity uint32
}

// Capacity returns the current buffer capacity in entries.
func (m *ChangeMetadata) Capacity() uint32 { return m.capacity }

// EnsureCapacity grows both region lists to hold n entries. Capacity
// is monotonically non-decreasing: a smaller n is a no-op.
func (m *ChangeMetadata) EnsureCapacity(n uint32) {
	if n <= m.capacity {
		return
	}
	m.MoveRects = make([]MoveRect, n)
	m.DirtyRects = make([]Rect, n)
	m.capacity = n
}

// SetCounts records the occupancy of the latest frame. Counts are
// clamped to capacity; returns false if the platform reported more
// entries than the buffers hold, which indicates a source bug.
func (m *ChangeMetadata) SetCounts(moved, dirty uint32) bool {
	within := true
	if moved > m.capacity {
		moved = m.capacity
		within = false
	}
	if dirty > m.capacity {
		dirty = m.capacity
		within = false
	}
	m.MovedCount = moved
	m.DirtyCount = dirty
	return within
}

// Clone returns a deep copy safe to use after the session mutates the
// originals on its next iteration.
func (m *ChangeMetadata) Clone() ChangeMetadata {
	cp := ChangeMetadata{
		MovedCount: m.MovedCount,
		DirtyCount: m.DirtyCount,
		capacity:   m.capacity,
	}
	if m.MoveRects != nil {
		cp.MoveRects = make([]MoveRect, len(m.MoveRects))
		copy(cp.MoveRects, m.MoveRects)
	}
	if m.DirtyRects != nil {
		cp.DirtyRects = make([]Rect, len(m.DirtyRects))
		copy(cp.DirtyRects, m.DirtyRects)
	}
	return cp
}
