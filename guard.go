package capture

import "sync"

// StateGuard enforces at most one active capture loop per session.
// The lock is held only for the compare-and-set, never across a
// blocking operation.
type StateGuard struct {
	mu        sync.Mutex
	capturing bool
}

// TryStart transitions idle → capturing. Fails with
// ErrAlreadyCapturing if a loop already owns the session.
func (g *StateGuard) TryStart() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.capturing {
		return ErrAlreadyCapturing
	}
	g.capturing = true
	return nil
}

// TryStop transitions capturing → idle. Fails with ErrAlreadyStopped
// if the session is already idle.
func (g *StateGuard) TryStop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.capturing {
		return ErrAlreadyStopped
	}
	g.capturing = false
	return nil
}

// IsCapturing reports whether a loop currently owns the session.
func (g *StateGuard) IsCapturing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capturing
}
