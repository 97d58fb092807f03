package input

import "sync"

// Homer is implemented by injectors that can park the cursor at the origin
// without tripping their fail-safe guard.
type Homer interface {
	Home() error
}

// FailSafeGuard refuses actions while the cursor sits in a corner of the
// screen. Homing parks the cursor in a corner on purpose, so Suspend turns
// the check off until the next injected move.
type FailSafeGuard struct {
	Enabled bool

	mu        sync.Mutex
	suspended bool
}

// Check returns ErrFailSafe when the guard is armed and (x, y) is a corner
// of a width x height screen.
func (g *FailSafeGuard) Check(x, y, width, height int) error {
	if g == nil || !g.Enabled {
		return nil
	}
	g.mu.Lock()
	suspended := g.suspended
	g.mu.Unlock()
	if suspended {
		return nil
	}
	if InCorner(x, y, width, height) {
		return ErrFailSafe
	}
	return nil
}

// Suspend disarms the guard until Moved is called.
func (g *FailSafeGuard) Suspend() {
	g.mu.Lock()
	g.suspended = true
	g.mu.Unlock()
}

// Moved re-arms the guard after an injected move.
func (g *FailSafeGuard) Moved() {
	g.mu.Lock()
	g.suspended = false
	g.mu.Unlock()
}

// InCorner reports whether (x, y) is one of the four corner pixels.
func InCorner(x, y, width, height int) bool {
	maxX, maxY := width-1, height-1
	return (x == 0 || x == maxX) && (y == 0 || y == maxY)
}
