package recording

import (
	"sync"
	"sync/atomic"
	"time"

	"keymouse/internal/input"
)

// Stats are the counters derived from a buffer's contents.
type Stats struct {
	MoveCount       int
	ClickCount      int
	KeyPressCount   int
	KeyReleaseCount int
	StartedAt       time.Time
	Duration        time.Duration
}

// MouseEvents returns moves plus clicks.
func (s Stats) MouseEvents() int {
	return s.MoveCount + s.ClickCount
}

// KeyEvents returns presses plus releases.
func (s Stats) KeyEvents() int {
	return s.KeyPressCount + s.KeyReleaseCount
}

// Buffer is the ordered, concurrency-safe event store. Insertion order is
// replay order; the buffer never sorts. Counters are updated under the
// same lock as the slice but can be read without it.
type Buffer struct {
	mu     sync.Mutex
	events []Event

	moves     atomic.Int64
	clicks    atomic.Int64
	presses   atomic.Int64
	releases  atomic.Int64
	startedAt atomic.Int64 // unix nanos, 0 when unset
	duration  atomic.Int64
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds e at the end of the buffer.
func (b *Buffer) Append(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	b.count(e)
}

// Snapshot returns a copy of the events. The lock is held only for the copy.
func (b *Buffer) Snapshot() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Export returns a copy of the events together with matching stats.
func (b *Buffer) Export() ([]Event, Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out, b.Stats()
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Clear drops all events and zeroes the counters.
func (b *Buffer) Clear() {
	b.Reset(time.Time{})
}

// Reset clears the buffer for a new recording starting at start.
func (b *Buffer) Reset(start time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.resetCounters()
	if !start.IsZero() {
		b.startedAt.Store(start.UnixNano())
	}
}

// Replace swaps in events (e.g. from a loaded file) and recounts the stats
// from them. Only the duration is taken from the caller.
func (b *Buffer) Replace(events []Event, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make([]Event, len(events))
	copy(b.events, events)
	b.resetCounters()
	for _, e := range b.events {
		b.count(e)
	}
	b.duration.Store(int64(duration))
}

// SetDuration freezes the total duration of the recording.
func (b *Buffer) SetDuration(d time.Duration) {
	b.duration.Store(int64(d))
}

// Stats returns the current counters.
func (b *Buffer) Stats() Stats {
	s := Stats{
		MoveCount:       int(b.moves.Load()),
		ClickCount:      int(b.clicks.Load()),
		KeyPressCount:   int(b.presses.Load()),
		KeyReleaseCount: int(b.releases.Load()),
		Duration:        time.Duration(b.duration.Load()),
	}
	if ns := b.startedAt.Load(); ns != 0 {
		s.StartedAt = time.Unix(0, ns)
	}
	return s
}

// count must be called with b.mu held.
func (b *Buffer) count(e Event) {
	switch e.Type {
	case input.MouseMove:
		b.moves.Add(1)
	case input.MouseClick:
		b.clicks.Add(1)
	case input.KeyPress:
		b.presses.Add(1)
	case input.KeyRelease:
		b.releases.Add(1)
	}
}

// resetCounters must be called with b.mu held.
func (b *Buffer) resetCounters() {
	b.moves.Store(0)
	b.clicks.Store(0)
	b.presses.Store(0)
	b.releases.Store(0)
	b.startedAt.Store(0)
	b.duration.Store(0)
}
