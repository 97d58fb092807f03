// Package inputtest provides in-memory capture sources and injectors for tests.
package inputtest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"keymouse/internal/clock"
	"keymouse/internal/input"
)

// Source is a capture source driven by Emit. Events are delivered on an
// unbuffered channel, so Emit returns once the consumer has received the
// event.
type Source struct {
	clock clock.Clock

	mu      sync.Mutex
	running bool
	events  chan input.InputEvent
	stopped chan struct{}
	starts  int
}

// NewSource creates a Source that stamps events with clk when they carry no time.
func NewSource(clk clock.Clock) *Source {
	return &Source{clock: clk}
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("inputtest: source already running")
	}
	s.running = true
	s.starts++
	s.events = make(chan input.InputEvent)
	s.stopped = make(chan struct{})
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		close(s.stopped)
	}
	return nil
}

func (s *Source) Events() <-chan input.InputEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Running reports whether the source is started.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Starts returns how many times Start succeeded.
func (s *Source) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Emit delivers ev and reports whether a consumer received it before the
// source was stopped.
func (s *Source) Emit(ev input.InputEvent) bool {
	s.mu.Lock()
	events, stopped, running := s.events, s.stopped, s.running
	s.mu.Unlock()
	if !running {
		return false
	}
	if ev.Time.IsZero() {
		ev.Time = s.clock.Now()
	}
	select {
	case events <- ev:
		return true
	case <-stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

// Move, Click, Press and Release are shorthands for Emit.
func (s *Source) Move(x, y int) bool {
	return s.Emit(input.InputEvent{Type: input.MouseMove, X: x, Y: y})
}

func (s *Source) Click(x, y int, button string, pressed bool) bool {
	return s.Emit(input.InputEvent{Type: input.MouseClick, X: x, Y: y, Button: button, Pressed: pressed})
}

func (s *Source) Press(key string) bool {
	return s.Emit(input.InputEvent{Type: input.KeyPress, Key: key})
}

func (s *Source) Release(key string) bool {
	return s.Emit(input.InputEvent{Type: input.KeyRelease, Key: key})
}

// Call is one recorded injector invocation.
type Call struct {
	Op   string // "move", "down", "up", "keydown", "keyup"
	Arg  string
	At   time.Time
	Wall time.Time
}

func (c Call) String() string {
	return c.Op + " " + c.Arg
}

// Injector records every call. Fail, when set, decides the error returned
// for the n-th call (0-based); Delay is slept inside every call.
type Injector struct {
	clock clock.Clock

	Fail  func(n int, call Call) error
	Delay time.Duration

	mu    sync.Mutex
	calls []Call
	seen  chan struct{}
}

// NewInjector creates a recording injector stamping calls with clk.
func NewInjector(clk clock.Clock) *Injector {
	return &Injector{clock: clk, seen: make(chan struct{}, 1024)}
}

func (i *Injector) MoveTo(x, y int) error         { return i.record("move", fmt.Sprintf("%d,%d", x, y)) }
func (i *Injector) MouseDown(button string) error { return i.record("down", button) }
func (i *Injector) MouseUp(button string) error   { return i.record("up", button) }
func (i *Injector) KeyDown(key string) error      { return i.record("keydown", key) }
func (i *Injector) KeyUp(key string) error        { return i.record("keyup", key) }

func (i *Injector) record(op, arg string) error {
	if i.Delay > 0 {
		time.Sleep(i.Delay)
	}
	call := Call{Op: op, Arg: arg, At: i.clock.Now(), Wall: time.Now()}

	i.mu.Lock()
	n := len(i.calls)
	i.calls = append(i.calls, call)
	fail := i.Fail
	i.mu.Unlock()

	select {
	case i.seen <- struct{}{}:
	default:
	}

	if fail != nil {
		return fail(n, call)
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (i *Injector) Calls() []Call {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Call, len(i.calls))
	copy(out, i.calls)
	return out
}

// WaitCalls blocks until at least n calls were recorded or the timeout expires.
func (i *Injector) WaitCalls(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		i.mu.Lock()
		got := len(i.calls)
		i.mu.Unlock()
		if got >= n {
			return true
		}
		select {
		case <-i.seen:
		case <-deadline:
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

var (
	_ input.CaptureSource = (*Source)(nil)
	_ input.Injector      = (*Injector)(nil)
)
