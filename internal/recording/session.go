package recording

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"keymouse/internal/clock"
	"keymouse/internal/input"
	"keymouse/internal/keymap"
)

// DefaultMoveInterval is the minimum spacing between recorded mouse moves.
const DefaultMoveInterval = 50 * time.Millisecond

// RecordType selects which devices a recording captures.
type RecordType string

const (
	RecordAll      RecordType = "all"
	RecordMouse    RecordType = "mouse"
	RecordKeyboard RecordType = "keyboard"
)

// ParseRecordType validates s. An empty string means RecordAll.
func ParseRecordType(s string) (RecordType, error) {
	switch rt := RecordType(strings.ToLower(strings.TrimSpace(s))); rt {
	case "":
		return RecordAll, nil
	case RecordAll, RecordMouse, RecordKeyboard:
		return rt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRecordType, s)
	}
}

// Allows reports whether events of type t are recorded under rt.
func (rt RecordType) Allows(t input.EventType) bool {
	switch t {
	case input.MouseMove, input.MouseClick:
		return rt == RecordAll || rt == RecordMouse
	case input.KeyPress, input.KeyRelease:
		return rt == RecordAll || rt == RecordKeyboard
	}
	return false
}

// State is the lifecycle state of a recording session.
type State int

const (
	NotStarted State = iota
	Active
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Session.
type Options struct {
	Clock        clock.Clock
	MoveInterval time.Duration
}

// Session records one capture run into a Buffer. Sessions are one-shot:
// NotStarted -> Active -> Stopped.
type Session struct {
	id           string
	source       input.CaptureSource
	buffer       *Buffer
	clock        clock.Clock
	moveInterval time.Duration

	mu         sync.Mutex
	state      State
	recordType RecordType
	start      time.Time
	last       time.Duration // offset of the last recorded event
	lastMove   time.Duration
	hasMove    bool
	lastEvent  string
	duration   time.Duration
	stopping   bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewSession creates a session that records from source into buffer.
func NewSession(source input.CaptureSource, buffer *Buffer, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.MoveInterval <= 0 {
		opts.MoveInterval = DefaultMoveInterval
	}
	return &Session{
		id:           uuid.NewString(),
		source:       source,
		buffer:       buffer,
		clock:        opts.Clock,
		moveInterval: opts.MoveInterval,
		lastEvent:    "None",
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Start begins consuming the capture source and resets the buffer. A
// failed start leaves the buffer untouched.
func (s *Session) Start(rt RecordType) error {
	if !rt.Allows(input.MouseMove) && !rt.Allows(input.KeyPress) {
		return fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != NotStarted {
		return fmt.Errorf("%w: recording is %s", ErrInvalidState, s.state)
	}

	if err := s.source.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}

	s.recordType = rt
	s.start = s.clock.Now()
	s.buffer.Reset(s.start)

	s.state = Active
	s.quit = make(chan struct{})
	s.wg.Add(1)
	go s.consume(s.source.Events())

	log.Printf("Recorder: Session %s started (type=%s)", s.id, rt)
	return nil
}

// Stop stops the capture source, records every event it already delivered,
// then freezes the duration. No event is appended after Stop returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != Active || s.stopping {
		state := s.state.String()
		if s.stopping {
			state = "stopping"
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: recording is %s", ErrInvalidState, state)
	}
	s.stopping = true
	s.mu.Unlock()

	if err := s.source.Stop(); err != nil {
		log.Printf("Recorder: Failed to stop capture: %v", err)
	}
	close(s.quit)
	s.wg.Wait()

	s.mu.Lock()
	s.state = Stopped
	s.stopping = false
	s.duration = s.clock.Since(s.start)
	if s.duration < s.last {
		s.duration = s.last
	}
	s.buffer.SetDuration(s.duration)
	s.mu.Unlock()

	log.Printf("Recorder: Session %s stopped after %s with %d events", s.id, s.duration.Round(time.Millisecond), s.buffer.Len())
	return nil
}

func (s *Session) consume(events <-chan input.InputEvent) {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.Handle(ev)
		case <-s.quit:
			s.drain(events)
			return
		}
	}
}

// drain handles events still queued when the source was stopped.
func (s *Session) drain(events <-chan input.InputEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.Handle(ev)
		default:
			return
		}
	}
}

// Handle applies the record-type filter and mouse-move down-sampling to ev
// and appends it to the buffer. It reports whether ev was recorded.
func (s *Session) Handle(ev input.InputEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active || !s.recordType.Allows(ev.Type) {
		return false
	}

	offset := s.clock.Since(s.start)
	if !ev.Time.IsZero() {
		offset = ev.Time.Sub(s.start)
	}
	if offset < s.last {
		offset = s.last
	}
	if offset < 0 {
		offset = 0
	}
	t := offset.Seconds()

	var e Event
	switch ev.Type {
	case input.MouseMove:
		if s.hasMove && offset-s.lastMove < s.moveInterval {
			return false
		}
		s.hasMove, s.lastMove = true, offset
		e = Move(ev.X, ev.Y, t)
		s.lastEvent = fmt.Sprintf("Mouse move to (%d, %d)", ev.X, ev.Y)
	case input.MouseClick:
		e = Click(ev.X, ev.Y, ev.Button, ev.Pressed, t)
		action := "release"
		if ev.Pressed {
			action = "press"
		}
		s.lastEvent = fmt.Sprintf("Mouse %s %s", keymap.TranslateButton(ev.Button), action)
	case input.KeyPress:
		e = Press(ev.Key, t)
		s.lastEvent = "Key press: " + keymap.Describe(ev.Key)
	case input.KeyRelease:
		e = Release(ev.Key, t)
		s.lastEvent = "Key release: " + keymap.Describe(ev.Key)
	default:
		return false
	}

	s.buffer.Append(e)
	s.last = offset
	return true
}

// State returns the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session is recording.
func (s *Session) Active() bool {
	return s.State() == Active
}

// RecordType returns the type passed to Start.
func (s *Session) RecordType() RecordType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordType
}

// Elapsed returns the running time while active and the frozen duration after Stop.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Active:
		return s.clock.Since(s.start)
	case Stopped:
		return s.duration
	default:
		return 0
	}
}

// LastEvent describes the most recently recorded event.
func (s *Session) LastEvent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}
