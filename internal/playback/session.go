package playback

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"keymouse/internal/clock"
	"keymouse/internal/input"
	"keymouse/internal/keymap"
	"keymouse/internal/recording"
)

// State is the lifecycle state of a playback session.
type State int

const (
	NotStarted State = iota
	Active
	Finished
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result summarizes a completed playback session.
type Result struct {
	State      State
	FailSafe   bool
	Passes     int
	Dispatched int
	Skipped    int // per-event injector faults
	Err        error
}

// Status is the human readable completion message.
func (r Result) Status() string {
	switch {
	case r.FailSafe:
		return "FailSafe triggered, aborting playback"
	case r.State == Aborted:
		return "Playback aborted"
	case r.Skipped > 0:
		return fmt.Sprintf("Playback finished (%d events skipped)", r.Skipped)
	default:
		return "Playback finished"
	}
}

// Options configures a Session.
type Options struct {
	Clock clock.Clock
}

var errUnsupportedKey = errors.New("unsupported key")

// Session plays one snapshot. Sessions are one-shot:
// NotStarted -> Active -> Finished | Aborted.
type Session struct {
	id       string
	injector input.Injector
	clock    clock.Clock

	mu     sync.Mutex
	state  State
	cfg    Config
	events []recording.Event
	pass   int
	index  int
	result Result

	aborted   atomic.Bool
	abort     chan struct{}
	abortOnce sync.Once
	done      chan struct{}
}

// NewSession creates a session that dispatches through injector.
func NewSession(injector input.Injector, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	return &Session{
		id:       uuid.NewString(),
		injector: injector,
		clock:    opts.Clock,
		abort:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Start takes a snapshot of buf and begins playing it in the background.
func (s *Session) Start(buf *recording.Buffer, cfg Config) error {
	return s.StartEvents(buf.Snapshot(), cfg)
}

// StartEvents plays events, which must not be modified afterwards.
func (s *Session) StartEvents(events []recording.Event, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != NotStarted {
		return fmt.Errorf("%w: playback is %s", recording.ErrInvalidState, s.state)
	}
	if len(events) == 0 {
		return recording.ErrEmptyBuffer
	}

	s.cfg = cfg.Normalize()
	s.events = events
	s.state = Active
	go s.run()

	log.Printf("Playback: Session %s started (%d events, speed=%.1f, loop=%v, count=%d)",
		s.id, len(events), s.cfg.Speed, s.cfg.LoopMode, s.cfg.LoopCount)
	return nil
}

// Abort stops playback before the next event or loop pass. Safe to call
// from any goroutine, any number of times.
func (s *Session) Abort() {
	s.aborted.Store(true)
	s.abortOnce.Do(func() { close(s.abort) })
}

// Done is closed when the session finishes or aborts.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	return s.Result()
}

// Result returns the completion summary; it is zero while active.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// State returns the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the session is playing.
func (s *Session) Active() bool {
	return s.State() == Active
}

// Config returns the normalized configuration in use.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Progress returns the current pass (1-based), the number of events
// handled in it and the snapshot size.
func (s *Session) Progress() (pass, index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pass, s.index, len(s.events)
}

func (s *Session) run() {
	defer close(s.done)

	res := Result{State: Finished}
	passes := s.cfg.Passes()

loop:
	for pass := 1; passes == 0 || pass <= passes; pass++ {
		if s.aborted.Load() {
			res.State = Aborted
			break
		}
		s.setProgress(pass, 0)
		res.Passes = pass

		loopStart := s.clock.Now()
		for i, e := range s.events {
			if s.aborted.Load() || !s.waitUntil(loopStart.Add(s.cfg.offset(e.Time))) {
				res.State = Aborted
				break loop
			}

			err := s.dispatch(e)
			switch {
			case err == nil:
				res.Dispatched++
			case errors.Is(err, input.ErrFailSafe):
				log.Printf("Playback: Fail-safe triggered at event %d, aborting", i)
				res.State, res.FailSafe, res.Err = Aborted, true, err
				break loop
			case errors.Is(err, errUnsupportedKey):
				// skipped silently
			default:
				log.Printf("Playback: Skipping event %d (%s): %v", i, e.Type, err)
				res.Skipped++
			}
			s.setProgress(pass, i+1)
		}
	}

	s.mu.Lock()
	s.state = res.State
	s.result = res
	s.mu.Unlock()

	log.Printf("Playback: Session %s ended: %s", s.id, res.Status())
}

// waitUntil sleeps until fireAt on the session clock. It returns false if
// the session was aborted while waiting.
func (s *Session) waitUntil(fireAt time.Time) bool {
	d := fireAt.Sub(s.clock.Now())
	if d <= 0 {
		return !s.aborted.Load()
	}
	select {
	case <-s.clock.After(d):
		return !s.aborted.Load()
	case <-s.abort:
		return false
	}
}

func (s *Session) dispatch(e recording.Event) error {
	switch e.Type {
	case input.MouseMove:
		return s.injector.MoveTo(e.X, e.Y)
	case input.MouseClick:
		button := keymap.TranslateButton(e.Button)
		if e.Pressed {
			return s.injector.MouseDown(button)
		}
		return s.injector.MouseUp(button)
	case input.KeyPress, input.KeyRelease:
		key, ok := keymap.Translate(e.Key)
		if !ok {
			return errUnsupportedKey
		}
		if e.Type == input.KeyPress {
			return s.injector.KeyDown(key)
		}
		return s.injector.KeyUp(key)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

func (s *Session) setProgress(pass, index int) {
	s.mu.Lock()
	s.pass, s.index = pass, index
	s.mu.Unlock()
}
