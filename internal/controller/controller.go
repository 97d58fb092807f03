// Package controller routes Control Channel commands to recording and
// playback sessions and publishes status snapshots.
package controller

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"keymouse/internal/clock"
	"keymouse/internal/config"
	"keymouse/internal/input"
	"keymouse/internal/playback"
	"keymouse/internal/protocol"
	"keymouse/internal/recording"
)

const (
	statusReady = "Ready"
	noLastEvent = "None"
)

// Controller owns the event buffer and at most one recording and one
// playback session at a time. Recording and playback are independent: both
// may be active together, only duplicate starts of the same kind are refused.
type Controller struct {
	configMgr *config.Manager
	source    input.CaptureSource
	injector  input.Injector
	clock     clock.Clock
	buffer    *recording.Buffer

	mu         sync.Mutex
	recorder   *recording.Session
	recordDone chan struct{}
	player     *playback.Session
	status     string
	lastEvent  string

	listenerMu sync.RWMutex
	onStatus   func(protocol.StatusSnapshot)
}

// New creates a controller. clk may be nil for the wall clock.
func New(configMgr *config.Manager, source input.CaptureSource, injector input.Injector, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Controller{
		configMgr: configMgr,
		source:    source,
		injector:  injector,
		clock:     clk,
		buffer:    recording.NewBuffer(),
		status:    statusReady,
		lastEvent: noLastEvent,
	}
}

// Buffer returns the live event buffer.
func (c *Controller) Buffer() *recording.Buffer {
	return c.buffer
}

// SetOnStatus registers the status snapshot listener
func (c *Controller) SetOnStatus(fn func(protocol.StatusSnapshot)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.onStatus = fn
}

// IsRecording reports whether a recording session is active.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	rec := c.recorder
	c.mu.Unlock()
	return rec != nil && rec.Active()
}

// IsPlaying reports whether a playback session is active.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	p := c.player
	c.mu.Unlock()
	return p != nil && p.Active()
}

// StartRecording begins a new recording session of the given type ("" for
// the configured default). The buffer is cleared.
func (c *Controller) StartRecording(recordType string) error {
	cfg := c.configMgr.Get()
	if recordType == "" {
		recordType = cfg.Recording.DefaultType
	}
	rt, err := recording.ParseRecordType(recordType)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.recorder != nil && c.recorder.Active() {
		c.mu.Unlock()
		log.Printf("Controller: Ignoring start_recording, already recording")
		return fmt.Errorf("%w: already recording", recording.ErrInvalidState)
	}

	session := recording.NewSession(c.source, c.buffer, recording.Options{
		Clock:        c.clock,
		MoveInterval: time.Duration(cfg.Recording.MoveSampleMs) * time.Millisecond,
	})
	if err := session.Start(rt); err != nil {
		c.status = "Error starting recording: " + err.Error()
		c.mu.Unlock()
		c.EmitStats()
		return err
	}
	if cfg.Recording.HomeCursor {
		c.homeCursor()
	}

	c.recorder = session
	c.recordDone = make(chan struct{})
	c.lastEvent = noLastEvent
	c.status = fmt.Sprintf("Recording... Press %s to stop", cfg.Hotkeys.StopRecording)
	done := c.recordDone
	c.mu.Unlock()

	go c.emitUntil(done, interval(cfg.Recording.StatusIntervalMs, 500))
	c.EmitStats()
	return nil
}

// StopRecording ends the active recording session.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	session := c.recorder
	if session == nil || !session.Active() {
		c.mu.Unlock()
		log.Printf("Controller: Ignoring stop_recording, not recording")
		return fmt.Errorf("%w: not recording", recording.ErrInvalidState)
	}

	if err := session.Stop(); err != nil {
		c.mu.Unlock()
		return err
	}
	close(c.recordDone)
	c.lastEvent = session.LastEvent()
	c.status = fmt.Sprintf("Recording stopped. Events: %d", c.buffer.Len())
	c.mu.Unlock()

	c.EmitStats()
	return nil
}

// PlaybackDefaults returns the configured playback settings.
func (c *Controller) PlaybackDefaults() playback.Config {
	p := c.configMgr.Get().Playback
	return playback.Config{Speed: p.Speed, LoopMode: p.LoopMode, LoopCount: p.LoopCount}
}

// StartPlayback plays a snapshot of the buffer with cfg.
func (c *Controller) StartPlayback(pc playback.Config) error {
	cfg := c.configMgr.Get()

	c.mu.Lock()
	if c.player != nil && c.player.Active() {
		c.mu.Unlock()
		log.Printf("Controller: Ignoring start_playback, already playing")
		return fmt.Errorf("%w: already playing", recording.ErrInvalidState)
	}
	if c.buffer.Len() == 0 {
		c.status = "No events to play"
		c.mu.Unlock()
		c.EmitStats()
		return recording.ErrEmptyBuffer
	}

	if cfg.Recording.HomeCursor {
		c.homeCursor()
	}

	session := playback.NewSession(c.injector, playback.Options{Clock: c.clock})
	if err := session.Start(c.buffer, pc); err != nil {
		c.mu.Unlock()
		return err
	}
	c.player = session
	c.status = fmt.Sprintf("Playing... Press %s to abort", cfg.Hotkeys.AbortPlayback)
	c.mu.Unlock()

	go c.watchPlayback(session, interval(cfg.Playback.StatusIntervalMs, 100))
	c.EmitStats()
	return nil
}

// StopPlayback aborts the active playback session and waits for it to end.
func (c *Controller) StopPlayback() error {
	c.mu.Lock()
	session := c.player
	c.mu.Unlock()

	if session == nil || !session.Active() {
		log.Printf("Controller: Ignoring stop_playback, not playing")
		return fmt.Errorf("%w: not playing", recording.ErrInvalidState)
	}

	session.Abort()
	<-session.Done()
	return nil
}

// Close stops any active session.
func (c *Controller) Close() {
	if c.IsRecording() {
		c.StopRecording()
	}
	if c.IsPlaying() {
		c.StopPlayback()
	}
}

func (c *Controller) watchPlayback(session *playback.Session, every time.Duration) {
	c.emitUntil(session.Done(), every)

	res := session.Result()
	c.mu.Lock()
	if c.player == session {
		c.status = res.Status()
	}
	c.mu.Unlock()

	c.EmitStats()
}

func (c *Controller) emitUntil(done <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.EmitStats()
		}
	}
}

// homeCursor parks the cursor at (0,0). Injectors with a fail-safe guard
// home through input.Homer so the parked cursor does not trip it.
func (c *Controller) homeCursor() {
	var err error
	if h, ok := c.injector.(input.Homer); ok {
		err = h.Home()
	} else {
		err = c.injector.MoveTo(0, 0)
	}
	if err != nil && !errors.Is(err, input.ErrUnsupported) {
		log.Printf("Controller: Failed to home cursor: %v", err)
	}
}

func interval(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}
