package hotkey

import (
	"errors"
	"log"
	"sync"

	"keymouse/internal/config"
	"keymouse/internal/playback"
	"keymouse/internal/recording"
)

// Controls is the part of the session controller driven by hotkeys.
type Controls interface {
	IsRecording() bool
	IsPlaying() bool
	StartRecording(recordType string) error
	StopRecording() error
	StartPlayback(cfg playback.Config) error
	StopPlayback() error
	PlaybackDefaults() playback.Config
}

// Service binds the configured global hotkeys to the controller. Each
// hotkey acts only in its complementary state: start-recording is a no-op
// while recording, abort-playback a no-op while idle.
type Service struct {
	manager *Manager
	ctrl    Controls

	mu   sync.Mutex
	keys config.HotkeyConfig
}

// NewService creates a hotkey service for ctrl.
func NewService(ctrl Controls) *Service {
	return &Service{
		manager: NewManager(),
		ctrl:    ctrl,
	}
}

// Manager returns the underlying hotkey manager.
func (s *Service) Manager() *Manager {
	return s.manager
}

// Start registers keys and installs the global hooks.
func (s *Service) Start(keys config.HotkeyConfig) error {
	s.Register(keys)
	if err := s.manager.Start(); err != nil {
		return err
	}
	log.Printf("Hotkey Engine: %s=start recording, %s=stop recording, %s=start playback, %s=abort playback",
		keys.StartRecording, keys.StopRecording, keys.StartPlayback, keys.AbortPlayback)
	return nil
}

// Stop removes the global hooks.
func (s *Service) Stop() error {
	return s.manager.Stop()
}

// Register replaces the registered hotkeys, e.g. after a configuration reload.
func (s *Service) Register(keys config.HotkeyConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keys == s.keys {
		return
	}
	s.keys = keys

	s.manager.Clear()
	s.manager.Register(keys.StartRecording, s.startRecording)
	s.manager.Register(keys.StopRecording, s.stopRecording)
	s.manager.Register(keys.StartPlayback, s.startPlayback)
	s.manager.Register(keys.AbortPlayback, s.abortPlayback)
}

func (s *Service) startRecording() {
	if s.ctrl.IsRecording() {
		return
	}
	report("start recording", s.ctrl.StartRecording(""))
}

func (s *Service) stopRecording() {
	if !s.ctrl.IsRecording() {
		return
	}
	report("stop recording", s.ctrl.StopRecording())
}

func (s *Service) startPlayback() {
	if s.ctrl.IsPlaying() {
		return
	}
	report("start playback", s.ctrl.StartPlayback(s.ctrl.PlaybackDefaults()))
}

func (s *Service) abortPlayback() {
	if !s.ctrl.IsPlaying() {
		return
	}
	report("abort playback", s.ctrl.StopPlayback())
}

func report(action string, err error) {
	if err != nil && !errors.Is(err, recording.ErrInvalidState) {
		log.Printf("Hotkey Engine: Failed to %s: %v", action, err)
	}
}
