package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.General.APIPort != 5000 {
		t.Errorf("Expected API port 5000, got %d", cfg.General.APIPort)
	}
	if cfg.Hotkeys.StartRecording != "F1" || cfg.Hotkeys.AbortPlayback != "F4" {
		t.Errorf("Unexpected default hotkeys %+v", cfg.Hotkeys)
	}
	if cfg.Recording.MoveSampleMs != 50 || cfg.Recording.StatusIntervalMs != 500 {
		t.Errorf("Unexpected recording defaults %+v", cfg.Recording)
	}
	if cfg.Playback.Speed != 1.0 || cfg.Playback.LoopCount != 1 || cfg.Playback.StatusIntervalMs != 100 {
		t.Errorf("Unexpected playback defaults %+v", cfg.Playback)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadMissingKeepsDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if m.Get().General.APIPort != 5000 {
		t.Error("Expected defaults")
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"config.json", `{"general": {"api_port": 6000}, "playback": {"speed": 2}}`},
		{"config.yaml", "general:\n  api_port: 6000\nplayback:\n  speed: 2\n"},
		{"config.toml", "[general]\napi_port = 6000\n\n[playback]\nspeed = 2.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			os.WriteFile(path, []byte(tt.content), 0644)

			m, _ := NewManager(path)
			if err := m.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			cfg := m.Get()
			if cfg.General.APIPort != 6000 {
				t.Errorf("Expected port 6000, got %d", cfg.General.APIPort)
			}
			if cfg.Playback.Speed != 2 {
				t.Errorf("Expected speed 2, got %v", cfg.Playback.Speed)
			}
			// Unset keys keep their defaults.
			if cfg.Hotkeys.StartRecording != "F1" || cfg.Playback.LoopCount != 1 {
				t.Errorf("Expected defaults for unset keys, got %+v / %+v", cfg.Hotkeys, cfg.Playback)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", "config"+ext)
			m, _ := NewManager(path)

			cfg := m.Get()
			cfg.Hotkeys.StartPlayback = "Ctrl+Alt+P"
			cfg.Playback.LoopMode = true
			m.Set(cfg)
			if err := m.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			m2, _ := NewManager(path)
			if err := m2.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			got := m2.Get()
			if got.Hotkeys.StartPlayback != "Ctrl+Alt+P" || !got.Playback.LoopMode {
				t.Errorf("Round trip lost settings: %+v", got)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"bad.json":  "{",
		"port.json": `{"general": {"api_port": 70000}}`,
		"type.yaml": "recording:\n  default_type: touch\n",
	} {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(content), 0644)
		m, _ := NewManager(path)
		if err := m.Load(); err == nil {
			t.Errorf("%s: expected error", name)
		}
		if m.Get().General.APIPort != 5000 {
			t.Errorf("%s: expected defaults to survive a failed load", name)
		}
	}
}

func TestChangeCallbacks(t *testing.T) {
	m, _ := NewManager(filepath.Join(t.TempDir(), "config.json"))
	calls := 0
	m.RegisterChangeCallback(func() {
		calls++
		_ = m.Get() // must not deadlock
	})
	m.Set(DefaultConfig())
	if calls != 1 {
		t.Errorf("Expected 1 callback, got %d", calls)
	}
}

func TestResolveRecording(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(filepath.Join(dir, "config.json"))

	if got := m.ResolveRecording(""); got != filepath.Join(dir, "recordings", "recording.json") {
		t.Errorf("Unexpected default path %s", got)
	}
	abs := filepath.Join(dir, "abs.json")
	if got := m.ResolveRecording(abs); got != abs {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}

	cfg := m.Get()
	cfg.Recording.RecordingsDir = filepath.Join(dir, "macros")
	m.Set(cfg)
	if got := m.ResolveRecording("a.json"); got != filepath.Join(dir, "macros", "a.json") {
		t.Errorf("Unexpected path %s", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m, _ := NewManager(filepath.Join(t.TempDir(), "config.json"))
	cfg := m.Get()
	cfg.General.APIPort = 1
	if m.Get().General.APIPort != 5000 {
		t.Error("Expected Get to return a copy")
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("general:\n  api_port: 5001\n"), 0644)

	m, _ := NewManager(path)
	m.Load()

	changed := make(chan int, 4)
	m.RegisterChangeCallback(func() { changed <- m.Get().General.APIPort })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, []byte("general:\n  api_port: 5002\n"), 0644)

	select {
	case port := <-changed:
		if port != 5002 {
			t.Errorf("Expected reloaded port 5002, got %d", port)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watcher did not reload the configuration")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
	if !strings.HasSuffix(m.Path(), "config.yaml") {
		t.Errorf("Unexpected path %s", m.Path())
	}
}
