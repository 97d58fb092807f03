// Package config provides configuration management for the recorder service.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// General contains service settings
	General GeneralConfig `json:"general" yaml:"general" toml:"general"`

	// Hotkeys maps each global action to a single key
	Hotkeys HotkeyConfig `json:"hotkeys" yaml:"hotkeys" toml:"hotkeys"`

	// Recording contains recording defaults
	Recording RecordingConfig `json:"recording" yaml:"recording" toml:"recording"`

	// Playback contains playback defaults
	Playback PlaybackConfig `json:"playback" yaml:"playback" toml:"playback"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// APIEnabled enables the HTTP/websocket Control Channel
	APIEnabled bool `json:"api_enabled" yaml:"api_enabled" toml:"api_enabled"`

	// APIHost is the listen address of the API server
	APIHost string `json:"api_host" yaml:"api_host" toml:"api_host"`

	// APIPort is the port for the API server (default: 5000)
	APIPort int `json:"api_port" yaml:"api_port" toml:"api_port"`

	// APIToken is an optional authentication token for API requests
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty" toml:"api_token,omitempty"`

	// ShowTray shows the system tray menu
	ShowTray bool `json:"show_tray" yaml:"show_tray" toml:"show_tray"`
}

// HotkeyConfig holds the global hotkeys (e.g. "F1", "Ctrl+Alt+R")
type HotkeyConfig struct {
	StartRecording string `json:"start_recording" yaml:"start_recording" toml:"start_recording"`
	StopRecording  string `json:"stop_recording" yaml:"stop_recording" toml:"stop_recording"`
	StartPlayback  string `json:"start_playback" yaml:"start_playback" toml:"start_playback"`
	AbortPlayback  string `json:"abort_playback" yaml:"abort_playback" toml:"abort_playback"`
}

// RecordingConfig contains recording settings
type RecordingConfig struct {
	// DefaultType is all, mouse or keyboard
	DefaultType string `json:"default_type" yaml:"default_type" toml:"default_type"`

	// MoveSampleMs is the minimum gap between recorded mouse moves
	MoveSampleMs int `json:"move_sample_ms" yaml:"move_sample_ms" toml:"move_sample_ms"`

	// StatusIntervalMs is the status push interval while recording
	StatusIntervalMs int `json:"status_interval_ms" yaml:"status_interval_ms" toml:"status_interval_ms"`

	// RecordingsDir is where relative recording file names resolve
	RecordingsDir string `json:"recordings_dir,omitempty" yaml:"recordings_dir,omitempty" toml:"recordings_dir,omitempty"`

	// DefaultFile is used by save/load requests without a file name
	DefaultFile string `json:"default_file" yaml:"default_file" toml:"default_file"`

	// HomeCursor moves the cursor to (0,0) when recording or playback starts
	HomeCursor bool `json:"home_cursor" yaml:"home_cursor" toml:"home_cursor"`
}

// PlaybackConfig contains playback defaults
type PlaybackConfig struct {
	Speed            float64 `json:"speed" yaml:"speed" toml:"speed"`
	LoopMode         bool    `json:"loop_mode" yaml:"loop_mode" toml:"loop_mode"`
	LoopCount        int     `json:"loop_count" yaml:"loop_count" toml:"loop_count"`
	StatusIntervalMs int     `json:"status_interval_ms" yaml:"status_interval_ms" toml:"status_interval_ms"`

	// FailSafe aborts playback when the cursor is parked in a screen corner
	FailSafe bool `json:"fail_safe" yaml:"fail_safe" toml:"fail_safe"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			APIEnabled: true,
			APIHost:    "0.0.0.0",
			APIPort:    5000,
			ShowTray:   true,
		},
		Hotkeys: HotkeyConfig{
			StartRecording: "F1",
			StopRecording:  "F2",
			StartPlayback:  "F3",
			AbortPlayback:  "F4",
		},
		Recording: RecordingConfig{
			DefaultType:      "all",
			MoveSampleMs:     50,
			StatusIntervalMs: 500,
			DefaultFile:      "recording.json",
			HomeCursor:       true,
		},
		Playback: PlaybackConfig{
			Speed:            1.0,
			LoopCount:        1,
			StatusIntervalMs: 100,
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.General.APIPort < 0 || c.General.APIPort > 65535 {
		return fmt.Errorf("invalid api_port %d", c.General.APIPort)
	}
	switch strings.ToLower(c.Recording.DefaultType) {
	case "", "all", "mouse", "keyboard":
	default:
		return fmt.Errorf("invalid recording.default_type %q", c.Recording.DefaultType)
	}
	if c.Recording.MoveSampleMs < 0 || c.Recording.StatusIntervalMs < 0 || c.Playback.StatusIntervalMs < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	if c.Playback.Speed < 0 {
		return fmt.Errorf("invalid playback.speed %v", c.Playback.Speed)
	}
	return nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  []func()
}

// NewManager creates a configuration manager for path. An empty path
// selects config.json in the per-OS configuration directory.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = getConfigPath(); err != nil {
			return nil, err
		}
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// configDir returns the per-OS configuration directory
func configDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "keymouse"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "keymouse"), nil
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "keymouse"), nil
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.json"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatFor(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

// Decode parses data in the format implied by path's extension on top of
// the defaults.
func Decode(path string, data []byte) (*Config, error) {
	cfg := DefaultConfig()

	var err error
	switch formatFor(path) {
	case formatYAML:
		err = yaml.Unmarshal(data, cfg)
	case formatTOML:
		err = toml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Encode serializes cfg in the format implied by path's extension.
func Encode(path string, cfg *Config) ([]byte, error) {
	switch formatFor(path) {
	case formatYAML:
		return yaml.Marshal(cfg)
	case formatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := Decode(m.configPath, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	m.notify()
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := Encode(m.configPath, m.config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := *m.config
	return &cfg
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	m.notify()
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

func (m *Manager) notify() {
	m.mu.Lock()
	callbacks := append([]func(){}, m.onChanged...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// RecordingsDir returns the configured recordings directory, defaulting to
// "recordings" next to the configuration file.
func (m *Manager) RecordingsDir() string {
	m.mu.Lock()
	dir := m.config.Recording.RecordingsDir
	m.mu.Unlock()

	if dir == "" {
		return filepath.Join(filepath.Dir(m.configPath), "recordings")
	}
	return dir
}

// ResolveRecording maps a recording name to a path. Empty names use the
// default file; relative names resolve against RecordingsDir.
func (m *Manager) ResolveRecording(name string) string {
	if name == "" {
		name = m.Get().Recording.DefaultFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(m.RecordingsDir(), name)
}
