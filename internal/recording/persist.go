package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDescription is written into recordings saved without one.
const DefaultDescription = "Recorded macro"

// PersistedStats is the summary block of a saved recording. Only Duration
// is trusted on load; counts are recomputed from the events.
type PersistedStats struct {
	TotalEvents int     `json:"total_events"`
	MouseEvents int     `json:"mouse_events"`
	KeyEvents   int     `json:"key_events"`
	Duration    float64 `json:"duration"`
}

// PersistedRecording is the on-disk recording format.
type PersistedRecording struct {
	Events      []Event        `json:"events"`
	Timestamp   float64        `json:"timestamp"`
	Description string         `json:"description"`
	Stats       PersistedStats `json:"stats"`
}

// NewPersistedRecording builds the file contents for events and stats saved at now.
func NewPersistedRecording(events []Event, stats Stats, description string, now time.Time) *PersistedRecording {
	if description == "" {
		description = DefaultDescription
	}
	return &PersistedRecording{
		Events:      events,
		Timestamp:   float64(now.UnixNano()) / float64(time.Second),
		Description: description,
		Stats: PersistedStats{
			TotalEvents: len(events),
			MouseEvents: stats.MouseEvents(),
			KeyEvents:   stats.KeyEvents(),
			Duration:    stats.Duration.Seconds(),
		},
	}
}

// Duration returns the trusted duration from the stats block.
func (r *PersistedRecording) Duration() time.Duration {
	return time.Duration(r.Stats.Duration * float64(time.Second))
}

// Save writes rec to path atomically (temp file + rename). It refuses to
// write a recording without events.
func Save(path string, rec *PersistedRecording) error {
	if len(rec.Events) == 0 {
		return ErrEmptyBuffer
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding recording: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Load reads a recording from path. IO failures keep their *fs.PathError;
// malformed content wraps ErrParse.
func Load(path string) (*PersistedRecording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses recording file contents.
func Decode(data []byte) (*PersistedRecording, error) {
	var raw struct {
		Events      *[]Event       `json:"events"`
		Timestamp   float64        `json:"timestamp"`
		Description string         `json:"description"`
		Stats       PersistedStats `json:"stats"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Event.UnmarshalJSON already wraps ErrParse; avoid wrapping twice.
		if isParseErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if raw.Events == nil {
		return nil, fmt.Errorf("%w: missing events", ErrParse)
	}
	if raw.Stats.Duration < 0 {
		return nil, fmt.Errorf("%w: negative duration", ErrParse)
	}
	return &PersistedRecording{
		Events:      *raw.Events,
		Timestamp:   raw.Timestamp,
		Description: raw.Description,
		Stats:       raw.Stats,
	}, nil
}

// SaveBuffer persists the buffer contents to path.
func SaveBuffer(path string, buf *Buffer, now time.Time) (int, error) {
	events, stats := buf.Export()
	if len(events) == 0 {
		return 0, ErrEmptyBuffer
	}
	if err := Save(path, NewPersistedRecording(events, stats, "", now)); err != nil {
		return 0, err
	}
	return len(events), nil
}

// LoadBuffer replaces the buffer contents with the recording at path. The
// buffer is left untouched when loading fails.
func LoadBuffer(path string, buf *Buffer) (int, error) {
	rec, err := Load(path)
	if err != nil {
		return 0, err
	}
	buf.Replace(rec.Events, rec.Duration())
	return len(rec.Events), nil
}
