package protocol

import "encoding/json"

// MessageType defines the type of Control Channel message
type MessageType string

const (
	// TypeStartRecording begins a recording session
	TypeStartRecording MessageType = "start_recording"

	// TypeStopRecording ends the active recording session
	TypeStopRecording MessageType = "stop_recording"

	// TypeStartPlayback plays the recorded buffer
	TypeStartPlayback MessageType = "start_playback"

	// TypeStopPlayback aborts the active playback session
	TypeStopPlayback MessageType = "stop_playback"

	// TypeSaveRecording persists the buffer to a file
	TypeSaveRecording MessageType = "save_recording"

	// TypeLoadRecording replaces the buffer with a saved file
	TypeLoadRecording MessageType = "load_recording"

	// TypeGetStats asks for one immediate status snapshot
	TypeGetStats MessageType = "get_stats"

	// TypeStatsUpdate carries a StatusSnapshot (server to clients)
	TypeStatsUpdate MessageType = "stats_update"

	// TypeSaveResult and TypeLoadResult carry a ResultPayload
	TypeSaveResult MessageType = "save_result"
	TypeLoadResult MessageType = "load_result"

	// TypeError reports a rejected or malformed command
	TypeError MessageType = "error"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all Control Channel messages.
// A reply carries the ID of the command it answers; broadcasts have none.
type Message struct {
	ID      string      `json:"id,omitempty"`
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DecodePayload converts the generic payload into v.
func (m Message) DecodePayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// IsCommand reports whether t is a client-to-server command.
func IsCommand(t MessageType) bool {
	switch t {
	case TypeStartRecording, TypeStopRecording, TypeStartPlayback, TypeStopPlayback,
		TypeSaveRecording, TypeLoadRecording, TypeGetStats:
		return true
	}
	return false
}

// StartRecordingPayload is the payload for TypeStartRecording
type StartRecordingPayload struct {
	Type string `json:"type"` // all, mouse or keyboard
}

// StartPlaybackPayload is the payload for TypeStartPlayback. Missing
// fields fall back to the configured playback defaults.
type StartPlaybackPayload struct {
	Speed     *float64 `json:"speed,omitempty"`
	LoopMode  *bool    `json:"loop_mode,omitempty"`
	LoopCount *int     `json:"loop_count,omitempty"`
}

// FilePayload is the payload for TypeSaveRecording and TypeLoadRecording
type FilePayload struct {
	Filename string `json:"filename"`
}

// ResultPayload is the payload for TypeSaveResult and TypeLoadResult
type ResultPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Message string `json:"message"`
}

// StatusSnapshot is the payload for TypeStatsUpdate
type StatusSnapshot struct {
	Status          string  `json:"status"`
	TotalEvents     int     `json:"total_events"`
	MouseEvents     int     `json:"mouse_events"`
	KeyEvents       int     `json:"key_events"`
	Duration        string  `json:"duration"` // HH:MM:SS
	EventsPerSecond float64 `json:"eps"`
	Progress        int     `json:"progress"`
	LastEvent       string  `json:"last_event"`
	IsRecording     bool    `json:"is_recording"`
	IsPlaying       bool    `json:"is_playing"`

	RecordingID string `json:"recording_id,omitempty"`
	PlaybackID  string `json:"playback_id,omitempty"`
	LoopPass    int    `json:"loop_pass,omitempty"`
}
