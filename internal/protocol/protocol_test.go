package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodePayloadFromWire(t *testing.T) {
	raw := `{"type":"start_playback","payload":{"speed":2.5,"loop_count":3}}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Type != TypeStartPlayback {
		t.Errorf("Expected %s, got %s", TypeStartPlayback, msg.Type)
	}

	var p StartPlaybackPayload
	if err := msg.DecodePayload(&p); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if p.Speed == nil || *p.Speed != 2.5 {
		t.Errorf("Expected speed 2.5, got %v", p.Speed)
	}
	if p.LoopCount == nil || *p.LoopCount != 3 {
		t.Errorf("Expected loop_count 3, got %v", p.LoopCount)
	}
	if p.LoopMode != nil {
		t.Errorf("Expected loop_mode unset, got %v", *p.LoopMode)
	}
}

func TestDecodePayloadNil(t *testing.T) {
	var p FilePayload
	if err := (Message{Type: TypeGetStats}).DecodePayload(&p); err != nil {
		t.Errorf("Expected nil payload to decode, got %v", err)
	}
}

func TestSnapshotWireNames(t *testing.T) {
	data, _ := json.Marshal(Message{Type: TypeStatsUpdate, Payload: StatusSnapshot{Status: "Ready", Duration: "00:00:00"}})
	s := string(data)
	for _, key := range []string{`"status":"Ready"`, `"total_events":0`, `"eps":0`, `"is_recording":false`, `"last_event":""`} {
		if !strings.Contains(s, key) {
			t.Errorf("Expected %s in %s", key, s)
		}
	}
	if strings.Contains(s, "recording_id") {
		t.Errorf("Expected optional ids to be omitted: %s", s)
	}
}

func TestIsCommand(t *testing.T) {
	if !IsCommand(TypeGetStats) || !IsCommand(TypeLoadRecording) {
		t.Error("Expected commands to be recognised")
	}
	if IsCommand(TypeStatsUpdate) || IsCommand("switch") {
		t.Error("Expected non-commands to be rejected")
	}
}
