package controller

import (
	"fmt"
	"math"
	"time"

	"keymouse/internal/protocol"
)

// Snapshot builds the current status snapshot.
func (c *Controller) Snapshot() protocol.StatusSnapshot {
	c.mu.Lock()
	rec, player := c.recorder, c.player
	status, lastEvent := c.status, c.lastEvent
	c.mu.Unlock()

	stats := c.buffer.Stats()
	snap := protocol.StatusSnapshot{
		Status:      status,
		MouseEvents: stats.MouseEvents(),
		KeyEvents:   stats.KeyEvents(),
		LastEvent:   lastEvent,
	}
	snap.TotalEvents = snap.MouseEvents + snap.KeyEvents

	duration := stats.Duration
	if rec != nil {
		snap.RecordingID = rec.ID()
		if rec.Active() {
			snap.IsRecording = true
			duration = rec.Elapsed()
			snap.LastEvent = rec.LastEvent()
			snap.Progress = min(100, snap.TotalEvents/10)
		}
	}
	if player != nil {
		snap.PlaybackID = player.ID()
		if player.Active() {
			snap.IsPlaying = true
			snap.LoopPass, _, _ = player.Progress()
		}
	}

	snap.Duration = formatDuration(duration)
	if secs := duration.Seconds(); secs > 0 {
		snap.EventsPerSecond = math.Round(float64(snap.TotalEvents)/secs*10) / 10
	}
	return snap
}

// EmitStats pushes one snapshot to the status listener.
func (c *Controller) EmitStats() {
	c.listenerMu.RLock()
	fn := c.onStatus
	c.listenerMu.RUnlock()

	if fn != nil {
		fn(c.Snapshot())
	}
}

// formatDuration renders d as HH:MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
