package controller

import (
	"errors"
	"fmt"
	"log"

	"keymouse/internal/recording"
)

// Save writes the buffer to name (resolved against the recordings
// directory) and returns a user-facing message.
func (c *Controller) Save(name string) (string, error) {
	path := c.configMgr.ResolveRecording(name)

	n, err := recording.SaveBuffer(path, c.buffer, c.clock.Now())
	var msg string
	switch {
	case errors.Is(err, recording.ErrEmptyBuffer):
		msg = "No data to save"
	case err != nil:
		msg = "Error saving: " + err.Error()
	default:
		msg = fmt.Sprintf("Saved to %s", path)
		log.Printf("Controller: Saved %d events to %s", n, path)
	}

	c.setStatus(msg)
	return msg, err
}

// Load replaces the buffer with the recording at name. Counters are
// recomputed from the loaded events; the buffer is unchanged on failure.
func (c *Controller) Load(name string) (string, error) {
	path := c.configMgr.ResolveRecording(name)

	if c.IsRecording() {
		msg := "Error loading: recording in progress"
		c.setStatus(msg)
		return msg, fmt.Errorf("%w: recording in progress", recording.ErrInvalidState)
	}

	n, err := recording.LoadBuffer(path, c.buffer)
	if err != nil {
		msg := "Error loading: " + err.Error()
		c.setStatus(msg)
		return msg, err
	}

	msg := fmt.Sprintf("Loaded: %d events", n)
	log.Printf("Controller: Loaded %d events from %s", n, path)

	c.mu.Lock()
	c.lastEvent = noLastEvent
	c.status = msg
	c.mu.Unlock()
	c.EmitStats()
	return msg, nil
}

func (c *Controller) setStatus(msg string) {
	c.mu.Lock()
	c.status = msg
	c.mu.Unlock()
	c.EmitStats()
}
