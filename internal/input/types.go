// Package input provides the input capture and injection contracts used by
// the recorder, and their platform implementations.
package input

import "time"

// EventType identifies the kind of captured input notification.
type EventType string

const (
	MouseMove  EventType = "mouse_move"
	MouseClick EventType = "mouse_click"
	KeyPress   EventType = "key_press"
	KeyRelease EventType = "key_release"
)

// InputEvent is a raw notification delivered by a capture source.
//
// Keys are identified as "Key.<name>" for named keys, "'c'" for printable
// characters and "<vk>" for anything else. Buttons are "Button.<name>".
type InputEvent struct {
	Type    EventType `json:"type"`
	X       int       `json:"x,omitempty"`
	Y       int       `json:"y,omitempty"`
	Button  string    `json:"button,omitempty"`
	Pressed bool      `json:"pressed,omitempty"`
	Key     string    `json:"key,omitempty"`
	Time    time.Time `json:"time"` // capture time; zero means "now" to the consumer
}

// CaptureSource delivers mouse and keyboard notifications while started.
// Events returns the channel for the current capture run; it may be closed
// by Stop.
type CaptureSource interface {
	Start() error
	Stop() error
	Events() <-chan InputEvent
}

// Injector synthesizes mouse and keyboard input. Implementations return
// ErrFailSafe when an action is refused by the fail-safe guard; any other
// error applies to that single action only.
type Injector interface {
	MoveTo(x, y int) error
	MouseDown(button string) error
	MouseUp(button string) error
	KeyDown(key string) error
	KeyUp(key string) error
}
