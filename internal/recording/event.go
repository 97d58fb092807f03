// Package recording holds captured events, the buffer they are recorded
// into, the recording session and the on-disk recording format.
package recording

import (
	"encoding/json"
	"fmt"
	"math"

	"keymouse/internal/input"
)

// Event is one captured input event. Type selects which fields are
// meaningful:
//
//	mouse_move:  X, Y
//	mouse_click: X, Y, Button, Pressed
//	key_press:   Key
//	key_release: Key
//
// Time is seconds since the recording started.
type Event struct {
	Type    input.EventType
	X       int
	Y       int
	Button  string
	Pressed bool
	Key     string
	Time    float64
}

// Move, Click, Press and Release build the four event variants.
func Move(x, y int, t float64) Event {
	return Event{Type: input.MouseMove, X: x, Y: y, Time: t}
}

func Click(x, y int, button string, pressed bool, t float64) Event {
	return Event{Type: input.MouseClick, X: x, Y: y, Button: button, Pressed: pressed, Time: t}
}

func Press(key string, t float64) Event {
	return Event{Type: input.KeyPress, Key: key, Time: t}
}

func Release(key string, t float64) Event {
	return Event{Type: input.KeyRelease, Key: key, Time: t}
}

type moveJSON struct {
	Type input.EventType `json:"type"`
	X    int             `json:"x"`
	Y    int             `json:"y"`
	Time float64         `json:"time"`
}

type clickJSON struct {
	Type    input.EventType `json:"type"`
	X       int             `json:"x"`
	Y       int             `json:"y"`
	Button  string          `json:"button"`
	Pressed bool            `json:"pressed"`
	Time    float64         `json:"time"`
}

type keyJSON struct {
	Type input.EventType `json:"type"`
	Key  string          `json:"key"`
	Time float64         `json:"time"`
}

// MarshalJSON writes only the fields of the event's variant.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case input.MouseMove:
		return json.Marshal(moveJSON{e.Type, e.X, e.Y, e.Time})
	case input.MouseClick:
		return json.Marshal(clickJSON{e.Type, e.X, e.Y, e.Button, e.Pressed, e.Time})
	case input.KeyPress, input.KeyRelease:
		return json.Marshal(keyJSON{e.Type, e.Key, e.Time})
	default:
		return nil, fmt.Errorf("cannot encode event type %q", e.Type)
	}
}

// wireEvent accepts any variant; pointers tell missing fields apart from zero values.
type wireEvent struct {
	Type    input.EventType `json:"type"`
	X       *float64        `json:"x"`
	Y       *float64        `json:"y"`
	Button  *string         `json:"button"`
	Pressed *bool           `json:"pressed"`
	Key     *string         `json:"key"`
	Time    *float64        `json:"time"`
}

// UnmarshalJSON validates that the variant's required fields are present.
// Failures wrap ErrParse.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if w.Time == nil {
		return fmt.Errorf("%w: %s event without time", ErrParse, w.Type)
	}
	if *w.Time < 0 || math.IsNaN(*w.Time) {
		return fmt.Errorf("%w: negative event time %v", ErrParse, *w.Time)
	}

	ev := Event{Type: w.Type, Time: *w.Time}
	switch w.Type {
	case input.MouseMove, input.MouseClick:
		if w.X == nil || w.Y == nil {
			return fmt.Errorf("%w: %s event without coordinates", ErrParse, w.Type)
		}
		ev.X, ev.Y = int(math.Round(*w.X)), int(math.Round(*w.Y))
		if w.Type == input.MouseClick {
			if w.Button == nil || w.Pressed == nil {
				return fmt.Errorf("%w: mouse_click event without button state", ErrParse)
			}
			ev.Button, ev.Pressed = *w.Button, *w.Pressed
		}
	case input.KeyPress, input.KeyRelease:
		if w.Key == nil {
			return fmt.Errorf("%w: %s event without key", ErrParse, w.Type)
		}
		ev.Key = *w.Key
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrParse, w.Type)
	}

	*e = ev
	return nil
}
