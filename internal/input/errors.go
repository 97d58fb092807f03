package input

import "errors"

var (
	// ErrFailSafe is returned by an injector when its fail-safe guard trips
	// (cursor parked in a screen corner). Playback aborts on it.
	ErrFailSafe = errors.New("input: fail-safe triggered")

	// ErrUnsupported is returned on platforms without capture or injection.
	ErrUnsupported = errors.New("input: not supported on this platform")

	// ErrUnknownKey is returned when the injector has no code for a key name.
	ErrUnknownKey = errors.New("input: unknown key")

	// ErrUnknownButton is returned when the injector has no code for a button name.
	ErrUnknownButton = errors.New("input: unknown button")
)
