package recording

import "errors"

var (
	// ErrInvalidState is returned when a session operation is not allowed
	// in the session's current state (start while active, stop while idle).
	ErrInvalidState = errors.New("invalid session state")

	// ErrEmptyBuffer is returned when there are no recorded events to save or play.
	ErrEmptyBuffer = errors.New("no recorded events")

	// ErrParse is returned when a persisted recording is malformed.
	ErrParse = errors.New("malformed recording")

	// ErrUnknownRecordType is returned for record types other than all, mouse and keyboard.
	ErrUnknownRecordType = errors.New("unknown record type")
)

func isParseErr(err error) bool {
	return errors.Is(err, ErrParse)
}
