//go:build !windows

package input

import "log"

// Capture is the platform capture source. Global hooks are only available
// on Windows; elsewhere Start reports ErrUnsupported.
type Capture struct{}

// NewCapture creates the platform capture source.
func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) Start() error {
	log.Println("Capture: Global input hooks not supported on this platform")
	return ErrUnsupported
}

func (c *Capture) Stop() error {
	return nil
}

func (c *Capture) Events() <-chan InputEvent {
	return nil
}
