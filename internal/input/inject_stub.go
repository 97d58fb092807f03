//go:build !windows

package input

// Options tunes the platform injector.
type Options struct {
	// FailSafe refuses actions while the cursor sits in a screen corner.
	FailSafe bool
}

// PlatformInjector is the platform input injector. Every call fails with
// ErrUnsupported on platforms without an implementation.
type PlatformInjector struct {
	opts Options
}

// NewInjector creates the platform injector.
func NewInjector(opts Options) *PlatformInjector {
	return &PlatformInjector{opts: opts}
}

func (i *PlatformInjector) MoveTo(x, y int) error      { return ErrUnsupported }
func (i *PlatformInjector) MouseDown(btn string) error { return ErrUnsupported }
func (i *PlatformInjector) MouseUp(btn string) error   { return ErrUnsupported }
func (i *PlatformInjector) KeyDown(key string) error   { return ErrUnsupported }
func (i *PlatformInjector) KeyUp(key string) error     { return ErrUnsupported }
func (i *PlatformInjector) Home() error                { return ErrUnsupported }
