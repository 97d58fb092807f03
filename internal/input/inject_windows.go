//go:build windows

package input

import (
	"fmt"
	"unsafe"
)

var (
	procSendInput        = user32.NewProc("SendInput")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procGetCursorPos     = user32.NewProc("GetCursorPos")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
	procVkKeyScan        = user32.NewProc("VkKeyScanW")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyEventFKeyUp = 0x0002

	mouseEventFLeftDown   = 0x0002
	mouseEventFLeftUp     = 0x0004
	mouseEventFRightDown  = 0x0008
	mouseEventFRightUp    = 0x0010
	mouseEventFMiddleDown = 0x0020
	mouseEventFMiddleUp   = 0x0040
	mouseEventFXDown      = 0x0080
	mouseEventFXUp        = 0x0100

	smCxScreen = 0
	smCyScreen = 1
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// INPUT is a tagged union; both layouts are padded to the same size.
type mouseINPUT struct {
	Type uint32
	Mi   mouseInput
}

type keyboardINPUT struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte
}

type buttonFlags struct {
	down, up uint32
	data     uint32
}

var buttons = map[string]buttonFlags{
	"left":   {mouseEventFLeftDown, mouseEventFLeftUp, 0},
	"right":  {mouseEventFRightDown, mouseEventFRightUp, 0},
	"middle": {mouseEventFMiddleDown, mouseEventFMiddleUp, 0},
	"x1":     {mouseEventFXDown, mouseEventFXUp, 1},
	"x2":     {mouseEventFXDown, mouseEventFXUp, 2},
}

// Options tunes the platform injector.
type Options struct {
	// FailSafe refuses actions while the cursor sits in a screen corner.
	FailSafe bool
}

// PlatformInjector synthesizes input with SendInput.
type PlatformInjector struct {
	guard *FailSafeGuard
}

// NewInjector creates the Windows injector.
func NewInjector(opts Options) *PlatformInjector {
	return &PlatformInjector{guard: &FailSafeGuard{Enabled: opts.FailSafe}}
}

func (i *PlatformInjector) MoveTo(x, y int) error {
	if err := i.checkFailSafe(); err != nil {
		return err
	}
	if err := setCursorPos(x, y); err != nil {
		return err
	}
	i.guard.Moved()
	return nil
}

// Home parks the cursor at (0,0). The fail-safe check stays off until the
// next MoveTo.
func (i *PlatformInjector) Home() error {
	if err := setCursorPos(0, 0); err != nil {
		return err
	}
	i.guard.Suspend()
	return nil
}

func setCursorPos(x, y int) error {
	ret, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ret == 0 {
		return fmt.Errorf("SetCursorPos(%d, %d): %v", x, y, err)
	}
	return nil
}

func (i *PlatformInjector) MouseDown(button string) error {
	return i.mouseButton(button, true)
}

func (i *PlatformInjector) MouseUp(button string) error {
	return i.mouseButton(button, false)
}

func (i *PlatformInjector) KeyDown(key string) error {
	return i.key(key, true)
}

func (i *PlatformInjector) KeyUp(key string) error {
	return i.key(key, false)
}

func (i *PlatformInjector) mouseButton(button string, pressed bool) error {
	if err := i.checkFailSafe(); err != nil {
		return err
	}
	flags, ok := buttons[button]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownButton, button)
	}

	in := mouseINPUT{Type: inputMouse}
	in.Mi.MouseData = flags.data
	if pressed {
		in.Mi.DwFlags = flags.down
	} else {
		in.Mi.DwFlags = flags.up
	}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (i *PlatformInjector) key(name string, pressed bool) error {
	if err := i.checkFailSafe(); err != nil {
		return err
	}
	vk, err := virtualKey(name)
	if err != nil {
		return err
	}

	in := keyboardINPUT{Type: inputKeyboard}
	in.Ki.WVk = vk
	if !pressed {
		in.Ki.DwFlags = keyEventFKeyUp
	}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

// checkFailSafe trips when the cursor is parked in any corner of the
// primary screen.
func (i *PlatformInjector) checkFailSafe() error {
	if !i.guard.Enabled {
		return nil
	}
	var pt struct{ X, Y int32 }
	if ret, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt))); ret == 0 {
		return nil
	}
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	return i.guard.Check(int(pt.X), int(pt.Y), int(int32(w)), int(int32(h)))
}

func virtualKey(name string) (uint16, error) {
	if vk, ok := injectVK[name]; ok {
		return vk, nil
	}
	runes := []rune(name)
	if len(runes) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	ret, _, _ := procVkKeyScan.Call(uintptr(runes[0]))
	if int16(ret) == -1 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return uint16(ret) & 0xFF, nil
}

func sendInput(in unsafe.Pointer, size uintptr) error {
	ret, _, err := procSendInput.Call(1, uintptr(in), size)
	if ret != 1 {
		return fmt.Errorf("SendInput: %v", err)
	}
	return nil
}
