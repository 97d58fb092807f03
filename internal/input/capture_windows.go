//go:build windows

package input

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	captureBufferSize = 4096
)

type kbdLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msLLHookStruct struct {
	Pt          struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// Hook procedures are process-wide; syscall.NewCallback slots are never
// released, so the callbacks are created once and dispatch to the active
// capture.
var (
	callbacksOnce    sync.Once
	mouseCallback    uintptr
	keyboardCallback uintptr

	activeMu sync.RWMutex
	active   *Capture
)

// Capture installs low-level mouse and keyboard hooks on a dedicated OS
// thread and delivers notifications on a buffered channel. The hook thread
// never blocks: when the channel is full the notification is dropped.
type Capture struct {
	mu       sync.Mutex
	running  bool
	events   chan InputEvent
	threadID uint32
	done     chan struct{}

	mouseHook    uintptr
	keyboardHook uintptr
}

// NewCapture creates the Windows capture source.
func NewCapture() *Capture {
	return &Capture{}
}

// Start installs the hooks. Each run gets a fresh event channel.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("capture already running")
	}

	callbacksOnce.Do(func() {
		mouseCallback = syscall.NewCallback(mouseHookProc)
		keyboardCallback = syscall.NewCallback(keyboardHookProc)
	})

	activeMu.Lock()
	if active != nil {
		activeMu.Unlock()
		return fmt.Errorf("another capture is active")
	}
	active = c
	activeMu.Unlock()

	c.events = make(chan InputEvent, captureBufferSize)
	c.done = make(chan struct{})
	started := make(chan error, 1)
	go c.hookThread(started)

	if err := <-started; err != nil {
		activeMu.Lock()
		active = nil
		activeMu.Unlock()
		return err
	}

	c.running = true
	return nil
}

// Stop removes the hooks, waits for the hook thread to exit and closes the
// event channel.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false

	procPostThreadMessage.Call(uintptr(c.threadID), wmQuit, 0, 0)
	<-c.done

	activeMu.Lock()
	active = nil
	activeMu.Unlock()

	close(c.events)
	return nil
}

// Events returns the channel for the current capture run.
func (c *Capture) Events() <-chan InputEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

func (c *Capture) hookThread(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.done)

	c.threadID = windows.GetCurrentThreadId()

	var err error
	c.mouseHook, _, err = procSetWindowsHookEx.Call(whMouseLL, mouseCallback, 0, 0)
	if c.mouseHook == 0 {
		started <- fmt.Errorf("failed to set mouse hook: %v", err)
		return
	}
	c.keyboardHook, _, err = procSetWindowsHookEx.Call(whKeyboardLL, keyboardCallback, 0, 0)
	if c.keyboardHook == 0 {
		procUnhookWindowsHookEx.Call(c.mouseHook)
		started <- fmt.Errorf("failed to set keyboard hook: %v", err)
		return
	}

	log.Println("Capture: Low-level input hooks installed")
	started <- nil

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	procUnhookWindowsHookEx.Call(c.keyboardHook)
	procUnhookWindowsHookEx.Call(c.mouseHook)
	log.Println("Capture: Hook thread exiting")
}

func (c *Capture) deliver(ev InputEvent) {
	select {
	case c.events <- ev:
	default:
		// Channel full, drop event
	}
}

func currentCapture() *Capture {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

func mouseHookProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if c := currentCapture(); nCode >= 0 && c != nil {
		hs := (*msLLHookStruct)(unsafe.Pointer(lParam))
		ev := InputEvent{
			X:    int(hs.Pt.X),
			Y:    int(hs.Pt.Y),
			Time: time.Now(),
		}

		switch uint32(wParam) {
		case wmMouseMove:
			ev.Type = MouseMove
		case wmLButtonDown, wmLButtonUp:
			ev.Type, ev.Button, ev.Pressed = MouseClick, "Button.left", wParam == wmLButtonDown
		case wmRButtonDown, wmRButtonUp:
			ev.Type, ev.Button, ev.Pressed = MouseClick, "Button.right", wParam == wmRButtonDown
		case wmMButtonDown, wmMButtonUp:
			ev.Type, ev.Button, ev.Pressed = MouseClick, "Button.middle", wParam == wmMButtonDown
		case wmXButtonDown, wmXButtonUp:
			ev.Type, ev.Pressed = MouseClick, wParam == wmXButtonDown
			if hs.MouseData>>16 == 1 {
				ev.Button = "Button.x1"
			} else {
				ev.Button = "Button.x2"
			}
		}

		if ev.Type != "" {
			c.deliver(ev)
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func keyboardHookProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if c := currentCapture(); nCode >= 0 && c != nil {
		hs := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
		ev := InputEvent{
			Key:  capturedKeyName(hs.VkCode),
			Time: time.Now(),
		}

		switch uint32(wParam) {
		case wmKeyDown, wmSysKeyDown:
			ev.Type = KeyPress
		case wmKeyUp, wmSysKeyUp:
			ev.Type = KeyRelease
		}

		if ev.Type != "" {
			c.deliver(ev)
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}
