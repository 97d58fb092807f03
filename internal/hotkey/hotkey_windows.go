//go:build windows

package hotkey

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
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
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105

	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_XBUTTONDOWN = 0x020B
	WM_XBUTTONUP   = 0x020C
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Point       struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// Hook callbacks are created once per process; NewCallback slots are never freed.
var (
	callbacksOnce    sync.Once
	keyboardCallback uintptr
	mouseCallback    uintptr

	instanceMu      sync.RWMutex
	instanceManager *Manager

	hookMu       sync.Mutex
	keyboardHook uintptr
	mouseHook    uintptr
	hookThread   uint32
	hookDone     chan struct{}
)

func (m *Manager) startPlatform() error {
	callbacksOnce.Do(func() {
		keyboardCallback = syscall.NewCallback(keyboardHookPtr)
		mouseCallback = syscall.NewCallback(mouseHookPtr)
	})

	instanceMu.Lock()
	instanceManager = m
	instanceMu.Unlock()

	started := make(chan error, 1)
	done := make(chan struct{})

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		kb, _, err := procSetWindowsHookEx.Call(WH_KEYBOARD_LL, keyboardCallback, 0, 0)
		if kb == 0 {
			started <- fmt.Errorf("setting keyboard hook: %v", err)
			return
		}
		ms, _, err := procSetWindowsHookEx.Call(WH_MOUSE_LL, mouseCallback, 0, 0)
		if ms == 0 {
			procUnhookWindowsHookEx.Call(kb)
			started <- fmt.Errorf("setting mouse hook: %v", err)
			return
		}

		hookMu.Lock()
		keyboardHook, mouseHook = kb, ms
		hookThread = windows.GetCurrentThreadId()
		hookMu.Unlock()

		log.Println("Hotkey Engine: Windows Global Hooks started.")
		started <- nil

		var msg struct {
			Hwnd    syscall.Handle
			Message uint32
			Wparam  uintptr
			Lparam  uintptr
			Time    uint32
			Pt      struct{ X, Y int32 }
		}

		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
		}

		procUnhookWindowsHookEx.Call(kb)
		procUnhookWindowsHookEx.Call(ms)

		hookMu.Lock()
		keyboardHook, mouseHook, hookThread = 0, 0, 0
		hookMu.Unlock()
		log.Println("Hotkey Engine: Windows Global Hooks stopped.")
	}()

	if err := <-started; err != nil {
		return err
	}
	hookMu.Lock()
	hookDone = done
	hookMu.Unlock()
	return nil
}

func (m *Manager) stopPlatform() error {
	hookMu.Lock()
	thread, done := hookThread, hookDone
	hookMu.Unlock()

	if thread == 0 {
		return nil
	}
	if r, _, err := procPostThreadMessage.Call(uintptr(thread), WM_QUIT, 0, 0); r == 0 {
		return fmt.Errorf("stopping hook thread: %v", err)
	}
	<-done

	instanceMu.Lock()
	if instanceManager == m {
		instanceManager = nil
	}
	instanceMu.Unlock()
	return nil
}

func currentManager() *Manager {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	return instanceManager
}

func keyboardHookPtr(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		keyName := vkCodeToName(kbd.VkCode)
		if m := currentManager(); m != nil && keyName != "" {
			isDown := wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN
			m.UpdateState(keyName, isDown)
		}
	}
	hookMu.Lock()
	hook := keyboardHook
	hookMu.Unlock()
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHookPtr(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		var btnName string
		var isDown bool

		switch wParam {
		case WM_LBUTTONDOWN:
			btnName, isDown = "MOUSE1", true
		case WM_LBUTTONUP:
			btnName, isDown = "MOUSE1", false
		case WM_RBUTTONDOWN:
			btnName, isDown = "MOUSE3", true
		case WM_RBUTTONUP:
			btnName, isDown = "MOUSE3", false
		case WM_MBUTTONDOWN:
			btnName, isDown = "MOUSE2", true
		case WM_MBUTTONUP:
			btnName, isDown = "MOUSE2", false
		case WM_XBUTTONDOWN, WM_XBUTTONUP:
			btnName = "MOUSE5"
			if (ms.MouseData >> 16) == 1 {
				btnName = "MOUSE4"
			}
			isDown = wParam == WM_XBUTTONDOWN
		}

		if m := currentManager(); m != nil && btnName != "" {
			m.UpdateState(btnName, isDown)
		}
	}
	hookMu.Lock()
	hook := mouseHook
	hookMu.Unlock()
	ret, _, _ := procCallNextHookEx.Call(hook, uintptr(nCode), wParam, lParam)
	return ret
}

func vkCodeToName(vk uint32) string {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "WIN"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	case 0x13:
		return "PAUSE"
	case 0x2D:
		return "INSERT"
	case 0x2E:
		return "DELETE"
	case 0x24:
		return "HOME"
	case 0x23:
		return "END"
	case 0x21:
		return "PAGEUP"
	case 0x22:
		return "PAGEDOWN"
	}

	// Letters A-Z and digits 0-9
	if (vk >= 0x41 && vk <= 0x5A) || (vk >= 0x30 && vk <= 0x39) {
		return string(rune(vk))
	}

	// F1-F24
	if vk >= 0x70 && vk <= 0x87 {
		return fmt.Sprintf("F%d", vk-0x6F)
	}

	return ""
}
