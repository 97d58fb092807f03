//go:build windows

package input

import "fmt"

// namedVK maps Windows virtual-key codes to captured "Key." identifiers.
var namedVK = map[uint32]string{
	0x08: "Key.backspace",
	0x09: "Key.tab",
	0x0D: "Key.enter",
	0x10: "Key.shift",
	0x11: "Key.ctrl",
	0x12: "Key.alt",
	0x13: "Key.pause",
	0x14: "Key.caps_lock",
	0x1B: "Key.esc",
	0x20: "Key.space",
	0x21: "Key.page_up",
	0x22: "Key.page_down",
	0x23: "Key.end",
	0x24: "Key.home",
	0x25: "Key.left",
	0x26: "Key.up",
	0x27: "Key.right",
	0x28: "Key.down",
	0x2C: "Key.print_screen",
	0x2D: "Key.insert",
	0x2E: "Key.delete",
	0x5B: "Key.cmd_l",
	0x5C: "Key.cmd_r",
	0x91: "Key.scroll_lock",
	0xA0: "Key.shift_l",
	0xA1: "Key.shift_r",
	0xA2: "Key.ctrl_l",
	0xA3: "Key.ctrl_r",
	0xA4: "Key.alt_l",
	0xA5: "Key.alt_r",
}

// injectVK maps injector key names to virtual-key codes.
var injectVK = map[string]uint16{
	"space":      0x20,
	"return":     0x0D,
	"enter":      0x0D,
	"tab":        0x09,
	"backspace":  0x08,
	"esc":        0x1B,
	"shift":      0x10,
	"shiftleft":  0xA0,
	"shiftright": 0xA1,
	"ctrl":       0x11,
	"ctrlleft":   0xA2,
	"ctrlright":  0xA3,
	"alt":        0x12,
	"altleft":    0xA4,
	"altright":   0xA5,
	"win":        0x5B,
	"winleft":    0x5B,
	"winright":   0x5C,
}

func init() {
	for i := uint16(0); i < 12; i++ {
		injectVK[fmt.Sprintf("f%d", i+1)] = 0x70 + i
	}
}

// capturedKeyName converts a virtual-key code to a captured identifier.
func capturedKeyName(vk uint32) string {
	if name, ok := namedVK[vk]; ok {
		return name
	}
	if vk >= 0x70 && vk <= 0x7B {
		return fmt.Sprintf("Key.f%d", vk-0x6F)
	}
	// Letters are reported lower-case; shift state travels as its own key.
	if vk >= 0x41 && vk <= 0x5A {
		return fmt.Sprintf("'%c'", rune(vk+0x20))
	}
	if vk >= 0x30 && vk <= 0x39 {
		return fmt.Sprintf("'%c'", rune(vk))
	}
	return fmt.Sprintf("<%d>", vk)
}
