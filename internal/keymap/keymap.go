// Package keymap translates captured key and button identifiers into the
// names the input injector understands.
package keymap

import "strings"

const (
	namedKeyPrefix = "Key."
	buttonPrefix   = "Button."
)

// specialKeys maps captured named keys to injector key names.
var specialKeys = map[string]string{
	"Key.space":     "space",
	"Key.enter":     "return",
	"Key.tab":       "tab",
	"Key.backspace": "backspace",
	"Key.esc":       "esc",
	"Key.shift":     "shift",
	"Key.shift_l":   "shiftleft",
	"Key.shift_r":   "shiftright",
	"Key.ctrl":      "ctrl",
	"Key.ctrl_l":    "ctrlleft",
	"Key.ctrl_r":    "ctrlright",
	"Key.alt":       "alt",
	"Key.alt_l":     "altleft",
	"Key.alt_r":     "altright",
	"Key.cmd":       "win",
	"Key.cmd_l":     "winleft",
	"Key.cmd_r":     "winright",
	"Key.f1":        "f1",
	"Key.f2":        "f2",
	"Key.f3":        "f3",
	"Key.f4":        "f4",
	"Key.f5":        "f5",
	"Key.f6":        "f6",
	"Key.f7":        "f7",
	"Key.f8":        "f8",
	"Key.f9":        "f9",
	"Key.f10":       "f10",
	"Key.f11":       "f11",
	"Key.f12":       "f12",
}

// Translate maps a captured key identifier to an injector key name.
//
// Named keys ("Key.space") go through a fixed table and report ok=false when
// the key has no injector equivalent. Quoted characters ("'a'" or "\"a\"")
// are unquoted. Anything else is returned unchanged.
func Translate(captured string) (string, bool) {
	if strings.HasPrefix(captured, namedKeyPrefix) {
		name, ok := specialKeys[captured]
		return name, ok
	}
	if unquoted, ok := unquote(captured); ok {
		return unquoted, true
	}
	return captured, true
}

// TranslateButton maps a captured button identifier ("Button.left") to the
// injector button name ("left").
func TranslateButton(captured string) string {
	return strings.ToLower(strings.TrimPrefix(captured, buttonPrefix))
}

// Describe returns the captured identifier in the form shown in status
// messages: quotes are stripped, named keys keep their "Key." prefix.
func Describe(captured string) string {
	return strings.Trim(captured, "'")
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' || first == '"') && first == last {
		return s[1 : len(s)-1], true
	}
	return "", false
}
