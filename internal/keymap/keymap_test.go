package keymap

import "testing"

func TestTranslate(t *testing.T) {
	tests := []struct {
		captured string
		want     string
		ok       bool
	}{
		{"Key.space", "space", true},
		{"Key.enter", "return", true},
		{"Key.shift_r", "shiftright", true},
		{"Key.cmd", "win", true},
		{"Key.cmd_l", "winleft", true},
		{"Key.f12", "f12", true},
		{"Key.media_play_pause", "", false},
		{"Key.caps_lock", "", false},
		{"'a'", "a", true},
		{"'''", "'", true},
		{`"Z"`, "Z", true},
		{"<65>", "<65>", true},
		{"x", "x", true},
		{"'", "'", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, ok := Translate(tt.captured)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Translate(%q) = (%q, %v), want (%q, %v)", tt.captured, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTranslateButton(t *testing.T) {
	tests := map[string]string{
		"Button.left":   "left",
		"Button.right":  "right",
		"Button.middle": "middle",
		"Button.X1":     "x1",
		"left":          "left",
	}
	for captured, want := range tests {
		if got := TranslateButton(captured); got != want {
			t.Errorf("TranslateButton(%q) = %q, want %q", captured, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("'a'"); got != "a" {
		t.Errorf("Describe('a') = %q, want %q", got, "a")
	}
	if got := Describe("Key.space"); got != "Key.space" {
		t.Errorf("Describe(Key.space) = %q, want %q", got, "Key.space")
	}
}
