package tray

import (
	"encoding/binary"
	"testing"
)

func TestBuildIcon(t *testing.T) {
	icon := buildIcon(0xD0, 0x20, 0x20)

	if want := 6 + 16 + 40 + 16*16*4 + 16*4; len(icon) != want {
		t.Fatalf("Expected %d bytes, got %d", want, len(icon))
	}
	if binary.LittleEndian.Uint16(icon[2:]) != 1 || binary.LittleEndian.Uint16(icon[4:]) != 1 {
		t.Error("Expected ICO header with one image")
	}
	if size := binary.LittleEndian.Uint32(icon[14:]); int(size) != len(icon)-22 {
		t.Errorf("Directory size %d does not match image data %d", size, len(icon)-22)
	}

	// Centre pixel is opaque in the requested colour (BGRA).
	row, col := 8, 8
	off := 62 + ((15-row)*16+col)*4
	if got := icon[off : off+4]; got[0] != 0x20 || got[2] != 0xD0 || got[3] != 0xFF {
		t.Errorf("Unexpected centre pixel %v", got)
	}
	// Corner pixel is transparent.
	if icon[62+3] != 0 {
		t.Error("Expected transparent corner")
	}
}

func TestIconFor(t *testing.T) {
	if &iconFor(true)[0] == &iconFor(false)[0] {
		t.Error("Expected distinct recording icon")
	}
}

func TestMenuItems(t *testing.T) {
	tr := New("keymouse", "Recorder")
	a := tr.AddMenuItem("Start recording", nil)
	tr.AddSeparator()
	b := tr.AddMenuItem("Quit", nil)
	if a != 0 || b != 2 {
		t.Errorf("Unexpected ids %d %d", a, b)
	}
	// Status before the tray runs is only stored.
	tr.SetStatus("Recording", true)
	if tr.status != "Recording" || !tr.recording {
		t.Errorf("Unexpected stored status %q %v", tr.status, tr.recording)
	}
}
