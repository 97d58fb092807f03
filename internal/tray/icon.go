package tray

import (
	"bytes"
	"encoding/binary"
)

const iconSize = 16

var (
	idleIcon      = buildIcon(0x60, 0x60, 0x60)
	recordingIcon = buildIcon(0xD0, 0x20, 0x20)
)

func iconFor(recording bool) []byte {
	if recording {
		return recordingIcon
	}
	return idleIcon
}

// buildIcon renders a filled circle as a 16x16 32-bit ICO.
func buildIcon(r, g, b byte) []byte {
	const (
		headerSize = 6 + 16
		dibSize    = 40
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1bpp rows padded to 32 bits
	)

	var buf bytes.Buffer
	le := binary.LittleEndian

	// ICONDIR + one ICONDIRENTRY
	binary.Write(&buf, le, [3]uint16{0, 1, 1})
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	binary.Write(&buf, le, [2]uint16{1, 32})
	binary.Write(&buf, le, [2]uint32{dibSize + pixelBytes + maskBytes, headerSize})

	// BITMAPINFOHEADER, height doubled for the AND mask
	binary.Write(&buf, le, struct {
		Size, Width, Height int32
		Planes, BitCount    uint16
		Compression, Image  uint32
		XPPM, YPPM          int32
		Used, Important     uint32
	}{dibSize, iconSize, iconSize * 2, 1, 32, 0, pixelBytes, 0, 0, 0, 0})

	// Pixels, bottom-up BGRA
	const c = (iconSize - 1) / 2.0
	for y := iconSize - 1; y >= 0; y-- {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= 6.5*6.5 {
				buf.Write([]byte{b, g, r, 0xFF})
			} else {
				buf.Write([]byte{0, 0, 0, 0})
			}
		}
	}

	// AND mask, unused with 32-bit alpha
	buf.Write(make([]byte, maskBytes))
	return buf.Bytes()
}
