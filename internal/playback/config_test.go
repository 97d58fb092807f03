package playback

import (
	"math"
	"testing"
	"time"
)

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		in   Config
		want Config
	}{
		{Config{Speed: 1, LoopCount: 2}, Config{Speed: 1, LoopCount: 2}},
		{Config{Speed: 0.01, LoopCount: 0}, Config{Speed: MinSpeed, LoopCount: 1}},
		{Config{Speed: -3, LoopCount: -1, LoopMode: true}, Config{Speed: MinSpeed, LoopCount: 1, LoopMode: true}},
		{Config{Speed: math.NaN(), LoopCount: 1}, Config{Speed: MinSpeed, LoopCount: 1}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestConfigPasses(t *testing.T) {
	if n := (Config{LoopCount: 3}).Passes(); n != 3 {
		t.Errorf("Expected 3 passes, got %d", n)
	}
	if n := (Config{LoopMode: true, LoopCount: 3}).Passes(); n != 0 {
		t.Errorf("Expected loop mode to override loop count, got %d", n)
	}
}

func TestConfigOffset(t *testing.T) {
	c := Config{Speed: 2}
	if d := c.offset(1); d != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", d)
	}
	c = Config{Speed: 0.01}.Normalize()
	if d := c.offset(1); d < 9999*time.Millisecond || d > 10001*time.Millisecond {
		t.Errorf("Expected ~10s at clamped speed, got %v", d)
	}
}

func TestConfigOffsetSaturates(t *testing.T) {
	c := Config{Speed: MinSpeed}
	if d := c.offset(1e300); d != time.Duration(math.MaxInt64) {
		t.Errorf("Expected saturated offset, got %v", d)
	}
	if d := c.offset(math.MaxFloat64); d != time.Duration(math.MaxInt64) {
		t.Errorf("Expected saturated offset, got %v", d)
	}
	if d := c.offset(math.NaN()); d != 0 {
		t.Errorf("Expected 0 for NaN, got %v", d)
	}
	if d := c.offset(-1); d != 0 {
		t.Errorf("Expected 0 for negative time, got %v", d)
	}
}
