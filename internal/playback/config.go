// Package playback replays a snapshot of recorded events through an input
// injector, anchored to the start of each loop pass.
package playback

import (
	"math"
	"time"
)

// MinSpeed is the lowest playback speed multiplier accepted.
const MinSpeed = 0.1

// Config controls a playback session.
type Config struct {
	Speed     float64 `json:"speed"`
	LoopMode  bool    `json:"loop_mode"`
	LoopCount int     `json:"loop_count"`
}

// DefaultConfig plays once at normal speed.
func DefaultConfig() Config {
	return Config{Speed: 1.0, LoopCount: 1}
}

// Normalize clamps the speed to MinSpeed and the loop count to at least one pass.
func (c Config) Normalize() Config {
	if math.IsNaN(c.Speed) || c.Speed < MinSpeed {
		c.Speed = MinSpeed
	}
	if c.LoopCount < 1 {
		c.LoopCount = 1
	}
	return c
}

// Passes returns the number of passes to play, or 0 for endless loop mode.
func (c Config) Passes() int {
	if c.LoopMode {
		return 0
	}
	return c.LoopCount
}

// offset scales an event time (seconds) by the playback speed, saturating
// at the largest representable duration.
func (c Config) offset(seconds float64) time.Duration {
	ns := seconds / c.Speed * float64(time.Second)
	switch {
	case math.IsNaN(ns) || ns <= 0:
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
