package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualClock_AdvanceAndSince(t *testing.T) {
	vc := NewVirtualClock(epoch)
	start := vc.Now()
	vc.Advance(1500 * time.Millisecond)

	if got := vc.Since(start); got != 1500*time.Millisecond {
		t.Errorf("Since() = %v, want 1.5s", got)
	}
	if got := vc.Now(); !got.Equal(epoch.Add(1500 * time.Millisecond)) {
		t.Errorf("Now() = %v, want %v", got, epoch.Add(1500*time.Millisecond))
	}
}

func TestVirtualClock_AdvanceNegativePanics(t *testing.T) {
	vc := NewVirtualClock(epoch)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on negative advance")
		}
	}()
	vc.Advance(-time.Second)
}

func TestVirtualClock_After(t *testing.T) {
	vc := NewVirtualClock(epoch)
	early := vc.After(time.Second)
	late := vc.After(10 * time.Second)

	if vc.Waiters() != 2 {
		t.Fatalf("Waiters() = %d, want 2", vc.Waiters())
	}
	if next, ok := vc.NextDeadline(); !ok || !next.Equal(epoch.Add(time.Second)) {
		t.Errorf("NextDeadline() = %v, %v; want %v, true", next, ok, epoch.Add(time.Second))
	}

	vc.Advance(time.Second)
	select {
	case <-early:
	default:
		t.Error("1s waiter should have fired")
	}
	select {
	case <-late:
		t.Error("10s waiter should not have fired yet")
	default:
	}

	vc.Set(epoch.Add(time.Minute))
	select {
	case <-late:
	default:
		t.Error("10s waiter should have fired after Set")
	}
	if _, ok := vc.NextDeadline(); ok {
		t.Error("NextDeadline() should report no waiters")
	}
}

func TestVirtualClock_AfterZeroFiresImmediately(t *testing.T) {
	vc := NewVirtualClock(epoch)
	select {
	case <-vc.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
	if vc.Waiters() != 0 {
		t.Errorf("Waiters() = %d, want 0", vc.Waiters())
	}
}

func TestClocksImplementClock(t *testing.T) {
	var _ Clock = NewRealClock()
	var _ Clock = NewVirtualClock(time.Now())
}
