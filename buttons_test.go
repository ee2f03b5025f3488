package main

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func pressFor(m *buttonMachine, start time.Time, held time.Duration) buttonAction {
	m.primaryEvent(true, start)
	return m.primaryEvent(false, start.Add(held))
}

func TestPrimaryPressClassification(t *testing.T) {
	tests := []struct {
		name string
		held time.Duration
		want buttonAction
	}{
		{"noise 29ms", 29 * time.Millisecond, actionNone},
		{"short 31ms", 31 * time.Millisecond, actionCycle},
		{"short 2999ms", 2999 * time.Millisecond, actionCycle},
		{"long 3000ms", 3000 * time.Millisecond, actionSleep},
		{"long 10s", 10 * time.Second, actionSleep},
	}
	for _, tt := range tests {
		m := &buttonMachine{}
		if got := pressFor(m, t0, tt.held); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestPrimaryDebounce(t *testing.T) {
	m := &buttonMachine{}

	if got := pressFor(m, t0, 100*time.Millisecond); got != actionCycle {
		t.Fatalf("first press: got %d", got)
	}

	// Second press 150ms after the first press started: inside the 300ms
	// debounce window, must be swallowed entirely.
	if got := pressFor(m, t0.Add(150*time.Millisecond), 100*time.Millisecond); got != actionNone {
		t.Errorf("bounced press: got %d, want none", got)
	}

	// A press after the window works again.
	if got := pressFor(m, t0.Add(400*time.Millisecond), 100*time.Millisecond); got != actionCycle {
		t.Errorf("post-debounce press: got %d, want cycle", got)
	}
}

func TestPrimaryIgnoresRepeatAndStrayRelease(t *testing.T) {
	m := &buttonMachine{}

	if got := m.primaryEvent(false, t0); got != actionNone {
		t.Errorf("release without press: got %d", got)
	}

	m.primaryEvent(true, t0)
	if got := m.primaryEvent(true, t0.Add(time.Second)); got != actionNone {
		t.Errorf("repeat press while held: got %d", got)
	}
	if got := m.primaryEvent(false, t0.Add(time.Second)); got != actionCycle {
		t.Errorf("release after repeat: got %d, want cycle", got)
	}
}

func TestShortPressStopsAnimation(t *testing.T) {
	m := &buttonMachine{}
	m.setAnimationLive(true)

	if got := pressFor(m, t0, 100*time.Millisecond); got != actionStopAnimation {
		t.Errorf("short press during animation: got %d, want stop", got)
	}

	// Long press still sleeps while the animation runs.
	if got := pressFor(m, t0.Add(time.Second), 4*time.Second); got != actionSleep {
		t.Errorf("long press during animation: got %d, want sleep", got)
	}

	m.setAnimationLive(false)
	if got := pressFor(m, t0.Add(10*time.Second), 100*time.Millisecond); got != actionCycle {
		t.Errorf("short press after animation: got %d, want cycle", got)
	}
}

func TestRotationButton(t *testing.T) {
	m := &buttonMachine{}

	if got := m.rotationEvent(true, t0); got != actionToggleRotation {
		t.Errorf("rotation press: got %d", got)
	}
	if got := m.rotationEvent(false, t0.Add(50*time.Millisecond)); got != actionNone {
		t.Errorf("rotation release should be ignored, got %d", got)
	}
	if got := m.rotationEvent(true, t0.Add(200*time.Millisecond)); got != actionNone {
		t.Errorf("bounced rotation press: got %d", got)
	}
	if got := m.rotationEvent(true, t0.Add(400*time.Millisecond)); got != actionToggleRotation {
		t.Errorf("post-debounce rotation press: got %d", got)
	}
}
