package main

import (
	"log"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

const (
	BUTTON_DEBOUNCE = 300 * time.Millisecond
	PRESS_NOISE_MAX = 30 * time.Millisecond
	LONG_PRESS_MIN  = 3000 * time.Millisecond
)

type buttonKind int

const (
	buttonPrimary buttonKind = iota
	buttonRotation
)

type buttonEvent struct {
	kind    buttonKind
	pressed bool
	at      time.Time
}

// buttonAction is what the render loop does with a classified event.
type buttonAction int

const (
	actionNone buttonAction = iota
	actionCycle
	actionToggleRotation
	actionSleep
	actionStopAnimation
)

// buttonMachine classifies raw press/release edges for the two physical
// buttons. It is owned by the render loop and fed timestamps, so the whole
// timing table is testable without a kernel input device.
type buttonMachine struct {
	primaryDown   bool
	primaryAt     time.Time
	lastPrimary   time.Time
	lastRotation  time.Time
	animationLive bool
}

// setAnimationLive suppresses status cycling while the automaton runs: a
// short press then stops the animation instead. Long-press sleep stays
// active either way.
func (m *buttonMachine) setAnimationLive(live bool) { m.animationLive = live }

func (m *buttonMachine) handle(ev buttonEvent) buttonAction {
	switch ev.kind {
	case buttonPrimary:
		return m.primaryEvent(ev.pressed, ev.at)
	case buttonRotation:
		return m.rotationEvent(ev.pressed, ev.at)
	}
	return actionNone
}

func (m *buttonMachine) primaryEvent(pressed bool, now time.Time) buttonAction {
	if pressed {
		if m.primaryDown {
			return actionNone // key repeat
		}
		if !m.lastPrimary.IsZero() && now.Sub(m.lastPrimary) < BUTTON_DEBOUNCE {
			return actionNone
		}
		m.primaryDown = true
		m.primaryAt = now
		m.lastPrimary = now
		return actionNone
	}
	if !m.primaryDown {
		return actionNone
	}
	m.primaryDown = false
	held := now.Sub(m.primaryAt)
	switch {
	case held < PRESS_NOISE_MAX:
		return actionNone // contact bounce
	case held >= LONG_PRESS_MIN:
		return actionSleep
	case m.animationLive:
		return actionStopAnimation
	default:
		return actionCycle
	}
}

// rotationEvent is edge-triggered: each debounced press toggles the panel
// orientation, releases are ignored.
func (m *buttonMachine) rotationEvent(pressed bool, now time.Time) buttonAction {
	if !pressed {
		return actionNone
	}
	if !m.lastRotation.IsZero() && now.Sub(m.lastRotation) < BUTTON_DEBOUNCE {
		return actionNone
	}
	m.lastRotation = now
	return actionToggleRotation
}

// watchButtons finds the gpio-keys input device, grabs it and forwards raw
// key edges to the render loop. The channel is small and lossy: if the
// render loop is mid-blit a stale edge is better dropped than queued.
func watchButtons(events chan<- buttonEvent) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		log.Printf("ListDevicePaths error: %v", err)
		return
	}

	var devPath string
	for _, ip := range paths {
		if ip.Name == "gpio-keys" {
			devPath = ip.Path
			break
		}
	}
	if devPath == "" {
		log.Println("no gpio-keys device found, buttons disabled")
		return
	}

	keys, err := evdev.Open(devPath)
	if err != nil {
		log.Printf("Open(%s) error: %v", devPath, err)
		return
	}

	if err := keys.Grab(); err != nil {
		log.Printf("warning: failed to grab device: %v", err)
	}

	name, _ := keys.Name()
	log.Printf("using input device: %s (%s)", devPath, name)

	for {
		ev, err := keys.ReadOne()
		if err != nil {
			log.Printf("button read error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if ev.Type != evdev.EV_KEY || ev.Value > 1 {
			continue
		}

		var kind buttonKind
		switch ev.Code {
		case evdev.KEY_POWER:
			kind = buttonPrimary
		case evdev.KEY_F1:
			kind = buttonRotation
		default:
			continue
		}

		select {
		case events <- buttonEvent{kind: kind, pressed: ev.Value == 1, at: time.Now()}:
		default:
		}
	}
}
