package main

import (
	"fmt"
	"image/color"
	"sync"
)

// StatusMode enumerates the selectable badge states.
type StatusMode int

const (
	ModeBusy StatusMode = iota
	ModeAvailable
	ModeCustom1
	ModeCustom2
	ModeCustom3
	ModeFreeText
)

// Rotation selects the panel mounting orientation.
type Rotation int

const (
	Landscape Rotation = iota
	LandscapeFlipped
)

// CornerInfoMode selects the bottom-left annotation.
type CornerInfoMode int

const (
	CornerNone CornerInfoMode = iota
	CornerDeviceID
	CornerNetworkAddress
)

// MAX_STATUS_TEXT is the hard bound on any displayed status string.
const MAX_STATUS_TEXT = 31

// BoundedText is a status string with truncate-on-assign semantics.
// Anything longer than MAX_STATUS_TEXT is silently cut.
type BoundedText string

func NewBoundedText(s string) BoundedText {
	r := []rune(s)
	if len(r) > MAX_STATUS_TEXT {
		r = r[:MAX_STATUS_TEXT]
	}
	return BoundedText(r)
}

// RGB565 is the panel-native packed color: 5 bits red, 6 green, 5 blue.
type RGB565 uint16

func packRGB565(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGBA8 expands the packed value back to 8-bit channels, replicating the
// high bits into the low bits so full-scale stays full-scale.
func (c RGB565) RGBA8() color.RGBA {
	r := uint8(c >> 11 & 0x1f)
	g := uint8(c >> 5 & 0x3f)
	b := uint8(c & 0x1f)
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 255,
	}
}

// parseHexColor accepts exactly "#RRGGBB". Anything else is an error and
// the caller keeps its previous color.
func parseHexColor(s string) (RGB565, error) {
	if len(s) != 7 || s[0] != '#' {
		return 0, fmt.Errorf("bad color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, fmt.Errorf("bad color %q: %v", s, err)
	}
	return packRGB565(r, g, b), nil
}

func (c RGB565) Hex() string {
	rgba := c.RGBA8()
	return fmt.Sprintf("#%02X%02X%02X", rgba.R, rgba.G, rgba.B)
}

// Preset colors, packed once.
var (
	GS_RED   = packRGB565(226, 72, 38)
	GS_GREEN = packRGB565(70, 235, 145)
	GS_WHITE = packRGB565(255, 255, 255)
	GS_GREY  = packRGB565(98, 116, 130)
)

// CustomSlot is one user-programmable status. Empty text marks the slot
// unset; unset slots are skipped while cycling.
type CustomSlot struct {
	Text  BoundedText `json:"text"`
	Color RGB565      `json:"color"`
}

func (s CustomSlot) Empty() bool { return s.Text == "" }

// StatusState is the full mutable model. It is owned by SharedStatus and
// must only be touched through Snapshot/Mutate.
type StatusState struct {
	Mode        StatusMode     `json:"mode"`
	Text        BoundedText    `json:"text"`
	Color       RGB565         `json:"color"`
	Rotation    Rotation       `json:"rotation"`
	ShowBattery bool           `json:"show_battery"`
	CornerInfo  CornerInfoMode `json:"corner_info"`
	Slots       [3]CustomSlot  `json:"slots"`
}

func defaultStatusState() StatusState {
	return StatusState{
		Mode:        ModeAvailable,
		Text:        "LET'S TALK",
		Color:       GS_GREEN,
		Rotation:    Landscape,
		ShowBattery: true,
		CornerInfo:  CornerDeviceID,
	}
}

// applyMode sets mode plus the text/color that belong to it in one go, so
// a concurrent snapshot never sees a mode with a stale text or color.
func (st *StatusState) applyMode(m StatusMode) {
	switch m {
	case ModeBusy:
		st.Text, st.Color = "BUSY", GS_RED
	case ModeAvailable:
		st.Text, st.Color = "LET'S TALK", GS_GREEN
	case ModeCustom1, ModeCustom2, ModeCustom3:
		slot := st.Slots[int(m-ModeCustom1)]
		st.Text, st.Color = slot.Text, slot.Color
	}
	st.Mode = m
}

// cycleOrder is the short-press sequence. FreeText is reachable only over
// the network and cycles back into Busy.
var cycleOrder = [5]StatusMode{ModeBusy, ModeAvailable, ModeCustom1, ModeCustom2, ModeCustom3}

// cycleMode advances to the next selectable mode, skipping unset custom
// slots. At most 5 probes; Busy and Available are always selectable so the
// bound can never be hit, it just keeps the loop finite.
func (st *StatusState) cycleMode() {
	idx := -1
	for i, m := range cycleOrder {
		if m == st.Mode {
			idx = i
			break
		}
	}
	for probe := 0; probe < len(cycleOrder); probe++ {
		idx = (idx + 1) % len(cycleOrder)
		m := cycleOrder[idx]
		if m >= ModeCustom1 && m <= ModeCustom3 && st.Slots[int(m-ModeCustom1)].Empty() {
			continue
		}
		st.applyMode(m)
		return
	}
}

// SharedStatus is the only cross-context shared data. The render loop
// snapshots it, the control surface and button handler mutate it. Every
// multi-field change goes through Mutate so readers never observe a
// half-updated status.
type SharedStatus struct {
	mu    sync.RWMutex
	state StatusState
	dirty bool
}

func NewSharedStatus(st StatusState) *SharedStatus {
	return &SharedStatus{state: st}
}

func (s *SharedStatus) Snapshot() StatusState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Mutate applies fn atomically with respect to Snapshot and marks the
// state dirty for the persistence debouncer.
func (s *SharedStatus) Mutate(fn func(*StatusState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.dirty = true
}

// MarkDirty requests a flush without changing anything (used to re-arm the
// debouncer after a failed write).
func (s *SharedStatus) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// TakeDirty atomically snapshots the state and clears the dirty flag, so a
// mutation racing the flush is picked up on the next tick instead of lost.
func (s *SharedStatus) TakeDirty() (StatusState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return StatusState{}, false
	}
	s.dirty = false
	return s.state, true
}
