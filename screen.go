package main

import (
	"fmt"
	"image"
	"image/color"
	"unicode/utf8"

	gc9307 "github.com/photonicat/periph.io-gc9307"
	"golang.org/x/image/font"
)

// Blitter is the display surface contract: push a finished RGBA region to
// the panel as one atomic blit. The hardware implementation wraps the
// gc9307 driver; tests use an in-memory fake.
type Blitter interface {
	Blit(x, y int, img *image.RGBA)
}

type panelBlitter struct {
	dev gc9307.Device
}

func (p *panelBlitter) Blit(x, y int, img *image.RGBA) {
	p.dev.FillRectangleWithImage(int16(x), int16(y), int16(img.Bounds().Dx()), int16(img.Bounds().Dy()), img)
}

// Marquee computes the horizontal scroll for text wider than the panel.
// Offsets walk leftward and wrap back to the right edge once the text has
// fully scrolled out; the offset never goes below -textWidth.
type Marquee struct {
	textWidth int
	viewWidth int
	offset    int
	step      int
	active    bool
	key       string
}

func (m *Marquee) Reset(key string, textWidth, viewWidth int) {
	m.key = key
	m.textWidth = textWidth
	m.viewWidth = viewWidth
	m.step = MARQUEE_STEP
	m.active = textWidth > viewWidth
	m.offset = viewWidth
}

func (m *Marquee) Active() bool { return m.active }

// Tick advances one scroll step. Returns true when the offset wrapped back
// to the right edge.
func (m *Marquee) Tick() (wrapped bool) {
	if !m.active {
		return false
	}
	m.offset -= m.step
	if m.offset <= -m.textWidth {
		m.offset = m.viewWidth
		return true
	}
	return false
}

// batteryInfo is the sensor snapshot handed to the renderer. OK is false
// when the sysfs read failed, in which case nothing is drawn.
type batteryInfo struct {
	Soc      int
	Charging bool
	OK       bool
}

// Renderer composes the status frame: background in the status color, the
// text centered or marquee-scrolled, corner annotation bottom-left and
// battery bottom-right.
type Renderer struct {
	frame     *image.RGBA
	blit      Blitter
	faceBig   font.Face
	faceSmall font.Face
	faceTiny  font.Face
	marquee   Marquee
	deviceID  string
	lastKey   string
}

func NewRenderer(width, height int, blit Blitter, faceBig, faceSmall, faceTiny font.Face, deviceID string) *Renderer {
	return &Renderer{
		frame:     image.NewRGBA(image.Rect(0, 0, width, height)),
		blit:      blit,
		faceBig:   faceBig,
		faceSmall: faceSmall,
		faceTiny:  faceTiny,
		deviceID:  deviceID,
	}
}

// Invalidate drops the frame cache so the next Redraw repaints even if the
// status looks unchanged (used when the automaton hands the panel back).
func (r *Renderer) Invalidate() { r.lastKey = "" }

// statusFace picks the font tier: short strings get the big face, anything
// past the threshold drops a tier so more of it fits before scrolling. The
// threshold counts runes, same as the text bound does.
func (r *Renderer) statusFace(text BoundedText) font.Face {
	if utf8.RuneCountInString(string(text)) > FONT_TIER_THRESHOLD {
		return r.faceSmall
	}
	return r.faceBig
}

// textColorFor keeps the status text readable on any background color.
func textColorFor(bg color.RGBA) color.RGBA {
	lum := (299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)) / 1000
	if lum > 140 {
		return color.RGBA{0, 0, 0, 255}
	}
	return color.RGBA{255, 255, 255, 255}
}

func (r *Renderer) width() int  { return r.frame.Bounds().Dx() }
func (r *Renderer) height() int { return r.frame.Bounds().Dy() }

func (r *Renderer) cacheKey(st StatusState, batt batteryInfo, netAddr string) string {
	return fmt.Sprintf("%d|%s|%04x|%d|%t|%d|%d|%t|%t|%s",
		st.Mode, st.Text, uint16(st.Color), st.Rotation, st.ShowBattery,
		st.CornerInfo, batt.Soc, batt.Charging, batt.OK, netAddr)
}

// Redraw composes and pushes a full frame. Unchanged inputs are skipped
// via a cache string unless the marquee is live (same trick as the top-bar
// cache). Returns whether anything was sent to the panel.
func (r *Renderer) Redraw(st StatusState, batt batteryInfo, netAddr string) bool {
	key := r.cacheKey(st, batt, netAddr)
	if key == r.lastKey {
		// Nothing changed; scrolling, if any, is ScrollTick's job.
		return false
	}
	r.lastKey = key

	bg := st.Color.RGBA8()
	fg := textColorFor(bg)
	face := r.statusFace(st.Text)
	text := string(st.Text)
	tw := measureText(text, face)
	usable := r.width() - 2*GS_H_MARGIN

	// Restart the scroll only when the text itself changed; battery or
	// corner updates must not snap the offset back.
	marqueeKey := fmt.Sprintf("%s|%d", text, tw)
	if marqueeKey != r.marquee.key {
		if tw > usable {
			r.marquee.Reset(marqueeKey, tw, r.width())
		} else {
			r.marquee.Reset(marqueeKey, 0, r.width())
		}
	}

	frameMutex.Lock()
	clearFrame(r.frame, bg)

	bandTop := r.textBandTop(face)
	if r.marquee.Active() {
		drawText(r.frame, text, r.marquee.offset, bandTop, face, fg, false)
	} else {
		drawText(r.frame, text, r.width()/2, bandTop, face, fg, true)
	}

	r.drawCorner(st, fg, netAddr)
	r.drawBattery(st, fg, batt)
	frameMutex.Unlock()

	r.present(st.Rotation)
	return true
}

// ScrollTick advances the marquee and repaints only the text band; a full
// redraw happens anyway whenever the status changes. Flipped rotation
// falls back to a full-frame blit since the band position mirrors.
func (r *Renderer) ScrollTick(st StatusState) {
	if !r.marquee.Active() {
		return
	}
	r.marquee.Tick()

	bg := st.Color.RGBA8()
	fg := textColorFor(bg)
	face := r.statusFace(st.Text)
	bandTop := r.textBandTop(face)
	bandH := r.bandHeight(face)

	frameMutex.Lock()
	drawRect(r.frame, 0, bandTop, r.width(), bandH, bg)
	drawText(r.frame, string(st.Text), r.marquee.offset, bandTop, face, fg, false)
	frameMutex.Unlock()

	if st.Rotation == LandscapeFlipped {
		r.present(st.Rotation)
		return
	}
	frameMutex.RLock()
	band := r.frame.SubImage(image.Rect(0, bandTop, r.width(), bandTop+bandH)).(*image.RGBA)
	bandCopy := image.NewRGBA(image.Rect(0, 0, r.width(), bandH))
	copyImageRegion(bandCopy, band)
	frameMutex.RUnlock()
	r.blit.Blit(0, bandTop, bandCopy)
}

func (r *Renderer) bandHeight(face font.Face) int {
	m := face.Metrics()
	return m.Ascent.Round() + m.Descent.Round() + 4
}

func (r *Renderer) textBandTop(face font.Face) int {
	return (r.height() - r.bandHeight(face)) / 2
}

func (r *Renderer) drawCorner(st StatusState, fg color.RGBA, netAddr string) {
	var label string
	switch st.CornerInfo {
	case CornerDeviceID:
		label = r.deviceID
	case CornerNetworkAddress:
		label = netAddr
	default:
		return
	}
	if label == "" {
		return
	}
	drawText(r.frame, label, GS_H_MARGIN, r.height()-GS_FOOTER_HEIGHT, r.faceTiny, fg, false)
}

func (r *Renderer) drawBattery(st StatusState, fg color.RGBA, batt batteryInfo) {
	if !st.ShowBattery || !batt.OK {
		return
	}
	label := fmt.Sprintf("%d%%", batt.Soc)
	tw := measureText(label, r.faceTiny)
	x := r.width() - GS_H_MARGIN - tw
	if batt.Charging {
		x -= 10
	}
	endX := drawText(r.frame, label, x, r.height()-GS_FOOTER_HEIGHT, r.faceTiny, fg, false)
	if batt.Charging {
		drawChargeBolt(r.frame, endX+2, r.height()-GS_FOOTER_HEIGHT, fg)
	}
}

// present pushes the composed frame, mirroring it first when the panel is
// mounted upside down.
func (r *Renderer) present(rot Rotation) {
	frameMutex.RLock()
	out := r.frame
	if rot == LandscapeFlipped {
		out = rotate180(r.frame)
	}
	frameMutex.RUnlock()
	r.blit.Blit(0, 0, out)
}

// copyImageRegion copies src (whatever its bounds offset) into dst at the
// origin, clipped to dst.
func copyImageRegion(dst *image.RGBA, src *image.RGBA) {
	sb := src.Bounds()
	db := dst.Bounds()
	for y := 0; y < sb.Dy() && y < db.Dy(); y++ {
		for x := 0; x < sb.Dx() && x < db.Dx(); x++ {
			dst.SetRGBA(x, y, src.RGBAAt(sb.Min.X+x, sb.Min.Y+y))
		}
	}
}
