package main

import (
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/font/basicfont"
)

type fakeBlit struct {
	calls []image.Rectangle
	last  *image.RGBA
}

func (f *fakeBlit) Blit(x, y int, img *image.RGBA) {
	f.calls = append(f.calls, image.Rect(x, y, x+img.Bounds().Dx(), y+img.Bounds().Dy()))
	f.last = img
}

func testRenderer(width, height int) (*Renderer, *fakeBlit) {
	blit := &fakeBlit{}
	face := basicfont.Face7x13
	return NewRenderer(width, height, blit, face, face, face, "dev1"), blit
}

func TestMarqueeWrap(t *testing.T) {
	m := &Marquee{}
	m.Reset("k", 500, 320)
	if !m.Active() {
		t.Fatal("text wider than view must activate the marquee")
	}
	if m.offset != 320 {
		t.Fatalf("marquee must start at the right edge, got %d", m.offset)
	}

	wraps := 0
	for i := 0; i < 1000; i++ {
		if m.Tick() {
			wraps++
			if m.offset != 320 {
				t.Fatalf("wrap must return to the right edge, got %d", m.offset)
			}
		}
		if m.offset < -500 {
			t.Fatalf("offset went past -textWidth: %d", m.offset)
		}
	}
	if wraps == 0 {
		t.Error("marquee never wrapped")
	}
}

func TestMarqueeInactiveForFittingText(t *testing.T) {
	m := &Marquee{}
	m.Reset("k", 0, 320)
	if m.Active() {
		t.Error("fitting text must not scroll")
	}
	if m.Tick() {
		t.Error("inactive marquee must not wrap")
	}
}

func TestStatusFaceTier(t *testing.T) {
	small := *basicfont.Face7x13
	r := &Renderer{faceBig: basicfont.Face7x13, faceSmall: &small}

	if r.statusFace("0123456789") != r.faceBig { // exactly 10: big tier
		t.Error("10 chars should keep the big face")
	}
	if r.statusFace("01234567890") != r.faceSmall {
		t.Error("11 chars should drop to the small face")
	}
	// The tier counts runes, not bytes: 8 accented characters are 16 bytes
	// but still a short status.
	if r.statusFace("ÉÉÉÉÉÉÉÉ") != r.faceBig {
		t.Error("8 runes of multibyte text should keep the big face")
	}
}

func TestTextColorFor(t *testing.T) {
	if got := textColorFor(color.RGBA{255, 229, 0, 255}); got.R != 0 {
		t.Error("bright background needs black text")
	}
	if got := textColorFor(color.RGBA{0, 0, 0, 255}); got.R != 255 {
		t.Error("dark background needs white text")
	}
	if got := textColorFor(GS_RED.RGBA8()); got.R != 255 {
		t.Error("the busy red is dark enough for white text")
	}
}

func TestRedrawCachesUnchangedFrames(t *testing.T) {
	r, blit := testRenderer(320, 172)
	st := defaultStatusState()
	st.applyMode(ModeBusy)
	batt := batteryInfo{Soc: 80, OK: true}

	if !r.Redraw(st, batt, "") {
		t.Fatal("first redraw must paint")
	}
	if len(blit.calls) != 1 || blit.calls[0] != image.Rect(0, 0, 320, 172) {
		t.Fatalf("expected one full-frame blit, got %v", blit.calls)
	}

	if r.Redraw(st, batt, "") {
		t.Error("identical state must be skipped")
	}

	batt.Soc = 79
	if !r.Redraw(st, batt, "") {
		t.Error("battery change must repaint")
	}

	r.Invalidate()
	if !r.Redraw(st, batt, "") {
		t.Error("Invalidate must force a repaint")
	}
}

func TestRedrawBackgroundIsStatusColor(t *testing.T) {
	r, blit := testRenderer(320, 172)
	st := defaultStatusState()
	st.applyMode(ModeBusy)

	r.Redraw(st, batteryInfo{}, "")
	want := st.Color.RGBA8()
	if got := blit.last.RGBAAt(2, 2); got != want {
		t.Errorf("background: got %v, want %v", got, want)
	}
}

func TestRedrawActivatesMarqueeForWideText(t *testing.T) {
	// 31 chars at 7px/glyph is 217px, far wider than an 80px usable band.
	r, _ := testRenderer(100, 60)
	st := defaultStatusState()
	st.Mode = ModeFreeText
	st.Text = NewBoundedText("A VERY LONG CUSTOM STATUS LINE!")

	r.Redraw(st, batteryInfo{}, "")
	if !r.marquee.Active() {
		t.Fatal("oversized text must activate the marquee")
	}

	// Battery updates must not restart the scroll.
	off := r.marquee.offset
	r.ScrollTick(st)
	r.Redraw(st, batteryInfo{Soc: 50, OK: true}, "")
	if r.marquee.offset == off {
		t.Error("scroll tick should have moved the offset")
	}
	if r.marquee.offset == 100 {
		t.Error("unrelated redraw must not reset the marquee")
	}
}

func TestScrollTickBlitsBandOnly(t *testing.T) {
	r, blit := testRenderer(100, 60)
	st := defaultStatusState()
	st.Mode = ModeFreeText
	st.Text = NewBoundedText("A VERY LONG CUSTOM STATUS LINE!")
	r.Redraw(st, batteryInfo{}, "")

	n := len(blit.calls)
	r.ScrollTick(st)
	if len(blit.calls) != n+1 {
		t.Fatal("scroll tick must blit")
	}
	band := blit.calls[n]
	if band.Dy() >= 60 {
		t.Errorf("scroll tick should blit only the text band, got %v", band)
	}
	if band.Dx() != 100 {
		t.Errorf("band must span the full width, got %v", band)
	}
}

func TestRedrawFlippedBlitsFullFrame(t *testing.T) {
	r, blit := testRenderer(320, 172)
	st := defaultStatusState()
	st.Rotation = LandscapeFlipped
	st.applyMode(ModeBusy)

	r.Redraw(st, batteryInfo{}, "")
	if blit.calls[len(blit.calls)-1] != image.Rect(0, 0, 320, 172) {
		t.Error("flipped orientation still blits the full frame")
	}
}

func TestCornerAnnotation(t *testing.T) {
	r, blit := testRenderer(320, 172)
	st := defaultStatusState()
	st.applyMode(ModeBusy)
	st.CornerInfo = CornerNone

	r.Redraw(st, batteryInfo{}, "")
	plain := countDiffering(blit.last, st.Color.RGBA8())

	r2, blit2 := testRenderer(320, 172)
	st.CornerInfo = CornerDeviceID
	r2.Redraw(st, batteryInfo{}, "")
	withCorner := countDiffering(blit2.last, st.Color.RGBA8())

	if withCorner <= plain {
		t.Error("device id annotation should add foreground pixels")
	}
}

func countDiffering(img *image.RGBA, bg color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != bg {
				n++
			}
		}
	}
	return n
}
