package main

import (
	"image"
	"image/color"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/llgcode/draw2d/draw2dimg"
	"golang.org/x/image/font"
)

const (
	MORPH_STEPS       = 30
	MORPH_STEP_DELAY  = 40 * time.Millisecond
	MORPH_DWELL       = 1200 * time.Millisecond
	MORPH_DISC_RADIUS = 2.0
)

// morphPoint is one particle: a position and the color it keeps for the
// whole transition.
type morphPoint struct {
	x, y float64
	col  color.RGBA
}

// morphPair binds one source particle to its target glyph coordinate.
type morphPair struct {
	src morphPoint
	dst image.Point
}

// easeOutCubic starts fast and decelerates into the target: 1-(1-t)^3.
func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// glyphEdgePoints keeps only glyph pixels that touch at least one
// background pixel, approximating the outline instead of filling it solid.
// Pixels on the canvas border count as edge. Scan order is row-major and
// the assignment below depends on it.
func glyphEdgePoints(img *image.RGBA) []image.Point {
	b := img.Bounds()
	var pts []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}
			if x == b.Min.X || x == b.Max.X-1 || y == b.Min.Y || y == b.Max.Y-1 ||
				img.RGBAAt(x-1, y).A == 0 || img.RGBAAt(x+1, y).A == 0 ||
				img.RGBAAt(x, y-1).A == 0 || img.RGBAAt(x, y+1).A == 0 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	return pts
}

// glyphInteriorPoints returns every glyph pixel; the boot reveal converges
// onto the full set for a denser fill.
func glyphInteriorPoints(img *image.RGBA) []image.Point {
	b := img.Bounds()
	var pts []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A != 0 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	return pts
}

// reconcileSources resizes the source set to exactly n points: a random
// subset when there are too many, cyclic repetition when too few. The rng
// comes from the caller so tests reproduce the exact subset.
func reconcileSources(sources []morphPoint, n int, rng *rand.Rand) []morphPoint {
	if n == 0 || len(sources) == 0 {
		return nil
	}
	if len(sources) >= n {
		out := make([]morphPoint, n)
		for i, j := range rng.Perm(len(sources))[:n] {
			out[i] = sources[j]
		}
		return out
	}
	out := make([]morphPoint, n)
	for i := 0; i < n; i++ {
		out[i] = sources[i%len(sources)]
	}
	return out
}

// assignSources pairs every target with the closest remaining unassigned
// source by squared distance, walking targets in scan order. The drifting,
// slightly tangled paths that greedy matching produces are part of the
// animation's look, so this stays a nearest-neighbor pick rather than an
// optimal assignment.
func assignSources(targets []image.Point, sources []morphPoint) []morphPair {
	used := make([]bool, len(sources))
	pairs := make([]morphPair, 0, len(targets))
	for _, t := range targets {
		best := -1
		bestDist := 0.0
		for i, s := range sources {
			if used[i] {
				continue
			}
			dx := s.x - float64(t.X)
			dy := s.y - float64(t.Y)
			d := dx*dx + dy*dy
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		if best == -1 {
			break
		}
		used[best] = true
		pairs = append(pairs, morphPair{src: sources[best], dst: t})
	}
	return pairs
}

// morphAnimator interpolates paired particles from source to target with
// an eased progress, redrawing every particle as a small disc each step,
// then freezes on the final frame for the dwell time.
type morphAnimator struct {
	steps     int
	stepDelay time.Duration
	dwell     time.Duration
}

func newMorphAnimator() *morphAnimator {
	return &morphAnimator{steps: MORPH_STEPS, stepDelay: MORPH_STEP_DELAY, dwell: MORPH_DWELL}
}

func (a *morphAnimator) Run(frame *image.RGBA, blit Blitter, pairs []morphPair) {
	for step := 1; step <= a.steps; step++ {
		t := easeOutCubic(float64(step) / float64(a.steps))

		frameMutex.Lock()
		clearFrame(frame, GS_BLACK)
		gc := draw2dimg.NewGraphicContext(frame)
		for _, p := range pairs {
			x := p.src.x + (float64(p.dst.X)-p.src.x)*t
			y := p.src.y + (float64(p.dst.Y)-p.src.y)*t
			fillCircle(gc, x, y, MORPH_DISC_RADIUS, p.src.col)
		}
		frameMutex.Unlock()

		blit.Blit(0, 0, frame)
		time.Sleep(a.stepDelay)
	}
	time.Sleep(a.dwell)
}

// loadWordmark renders the wordmark onto a transparent frame-sized canvas:
// the SVG asset when installed, a font-drawn fallback otherwise, so the
// morph still has a target on a bare system.
func loadWordmark(width, height int, fallback font.Face) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	if f, err := os.Open("assets/wordmark.svg"); err == nil {
		defer f.Close()
		mark, err := rasterizeSVG(f, width-2*GS_H_MARGIN, 0)
		if err == nil && len(glyphInteriorPoints(mark)) > 0 {
			y := (height - mark.Bounds().Dy()) / 2
			copyImageToImageAt(canvas, mark, GS_H_MARGIN, y)
			return canvas
		}
		log.Printf("wordmark svg render failed, using font fallback: %v", err)
	}

	m := fallback.Metrics()
	top := (height - m.Ascent.Round() - m.Descent.Round()) / 2
	drawText(canvas, GS_WORDMARK, width/2, top, fallback, color.RGBA{255, 255, 255, 255}, true)
	return canvas
}

// morphFromCells is the automaton's terminal act: live cells scatter into
// particles that settle on the wordmark outline.
func morphFromCells(frame *image.RGBA, blit Blitter, engine *lifeEngine, wordmark *image.RGBA, rng *rand.Rand) {
	targets := glyphEdgePoints(wordmark)
	sources := engine.livePoints()
	if len(sources) == 0 {
		// Grid died out completely; scatter from random positions like
		// the boot reveal does.
		sources = randomParticles(frame.Bounds().Dx(), frame.Bounds().Dy(), len(targets)/4+1, rng)
	}
	pairs := assignSources(targets, reconcileSources(sources, len(targets), rng))
	newMorphAnimator().Run(frame, blit, pairs)
}

// morphFromRandom is the boot reveal: particles from uniform random
// positions converge onto the full interior pixel set.
func morphFromRandom(frame *image.RGBA, blit Blitter, wordmark *image.RGBA, rng *rand.Rand) {
	targets := glyphInteriorPoints(wordmark)
	sources := randomParticles(frame.Bounds().Dx(), frame.Bounds().Dy(), len(targets)/4+1, rng)
	pairs := assignSources(targets, reconcileSources(sources, len(targets), rng))
	newMorphAnimator().Run(frame, blit, pairs)
}

func randomParticles(width, height, n int, rng *rand.Rand) []morphPoint {
	pts := make([]morphPoint, n)
	for i := range pts {
		pts[i] = morphPoint{
			x:   rng.Float64() * float64(width),
			y:   rng.Float64() * float64(height),
			col: hsvToRGB(rng.Float64()*360, 0.8, 1.0),
		}
	}
	return pts
}
