package main

import (
	"image"
	"image/color"
	"math/bits"
	"math/rand"

	"github.com/llgcode/draw2d/draw2dimg"
)

const (
	LIFE_CELL_SIZE    = 8
	LIFE_SEED_CHANCE  = 4  // one in four cells starts alive
	LIFE_ALPHA_STEP   = 32 // per-tick fade toward 255 (alive) or 0 (dead)
	LIFE_HISTORY_SIZE = 8
)

// lifeEngine runs a toroidal Game of Life sized to the panel. Cells fade
// in and out through a per-cell alpha so generations blend instead of
// flickering. A ring of recent grid fingerprints catches oscillators; a
// match (or a fully dead grid) ends the session so the morph can take over
// before the grid is reseeded.
type lifeEngine struct {
	cols, rows int
	cellSize   int
	cells      []bool
	next       []bool
	alpha      []uint8
	frame      int
	history    [LIFE_HISTORY_SIZE]uint32
	histLen    int
	histPos    int
	rng        *rand.Rand
}

// newLifeEngine sizes the grid from the panel geometry. Dimensions are
// recomputed from scratch here, never patched in place, so a geometry
// change just means building a new engine.
func newLifeEngine(width, height, cellSize int, rng *rand.Rand) *lifeEngine {
	cols := width / cellSize
	rows := height / cellSize
	e := &lifeEngine{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		cells:    make([]bool, cols*rows),
		next:     make([]bool, cols*rows),
		alpha:    make([]uint8, cols*rows),
		rng:      rng,
	}
	return e
}

// Reseed replaces both grids with a fresh random population and clears the
// fade levels and fingerprint history. Used at session start and after
// every auto-reset.
func (e *lifeEngine) Reseed() {
	e.cells = make([]bool, e.cols*e.rows)
	e.next = make([]bool, e.cols*e.rows)
	e.alpha = make([]uint8, e.cols*e.rows)
	for i := range e.cells {
		e.cells[i] = e.rng.Intn(LIFE_SEED_CHANCE) == 0
	}
	e.clearHistory()
}

func (e *lifeEngine) clearHistory() {
	e.histLen = 0
	e.histPos = 0
}

// AdvanceAndCheck applies the life rule on the torus, fingerprints the new
// generation and checks for death or a cycle. Returns true when the
// session should reset (morph, then Reseed). The per-tick order is: fade
// alphas, render, then this.
func (e *lifeEngine) AdvanceAndCheck() (reset bool) {
	e.advance()
	e.frame++

	fp := e.fingerprint()
	if e.allDead() || e.seen(fp) {
		e.clearHistory()
		return true
	}
	e.record(fp)
	return false
}

func (e *lifeEngine) updateAlpha() {
	for i, alive := range e.cells {
		a := int(e.alpha[i])
		if alive {
			a += LIFE_ALPHA_STEP
			if a > 255 {
				a = 255
			}
		} else {
			a -= LIFE_ALPHA_STEP
			if a < 0 {
				a = 0
			}
		}
		e.alpha[i] = uint8(a)
	}
}

// advance writes the next generation into the spare buffer and swaps, the
// same double-buffer dance the frame pipeline uses.
func (e *lifeEngine) advance() {
	cols, rows := e.cols, e.rows
	for y := 0; y < rows; y++ {
		ym := (y + rows - 1) % rows
		yp := (y + 1) % rows
		for x := 0; x < cols; x++ {
			xm := (x + cols - 1) % cols
			xp := (x + 1) % cols

			n := 0
			if e.cells[ym*cols+xm] {
				n++
			}
			if e.cells[ym*cols+x] {
				n++
			}
			if e.cells[ym*cols+xp] {
				n++
			}
			if e.cells[y*cols+xm] {
				n++
			}
			if e.cells[y*cols+xp] {
				n++
			}
			if e.cells[yp*cols+xm] {
				n++
			}
			if e.cells[yp*cols+x] {
				n++
			}
			if e.cells[yp*cols+xp] {
				n++
			}

			idx := y*cols + x
			e.next[idx] = n == 3 || (e.cells[idx] && n == 2)
		}
	}
	e.cells, e.next = e.next, e.cells
}

// fingerprint XOR-folds the grid into 32 bits, rotating each live cell's
// contribution by (x+y) mod 24 so translations of the same pattern hash
// differently.
func (e *lifeEngine) fingerprint() uint32 {
	var h uint32
	for y := 0; y < e.rows; y++ {
		for x := 0; x < e.cols; x++ {
			idx := y*e.cols + x
			if e.cells[idx] {
				h ^= bits.RotateLeft32(uint32(idx)*2654435761+1, (x+y)%24)
			}
		}
	}
	return h
}

func (e *lifeEngine) allDead() bool {
	for _, alive := range e.cells {
		if alive {
			return false
		}
	}
	return true
}

func (e *lifeEngine) seen(fp uint32) bool {
	for i := 0; i < e.histLen; i++ {
		if e.history[i] == fp {
			return true
		}
	}
	return false
}

func (e *lifeEngine) record(fp uint32) {
	e.history[e.histPos] = fp
	e.histPos = (e.histPos + 1) % LIFE_HISTORY_SIZE
	if e.histLen < LIFE_HISTORY_SIZE {
		e.histLen++
	}
}

// hueColor is the deterministic rainbow: hue from grid position and frame
// counter. The frame counter never needs resetting; the hue formula is
// periodic on its own.
func (e *lifeEngine) hueColor(x, y int) color.RGBA {
	hue := float64((7*x + 13*y + 3*e.frame) % 360)
	return hsvToRGB(hue, 0.8, 1.0)
}

// cellColor applies the cell's fade level to its hue color; invisible
// means fully faded out.
func (e *lifeEngine) cellColor(x, y int) (c color.RGBA, visible bool) {
	a := e.alpha[y*e.cols+x]
	if a == 0 {
		return c, false
	}
	return scaleColor(e.hueColor(x, y), a), true
}

// RenderInto paints every visible cell as a filled disc at its center onto
// a black field.
func (e *lifeEngine) RenderInto(frame *image.RGBA) {
	clearFrame(frame, GS_BLACK)
	gc := draw2dimg.NewGraphicContext(frame)
	radius := float64(e.cellSize)/2 - 1
	for y := 0; y < e.rows; y++ {
		for x := 0; x < e.cols; x++ {
			c, visible := e.cellColor(x, y)
			if !visible {
				continue
			}
			cx := float64(x*e.cellSize + e.cellSize/2)
			cy := float64(y*e.cellSize + e.cellSize/2)
			fillCircle(gc, cx, cy, radius, c)
		}
	}
}

// livePoints collects the center coordinate and current render color of
// every live cell; these become the morph's source particles.
func (e *lifeEngine) livePoints() []morphPoint {
	var pts []morphPoint
	for y := 0; y < e.rows; y++ {
		for x := 0; x < e.cols; x++ {
			if !e.cells[y*e.cols+x] {
				continue
			}
			c, visible := e.cellColor(x, y)
			if !visible {
				// Just-born cell that has not faded in yet; still a
				// particle, at its eventual color.
				c = e.hueColor(x, y)
			}
			pts = append(pts, morphPoint{
				x:   float64(x*e.cellSize + e.cellSize/2),
				y:   float64(y*e.cellSize + e.cellSize/2),
				col: c,
			})
		}
	}
	return pts
}
