package main

import (
	"math/rand"
	"testing"
)

func testEngine() *lifeEngine {
	// 40x40 px at cell size 8 -> 5x5 grid.
	return newLifeEngine(40, 40, 8, rand.New(rand.NewSource(1)))
}

func (e *lifeEngine) set(x, y int, alive bool) { e.cells[y*e.cols+x] = alive }
func (e *lifeEngine) get(x, y int) bool        { return e.cells[y*e.cols+x] }

func TestGridDimensions(t *testing.T) {
	e := newLifeEngine(320, 172, 8, rand.New(rand.NewSource(1)))
	if e.cols != 40 || e.rows != 21 {
		t.Errorf("grid dims: got %dx%d, want 40x21", e.cols, e.rows)
	}
}

func TestRuleBirthOnThreeNeighbors(t *testing.T) {
	// Dead center cell with exactly 3 live neighbors must be born, and a
	// live one with 3 must survive.
	for _, startAlive := range []bool{false, true} {
		e := testEngine()
		e.set(1, 1, true)
		e.set(2, 1, true)
		e.set(3, 1, true)
		e.set(2, 2, startAlive)
		e.advance()
		if !e.get(2, 2) {
			t.Errorf("cell with 3 neighbors (was alive=%t) must be alive next generation", startAlive)
		}
	}
}

func TestRuleDeathCounts(t *testing.T) {
	neighborSpots := [][2]int{{1, 1}, {2, 1}, {3, 1}, {1, 2}, {3, 2}, {1, 3}, {2, 3}, {3, 3}}
	for _, n := range []int{0, 1, 4, 5, 8} {
		e := testEngine()
		e.set(2, 2, true)
		for i := 0; i < n; i++ {
			e.set(neighborSpots[i][0], neighborSpots[i][1], true)
		}
		e.advance()
		if e.get(2, 2) {
			t.Errorf("live cell with %d neighbors must die", n)
		}
	}

	// 2 neighbors: survival.
	e := testEngine()
	e.set(2, 2, true)
	e.set(1, 1, true)
	e.set(3, 3, true)
	e.advance()
	if !e.get(2, 2) {
		t.Error("live cell with 2 neighbors must survive")
	}
}

func TestToroidalWrap(t *testing.T) {
	// Three live corners are all neighbors of (4,4) across the wrap, so
	// the opposite corner is born.
	e := testEngine()
	e.set(0, 0, true)
	e.set(4, 0, true)
	e.set(0, 4, true)
	e.advance()
	if !e.get(4, 4) {
		t.Error("corner cell must see its toroidal neighbors and be born")
	}
}

func TestAllDeadTriggersReset(t *testing.T) {
	e := testEngine()
	e.set(2, 2, true) // lone cell starves immediately
	if !e.AdvanceAndCheck() {
		t.Error("fully dead generation must trigger a reset")
	}
	if e.histLen != 0 {
		t.Error("history must be cleared on reset")
	}
}

func TestOscillatorTriggersResetOnce(t *testing.T) {
	// A blinker has period 2: generation 3 reproduces generation 1's
	// fingerprint, which is still in the history ring.
	e := testEngine()
	e.set(1, 2, true)
	e.set(2, 2, true)
	e.set(3, 2, true)

	if e.AdvanceAndCheck() {
		t.Fatal("generation 1 should not reset")
	}
	if e.AdvanceAndCheck() {
		t.Fatal("generation 2 should not reset")
	}
	if !e.AdvanceAndCheck() {
		t.Fatal("generation 3 repeats generation 1 and must reset")
	}
	if e.histLen != 0 || e.histPos != 0 {
		t.Error("fingerprint history must be cleared immediately after the reset")
	}
}

func TestFingerprintDistinguishesTranslation(t *testing.T) {
	e1 := testEngine()
	e1.set(1, 1, true)
	e2 := testEngine()
	e2.set(2, 2, true)
	if e1.fingerprint() == e2.fingerprint() {
		t.Error("translated patterns should fingerprint differently")
	}
}

func TestAlphaFadeAndClamp(t *testing.T) {
	e := testEngine()
	e.set(2, 2, true)

	for i := 0; i < 12; i++ {
		e.updateAlpha()
	}
	if got := e.alpha[2*e.cols+2]; got != 255 {
		t.Errorf("alive cell alpha must clamp at 255, got %d", got)
	}

	e.set(2, 2, false)
	for i := 0; i < 12; i++ {
		e.updateAlpha()
	}
	if got := e.alpha[2*e.cols+2]; got != 0 {
		t.Errorf("dead cell alpha must clamp at 0, got %d", got)
	}
}

func TestReseedDensityAndState(t *testing.T) {
	e := newLifeEngine(320, 172, 8, rand.New(rand.NewSource(7)))
	e.record(123)
	e.Reseed()

	if e.histLen != 0 {
		t.Error("Reseed must clear the fingerprint history")
	}

	live := 0
	for _, alive := range e.cells {
		if alive {
			live++
		}
	}
	total := e.cols * e.rows
	if live < total/8 || live > total/2 {
		t.Errorf("seed density off: %d of %d cells live", live, total)
	}
	for _, a := range e.alpha {
		if a != 0 {
			t.Fatal("Reseed must zero the fade levels")
		}
	}
}

func TestCellColorDeterministic(t *testing.T) {
	e := testEngine()
	e.set(1, 1, true)
	e.updateAlpha()

	c1, ok1 := e.cellColor(1, 1)
	c2, ok2 := e.cellColor(1, 1)
	if !ok1 || !ok2 || c1 != c2 {
		t.Error("cell color must be deterministic for fixed x,y,frame")
	}
	if _, visible := e.cellColor(3, 3); visible {
		t.Error("dead cell with zero alpha must be invisible")
	}
}
