// Package overlay owns the live annotation set and its animation state. The
// engine is pure state-machine logic driven by a fixed-rate tick; rendering
// and input live in the surface, which consumes rendered-shape snapshots.
package overlay

import (
	"log"
	"math"
	"sync"
	"time"

	"screen-assistant/src/geometry"
	"screen-assistant/src/shape"
)

const (
	// TickInterval is the animation cadence the surface drives the engine at.
	TickInterval = 33 * time.Millisecond

	pulseAmplitude = 0.05
	pulsePeriod    = 2 * time.Second
)

// RenderedShape is one visible shape with its animation state resolved for
// this frame.
type RenderedShape struct {
	Shape   shape.Shape
	Opacity float64
	Scale   float64
}

// Engine holds the active shape set. It is the only mutator of that set;
// other components submit replacements through Load.
type Engine struct {
	mu       sync.Mutex
	set      shape.Set
	starts   []time.Time // per-shape animation clock
	editMode bool
	selected int
	dragDX   int
	dragDY   int
	bounds   geometry.Size

	now func() time.Time
}

// NewEngine creates an engine for a surface of the given bounds.
func NewEngine(bounds geometry.Size) *Engine {
	return &Engine{
		bounds:   bounds,
		selected: -1,
		now:      time.Now,
	}
}

// Load replaces the active annotation set and resets every animation clock.
func (e *Engine) Load(set shape.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.set = set
	e.starts = make([]time.Time, len(set.Shapes))
	for i := range e.starts {
		e.starts[i] = now
	}
	e.selected = -1
	log.Printf("Overlay: loaded %d shapes, step %d/%d", len(set.Shapes), set.CurrentStep, set.TotalSteps)
}

// Clear removes every shape.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set = shape.Set{}
	e.starts = nil
	e.selected = -1
}

// Empty reports whether nothing is loaded.
func (e *Engine) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.Empty()
}

// CurrentStep returns the step currently shown (0 when empty).
func (e *Engine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set.Empty() {
		return 0
	}
	return e.set.CurrentStep
}

// AdvanceStep hides the current step's shapes and starts the next step's
// fade-in. Past the last step it clears the set: the sequence is done.
func (e *Engine) AdvanceStep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Empty() {
		return
	}
	if e.set.CurrentStep >= e.set.TotalSteps {
		log.Printf("Overlay: last step finished, clearing")
		e.set = shape.Set{}
		e.starts = nil
		e.selected = -1
		return
	}

	e.set.CurrentStep++
	now := e.now()
	for i, sh := range e.set.Shapes {
		if sh.Step == e.set.CurrentStep {
			e.starts[i] = now
		}
	}
	log.Printf("Overlay: advanced to step %d/%d", e.set.CurrentStep, e.set.TotalSteps)
}

// SetEditMode toggles pointer interaction. Outside edit mode the surface is
// input-transparent.
func (e *Engine) SetEditMode(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editMode = enabled
	if !enabled {
		e.selected = -1
	}
}

func (e *Engine) EditMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editMode
}

// Tick advances the animation: expires finished shapes and resolves opacity
// and pulse for the rest. It returns the shapes to draw this frame. The tick
// never blocks on anything slower than the mutex.
func (e *Engine) Tick() []RenderedShape {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.set.Empty() {
		return nil
	}

	now := e.now()
	scale := 1.0 + pulseAmplitude*math.Sin(2*math.Pi*float64(now.UnixMilli()%pulsePeriod.Milliseconds())/float64(pulsePeriod.Milliseconds()))

	// Drop expired shapes first, re-indexing the edit selection.
	kept := e.set.Shapes[:0]
	keptStarts := e.starts[:0]
	selected := -1
	for i, sh := range e.set.Shapes {
		if now.Sub(e.starts[i]) >= sh.Duration {
			continue
		}
		if i == e.selected {
			selected = len(kept)
		}
		kept = append(kept, sh)
		keptStarts = append(keptStarts, e.starts[i])
	}
	e.set.Shapes = kept
	e.starts = keptStarts
	e.selected = selected

	var out []RenderedShape
	for i, sh := range e.set.Shapes {
		if sh.Step != e.set.CurrentStep {
			continue
		}
		elapsed := now.Sub(e.starts[i])
		op := opacityAt(elapsed, sh.Duration, sh.MaxOpacity)
		e.set.Shapes[i].Opacity = op
		out = append(out, RenderedShape{Shape: e.set.Shapes[i], Opacity: op, Scale: scale})
	}
	return out
}

// opacityAt implements the per-shape fade state machine: linear ramp up over
// the first 300ms, hold at max, linear ramp down over the final second.
func opacityAt(elapsed, duration time.Duration, maxOpacity float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed < shape.FadeInDuration {
		return maxOpacity * float64(elapsed) / float64(shape.FadeInDuration)
	}
	fadeOutStart := duration - shape.FadeOutDuration
	if elapsed > fadeOutStart {
		remaining := duration - elapsed
		if remaining <= 0 {
			return 0
		}
		return maxOpacity * float64(remaining) / float64(shape.FadeOutDuration)
	}
	return maxOpacity
}
