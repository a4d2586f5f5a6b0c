package overlay

import (
	"screen-assistant/src/geometry"
	"screen-assistant/src/shape"
)

// Edit-mode pointer interaction. All coordinates are surface-local pixels.
// These are no-ops unless edit mode is on.

// Press selects the topmost shape of the current step under the cursor and
// records the drag offset. With no shape under the cursor the first visible
// shape is selected, so a press anywhere always gives the user something to
// move.
func (e *Engine) Press(x, y int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editMode || e.set.Empty() {
		return
	}

	idx := e.set.StepShapes()
	if len(idx) == 0 {
		return
	}

	e.selected = idx[0]
	// Later shapes draw on top; scan back-to-front for the hit.
	for i := len(idx) - 1; i >= 0; i-- {
		if e.set.Shapes[idx[i]].Rect.Contains(x, y) {
			e.selected = idx[i]
			break
		}
	}

	r := e.set.Shapes[e.selected].Rect
	e.dragDX = x - r.X
	e.dragDY = y - r.Y
}

// Drag moves the selected shape with the cursor, keeping it on the surface.
func (e *Engine) Drag(x, y int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editMode || e.selected < 0 || e.selected >= len(e.set.Shapes) {
		return
	}

	r := e.set.Shapes[e.selected].Rect
	r.X = x - e.dragDX
	r.Y = y - e.dragDY
	e.set.Shapes[e.selected].Rect = geometry.ClampInto(r, e.bounds)
}

// Release ends a drag. Selection is kept so a following wheel gesture
// resizes the shape just moved.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dragDX = 0
	e.dragDY = 0
}

// Wheel resizes the selected shape (or the first visible one) about its
// center. Positive delta grows, negative shrinks, with a 10px floor per
// dimension. No rotation.
func (e *Engine) Wheel(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editMode || e.set.Empty() {
		return
	}

	target := e.selected
	if target < 0 || target >= len(e.set.Shapes) {
		idx := e.set.StepShapes()
		if len(idx) == 0 {
			return
		}
		target = idx[0]
	}

	r := e.set.Shapes[target].Rect
	cx, cy := r.Center()

	step := 1.1
	if delta < 0 {
		step = 1.0 / 1.1
	}
	w := int(float64(r.Width) * step)
	h := int(float64(r.Height) * step)
	if w < shape.MinEditSize {
		w = shape.MinEditSize
	}
	if h < shape.MinEditSize {
		h = shape.MinEditSize
	}

	resized := geometry.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
	e.set.Shapes[target].Rect = geometry.ClampInto(resized, e.bounds)
}
