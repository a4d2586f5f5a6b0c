// Package geometry reconciles rectangles between captured-image pixel space
// and display pixel space.
package geometry

import "math"

// Rect is an axis-aligned rectangle in whichever pixel space the caller is
// working in.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

type Size struct {
	Width  int
	Height int
}

// edgeMargin is how far from the display edge a clamped origin is kept so a
// box pushed off-screen stays visible.
const edgeMargin = 10

func (r Rect) Area() int { return r.Width * r.Height }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Undersized reports whether either dimension is at or below the floor.
func (r Rect) Undersized(minSize int) bool {
	return r.Width <= minSize || r.Height <= minSize
}

// MapToDisplay rescales r from image space to display space and normalizes it
// to a visible, non-degenerate rectangle.
//
// Scale factors are independent per axis: the capture and the display are
// assumed to share an aspect ratio, but nothing here relies on it. An unknown
// or zero image size means no scaling. The minimum-size floor is applied
// BEFORE clamping; clamping first could shrink a box back under the floor at
// a display edge.
func MapToDisplay(r Rect, imageSize, displaySize Size, minSize int) Rect {
	sx, sy := 1.0, 1.0
	if imageSize.Width > 0 && imageSize.Height > 0 {
		sx = float64(displaySize.Width) / float64(imageSize.Width)
		sy = float64(displaySize.Height) / float64(imageSize.Height)
	}

	out := Rect{
		X:      int(math.Round(float64(r.X) * sx)),
		Y:      int(math.Round(float64(r.Y) * sy)),
		Width:  int(math.Round(float64(r.Width) * sx)),
		Height: int(math.Round(float64(r.Height) * sy)),
	}

	// Floor first.
	if out.Width < minSize {
		out.Width = minSize
	}
	if out.Height < minSize {
		out.Height = minSize
	}

	// Then clamp into the display.
	out.X = clamp(out.X, 0, maxInt(0, displaySize.Width-edgeMargin))
	out.Y = clamp(out.Y, 0, maxInt(0, displaySize.Height-edgeMargin))
	if out.X+out.Width > displaySize.Width {
		out.Width = displaySize.Width - out.X
	}
	if out.Y+out.Height > displaySize.Height {
		out.Height = displaySize.Height - out.Y
	}

	return out
}

// ClampInto moves and shrinks r so it lies inside bounds, preserving size
// where possible. Used by overlay edit-mode dragging.
func ClampInto(r Rect, bounds Size) Rect {
	if r.Width > bounds.Width {
		r.Width = bounds.Width
	}
	if r.Height > bounds.Height {
		r.Height = bounds.Height
	}
	r.X = clamp(r.X, 0, bounds.Width-r.Width)
	r.Y = clamp(r.Y, 0, bounds.Height-r.Height)
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
