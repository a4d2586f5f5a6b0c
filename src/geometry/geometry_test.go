package geometry

import "testing"

func TestMapToDisplayIdentity(t *testing.T) {
	size := Size{Width: 1000, Height: 800}
	in := Rect{X: 100, Y: 50, Width: 80, Height: 20}

	out := MapToDisplay(in, size, size, 12)
	if out != in {
		t.Errorf("Expected identity mapping to return input unchanged, got %+v", out)
	}
}

func TestMapToDisplayScales(t *testing.T) {
	in := Rect{X: 100, Y: 100, Width: 200, Height: 100}
	out := MapToDisplay(in, Size{1000, 800}, Size{2000, 1600}, 12)

	want := Rect{X: 200, Y: 200, Width: 400, Height: 200}
	if out != want {
		t.Errorf("Expected %+v, got %+v", want, out)
	}
}

func TestMapToDisplayNonUniformScale(t *testing.T) {
	// Axes scale independently even when the ratios differ.
	in := Rect{X: 100, Y: 100, Width: 100, Height: 100}
	out := MapToDisplay(in, Size{1000, 1000}, Size{2000, 1000}, 12)

	want := Rect{X: 200, Y: 100, Width: 200, Height: 100}
	if out != want {
		t.Errorf("Expected %+v, got %+v", want, out)
	}
}

func TestMapToDisplayUnknownImageSize(t *testing.T) {
	in := Rect{X: 5, Y: 5, Width: 50, Height: 50}
	out := MapToDisplay(in, Size{}, Size{1920, 1080}, 12)
	if out != in {
		t.Errorf("Expected no scaling for zero image size, got %+v", out)
	}
}

func TestMapToDisplayFloorsUndersized(t *testing.T) {
	in := Rect{X: 10, Y: 10, Width: 5, Height: 5}
	out := MapToDisplay(in, Size{1000, 800}, Size{1000, 800}, 12)

	if out.Width != 12 || out.Height != 12 {
		t.Errorf("Expected 5x5 box floored to exactly 12x12, got %dx%d", out.Width, out.Height)
	}
	if out.X != 10 || out.Y != 10 {
		t.Errorf("Expected origin unchanged, got (%d,%d)", out.X, out.Y)
	}
}

func TestMapToDisplayClampsAtEdge(t *testing.T) {
	// A box hanging past the display edge must be pulled back without going
	// negative or exceeding bounds.
	in := Rect{X: 1990, Y: 1070, Width: 50, Height: 50}
	out := MapToDisplay(in, Size{1920, 1080}, Size{1920, 1080}, 12)

	if out.X < 0 || out.Y < 0 {
		t.Errorf("Clamped origin went negative: (%d,%d)", out.X, out.Y)
	}
	if out.X+out.Width > 1920 || out.Y+out.Height > 1080 {
		t.Errorf("Clamped box exceeds display: %+v", out)
	}
}

func TestMapToDisplayFloorBeforeClamp(t *testing.T) {
	// A tiny box at the far edge: flooring first guarantees at least some
	// visible area survives the clamp.
	out := MapToDisplay(Rect{X: 1915, Y: 1078, Width: 2, Height: 2}, Size{1920, 1080}, Size{1920, 1080}, 12)

	if out.Width < 1 || out.Height < 1 {
		t.Errorf("Expected visible box after floor-then-clamp, got %+v", out)
	}
	if out.X > 1920-edgeMargin || out.Y > 1080-edgeMargin {
		t.Errorf("Origin not clamped inside edge margin: %+v", out)
	}
}

func TestClampInto(t *testing.T) {
	bounds := Size{Width: 800, Height: 600}

	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{X: 10, Y: 10, Width: 50, Height: 50}, Rect{X: 10, Y: 10, Width: 50, Height: 50}},
		{"negative origin", Rect{X: -20, Y: -5, Width: 50, Height: 50}, Rect{X: 0, Y: 0, Width: 50, Height: 50}},
		{"past edge", Rect{X: 790, Y: 580, Width: 50, Height: 50}, Rect{X: 750, Y: 550, Width: 50, Height: 50}},
	}
	for _, tt := range tests {
		if got := ClampInto(tt.in, bounds); got != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, got)
		}
	}
}

func TestRectHelpers(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	if r.Area() != 1200 {
		t.Errorf("Expected area 1200, got %d", r.Area())
	}
	if !r.Contains(10, 20) || r.Contains(40, 60) {
		t.Errorf("Contains boundary behavior wrong")
	}
	cx, cy := r.Center()
	if cx != 25 || cy != 40 {
		t.Errorf("Expected center (25,40), got (%d,%d)", cx, cy)
	}
	if !r.Undersized(30) || r.Undersized(12) {
		t.Errorf("Undersized threshold behavior wrong")
	}
}
