package screenshot

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestHashStableForSameContent(t *testing.T) {
	h := NewHasher()
	a := solidImage(200, 100, color.RGBA{R: 40, G: 40, B: 40, A: 255})
	b := solidImage(200, 100, color.RGBA{R: 40, G: 40, B: 40, A: 255})

	if h.Hash(a) != h.Hash(b) {
		t.Errorf("Expected identical frames to hash equal")
	}
}

func TestHashChangesWithContent(t *testing.T) {
	h := NewHasher()
	a := solidImage(200, 100, color.RGBA{R: 30, G: 30, B: 30, A: 255})

	// Same frame with a bright block in one corner, like a dialog opening.
	b := solidImage(200, 100, color.RGBA{R: 30, G: 30, B: 30, A: 255})
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			b.SetRGBA(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}

	if h.Hash(a) == h.Hash(b) {
		t.Errorf("Expected changed frame to hash differently")
	}
}

func TestHashInsensitiveToResolution(t *testing.T) {
	// The same visual content at different capture resolutions downsamples
	// to the same grid.
	h := NewHasher()
	a := solidImage(640, 480, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	b := solidImage(1280, 960, color.RGBA{R: 100, G: 100, B: 100, A: 255})

	if h.Hash(a) != h.Hash(b) {
		t.Errorf("Expected resolution-independent hash for uniform frames")
	}
}

func TestHashNilImage(t *testing.T) {
	if got := NewHasher().Hash(nil); got != 0 {
		t.Errorf("Expected 0 for nil image, got %d", got)
	}
}
