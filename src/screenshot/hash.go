package screenshot

import (
	"hash/fnv"
	"image"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
)

// Hasher produces a coarse fingerprint of a screenshot for "did the screen
// change" checks. It is deliberately perceptual, not cryptographic: small
// pixel noise should not flip the hash, a real content change should.
// Kept as an interface so the heuristic can be swapped (e.g. block-wise
// pixel delta) without touching the navigation state machine.
type Hasher interface {
	Hash(img image.Image) uint64
}

const hashGridSize = 64

// NewHasher returns the default mean-threshold downsample hasher.
func NewHasher() Hasher { return downsampleHasher{} }

// downsampleHasher shrinks the frame to a 64x64 grayscale grid, thresholds
// each cell against the mean luminance, and folds the resulting bit vector
// through FNV-1a.
type downsampleHasher struct{}

func (downsampleHasher) Hash(img image.Image) uint64 {
	if img == nil {
		return 0
	}

	small := image.NewGray(image.Rect(0, 0, hashGridSize, hashGridSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	lum := make([]float64, 0, hashGridSize*hashGridSize)
	for _, p := range small.Pix {
		lum = append(lum, float64(p))
	}
	mean := stat.Mean(lum, nil)

	bits := make([]byte, hashGridSize*hashGridSize/8)
	for i, v := range lum {
		if v > mean {
			bits[i/8] |= 1 << uint(i%8)
		}
	}

	h := fnv.New64a()
	_, _ = h.Write(bits)
	return h.Sum64()
}
