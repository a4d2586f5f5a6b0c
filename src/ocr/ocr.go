// Package ocr extracts text candidates with bounding boxes from a screenshot
// using a local Tesseract engine.
package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"screen-assistant/src/geometry"
)

// ErrUnavailable reports that no local OCR engine could be used. Callers are
// expected to fall back to vision-service localization, never to crash.
var ErrUnavailable = errors.New("OCR engine unavailable")

// Candidate is one recognized text run in source-image pixel space.
// Confidence is normalized to [0,1].
type Candidate struct {
	ID         int
	Text       string
	Box        geometry.Rect
	Confidence float64
}

// Engine wraps a Tesseract client configured for sparse word detection.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates the OCR engine. An error here means Tesseract is missing
// or broken; the caller should keep running with ErrUnavailable extraction.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Screen text is sparse UI chrome, not prose.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e != nil && e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Extract runs word-level OCR over img and returns fresh candidates with
// stable ids assigned in detection order.
func (e *Engine) Extract(img image.Image) ([]Candidate, error) {
	if e == nil || e.client == nil {
		return nil, ErrUnavailable
	}
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %v", err)
	}

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var candidates []Candidate
	id := 1
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:   id,
			Text: text,
			Box: geometry.Rect{
				X:      box.Box.Min.X,
				Y:      box.Box.Min.Y,
				Width:  box.Box.Dx(),
				Height: box.Box.Dy(),
			},
			Confidence: normalizeConfidence(box.Confidence),
		})
		id++
	}

	log.Printf("OCR: extracted %d candidates", len(candidates))
	return candidates, nil
}

// normalizeConfidence maps Tesseract's 0-100 score to [0,1].
func normalizeConfidence(c float64) float64 {
	c = c / 100.0
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
