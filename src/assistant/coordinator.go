// Package assistant runs the single-target highlight pipeline: local OCR
// matching first, vision-model fallback second, user disambiguation last.
package assistant

import (
	"fmt"
	"image"
	"log"
	"strconv"
	"strings"

	"screen-assistant/src/geometry"
	"screen-assistant/src/llm"
	"screen-assistant/src/match"
	"screen-assistant/src/ocr"
	"screen-assistant/src/shape"
)

// State is the coordinator's phase.
type State int

const (
	// Idle means no highlight is in progress.
	Idle State = iota
	// Analyzing means a pipeline run is executing.
	Analyzing
)

func (s State) String() string {
	if s == Analyzing {
		return "analyzing"
	}
	return "idle"
}

// Extractor produces text candidates from a captured frame. ocr.Engine
// satisfies it; a nil Extractor skips the local tier entirely.
type Extractor interface {
	Extract(img image.Image) ([]ocr.Candidate, error)
}

// Vision is the remote model surface the pipeline falls back to.
type Vision interface {
	Localize(imageData []byte, target string) ([]llm.OverlayBox, error)
	LocalizeEnlarged(imageData []byte, target string) ([]llm.OverlayBox, error)
	SelectCandidate(imageData []byte, target string, candidates []llm.CandidateInfo) (*llm.Selection, error)
}

// Display receives the finished annotation set.
type Display interface {
	Load(set shape.Set)
	Clear()
}

// Notifier surfaces progress messages and alternatives to the user.
type Notifier interface {
	Notify(message string)
}

// Config carries the tunable thresholds.
type Config struct {
	// FuzzyConfidence is the minimum OCR confidence for a candidate to
	// qualify for fuzzy matching. Exact matches ignore it.
	FuzzyConfidence float64
	// SelectionConfidence gates AI candidate selection; anything below it
	// is treated as no selection at all.
	SelectionConfidence float64
	// UndersizedRetries is how many enlarged re-localizations to attempt
	// when the model returns a degenerate box.
	UndersizedRetries int
	// MinBoxSize is the floor under which a mapped box counts as
	// undersized.
	MinBoxSize int
}

// localPadding grows a matched OCR word box into a comfortable highlight.
const localPadding = 8

// maxListed caps how many alternatives are described to the user.
const maxListed = 5

// Frame is one captured screen handed to the pipeline: the decoded image for
// OCR, its PNG bytes for the vision model, and the sizes needed for mapping.
type Frame struct {
	Image       image.Image
	PNG         []byte
	ImageSize   geometry.Size
	DisplaySize geometry.Size
}

// Coordinator owns pipeline state. Methods must be called from one
// goroutine; the event loop serializes them.
type Coordinator struct {
	cfg       Config
	extractor Extractor
	vision    Vision
	display   Display
	notifier  Notifier

	state State

	// The most recent candidate set is kept after resolution so a numeric
	// reply can re-pick by OCR id. Earlier sets are discarded.
	candidates []ocr.Candidate
	frame      *Frame
}

func New(cfg Config, extractor Extractor, vision Vision, display Display, notifier Notifier) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		extractor: extractor,
		vision:    vision,
		display:   display,
		notifier:  notifier,
		state:     Idle,
	}
}

func (c *Coordinator) State() State {
	return c.state
}

// Highlight runs the full pipeline for target against the given frame. It
// blocks for the duration of OCR and any vision calls, so callers run it off
// the UI thread.
func (c *Coordinator) Highlight(target string, frame *Frame) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("empty highlight target")
	}

	c.state = Analyzing
	defer func() { c.state = Idle }()
	c.candidates = nil
	c.frame = frame

	candidates := c.extract(frame)
	matches := match.Match(target, candidates, c.cfg.FuzzyConfidence)
	if len(matches) == 0 {
		log.Printf("Highlight: no local match for %q among %d candidates, using vision fallback", target, len(candidates))
		return c.visionFallback(target, frame)
	}

	// Tied candidates stay around so a numeric reply can override the
	// auto-selection.
	c.candidates = matches

	picked := c.pick(target, frame, matches)
	c.annotateLocal(picked, localPadding)
	if len(matches) > 1 {
		c.notifier.Notify(alternativesNote(target, picked, matches))
	}
	return nil
}

// extract runs the local OCR tier. Failure degrades to an empty candidate
// list rather than aborting, so the vision fallback still runs.
func (c *Coordinator) extract(frame *Frame) []ocr.Candidate {
	if c.extractor == nil {
		return nil
	}
	candidates, err := c.extractor.Extract(frame.Image)
	if err != nil {
		log.Printf("Highlight: OCR failed, continuing without local tier: %v", err)
		return nil
	}
	return candidates
}

// pick chooses among tied matches. A single match wins outright. With
// several, the vision model gets one chance to select; a confident,
// locally re-validated selection is trusted, anything else falls back to
// the smallest bounding box as the tightest visual match.
func (c *Coordinator) pick(target string, frame *Frame, matches []ocr.Candidate) ocr.Candidate {
	if len(matches) == 1 {
		return matches[0]
	}

	sel, err := c.vision.SelectCandidate(frame.PNG, target, candidateInfos(matches))
	if err != nil {
		log.Printf("Highlight: candidate selection failed, using smallest box: %v", err)
	} else if sel != nil && sel.Confidence >= c.cfg.SelectionConfidence {
		if picked, ok := findCandidate(matches, sel.OCRID); ok && c.revalidate(target, picked) {
			return picked
		}
		log.Printf("Highlight: AI selected candidate %d but it failed re-validation", sel.OCRID)
	}

	best, _ := match.Best(matches)
	return best
}

// revalidate confirms the AI-selected candidate still matches the target
// text locally, rejecting hallucinated picks.
func (c *Coordinator) revalidate(target string, picked ocr.Candidate) bool {
	tokens := match.Tokenize(target)
	return match.Classify(tokens, picked, c.cfg.FuzzyConfidence) != match.TierNone
}

// HandleReply consumes a user reply against the retained candidate set. A
// bare integer picks the candidate with that OCR id; cancel words clear the
// pending highlight.
func (c *Coordinator) HandleReply(text string) error {
	text = strings.TrimSpace(strings.ToLower(text))

	switch text {
	case "cancel", "clear", "stop", "none":
		c.candidates = nil
		c.frame = nil
		c.display.Clear()
		return nil
	}

	if len(c.candidates) == 0 {
		return fmt.Errorf("no candidates to choose from")
	}
	id, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("reply %q is not a candidate number", text)
	}
	picked, ok := findCandidate(c.candidates, id)
	if !ok {
		return fmt.Errorf("no candidate with id %d", id)
	}
	c.annotateLocal(picked, localPadding)
	return nil
}

// annotateLocal maps one OCR candidate box to display space, pads it, and
// loads it as a single-step annotation.
func (c *Coordinator) annotateLocal(candidate ocr.Candidate, padding int) {
	box := candidate.Box
	box.X -= padding
	box.Y -= padding
	box.Width += 2 * padding
	box.Height += 2 * padding

	mapped := geometry.MapToDisplay(box, c.frame.ImageSize, c.frame.DisplaySize, c.cfg.MinBoxSize)
	s := shape.New(shape.KindRect, mapped)
	s.Label = candidate.Text
	c.display.Load(shape.NewSet([]shape.Shape{s}))
	log.Printf("Highlight: annotated %q at (%d,%d) %dx%d", candidate.Text, mapped.X, mapped.Y, mapped.Width, mapped.Height)
}

// visionFallback asks the model for boxes directly. An undersized result
// gets up to UndersizedRetries enlarged re-asks; if the box is still tiny it
// is shown anyway, with a warning, since a rough hint beats nothing.
func (c *Coordinator) visionFallback(target string, frame *Frame) error {
	boxes, err := c.vision.Localize(frame.PNG, target)
	if err != nil {
		return fmt.Errorf("vision localization failed: %w", err)
	}
	if len(boxes) == 0 {
		c.notifier.Notify(fmt.Sprintf("Could not find %q on screen", target))
		return nil
	}

	for attempt := 0; anyUndersized(boxes, frame, c.cfg.MinBoxSize) && attempt < c.cfg.UndersizedRetries; attempt++ {
		log.Printf("Highlight: vision box undersized, retry %d with enlarged prompt", attempt+1)
		retry, err := c.vision.LocalizeEnlarged(frame.PNG, target)
		if err != nil || len(retry) == 0 {
			log.Printf("Highlight: enlarged retry failed: %v", err)
			break
		}
		boxes = retry
	}
	if anyUndersized(boxes, frame, c.cfg.MinBoxSize) {
		c.notifier.Notify("Highlight location is approximate")
	}

	shapes := make([]shape.Shape, 0, len(boxes))
	for _, b := range boxes {
		raw := geometry.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
		mapped := geometry.MapToDisplay(raw, frame.ImageSize, frame.DisplaySize, c.cfg.MinBoxSize)
		s := shape.New(shape.KindFromString(b.Type), mapped)
		if b.Color != "" {
			s.Color = b.Color
		}
		s.Label = b.Label
		shapes = append(shapes, s)
	}
	c.display.Load(shape.NewSet(shapes))
	return nil
}

// anyUndersized checks the model's boxes after scaling to display space but
// before the minimum-size floor, which would mask a degenerate response.
func anyUndersized(boxes []llm.OverlayBox, frame *Frame, minSize int) bool {
	sx, sy := 1.0, 1.0
	if frame.ImageSize.Width > 0 && frame.ImageSize.Height > 0 {
		sx = float64(frame.DisplaySize.Width) / float64(frame.ImageSize.Width)
		sy = float64(frame.DisplaySize.Height) / float64(frame.ImageSize.Height)
	}
	for _, b := range boxes {
		scaled := geometry.Rect{
			Width:  int(float64(b.Width) * sx),
			Height: int(float64(b.Height) * sy),
		}
		if scaled.Undersized(minSize) {
			return true
		}
	}
	return false
}

func candidateInfos(matches []ocr.Candidate) []llm.CandidateInfo {
	infos := make([]llm.CandidateInfo, 0, len(matches))
	for _, m := range matches {
		infos = append(infos, llm.CandidateInfo{
			ID:         m.ID,
			Text:       m.Text,
			X:          m.Box.X,
			Y:          m.Box.Y,
			Width:      m.Box.Width,
			Height:     m.Box.Height,
			Confidence: m.Confidence,
		})
	}
	return infos
}

func findCandidate(matches []ocr.Candidate, id int) (ocr.Candidate, bool) {
	for _, m := range matches {
		if m.ID == id {
			return m, true
		}
	}
	return ocr.Candidate{}, false
}

func alternativesNote(target string, picked ocr.Candidate, matches []ocr.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Highlighted %q; %d other matches for %q, reply with an id to switch:\n",
		picked.Text, len(matches)-1, target)
	listed := 0
	for _, m := range matches {
		if m.ID == picked.ID {
			continue
		}
		if listed == maxListed {
			fmt.Fprintf(&b, "  ...\n")
			break
		}
		fmt.Fprintf(&b, "  %d. %q at (%d,%d)\n", m.ID, m.Text, m.Box.X, m.Box.Y)
		listed++
	}
	return strings.TrimRight(b.String(), "\n")
}
