// Package shape holds the on-screen annotation data model shared by the
// overlay engine, the coordinator, and the vision-response parsers.
package shape

import (
	"time"

	"screen-assistant/src/geometry"
)

type Kind int

const (
	KindRect Kind = iota
	KindCircle
	KindArrow
)

func (k Kind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindArrow:
		return "arrow"
	default:
		return "rect"
	}
}

// KindFromString maps the wire names to a Kind, defaulting to rect.
func KindFromString(s string) Kind {
	switch s {
	case "circle":
		return KindCircle
	case "arrow":
		return KindArrow
	default:
		return KindRect
	}
}

const (
	DefaultColor      = "green"
	DefaultMaxOpacity = 0.9
	DefaultDuration   = 8 * time.Second
	FadeInDuration    = 300 * time.Millisecond
	FadeOutDuration   = 1 * time.Second
	MinEditSize       = 10
)

// Shape is a single on-screen annotation in display-pixel space.
type Shape struct {
	Kind       Kind
	Rect       geometry.Rect
	Color      string
	Label      string
	Step       int
	CreatedAt  time.Time
	Opacity    float64
	MaxOpacity float64
	Duration   time.Duration
}

// New returns a shape with the animation defaults applied.
func New(kind Kind, rect geometry.Rect) Shape {
	return Shape{
		Kind:       kind,
		Rect:       rect,
		Color:      DefaultColor,
		Step:       1,
		MaxOpacity: DefaultMaxOpacity,
		Duration:   DefaultDuration,
	}
}

// Normalize fills zero-valued fields with defaults so shapes parsed off the
// wire behave like locally constructed ones.
func (s *Shape) Normalize() {
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.Step <= 0 {
		s.Step = 1
	}
	if s.MaxOpacity <= 0 {
		s.MaxOpacity = DefaultMaxOpacity
	}
	if s.Duration <= 0 {
		s.Duration = DefaultDuration
	}
}

// Set is all shapes belonging to one annotation request, grouped by step.
type Set struct {
	Shapes      []Shape
	CurrentStep int
	TotalSteps  int
}

// NewSet builds a set from shapes, deriving step bounds.
func NewSet(shapes []Shape) Set {
	total := 0
	for i := range shapes {
		shapes[i].Normalize()
		if shapes[i].Step > total {
			total = shapes[i].Step
		}
	}
	return Set{Shapes: shapes, CurrentStep: 1, TotalSteps: total}
}

// Empty reports whether the set holds no shapes.
func (s Set) Empty() bool { return len(s.Shapes) == 0 }

// StepShapes returns the indices of shapes belonging to the current step.
func (s Set) StepShapes() []int {
	var idx []int
	for i, sh := range s.Shapes {
		if sh.Step == s.CurrentStep {
			idx = append(idx, i)
		}
	}
	return idx
}
