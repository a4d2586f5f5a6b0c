package shape

import (
	"testing"
	"time"
)

func TestParseDirectiveFull(t *testing.T) {
	text := `Click the Save button now.
SHAPE[type:circle, x:100, y:50, w:80, h:20, color:red, label:"Save", step:2]`

	shapes, remainder := ParseDirectives(text)
	if len(shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(shapes))
	}
	s := shapes[0]
	if s.Kind != KindCircle {
		t.Errorf("Expected circle, got %v", s.Kind)
	}
	if s.Rect.X != 100 || s.Rect.Y != 50 || s.Rect.Width != 80 || s.Rect.Height != 20 {
		t.Errorf("Unexpected rect: %+v", s.Rect)
	}
	if s.Color != "red" {
		t.Errorf("Expected color red, got %s", s.Color)
	}
	if s.Label != "Save" {
		t.Errorf("Expected label Save, got %q", s.Label)
	}
	if s.Step != 2 {
		t.Errorf("Expected step 2, got %d", s.Step)
	}
	if remainder != "Click the Save button now." {
		t.Errorf("Expected directive stripped from text, got %q", remainder)
	}
}

func TestParseDirectiveDefaults(t *testing.T) {
	shapes, _ := ParseDirectives(`SHAPE[x:10, y:20, w:30, h:40]`)
	if len(shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(shapes))
	}
	s := shapes[0]
	if s.Kind != KindRect {
		t.Errorf("Expected default kind rect, got %v", s.Kind)
	}
	if s.Color != "green" {
		t.Errorf("Expected default color green, got %s", s.Color)
	}
	if s.Step != 1 {
		t.Errorf("Expected default step 1, got %d", s.Step)
	}
	if s.MaxOpacity != DefaultMaxOpacity || s.Duration != DefaultDuration {
		t.Errorf("Expected normalized animation defaults, got %+v", s)
	}
}

func TestParseDirectivesNone(t *testing.T) {
	shapes, remainder := ParseDirectives("Just a normal sentence.")
	if len(shapes) != 0 {
		t.Errorf("Expected no shapes, got %d", len(shapes))
	}
	if remainder != "Just a normal sentence." {
		t.Errorf("Expected text preserved, got %q", remainder)
	}
}

func TestParseDirectivesLabelWithComma(t *testing.T) {
	shapes, _ := ParseDirectives(`SHAPE[type:rect, x:1, y:2, w:3, h:4, label:"File, then Save"]`)
	if len(shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(shapes))
	}
	if shapes[0].Label != "File, then Save" {
		t.Errorf("Expected comma preserved in label, got %q", shapes[0].Label)
	}
}

func TestParseDirectivesLabelWithBracket(t *testing.T) {
	text := `Click here. SHAPE[type:rect, x:1, y:2, w:3, h:4, label:"Save [draft]"] Done.`
	shapes, remainder := ParseDirectives(text)
	if len(shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(shapes))
	}
	if shapes[0].Label != "Save [draft]" {
		t.Errorf("Expected bracket preserved in label, got %q", shapes[0].Label)
	}
	if remainder != "Click here.  Done." {
		t.Errorf("Expected full directive stripped, got %q", remainder)
	}
}

func TestParseDirectivesUnterminated(t *testing.T) {
	shapes, remainder := ParseDirectives(`SHAPE[type:rect, x:1, y:2`)
	if len(shapes) != 0 {
		t.Errorf("Expected no shapes from unterminated directive, got %d", len(shapes))
	}
	if remainder != "SHAPE[type:rect, x:1, y:2" {
		t.Errorf("Expected unterminated directive left in text, got %q", remainder)
	}
}

func TestNewSetStepGrouping(t *testing.T) {
	shapes := []Shape{
		{Kind: KindRect, Step: 1},
		{Kind: KindRect, Step: 2},
		{Kind: KindArrow, Step: 2},
	}
	set := NewSet(shapes)
	if set.CurrentStep != 1 || set.TotalSteps != 2 {
		t.Errorf("Expected current=1 total=2, got current=%d total=%d", set.CurrentStep, set.TotalSteps)
	}
	if idx := set.StepShapes(); len(idx) != 1 || idx[0] != 0 {
		t.Errorf("Expected only first shape in step 1, got %v", idx)
	}
	set.CurrentStep = 2
	if idx := set.StepShapes(); len(idx) != 2 {
		t.Errorf("Expected two shapes in step 2, got %v", idx)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	s := Shape{}
	s.Normalize()
	if s.Color != DefaultColor || s.Step != 1 || s.MaxOpacity != DefaultMaxOpacity || s.Duration != 8*time.Second {
		t.Errorf("Normalize left defaults unset: %+v", s)
	}
}
